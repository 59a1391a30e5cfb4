//go:build !linux

package tree

// Unknown, so the minimum cache size applies.
func physicalMemory() uint64 {
	return 0
}
