package tree

import (
	"math"
	"runtime/debug"
)

const (
	entriesPerGiB = 500
	minCacheSize  = 500
	gib           = 1 << 30
)

// DefaultCacheSize scales the tree cache with the memory available to the
// process: the Go memory limit when one is set, else physical memory.
func DefaultCacheSize() int {
	return cacheSizeFor(availableMemory())
}

func cacheSizeFor(memBytes uint64) int {
	size := int(memBytes / gib * entriesPerGiB)
	if size < minCacheSize {
		return minCacheSize
	}
	return size
}

func availableMemory() uint64 {
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit != math.MaxInt64 {
		return uint64(limit)
	}
	return physicalMemory()
}
