package cache

// Names of the caches kept in a store.
const (
	FileHashesCache       = "fileHashes"
	FileSnapshotsCache    = "fileSnapshots"
	OutputFileStatesCache = "outputFileStates"
	TaskHistoryCache      = "taskHistory"
)

// In-memory capacity used for a cache missing from the capacity table.
const DefaultInMemoryCapacity = 1000

// DefaultCapacities is the number of entries each cache keeps in memory
// when decorated.
func DefaultCapacities() map[string]int {
	return map[string]int{
		FileHashesCache:       400000,
		FileSnapshotsCache:    10000,
		OutputFileStatesCache: 3000,
		TaskHistoryCache:      2000,
	}
}
