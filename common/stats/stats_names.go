package stats

/*
This file defines all the metrics being collected.   As new metrics are added please follow this pattern.
*/

const (
	/************************* Persistent store metrics **************************/
	/*
		number of times a caller waited for the exclusive file lock held by another process
	*/
	StoreLockContendedCounter = "lockContendedCounter"

	/*
		amount of time spent acquiring the in-process mutex and the exclusive file lock
	*/
	StoreLockAcquireLatency_ms = "lockAcquireLatency_ms"

	/*
		number of useCache batches run against the store
	*/
	StoreUseCacheCounter = "useCacheCounter"

	/*
		number of long running operations that released the store lock
	*/
	StoreLongRunningOperationCounter = "longRunningOperationCounter"

	/*
		number of rows read from / written to / removed from the persistent caches
	*/
	StoreReadCounter   = "readCounter"
	StoreWriteCounter  = "writeCounter"
	StoreRemoveCounter = "removeCounter"

	/************************* In-memory decorator metrics **************************/
	/*
		lookups served from the in-memory cache, including confirmed absent entries
	*/
	DecoratorHitCounter = "hitCounter"

	/*
		lookups that fell through to the persistent cache
	*/
	DecoratorMissCounter = "missCounter"

	/*
		number of times every in-memory cache was dropped because another process wrote to the store
	*/
	DecoratorInvalidateCounter = "invalidateCounter"

	/*
		entries dropped from an in-memory cache when it reached its capacity
	*/
	DecoratorEvictionCounter = "evictionCounter"

	/************************* Directory tree metrics **************************/
	/*
		walks served from the tree cache
	*/
	TreeCacheHitCounter = "cacheHitCounter"

	/*
		walks that touched the filesystem
	*/
	TreeWalkCounter = "walkCounter"

	/*
		amount of time it takes to walk a directory tree
	*/
	TreeWalkLatency_ms = "walkLatency_ms"

	/*
		number of entries currently held by the tree cache
	*/
	TreeCacheSizeGauge = "cacheSizeGauge"

	/************************* Hashing metrics **************************/
	/*
		number of files whose content was read and hashed
	*/
	HasherHashCounter = "hashCounter"

	/*
		amount of time it takes to hash a single file
	*/
	HasherHashLatency_ms = "hashLatency_ms"

	/*
		hashes served from the persistent file hash cache because length and mtime matched
	*/
	HasherCacheHitCounter = "cacheHitCounter"

	/************************* Snapshot metrics **************************/
	/*
		amount of time it takes to snapshot a set of files
	*/
	SnapshotLatency_ms = "snapshotLatency_ms"

	/*
		number of entries in the most recent snapshot
	*/
	SnapshotSizeGauge = "snapshotSizeGauge"

	/*
		number of output roots that were assigned a new persistent id
	*/
	SnapshotOutputRootIdAssignedCounter = "outputRootIdAssignedCounter"

	/************************* Task history metrics **************************/
	/*
		number of task histories loaded
	*/
	HistoryLoadCounter = "loadCounter"

	/*
		number of executions dropped from a task history because it was full
	*/
	HistoryEvictedCounter = "evictedCounter"

	/*
		number of up-to-date checks that found the task up to date / out of date
	*/
	UpToDateCounter  = "upToDateCounter"
	OutOfDateCounter = "outOfDateCounter"
)
