// Package cache provides the persistent store behind the snapshot engine: a
// directory holding named on-disk indexed caches guarded by an exclusive
// cross-process lock, plus an in-memory LRU layer for long lived processes.
//
// All cache reads and writes must happen inside Store.UseCache. Nested
// UseCache calls on the same Store are not supported and will deadlock.
package cache

//go:generate mockgen -source=cache.go -package=cache -destination=cache_mock.go

import (
	"github.com/pkg/errors"
)

// Returned when a persistent cache is used outside of a UseCache batch.
var ErrNotLocked = errors.New("cache used outside of Store.UseCache")

// IndexedCache is a keyed byte cache. Get reports whether the key was present.
type IndexedCache interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Remove(key []byte) error
}

// AccessListener is notified each time a process gains and gives up
// exclusive access to a store.
type AccessListener interface {
	OnStartWork(state LockState)
	OnEndWork(state LockState)
}
