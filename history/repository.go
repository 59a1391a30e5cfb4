// Package history remembers the last few executions of every task: what it
// declared as outputs, its input property values and the ids of its input and
// output snapshots in the fileSnapshots cache.
package history

//go:generate mockgen -source=repository.go -package=history -destination=repository_mock.go

import (
	"github.com/pkg/errors"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/snapshot"
)

// FileSnapshotRepository stores snapshots under ids it assigns.
type FileSnapshotRepository interface {
	Add(s snapshot.Snapshot) (int64, error)
	Get(id int64) (snapshot.Snapshot, error)
	Remove(id int64) error
}

// SnapshotRepository keeps snapshots in a persistent cache with ids drawn
// from the store's fileSnapshots sequence. Must be used inside a
// Store.UseCache batch.
type SnapshotRepository struct {
	cache *cache.TypedCache[int64, snapshot.Snapshot]
	ids   snapshot.IDSource
}

func NewSnapshotRepository(c cache.IndexedCache, ids snapshot.IDSource) *SnapshotRepository {
	return &SnapshotRepository{
		cache: cache.NewTypedCache[int64, snapshot.Snapshot](c, cache.Int64Serializer{}, snapshot.Serializer{}),
		ids:   ids,
	}
}

func (r *SnapshotRepository) Add(s snapshot.Snapshot) (int64, error) {
	id, err := r.ids.NextID(cache.FileSnapshotsCache)
	if err != nil {
		return 0, err
	}
	if err := r.cache.Put(id, s); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SnapshotRepository) Get(id int64) (snapshot.Snapshot, error) {
	s, ok, err := r.cache.Get(id)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't load snapshot %d", id)
	}
	if !ok {
		return nil, errors.Errorf("no snapshot with id %d", id)
	}
	return s, nil
}

func (r *SnapshotRepository) Remove(id int64) error {
	return r.cache.Remove(id)
}
