package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/common/stats"
)

// IDSource hands out durable, increasing ids. *cache.Store is one.
type IDSource interface {
	NextID(sequence string) (int64, error)
}

// OutputFilesSnapshotter snapshots a task's declared outputs along with a
// persistent identity per output root, kept in the outputFileStates cache.
// Must be used inside a Store.UseCache batch.
type OutputFilesSnapshotter struct {
	delegate *Snapshotter
	ids      *cache.TypedCache[string, int64]
	source   IDSource
	stat     stats.StatsReceiver
}

func NewOutputFilesSnapshotter(delegate *Snapshotter, rootIDs cache.IndexedCache, source IDSource, stat stats.StatsReceiver) *OutputFilesSnapshotter {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &OutputFilesSnapshotter{
		delegate: delegate,
		ids:      cache.NewTypedCache[string, int64](rootIDs, cache.StringSerializer{}, cache.Int64Serializer{}),
		source:   source,
		stat:     stat.Scope("snapshot"),
	}
}

// Snapshot gives each existing root its stored id, or a new one, and
// forgets the id of every root that no longer exists. Output directories
// are always walked afresh.
func (o *OutputFilesSnapshotter) Snapshot(roots []string) (*OutputFilesSnapshot, error) {
	ids := make(map[string]*int64, len(roots))
	absRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("couldn't resolve %s: %v", root, err)
		}
		absRoots = append(absRoots, abs)
		id, err := o.rootID(abs)
		if err != nil {
			return nil, err
		}
		ids[abs] = id
	}
	files, err := o.delegate.SnapshotPaths(absRoots, false)
	if err != nil {
		return nil, err
	}
	return NewOutputFilesSnapshot(ids, files), nil
}

func (o *OutputFilesSnapshotter) rootID(root string) (*int64, error) {
	_, err := os.Stat(root)
	if os.IsNotExist(err) {
		if _, ok, err := o.ids.Get(root); err != nil || !ok {
			return nil, err
		}
		return nil, o.ids.Remove(root)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't stat output %s: %v", root, err)
	}
	id, ok, err := o.ids.Get(root)
	if err != nil {
		return nil, err
	}
	if ok {
		return &id, nil
	}
	id, err = o.source.NextID(cache.OutputFileStatesCache)
	if err != nil {
		return nil, err
	}
	if err := o.ids.Put(root, id); err != nil {
		return nil, err
	}
	o.stat.Counter(stats.SnapshotOutputRootIdAssignedCounter).Inc(1)
	log.Debugf("Assigned id %d to output %s", id, root)
	return &id, nil
}
