package tree

import (
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/common/stats"
)

// Visitor produces VisitedTrees, possibly reusing earlier walks.
type Visitor interface {
	// allowReuse permits a cached walk of an unfiltered tree. Filtered trees
	// are always walked and never cached.
	VisitTree(t Tree, allowReuse bool) (*VisitedTree, error)
	ClearCache()
}

// CachingVisitor keeps a bounded LRU of unfiltered walks keyed by root path.
// Safe for concurrent use.
type CachingVisitor struct {
	cache *lru.Cache[string, *VisitedTree]
	stat  stats.StatsReceiver
}

func NewCachingVisitor(size int, stat stats.StatsReceiver) (*CachingVisitor, error) {
	if size <= 0 {
		size = DefaultCacheSize()
	}
	c, err := lru.New[string, *VisitedTree](size)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	log.Debugf("Tree cache holds %d roots", size)
	return &CachingVisitor{cache: c, stat: stat.Scope("tree")}, nil
}

func (v *CachingVisitor) VisitTree(t Tree, allowReuse bool) (*VisitedTree, error) {
	if t.Filtered() || !allowReuse {
		return v.walk(t, false)
	}
	root := filepath.Clean(t.Root)
	if cached, ok := v.cache.Get(root); ok {
		v.stat.Counter(stats.TreeCacheHitCounter).Inc(1)
		return cached, nil
	}
	visited, err := v.walk(t, true)
	if err != nil {
		return nil, err
	}
	v.cache.Add(root, visited)
	v.stat.Gauge(stats.TreeCacheSizeGauge).Update(int64(v.cache.Len()))
	return visited, nil
}

// ClearCache drops every cached walk, e.g. after a task may have written
// into a cached root.
func (v *CachingVisitor) ClearCache() {
	v.cache.Purge()
	v.stat.Gauge(stats.TreeCacheSizeGauge).Update(0)
}

// OnStartWork clears the cache when the visitor is registered as a store
// access listener, so walks are only reused within one batch.
func (v *CachingVisitor) OnStartWork(cache.LockState) {
	v.ClearCache()
}

func (v *CachingVisitor) OnEndWork(cache.LockState) {}

func (v *CachingVisitor) Len() int {
	return v.cache.Len()
}

func (v *CachingVisitor) walk(t Tree, shareable bool) (*VisitedTree, error) {
	defer v.stat.Latency(stats.TreeWalkLatency_ms).Time().Stop()
	v.stat.Counter(stats.TreeWalkCounter).Inc(1)
	visited, err := Walk(t)
	if err != nil {
		return nil, err
	}
	visited.shareable = shareable
	return visited, nil
}
