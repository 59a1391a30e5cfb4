package cli

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/common/os/exec"
	"github.com/twitter/taskstate/common/stats"
	"github.com/twitter/taskstate/config"
	"github.com/twitter/taskstate/hashing"
	"github.com/twitter/taskstate/history"
	"github.com/twitter/taskstate/snapshot"
	"github.com/twitter/taskstate/tree"
	"github.com/twitter/taskstate/uptodate"
)

// Env is everything a command needs, wired from one Config.
type Env struct {
	Config      *config.Config
	Store       *cache.Store
	Decorator   *cache.InMemoryDecorator
	Snapshotter *snapshot.Snapshotter
	Outputs     *snapshot.OutputFilesSnapshotter
	Snapshots   *history.SnapshotRepository
	Histories   *history.CacheBackedTaskHistoryRepository
	UpToDate    *uptodate.Repository
	Stat        stats.StatsReceiver
	Exec        exec.OsExec
	Out         io.Writer
}

// NewEnv opens the store in cfg.CacheDir and builds the repositories on top
// of it. Caches are decorated in memory when cfg.LongLived.
func NewEnv(cfg *config.Config, stat stats.StatsReceiver) (*Env, error) {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	store, err := cache.Open(cfg.CacheDir, cfg.PollInterval(), stat)
	if err != nil {
		return nil, err
	}
	env := &Env{Config: cfg, Store: store, Stat: stat, Exec: exec.NewOsExec(), Out: os.Stdout}
	if cfg.LongLived {
		env.Decorator = cache.NewInMemoryDecorator(cfg.Capacities, stat)
		store.AddAccessListener(env.Decorator)
	}

	caches := map[string]cache.IndexedCache{}
	for _, name := range []string{cache.FileHashesCache, cache.FileSnapshotsCache, cache.OutputFileStatesCache, cache.TaskHistoryCache} {
		c, err := store.DecoratedCache(name, env.Decorator)
		if err != nil {
			store.Close()
			return nil, err
		}
		caches[name] = c
	}

	hasher, err := hashing.NewHasher(cfg.Hasher, stat)
	if err != nil {
		store.Close()
		return nil, err
	}
	if cfg.CacheFileHashes {
		hasher = hashing.NewCachingHasher(hasher, caches[cache.FileHashesCache], stat)
	}
	visitor, err := tree.NewCachingVisitor(cfg.TreeCacheEntries(), stat)
	if err != nil {
		store.Close()
		return nil, err
	}
	store.AddAccessListener(visitor)

	env.Snapshotter = snapshot.NewSnapshotter(visitor, hasher, stat)
	env.Outputs = snapshot.NewOutputFilesSnapshotter(env.Snapshotter, caches[cache.OutputFileStatesCache], store, stat)
	env.Snapshots = history.NewSnapshotRepository(caches[cache.FileSnapshotsCache], store)
	env.Histories = history.NewTaskHistoryRepository(caches[cache.TaskHistoryCache], env.Snapshots, stat)
	env.UpToDate = uptodate.NewRepository(env.Histories, env.Snapshotter, env.Outputs, cfg.MaxReportedChanges, stat)
	log.Debugf("Using store %s as %s, long lived: %t", store.Dir(), store.Owner(), cfg.LongLived)
	return env, nil
}

func (e *Env) Close() error {
	return e.Store.Close()
}
