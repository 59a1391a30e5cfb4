package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/common/stats"
	"github.com/twitter/taskstate/hashing"
	"github.com/twitter/taskstate/tree"
)

// Snapshotter turns files and directory trees into FileCollectionSnapshots.
type Snapshotter struct {
	visitor tree.Visitor
	hasher  hashing.Hasher
	stat    stats.StatsReceiver
}

func NewSnapshotter(visitor tree.Visitor, hasher hashing.Hasher, stat stats.StatsReceiver) *Snapshotter {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &Snapshotter{visitor: visitor, hasher: hasher, stat: stat.Scope("snapshot")}
}

// Snapshot records every root and, for directories, everything under them.
// Roots that don't exist are recorded as Missing. When a path is reached
// more than once the first occurrence wins. allowReuse permits cached walks
// of unfiltered directories. Any filesystem error fails the whole snapshot.
func (s *Snapshotter) Snapshot(roots []tree.Tree, allowReuse bool) (*FileCollectionSnapshot, error) {
	defer s.stat.Latency(stats.SnapshotLatency_ms).Time().Stop()
	visited, err := s.visit(roots, allowReuse)
	if err != nil {
		return nil, err
	}
	files := make(map[string]FileSnapshot, len(visited.Entries()))
	for _, e := range visited.Entries() {
		if _, ok := files[e.Path]; ok {
			continue
		}
		switch {
		case e.Missing:
			files[e.Path] = Missing()
		case e.IsDir:
			files[e.Path] = Directory()
		default:
			hash, err := s.hasher.Hash(e.Path)
			if err != nil {
				return nil, err
			}
			modTime := e.ModTime
			files[e.Path] = Hashed(hash, &modTime)
		}
	}
	snap := NewFileCollectionSnapshot(files)
	s.stat.Gauge(stats.SnapshotSizeGauge).Update(int64(snap.Len()))
	log.Debugf("Snapshotted %d roots into %d files", len(roots), snap.Len())
	return snap, nil
}

// ClearCache forgets every reused directory walk.
func (s *Snapshotter) ClearCache() {
	s.visitor.ClearCache()
}

// SnapshotPaths snapshots plain paths with no filters.
func (s *Snapshotter) SnapshotPaths(paths []string, allowReuse bool) (*FileCollectionSnapshot, error) {
	roots := make([]tree.Tree, 0, len(paths))
	for _, p := range paths {
		roots = append(roots, tree.Tree{Root: p})
	}
	return s.Snapshot(roots, allowReuse)
}

func (s *Snapshotter) visit(roots []tree.Tree, allowReuse bool) (*tree.VisitedTree, error) {
	trees := []*tree.VisitedTree{}
	missing := []string{}
	for _, root := range roots {
		abs, err := filepath.Abs(root.Root)
		if err != nil {
			return nil, fmt.Errorf("couldn't resolve %s: %v", root.Root, err)
		}
		info, err := os.Stat(abs)
		if os.IsNotExist(err) {
			missing = append(missing, abs)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("couldn't stat %s: %v", abs, err)
		}
		if !info.IsDir() {
			trees = append(trees, tree.NewVisitedTree(abs, []tree.Entry{{Path: abs, ModTime: info.ModTime().UnixNano()}}, false))
			continue
		}
		root.Root = abs
		visited, err := s.visitor.VisitTree(root, allowReuse)
		if err != nil {
			return nil, err
		}
		trees = append(trees, visited)
	}
	if len(trees) == 0 && len(missing) == 0 {
		return tree.NewVisitedTree("", nil, false), nil
	}
	return tree.CreateJoinedTree(trees, missing), nil
}
