// Package tree walks directory trees into immutable VisitedTrees and caches
// unfiltered walks so repeated snapshots of the same root skip the filesystem.
package tree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bmatcuk/doublestar"
)

// Tree describes a directory to walk. Include and Exclude are doublestar
// patterns matched against slash separated paths relative to Root.
type Tree struct {
	Root    string
	Include []string
	Exclude []string
}

func (t Tree) Filtered() bool {
	return len(t.Include) > 0 || len(t.Exclude) > 0
}

// Entry is one visited path. Missing entries appear in joined trees and for
// dangling symlinks.
type Entry struct {
	Path    string
	IsDir   bool
	Missing bool
	ModTime int64
}

var lastTreeID atomic.Int64

// VisitedTree is the immutable result of walking a Tree. Callers must not
// modify Entries.
type VisitedTree struct {
	root      string
	entries   []Entry
	shareable bool
	id        atomic.Int64
}

func NewVisitedTree(root string, entries []Entry, shareable bool) *VisitedTree {
	return &VisitedTree{root: root, entries: entries, shareable: shareable}
}

func (v *VisitedTree) Root() string     { return v.root }
func (v *VisitedTree) Entries() []Entry { return v.entries }
func (v *VisitedTree) Shareable() bool  { return v.shareable }

// ID is a process unique identity, assigned the first time it's asked for.
func (v *VisitedTree) ID() int64 {
	if id := v.id.Load(); id != 0 {
		return id
	}
	v.id.CompareAndSwap(0, lastTreeID.Add(1))
	return v.id.Load()
}

func (v *VisitedTree) String() string {
	return fmt.Sprintf("VisitedTree{root=%s entries=%d shareable=%t}", v.root, len(v.entries), v.shareable)
}

// CreateJoinedTree concatenates the entries of trees followed by a Missing
// entry per missing path. A lone tree with no missing paths is returned as is.
func CreateJoinedTree(trees []*VisitedTree, missingPaths []string) *VisitedTree {
	if len(trees) == 1 && len(missingPaths) == 0 {
		return trees[0]
	}
	n := len(missingPaths)
	for _, t := range trees {
		n += len(t.entries)
	}
	entries := make([]Entry, 0, n)
	for _, t := range trees {
		entries = append(entries, t.entries...)
	}
	for _, p := range missingPaths {
		entries = append(entries, Entry{Path: p, Missing: true})
	}
	return NewVisitedTree("", entries, false)
}

// Walk visits every path under t.Root, the root included, in lexical order.
// Errors are returned rather than skipped. Excluded directories are pruned.
func Walk(t Tree) (*VisitedTree, error) {
	root := filepath.Clean(t.Root)
	entries := []Entry{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			excluded, err := matchesAny(t.Exclude, rel)
			if err != nil {
				return err
			}
			if excluded {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if len(t.Include) > 0 {
				included, err := matchesAny(t.Include, rel)
				if err != nil {
					return err
				}
				if !included {
					return nil
				}
			}
		}
		entry, err := entryFor(path, d)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't walk %s: %v", root, err)
	}
	return NewVisitedTree(root, entries, false), nil
}

// entryFor classifies symlinks by their target. Links to directories are
// recorded as directories but not descended into, and dangling links are
// recorded as missing.
func entryFor(path string, d fs.DirEntry) (Entry, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return Entry{Path: path, Missing: true}, nil
		}
		if err != nil {
			return Entry{}, err
		}
		return Entry{Path: path, IsDir: info.IsDir(), ModTime: info.ModTime().UnixNano()}, nil
	}
	info, err := d.Info()
	if err != nil {
		return Entry{}, err
	}
	return Entry{Path: path, IsDir: d.IsDir(), ModTime: info.ModTime().UnixNano()}, nil
}

func matchesAny(patterns []string, rel string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, rel)
		if err != nil {
			return false, fmt.Errorf("bad pattern %q: %v", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
