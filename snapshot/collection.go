package snapshot

import (
	"fmt"
	"sort"
	"unique"
)

// Snapshot is implemented by *FileCollectionSnapshot and
// *OutputFilesSnapshot. Methods taking another Snapshot panic when handed
// the other kind.
type Snapshot interface {
	// ChangesSince reports how this snapshot differs from old.
	ChangesSince(old Snapshot) ChangeIterator

	// ApplyAllChangesSince applies the changes between old and this snapshot
	// to target and returns the result.
	ApplyAllChangesSince(old, target Snapshot) Snapshot

	// UpdateFrom keeps the paths present in both this snapshot and newer,
	// with newer's values.
	UpdateFrom(newer Snapshot) Snapshot

	// Files is the flat path to snapshot view.
	Files() *FileCollectionSnapshot
}

// intern returns the process wide canonical copy of path.
func intern(path string) string {
	return unique.Make(path).Value()
}

// FileCollectionSnapshot is an immutable mapping of absolute paths to their
// FileSnapshots.
type FileCollectionSnapshot struct {
	files map[string]FileSnapshot
}

var emptyCollection = &FileCollectionSnapshot{files: map[string]FileSnapshot{}}

func EmptySnapshot() *FileCollectionSnapshot {
	return emptyCollection
}

// NewFileCollectionSnapshot copies files, interning every path.
func NewFileCollectionSnapshot(files map[string]FileSnapshot) *FileCollectionSnapshot {
	if len(files) == 0 {
		return emptyCollection
	}
	copied := make(map[string]FileSnapshot, len(files))
	for p, f := range files {
		copied[intern(p)] = f
	}
	return &FileCollectionSnapshot{files: copied}
}

func (s *FileCollectionSnapshot) Len() int {
	return len(s.files)
}

func (s *FileCollectionSnapshot) IsEmpty() bool {
	return len(s.files) == 0
}

func (s *FileCollectionSnapshot) Get(path string) (FileSnapshot, bool) {
	f, ok := s.files[path]
	return f, ok
}

// Paths returns every path in lexical order.
func (s *FileCollectionSnapshot) Paths() []string {
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *FileCollectionSnapshot) Files() *FileCollectionSnapshot {
	return s
}

func (s *FileCollectionSnapshot) String() string {
	return fmt.Sprintf("FileCollectionSnapshot{%d files}", len(s.files))
}

func (s *FileCollectionSnapshot) ChangesSince(old Snapshot) ChangeIterator {
	return s.changesSince(asCollection(old, s), nil)
}

// addedFilter decides whether an added path is reported. nil reports all.
func (s *FileCollectionSnapshot) changesSince(old *FileCollectionSnapshot, addedFilter func(path string) bool) *collectionChanges {
	remaining := make(map[string]FileSnapshot, len(old.files))
	for p, f := range old.files {
		remaining[p] = f
	}
	return &collectionChanges{
		current:     s,
		paths:       s.Paths(),
		remaining:   remaining,
		addedFilter: addedFilter,
	}
}

func (s *FileCollectionSnapshot) ApplyAllChangesSince(old, target Snapshot) Snapshot {
	oldFiles := asCollection(old, s)
	targetFiles := asCollection(target, s)
	result := make(map[string]FileSnapshot, len(targetFiles.files))
	for p, f := range targetFiles.files {
		result[p] = f
	}
	it := s.changesSince(oldFiles, nil)
	for it.Next(func(path string, change ChangeType) {
		switch change {
		case Added, Changed:
			result[path] = s.files[path]
		case Removed:
			delete(result, path)
		}
	}) {
	}
	return &FileCollectionSnapshot{files: result}
}

func (s *FileCollectionSnapshot) UpdateFrom(newer Snapshot) Snapshot {
	newerFiles := asCollection(newer, s)
	if s.IsEmpty() {
		return s
	}
	if newerFiles.IsEmpty() {
		return newerFiles
	}
	result := make(map[string]FileSnapshot, len(s.files))
	for p := range s.files {
		if f, ok := newerFiles.files[p]; ok {
			result[p] = f
		}
	}
	return &FileCollectionSnapshot{files: result}
}

// Comparing different snapshot kinds is a programming error.
func asCollection(other Snapshot, self Snapshot) *FileCollectionSnapshot {
	c, ok := other.(*FileCollectionSnapshot)
	if !ok {
		panic(fmt.Sprintf("cannot compare snapshot of type %T with snapshot of type %T", self, other))
	}
	return c
}

// Walks the current paths in order, matching and deleting them from a copy
// of the old files, then reports whatever is left in the copy as removed.
type collectionChanges struct {
	current     *FileCollectionSnapshot
	paths       []string
	next        int
	remaining   map[string]FileSnapshot
	removed     []string
	addedFilter func(path string) bool
}

func (c *collectionChanges) Next(listener ChangeListener) bool {
	for c.next < len(c.paths) {
		path := c.paths[c.next]
		c.next++
		current := c.current.files[path]
		if previous, ok := c.remaining[path]; ok {
			delete(c.remaining, path)
			if !current.ContentEquals(previous) {
				listener(path, Changed)
				return true
			}
			continue
		}
		if c.addedFilter == nil || c.addedFilter(path) {
			listener(path, Added)
			return true
		}
	}
	if c.removed == nil {
		c.removed = make([]string, 0, len(c.remaining))
		for p := range c.remaining {
			c.removed = append(c.removed, p)
		}
		sort.Strings(c.removed)
	}
	if len(c.removed) > 0 {
		path := c.removed[0]
		c.removed = c.removed[1:]
		delete(c.remaining, path)
		listener(path, Removed)
		return true
	}
	return false
}
