package snapshot

import (
	"fmt"
	"sort"
)

// OutputFilesSnapshot pairs the files under a task's declared outputs with
// the identity of each output root. A nil id means the root didn't exist.
type OutputFilesSnapshot struct {
	roots map[string]*int64
	files *FileCollectionSnapshot
}

func NewOutputFilesSnapshot(roots map[string]*int64, files *FileCollectionSnapshot) *OutputFilesSnapshot {
	copied := make(map[string]*int64, len(roots))
	for p, id := range roots {
		copied[intern(p)] = id
	}
	if files == nil {
		files = EmptySnapshot()
	}
	return &OutputFilesSnapshot{roots: copied, files: files}
}

// RootID returns the identity recorded for root and whether root was declared.
func (s *OutputFilesSnapshot) RootID(root string) (*int64, bool) {
	id, ok := s.roots[root]
	return id, ok
}

// Roots returns the declared output roots in lexical order.
func (s *OutputFilesSnapshot) Roots() []string {
	roots := make([]string, 0, len(s.roots))
	for r := range s.roots {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

func (s *OutputFilesSnapshot) Files() *FileCollectionSnapshot {
	return s.files
}

func (s *OutputFilesSnapshot) String() string {
	return fmt.Sprintf("OutputFilesSnapshot{%d roots, %d files}", len(s.roots), s.files.Len())
}

// ChangesSince reports root identity changes first, then file changes.
// Files added under the outputs are never reported.
func (s *OutputFilesSnapshot) ChangesSince(old Snapshot) ChangeIterator {
	o := asOutputs(old, s)
	return &outputChanges{
		roots: rootChanges(o.roots, s.roots),
		files: s.files.changesSince(o.files, func(string) bool { return false }),
	}
}

func (s *OutputFilesSnapshot) ApplyAllChangesSince(old, target Snapshot) Snapshot {
	o := asOutputs(old, s)
	t := asOutputs(target, s)
	files := s.files.ApplyAllChangesSince(o.files, t.files).(*FileCollectionSnapshot)
	return &OutputFilesSnapshot{roots: s.roots, files: files}
}

func (s *OutputFilesSnapshot) UpdateFrom(newer Snapshot) Snapshot {
	n := asOutputs(newer, s)
	files := s.files.UpdateFrom(n.files).(*FileCollectionSnapshot)
	return &OutputFilesSnapshot{roots: s.roots, files: files}
}

func asOutputs(other Snapshot, self Snapshot) *OutputFilesSnapshot {
	o, ok := other.(*OutputFilesSnapshot)
	if !ok {
		panic(fmt.Sprintf("cannot compare snapshot of type %T with snapshot of type %T", self, other))
	}
	return o
}

// A root seen for the first time is added and one no longer declared is
// removed. A root is changed when it had an id and now has a different one or
// none. A root getting its first id is not a change.
func rootChanges(previous, current map[string]*int64) []Change {
	changes := []Change{}
	for _, root := range sortedKeys(current) {
		id := current[root]
		prevID, ok := previous[root]
		switch {
		case !ok:
			changes = append(changes, Change{root, Added})
		case prevID != nil && (id == nil || *id != *prevID):
			changes = append(changes, Change{root, Changed})
		}
	}
	for _, root := range sortedKeys(previous) {
		if _, ok := current[root]; !ok {
			changes = append(changes, Change{root, Removed})
		}
	}
	return changes
}

func sortedKeys(m map[string]*int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type outputChanges struct {
	roots []Change
	files *collectionChanges
}

func (c *outputChanges) Next(listener ChangeListener) bool {
	if len(c.roots) > 0 {
		change := c.roots[0]
		c.roots = c.roots[1:]
		listener(change.Path, change.Type)
		return true
	}
	return c.files.Next(listener)
}
