package snapshot

import (
	"fmt"
)

type ChangeType int

const (
	Added ChangeType = iota
	Removed
	Changed
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(c))
	}
}

// Change is one difference between two snapshots.
type Change struct {
	Path string
	Type ChangeType
}

func (c Change) String() string {
	return fmt.Sprintf("%s has %s", c.Path, c.Type)
}

// ChangeListener receives changes from a ChangeIterator.
type ChangeListener func(path string, change ChangeType)

// ChangeIterator reports the changes between two snapshots one at a time.
// Next calls listener with at most one change and returns false once every
// change has been reported. Changes already reported are never repeated.
type ChangeIterator interface {
	Next(listener ChangeListener) bool
}

// AllChanges drains it.
func AllChanges(it ChangeIterator) []Change {
	changes := []Change{}
	for it.Next(func(path string, change ChangeType) {
		changes = append(changes, Change{path, change})
	}) {
	}
	return changes
}

// FirstChanges drains at most max changes from it, for reporting.
func FirstChanges(it ChangeIterator, max int) []Change {
	changes := []Change{}
	for len(changes) < max && it.Next(func(path string, change ChangeType) {
		changes = append(changes, Change{path, change})
	}) {
	}
	return changes
}
