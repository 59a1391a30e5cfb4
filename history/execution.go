package history

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/twitter/taskstate/snapshot"
)

// ValueCodec encodes a task's input property values. Each task decodes its
// own stored values, so a task can use types only it knows about.
type ValueCodec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// GobCodec is the default ValueCodec. Non-builtin types must be registered
// with gob.Register.
type GobCodec struct{}

func (GobCodec) Encode(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte) (interface{}, error) {
	var v interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Task is a unit of work whose executions are remembered.
type Task interface {
	// Path identifies the task across runs.
	Path() string
	// TypeName identifies the task's implementation.
	TypeName() string
	DeclaredOutputs() []string
	InputProperties() map[string]interface{}
	ValueCodec() ValueCodec
}

// SnapshotRef is either unloaded, holding only the id of a stored snapshot,
// or loaded, holding the snapshot and, once stored, its id.
type SnapshotRef struct {
	id       *int64
	snapshot snapshot.Snapshot
}

func Unloaded(id int64) SnapshotRef {
	return SnapshotRef{id: &id}
}

func Loaded(s snapshot.Snapshot) SnapshotRef {
	return SnapshotRef{snapshot: s}
}

// ID returns the stored snapshot id, if the snapshot has been stored.
func (r SnapshotRef) ID() (int64, bool) {
	if r.id == nil {
		return 0, false
	}
	return *r.id, true
}

func (r SnapshotRef) IsZero() bool {
	return r.id == nil && r.snapshot == nil
}

// get loads the snapshot on first access and keeps it.
func (r *SnapshotRef) get(repo FileSnapshotRepository) (snapshot.Snapshot, error) {
	if r.snapshot != nil || r.id == nil {
		return r.snapshot, nil
	}
	if repo == nil {
		return nil, fmt.Errorf("snapshot %d can't be loaded without a repository", *r.id)
	}
	s, err := repo.Get(*r.id)
	if err != nil {
		return nil, err
	}
	r.snapshot = s
	return s, nil
}

// store adds a loaded snapshot that has no id yet to repo.
func (r *SnapshotRef) store(repo FileSnapshotRepository) error {
	if r.id != nil || r.snapshot == nil {
		return nil
	}
	id, err := repo.Add(r.snapshot)
	if err != nil {
		return err
	}
	r.id = &id
	return nil
}

// TaskExecution is one run of a task.
type TaskExecution struct {
	TaskPath   string
	TaskType   string
	Successful bool
	// Sorted.
	DeclaredOutputs []string
	// Encoded with the task's ValueCodec.
	InputProperties map[string][]byte

	inputFiles  SnapshotRef
	outputFiles SnapshotRef
	repo        FileSnapshotRepository
}

// NewTaskExecution describes the upcoming run of task.
func NewTaskExecution(task Task) (*TaskExecution, error) {
	codec := task.ValueCodec()
	if codec == nil {
		codec = GobCodec{}
	}
	props := map[string][]byte{}
	for name, v := range task.InputProperties() {
		data, err := codec.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("couldn't encode input property %s of %s: %v", name, task.Path(), err)
		}
		props[name] = data
	}
	outputs := append([]string(nil), task.DeclaredOutputs()...)
	sort.Strings(outputs)
	return &TaskExecution{
		TaskPath:        task.Path(),
		TaskType:        task.TypeName(),
		DeclaredOutputs: dedupe(outputs),
		InputProperties: props,
	}, nil
}

// InputPropertyValues decodes the stored input properties with codec.
func (e *TaskExecution) InputPropertyValues(codec ValueCodec) (map[string]interface{}, error) {
	if codec == nil {
		codec = GobCodec{}
	}
	values := make(map[string]interface{}, len(e.InputProperties))
	for name, data := range e.InputProperties {
		v, err := codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("couldn't decode input property %s of %s: %v", name, e.TaskPath, err)
		}
		values[name] = v
	}
	return values, nil
}

// InputFilesSnapshot returns the snapshot of the inputs, loading it from the
// repository the first time. Nil if never recorded.
func (e *TaskExecution) InputFilesSnapshot() (snapshot.Snapshot, error) {
	return e.inputFiles.get(e.repo)
}

func (e *TaskExecution) OutputFilesSnapshot() (snapshot.Snapshot, error) {
	return e.outputFiles.get(e.repo)
}

func (e *TaskExecution) SetInputFilesSnapshot(s snapshot.Snapshot) {
	e.inputFiles = Loaded(s)
}

func (e *TaskExecution) SetOutputFilesSnapshot(s snapshot.Snapshot) {
	e.outputFiles = Loaded(s)
}

// SnapshotIDs returns the ids of the stored snapshots of this execution.
func (e *TaskExecution) SnapshotIDs() []int64 {
	ids := []int64{}
	if id, ok := e.inputFiles.ID(); ok {
		ids = append(ids, id)
	}
	if id, ok := e.outputFiles.ID(); ok {
		ids = append(ids, id)
	}
	return ids
}

func (e *TaskExecution) String() string {
	return fmt.Sprintf("TaskExecution{path=%s type=%s successful=%t outputs=%v}", e.TaskPath, e.TaskType, e.Successful, e.DeclaredOutputs)
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
