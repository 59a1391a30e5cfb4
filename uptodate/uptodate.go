// Package uptodate decides whether a task can be skipped by comparing its
// current inputs and outputs with those recorded for its previous execution.
package uptodate

import (
	"fmt"
	"reflect"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/common/stats"
	"github.com/twitter/taskstate/history"
	"github.com/twitter/taskstate/snapshot"
	"github.com/twitter/taskstate/tree"
)

// DefaultMaxReportedChanges bounds the reasons IsUpToDate gives.
const DefaultMaxReportedChanges = 3

// Task is a history.Task that also declares its input files.
type Task interface {
	history.Task
	InputFiles() []tree.Tree
}

// Repository hands out the artifact state of tasks. Must be used inside a
// Store.UseCache batch.
type Repository struct {
	history     history.TaskHistoryRepository
	inputs      *snapshot.Snapshotter
	outputs     *snapshot.OutputFilesSnapshotter
	maxReported int
	stat        stats.StatsReceiver
}

func NewRepository(
	h history.TaskHistoryRepository,
	inputs *snapshot.Snapshotter,
	outputs *snapshot.OutputFilesSnapshotter,
	maxReported int,
	stat stats.StatsReceiver,
) *Repository {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	if maxReported <= 0 {
		maxReported = DefaultMaxReportedChanges
	}
	return &Repository{
		history:     h,
		inputs:      inputs,
		outputs:     outputs,
		maxReported: maxReported,
		stat:        stat.Scope("uptodate"),
	}
}

// StateFor snapshots task's inputs and outputs as they are now and loads
// what was recorded for its previous execution.
func (r *Repository) StateFor(task Task) (*ArtifactState, error) {
	h, err := r.history.GetHistory(task)
	if err != nil {
		return nil, err
	}
	inputs, err := r.inputs.Snapshot(task.InputFiles(), true)
	if err != nil {
		return nil, fmt.Errorf("couldn't snapshot inputs of %s: %v", task.Path(), err)
	}
	outputsBefore, err := r.outputs.Snapshot(task.DeclaredOutputs())
	if err != nil {
		return nil, fmt.Errorf("couldn't snapshot outputs of %s: %v", task.Path(), err)
	}
	h.CurrentExecution().SetInputFilesSnapshot(inputs)
	// Both sides go through the codec so values compare in the same form.
	currentProperties, err := h.CurrentExecution().InputPropertyValues(task.ValueCodec())
	if err != nil {
		return nil, err
	}

	state := &ArtifactState{
		repo:              r,
		task:              task,
		history:           h,
		inputs:            inputs,
		outputsBefore:     outputsBefore,
		currentProperties: currentProperties,
	}
	if prev := h.PreviousExecution(); prev != nil {
		if state.previousInputs, err = prev.InputFilesSnapshot(); err != nil {
			return nil, err
		}
		if state.previousOutputs, err = prev.OutputFilesSnapshot(); err != nil {
			return nil, err
		}
		if state.previousProperties, err = prev.InputPropertyValues(task.ValueCodec()); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// ArtifactState is the state of one task around one execution.
type ArtifactState struct {
	repo               *Repository
	task               Task
	history            *history.History
	inputs             snapshot.Snapshot
	outputsBefore      *snapshot.OutputFilesSnapshot
	previousInputs     snapshot.Snapshot
	previousOutputs    snapshot.Snapshot
	currentProperties  map[string]interface{}
	previousProperties map[string]interface{}
}

// IsUpToDate reports whether nothing relevant changed since the previous
// execution, and if something did, up to MaxReportedChanges reasons why.
func (a *ArtifactState) IsUpToDate() (bool, []string) {
	reasons := a.outOfDateReasons()
	if len(reasons) > 0 {
		a.repo.stat.Counter(stats.OutOfDateCounter).Inc(1)
		log.Infof("%s is not up-to-date: %v", a.task.Path(), reasons)
		return false, reasons
	}
	a.repo.stat.Counter(stats.UpToDateCounter).Inc(1)
	log.Infof("%s is up-to-date", a.task.Path())
	return true, nil
}

func (a *ArtifactState) outOfDateReasons() []string {
	limit := a.repo.maxReported
	path := a.task.Path()
	prev := a.history.PreviousExecution()
	if prev == nil {
		return []string{"No history is available."}
	}
	current := a.history.CurrentExecution()

	reasons := []string{}
	report := func(format string, args ...interface{}) bool {
		reasons = append(reasons, fmt.Sprintf(format, args...))
		return len(reasons) >= limit
	}

	if prev.TaskType != current.TaskType {
		if report("Task '%s' has changed type from '%s' to '%s'.", path, prev.TaskType, current.TaskType) {
			return reasons
		}
	}
	if !prev.Successful {
		if report("Task '%s' has failed previously.", path) {
			return reasons
		}
	}

	currentProps := a.currentProperties
	for _, name := range sortedNames(currentProps) {
		old, ok := a.previousProperties[name]
		if !ok {
			if report("Input property '%s' has been added for %s", name, path) {
				return reasons
			}
		} else if !reflect.DeepEqual(old, currentProps[name]) {
			if report("Value of input property '%s' has changed for %s", name, path) {
				return reasons
			}
		}
	}
	for _, name := range sortedNames(a.previousProperties) {
		if _, ok := currentProps[name]; !ok {
			if report("Input property '%s' has been removed for %s", name, path) {
				return reasons
			}
		}
	}

	added, removed := diffSorted(prev.DeclaredOutputs, current.DeclaredOutputs)
	for _, o := range added {
		if report("Output property '%s' has been added for %s", o, path) {
			return reasons
		}
	}
	for _, o := range removed {
		if report("Output property '%s' has been removed for %s", o, path) {
			return reasons
		}
	}

	if a.previousOutputs != nil {
		for _, c := range snapshot.FirstChanges(a.outputsBefore.ChangesSince(a.previousOutputs), limit-len(reasons)) {
			if report("Output file %s for %s has been %s.", c.Path, path, c.Type) {
				return reasons
			}
		}
	}
	if a.previousInputs != nil {
		for _, c := range snapshot.FirstChanges(a.inputs.ChangesSince(a.previousInputs), limit-len(reasons)) {
			if report("Input file %s for %s has been %s.", c.Path, path, c.Type) {
				return reasons
			}
		}
	}
	return reasons
}

// AfterTask records the execution that just finished. Only files the task
// produced, plus files it produced in earlier executions, are recorded as
// its outputs.
func (a *ArtifactState) AfterTask(taskErr error) error {
	after, err := a.repo.outputs.Snapshot(a.task.DeclaredOutputs())
	if err != nil {
		return fmt.Errorf("couldn't snapshot outputs of %s: %v", a.task.Path(), err)
	}
	previous := snapshot.EmptySnapshot()
	if a.previousOutputs != nil {
		previous = a.previousOutputs.Files()
	}
	produced := producedOutputs(after, a.outputsBefore, previous)
	// The task may have written anywhere, including other tasks' inputs.
	a.repo.inputs.ClearCache()
	current := a.history.CurrentExecution()
	current.SetOutputFilesSnapshot(produced)
	current.Successful = taskErr == nil
	if err := a.history.Update(); err != nil {
		return fmt.Errorf("couldn't update history of %s: %v", a.task.Path(), err)
	}
	log.Debugf("Recorded %v with %d output files", current, produced.Files().Len())
	return nil
}

// producedOutputs keeps the entries of after that the task created or
// modified, plus those already recorded as outputs by an earlier execution.
// A file rewritten with the same content still counts as modified when its
// modification time moved.
func producedOutputs(after, before *snapshot.OutputFilesSnapshot, previous *snapshot.FileCollectionSnapshot) *snapshot.OutputFilesSnapshot {
	files := map[string]snapshot.FileSnapshot{}
	for _, path := range after.Files().Paths() {
		f, _ := after.Files().Get(path)
		if f.Type == snapshot.MissingType {
			continue
		}
		if _, ok := previous.Get(path); ok {
			files[path] = f
			continue
		}
		if b, ok := before.Files().Get(path); !ok || !f.ContentAndMetadataEquals(b) {
			files[path] = f
		}
	}
	roots := map[string]*int64{}
	for _, root := range after.Roots() {
		roots[root], _ = after.RootID(root)
	}
	return snapshot.NewOutputFilesSnapshot(roots, snapshot.NewFileCollectionSnapshot(files))
}

// OutputFiles returns the files recorded as produced by the previous
// execution.
func (a *ArtifactState) OutputFiles() []string {
	if a.previousOutputs == nil {
		return []string{}
	}
	return a.previousOutputs.Files().Paths()
}

// PreviousExecution is the execution the current state was compared with.
func (a *ArtifactState) PreviousExecution() *history.TaskExecution {
	return a.history.PreviousExecution()
}

func sortedNames(m map[string]interface{}) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// diffSorted returns what's in current but not previous, and the reverse.
func diffSorted(previous, current []string) (added, removed []string) {
	i, j := 0, 0
	for i < len(previous) || j < len(current) {
		switch {
		case j == len(current) || (i < len(previous) && previous[i] < current[j]):
			removed = append(removed, previous[i])
			i++
		case i == len(previous) || current[j] < previous[i]:
			added = append(added, current[j])
			j++
		default:
			i++
			j++
		}
	}
	return added, removed
}
