package history

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/twitter/taskstate/common/wire"
)

// executionsSerializer encodes a task's history list, newest first.
type executionsSerializer struct{}

func (executionsSerializer) Encode(executions []*TaskExecution) ([]byte, error) {
	w := wire.NewWriter()
	if err := w.Count(len(executions)); err != nil {
		return nil, err
	}
	for _, e := range executions {
		if err := writeExecution(w, e); err != nil {
			return nil, errors.Wrapf(err, "couldn't encode execution of %s", e.TaskPath)
		}
	}
	return w.Bytes(), nil
}

func (executionsSerializer) Decode(data []byte) ([]*TaskExecution, error) {
	r := wire.NewReader(data)
	n, err := r.Count("execution count")
	if err != nil {
		return nil, err
	}
	executions := make([]*TaskExecution, 0, n)
	for i := 0; i < n; i++ {
		e, err := readExecution(r)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't decode execution %d", i)
		}
		executions = append(executions, e)
	}
	if r.Remaining() != 0 {
		return nil, errors.Errorf("%d trailing bytes after task history", r.Remaining())
	}
	return executions, nil
}

func writeExecution(w *wire.Writer, e *TaskExecution) error {
	if err := w.String(e.TaskPath); err != nil {
		return err
	}
	if err := w.String(e.TaskType); err != nil {
		return err
	}
	w.Bool(e.Successful)
	if err := w.Count(len(e.DeclaredOutputs)); err != nil {
		return err
	}
	for _, o := range e.DeclaredOutputs {
		if err := w.String(o); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(e.InputProperties))
	for name := range e.InputProperties {
		names = append(names, name)
	}
	sort.Strings(names)
	if err := w.Count(len(names)); err != nil {
		return err
	}
	for _, name := range names {
		if err := w.String(name); err != nil {
			return err
		}
		if err := w.Blob(e.InputProperties[name]); err != nil {
			return err
		}
	}
	w.OptionalInt64(e.inputFiles.id)
	w.OptionalInt64(e.outputFiles.id)
	return nil
}

func readExecution(r *wire.Reader) (*TaskExecution, error) {
	e := &TaskExecution{InputProperties: map[string][]byte{}}
	var err error
	if e.TaskPath, err = r.String("task path"); err != nil {
		return nil, err
	}
	if e.TaskType, err = r.String("task type"); err != nil {
		return nil, err
	}
	if e.Successful, err = r.Bool("success flag"); err != nil {
		return nil, err
	}
	n, err := r.Count("declared output count")
	if err != nil {
		return nil, err
	}
	e.DeclaredOutputs = make([]string, 0, n)
	for i := 0; i < n; i++ {
		o, err := r.String("declared output")
		if err != nil {
			return nil, err
		}
		e.DeclaredOutputs = append(e.DeclaredOutputs, o)
	}
	if n, err = r.Count("input property count"); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		name, err := r.String("input property name")
		if err != nil {
			return nil, err
		}
		value, err := r.Blob("input property value")
		if err != nil {
			return nil, err
		}
		e.InputProperties[name] = value
	}
	if e.inputFiles.id, err = r.OptionalInt64("input snapshot id"); err != nil {
		return nil, err
	}
	if e.outputFiles.id, err = r.OptionalInt64("output snapshot id"); err != nil {
		return nil, err
	}
	return e, nil
}
