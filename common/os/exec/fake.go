package exec

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// FakeExec records the commands it is asked to run instead of running them.
// Results maps a command line, its arguments joined by spaces, to the error
// its Run or Wait returns.
type FakeExec struct {
	Results map[string]error

	mu  sync.Mutex
	ran []string
}

func NewFakeExec(results map[string]error) *FakeExec {
	if results == nil {
		results = map[string]error{}
	}
	return &FakeExec{Results: results}
}

// Ran returns the command lines run so far, in order.
func (f *FakeExec) Ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ran...)
}

func (f *FakeExec) Command(name string, args ...string) Cmd {
	return &fakeCmd{exec: f, args: append([]string{name}, args...)}
}

type fakeCmd struct {
	exec    *FakeExec
	args    []string
	started bool
}

func (c *fakeCmd) Path() string   { return c.args[0] }
func (c *fakeCmd) Args() []string { return append([]string(nil), c.args...) }
func (c *fakeCmd) String() string { return strings.Join(c.args, " ") }

func (c *fakeCmd) SetStdin(io.Reader)  {}
func (c *fakeCmd) SetStdout(io.Writer) {}
func (c *fakeCmd) SetStderr(io.Writer) {}
func (c *fakeCmd) SetDir(string)       {}

func (c *fakeCmd) Run() error {
	if err := c.Start(); err != nil {
		return err
	}
	return c.Wait()
}

func (c *fakeCmd) Start() error {
	if c.started {
		return fmt.Errorf("%s already started", c)
	}
	c.started = true
	return nil
}

func (c *fakeCmd) Wait() error {
	if !c.started {
		return fmt.Errorf("%s not started", c)
	}
	line := c.String()
	c.exec.mu.Lock()
	c.exec.ran = append(c.exec.ran, line)
	err := c.exec.Results[line]
	c.exec.mu.Unlock()
	return err
}

// FakeExitError is an ExitError for scripting FakeExec results.
type FakeExitError struct {
	Status int
	Cmd    []string
}

func (e *FakeExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", strings.Join(e.Cmd, " "), e.Status)
}

func (e *FakeExitError) Exited() bool    { return true }
func (e *FakeExitError) ExitStatus() int { return e.Status }
func (e *FakeExitError) Signaled() bool  { return false }
func (e *FakeExitError) Path() string    { return e.Cmd[0] }
func (e *FakeExitError) Args() []string  { return e.Cmd }
