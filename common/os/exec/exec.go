// Package exec wraps os/exec behind interfaces so the commands run by
// taskstate can be replaced in tests.
package exec

import (
	"fmt"
	"io"
	osexec "os/exec"
	"strings"
	"syscall"
)

type (
	// OsExec creates commands. NewOsExec runs them for real.
	OsExec interface {
		// Command creates a Cmd that runs name with args. If name contains no
		// path separators it is resolved with os/exec.LookPath.
		Command(name string, args ...string) Cmd
	}

	// Cmd is the part of os/exec.Cmd that taskstate uses.
	Cmd interface {
		Path() string
		// Args returns a copy of the arguments, including the command name.
		Args() []string
		Run() error
		Start() error
		// Wait returns an ExitError when the command ran and failed.
		Wait() error
		SetStdin(io.Reader)
		SetStdout(io.Writer)
		SetStderr(io.Writer)
		SetDir(string)
		String() string
	}

	// ExitError is returned by Run and Wait when the command exited non-zero
	// or was killed by a signal.
	ExitError interface {
		error
		Exited() bool
		// ExitStatus is -1 unless Exited.
		ExitStatus() int
		Signaled() bool
		Path() string
		Args() []string
	}

	defaultOsExec struct{}

	cmdAdapter struct {
		cmd *osexec.Cmd
	}

	exitErrorAdapter struct {
		err  *osexec.ExitError
		ws   syscall.WaitStatus
		path string
		args []string
	}
)

func NewOsExec() OsExec {
	return defaultOsExec{}
}

func (defaultOsExec) Command(name string, args ...string) Cmd {
	return &cmdAdapter{cmd: osexec.Command(name, args...)}
}

func (c *cmdAdapter) Path() string {
	return c.cmd.Path
}

func (c *cmdAdapter) Args() []string {
	return append([]string(nil), c.cmd.Args...)
}

func (c *cmdAdapter) Run() error {
	return c.wrap(c.cmd.Run())
}

func (c *cmdAdapter) Start() error {
	return c.cmd.Start()
}

func (c *cmdAdapter) Wait() error {
	return c.wrap(c.cmd.Wait())
}

func (c *cmdAdapter) SetStdin(r io.Reader)  { c.cmd.Stdin = r }
func (c *cmdAdapter) SetStdout(w io.Writer) { c.cmd.Stdout = w }
func (c *cmdAdapter) SetStderr(w io.Writer) { c.cmd.Stderr = w }
func (c *cmdAdapter) SetDir(dir string)     { c.cmd.Dir = dir }

func (c *cmdAdapter) String() string {
	return strings.Join(c.cmd.Args, " ")
}

func (c *cmdAdapter) wrap(err error) error {
	exitErr, ok := err.(*osexec.ExitError)
	if !ok {
		return err
	}
	ws, _ := exitErr.Sys().(syscall.WaitStatus)
	return &exitErrorAdapter{err: exitErr, ws: ws, path: c.cmd.Path, args: c.Args()}
}

func (e *exitErrorAdapter) Error() string {
	return fmt.Sprintf("%s: %v", strings.Join(e.args, " "), e.err)
}

func (e *exitErrorAdapter) Exited() bool {
	return e.ws.Exited()
}

func (e *exitErrorAdapter) ExitStatus() int {
	if !e.ws.Exited() {
		return -1
	}
	return e.ws.ExitStatus()
}

func (e *exitErrorAdapter) Signaled() bool {
	return e.ws.Signaled()
}

func (e *exitErrorAdapter) Path() string {
	return e.path
}

func (e *exitErrorAdapter) Args() []string {
	return append([]string(nil), e.args...)
}
