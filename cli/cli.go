// Package cli implements the taskstate command line.
//
// main constructs an EnvInjector and calls MakeCLI with it. Each subcommand
// registers its own flags; when cobra runs it, the wrapper asks the injector
// for an Env and hands it to the subcommand's run.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twitter/taskstate/cache"
	taskerrors "github.com/twitter/taskstate/common/errors"
	"github.com/twitter/taskstate/common/os/exec"
	"github.com/twitter/taskstate/snapshot"
)

type EnvInjector interface {
	RegisterFlags(cmd *cobra.Command)
	Inject() (*Env, error)
}

func MakeCLI(injector EnvInjector) *cobra.Command {
	rootCobraCmd := &cobra.Command{
		Use:           "taskstate",
		Short:         "incremental task change detection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	injector.RegisterFlags(rootCobraCmd)

	add := func(subCmd envCommand) {
		cmd := subCmd.register()
		cmd.RunE = func(innerCmd *cobra.Command, args []string) error {
			env, err := injector.Inject()
			if err != nil {
				return err
			}
			defer env.Close()
			return subCmd.run(env, innerCmd, args)
		}
		rootCobraCmd.AddCommand(cmd)
	}

	add(&snapshotCommand{})
	add(&checkCommand{})
	add(&historyCommand{})
	add(&diffCommand{})

	return rootCobraCmd
}

type envCommand interface {
	register() *cobra.Command
	run(env *Env, cmd *cobra.Command, args []string) error
}

type snapshotCommand struct {
	include []string
	exclude []string
	store   bool
}

func (c *snapshotCommand) register() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <path>...",
		Short: "prints the snapshot of files and directory trees",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().StringSliceVar(&c.include, "include", nil, "only include paths matching these patterns")
	cmd.Flags().StringSliceVar(&c.exclude, "exclude", nil, "exclude paths matching these patterns")
	cmd.Flags().BoolVar(&c.store, "store", false, "store the snapshot and print its id")
	return cmd
}

func (c *snapshotCommand) run(env *Env, _ *cobra.Command, args []string) error {
	return env.Store.UseCache("snapshot", func(*cache.Session) error {
		s, err := env.Snapshotter.Snapshot(inputTrees(args, c.include, c.exclude), true)
		if err != nil {
			return taskerrors.NewError(err, taskerrors.SnapshotFailureExitCode)
		}
		for _, p := range s.Paths() {
			f, _ := s.Get(p)
			fmt.Fprintf(env.Out, "%s\t%s\n", p, f)
		}
		if c.store {
			id, err := env.Snapshots.Add(s)
			if err != nil {
				return taskerrors.NewError(err, taskerrors.HistoryFailureExitCode)
			}
			fmt.Fprintf(env.Out, "id %d\n", id)
		}
		return nil
	})
}

type checkCommand struct {
	task       commandTask
	properties []string
}

func (c *checkCommand) register() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check -- <command>...",
		Short: "runs command unless the task is up-to-date, then records the execution",
	}
	cmd.Flags().StringVar(&c.task.path, "task", "", "task path, the key of its history")
	cmd.Flags().StringVar(&c.task.typeName, "type", "exec", "task type")
	cmd.Flags().StringSliceVar(&c.task.inputs, "input", nil, "input files and directories")
	cmd.Flags().StringSliceVar(&c.task.include, "include", nil, "only include input paths matching these patterns")
	cmd.Flags().StringSliceVar(&c.task.exclude, "exclude", nil, "exclude input paths matching these patterns")
	cmd.Flags().StringSliceVar(&c.task.outputs, "output", nil, "declared output files and directories")
	cmd.Flags().StringArrayVar(&c.properties, "property", nil, "input property as name=value")
	return cmd
}

func (c *checkCommand) run(env *Env, _ *cobra.Command, args []string) error {
	if c.task.path == "" {
		return taskerrors.NewError(fmt.Errorf("--task is required"), taskerrors.ConfigFailureExitCode)
	}
	props, err := parseProperties(c.properties)
	if err != nil {
		return taskerrors.NewError(err, taskerrors.ConfigFailureExitCode)
	}
	c.task.properties = props

	return env.Store.UseCache("check "+c.task.path, func(sess *cache.Session) error {
		state, err := env.UpToDate.StateFor(&c.task)
		if err != nil {
			return taskerrors.NewError(err, taskerrors.SnapshotFailureExitCode)
		}
		upToDate, reasons := state.IsUpToDate()
		if upToDate {
			fmt.Fprintf(env.Out, "%s UP-TO-DATE\n", c.task.path)
			return nil
		}
		for _, r := range reasons {
			fmt.Fprintf(env.Out, "%s\n", r)
		}
		if len(args) == 0 {
			return nil
		}
		cmdErr := sess.LongRunningOperation(c.task.path, func() error {
			return runCommand(env.Exec, args)
		})
		if err := state.AfterTask(cmdErr); err != nil {
			return taskerrors.NewError(err, taskerrors.HistoryFailureExitCode)
		}
		return cmdErr
	})
}

// runCommand runs args with the process's stdio. A command that ran and
// failed keeps its own exit code.
func runCommand(execer exec.OsExec, args []string) error {
	log.Infof("Running %v", args)
	cmd := execer.Command(args[0], args[1:]...)
	cmd.SetStdin(os.Stdin)
	cmd.SetStdout(os.Stdout)
	cmd.SetStderr(os.Stderr)
	if err := cmd.Start(); err != nil {
		return taskerrors.NewError(err, taskerrors.CouldNotExecExitCode)
	}
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(exec.ExitError); ok && exitErr.ExitStatus() > 0 {
			return taskerrors.NewError(err, taskerrors.ExitCode(exitErr.ExitStatus()))
		}
		return taskerrors.NewError(err, taskerrors.CommandFailureExitCode)
	}
	return nil
}

type historyCommand struct {
	task string
}

func (c *historyCommand) register() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "prints the stored executions of a task, newest first",
	}
	cmd.Flags().StringVar(&c.task, "task", "", "task path")
	return cmd
}

func (c *historyCommand) run(env *Env, _ *cobra.Command, _ []string) error {
	if c.task == "" {
		return taskerrors.NewError(fmt.Errorf("--task is required"), taskerrors.ConfigFailureExitCode)
	}
	return env.Store.UseCache("history "+c.task, func(*cache.Session) error {
		executions, err := env.Histories.Executions(c.task)
		if err != nil {
			return taskerrors.NewError(err, taskerrors.HistoryFailureExitCode)
		}
		if len(executions) == 0 {
			fmt.Fprintf(env.Out, "no history for %s\n", c.task)
			return nil
		}
		for i, e := range executions {
			names := make([]string, 0, len(e.InputProperties))
			for name := range e.InputProperties {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintf(env.Out, "%d: type=%s successful=%t outputs=[%s] properties=[%s] snapshots=%v\n",
				i, e.TaskType, e.Successful, strings.Join(e.DeclaredOutputs, " "), strings.Join(names, " "), e.SnapshotIDs())
		}
		return nil
	})
}

type diffCommand struct {
	id  int64
	max int
}

func (c *diffCommand) register() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff --id <id> [path]...",
		Short: "compares a stored snapshot with the filesystem now",
		Long: "Compares a stored snapshot with the filesystem now. Output snapshots are retaken " +
			"from their own roots, plain snapshots from the given paths.",
	}
	cmd.Flags().Int64Var(&c.id, "id", 0, "stored snapshot id")
	cmd.Flags().IntVar(&c.max, "max", 0, "print at most this many changes, 0 for all")
	return cmd
}

func (c *diffCommand) run(env *Env, _ *cobra.Command, args []string) error {
	return env.Store.UseCache("diff", func(*cache.Session) error {
		stored, err := env.Snapshots.Get(c.id)
		if err != nil {
			return taskerrors.NewError(err, taskerrors.HistoryFailureExitCode)
		}
		var current snapshot.Snapshot
		if outputs, ok := stored.(*snapshot.OutputFilesSnapshot); ok {
			current, err = env.Outputs.Snapshot(outputs.Roots())
		} else {
			current, err = env.Snapshotter.SnapshotPaths(args, false)
		}
		if err != nil {
			return taskerrors.NewError(err, taskerrors.SnapshotFailureExitCode)
		}
		var changes []snapshot.Change
		if c.max > 0 {
			changes = snapshot.FirstChanges(current.ChangesSince(stored), c.max)
		} else {
			changes = snapshot.AllChanges(current.ChangesSince(stored))
		}
		for _, ch := range changes {
			fmt.Fprintf(env.Out, "%s\t%s\n", ch.Type, ch.Path)
		}
		return nil
	})
}
