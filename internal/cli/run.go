package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brandonbloom/cliharness/internal/config"
	"github.com/brandonbloom/cliharness/internal/harness"
	"github.com/brandonbloom/cliharness/internal/runner"
	"github.com/brandonbloom/cliharness/internal/workspace"
)

// Exit statuses reported by `cliharness run` when the command itself did not
// produce one, following timeout(1) and sh(1).
const (
	exitTimeout = 124
	exitSpawn   = 127
)

type runOptions struct {
	dir     string
	timeout string
	status  string
}

func newRunCommand(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [flags] [--] <command> [args...]",
		Short: "Reset the scratch workspace and run a command inside it",
		Long: `Reset the scratch workspace and run a command inside it.

A single argument is treated as a command line and split into words with
shell quoting rules (or passed to /bin/sh -c when run.shell is set). Several
arguments are used as the command's argv unchanged.

The exit status is the command's own, 124 if it timed out, 127 if it could
not be started, and 1 if the workspace could not be prepared.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, global, opts, args)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory under the workspace to run in")
	cmd.Flags().StringVar(&opts.timeout, "timeout", "", "override run.timeout (e.g. 30s)")
	cmd.Flags().StringVar(&opts.status, "status", "auto", "print a status line: auto, always, never")
	return cmd
}

func runRun(cmd *cobra.Command, global *globalOptions, opts *runOptions, args []string) error {
	if err := validateSubdir(opts.dir); err != nil {
		return err
	}
	cfg, logger, err := global.load()
	if err != nil {
		return err
	}
	if opts.timeout != "" {
		cfg.Run.Timeout = opts.timeout
		if _, err := cfg.Timeout(); err != nil {
			return fmt.Errorf("invalid --timeout value %q (examples: 1s, 500ms): %w", opts.timeout, err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ec, err := newContext(cfg)
	if err != nil {
		return err
	}

	ws := workspace.New(workspace.WithLogger(logger), workspace.WithLockTimeout(cfg.LockTimeout()))
	if _, err := ws.PrepareClean(ctx, ec, cfg.Workspace.BaseDir, cfg.Workspace.Name); err != nil {
		return err
	}
	if opts.dir != "" {
		if err := ws.ChangeDirectory(ec, opts.dir); err != nil {
			return err
		}
	}

	r := runner.New(
		runner.WithLogger(logger),
		runner.WithShell(cfg.Run.Shell),
		runner.WithKillGrace(cfg.KillGrace()),
	)
	var res *runner.Result
	if len(args) == 1 {
		res, err = r.Run(ctx, args[0], ec)
	} else {
		res, err = r.RunArgv(ctx, args, ec)
	}

	errOut := cmd.ErrOrStderr()
	var spawnErr *harness.SpawnError
	if errors.As(err, &spawnErr) {
		fmt.Fprintln(errOut, "cliharness:", err)
		return &ExitError{Code: exitSpawn}
	}
	if err != nil {
		return err
	}

	if _, err := cmd.OutOrStdout().Write(res.Stdout); err != nil {
		return err
	}
	if _, err := errOut.Write(res.Stderr); err != nil {
		return err
	}
	if showStatus(opts.status, errOut) {
		fmt.Fprintln(errOut, formatStatus(res, ec.Timeout(), terminalWidth(errOut)))
	}

	switch {
	case res.TimedOut:
		return &ExitError{Code: exitTimeout}
	case res.ExitStatus != 0:
		return &ExitError{Code: res.ExitStatus}
	}
	return nil
}

func newContext(cfg config.Config) (*harness.ExecutionContext, error) {
	ec, err := harness.NewExecutionContext("")
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	if err := ec.SetTimeout(timeout); err != nil {
		return nil, err
	}
	if cfg.Run.DeterministicEnv {
		ec.ApplyEnv(harness.DeterministicEnv)
	}
	env, err := cfg.CommandEnv()
	if err != nil {
		return nil, err
	}
	ec.ApplyEnv(env)
	return ec, nil
}

func validateSubdir(dir string) error {
	if dir == "" {
		return nil
	}
	if filepath.IsAbs(dir) {
		return errors.New("--dir must be a relative path")
	}
	clean := filepath.Clean(dir)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("--dir must not escape the workspace: %q", dir)
	}
	return nil
}
