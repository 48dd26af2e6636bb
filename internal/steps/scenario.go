package steps

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/brandonbloom/cliharness/internal/config"
	"github.com/brandonbloom/cliharness/internal/harness"
	"github.com/brandonbloom/cliharness/internal/logging"
	"github.com/brandonbloom/cliharness/internal/runner"
	"github.com/brandonbloom/cliharness/internal/workspace"
)

// ErrNoResult is returned by LastResult before any command has run.
var ErrNoResult = errors.New("no command has been run in this scenario")

// Scenario is the state one scenario's steps share.
type Scenario struct {
	cfg       config.Config
	timeout   float64
	ec        *harness.ExecutionContext
	workspace *workspace.Manager
	runner    *runner.Runner
	last      *runner.Result
}

// NewScenario builds a scenario from cfg. Call Before at the start of each
// scenario that reuses it.
func NewScenario(cfg config.Config, logger *slog.Logger) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Logger
	}
	timeout, _ := cfg.Timeout()

	ec, err := harness.NewExecutionContext("")
	if err != nil {
		return nil, err
	}
	sc := &Scenario{
		cfg:     cfg,
		timeout: timeout.Seconds(),
		ec:      ec,
		workspace: workspace.New(
			workspace.WithLogger(logger),
			workspace.WithLockTimeout(cfg.LockTimeout()),
		),
		runner: runner.New(
			runner.WithLogger(logger),
			runner.WithShell(cfg.Run.Shell),
			runner.WithKillGrace(cfg.KillGrace()),
		),
	}
	if err := sc.Before(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Before resets the execution context and applies the configured timeout and
// environment. The workspace on disk is left alone until requested.
func (s *Scenario) Before() error {
	s.ec.Reset()
	s.last = nil
	if err := s.ec.SetTimeoutSeconds(s.timeout); err != nil {
		return err
	}
	if s.cfg.Run.DeterministicEnv {
		s.ec.ApplyEnv(harness.DeterministicEnv)
	}
	env, err := s.cfg.CommandEnv()
	if err != nil {
		return err
	}
	s.ec.ApplyEnv(env)
	return nil
}

// Context exposes the execution context for assertion steps.
func (s *Scenario) Context() *harness.ExecutionContext { return s.ec }

// EnterDirectory changes the scenario's working directory.
func (s *Scenario) EnterDirectory(_ context.Context, path string) error {
	return s.workspace.ChangeDirectory(s.ec, path)
}

// PrepareCleanWorkspace empties the configured workspace and enters it.
func (s *Scenario) PrepareCleanWorkspace(ctx context.Context) error {
	_, err := s.workspace.PrepareClean(ctx, s.ec, s.cfg.Workspace.BaseDir, s.cfg.Workspace.Name)
	return err
}

// Run executes commandLine and records its result for later steps. Only a
// failure to launch is returned as an error.
func (s *Scenario) Run(ctx context.Context, commandLine string) (*runner.Result, error) {
	res, err := s.runner.Run(ctx, commandLine, s.ec)
	if err != nil {
		return nil, err
	}
	s.last = res
	return res, nil
}

// SetTimeoutSeconds changes the deadline for subsequent commands.
func (s *Scenario) SetTimeoutSeconds(_ context.Context, secs float64) error {
	return s.ec.SetTimeoutSeconds(secs)
}

// Setenv overrides an environment variable for subsequent commands.
func (s *Scenario) Setenv(_ context.Context, key, value string) error {
	s.ec.Setenv(key, value)
	return nil
}

// LastResult is the outcome of the most recent Run.
func (s *Scenario) LastResult() (*runner.Result, error) {
	if s.last == nil {
		return nil, ErrNoResult
	}
	return s.last, nil
}

// Bind registers the harness phrases on reg.
func Bind(reg Registry, s *Scenario) {
	reg.Step(`^I'm in "([^"]*)"$`, func(ctx context.Context, args ...string) error {
		return s.EnterDirectory(ctx, args[0])
	})
	reg.Step(`^I am running (?:\S+(?: .*?)? )?commands$`, func(ctx context.Context, _ ...string) error {
		return s.PrepareCleanWorkspace(ctx)
	})
	run := func(ctx context.Context, args ...string) error {
		_, err := s.Run(ctx, args[0])
		return err
	}
	reg.Step(`^I run "([^"]*)"$`, run)
	reg.Step("^I run `([^`]*)`$", run)
	reg.Step(`^the timeout is (\d+(?:\.\d+)?) seconds?$`, func(ctx context.Context, args ...string) error {
		secs, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		return s.SetTimeoutSeconds(ctx, secs)
	})
	reg.Step(`^I set the environment variable "([^"]*)" to "([^"]*)"$`, func(ctx context.Context, args ...string) error {
		return s.Setenv(ctx, args[0], args[1])
	})
}
