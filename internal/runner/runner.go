// Package runner executes one external command per call inside a scenario's
// execution context, bounded by the context's timeout.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mvdan.cc/sh/v3/shell"

	"github.com/brandonbloom/cliharness/internal/config"
	"github.com/brandonbloom/cliharness/internal/harness"
	"github.com/brandonbloom/cliharness/internal/logging"
	"github.com/brandonbloom/cliharness/internal/processes"
)

// TimedOutStatus is the ExitStatus of a command killed at its deadline.
// Real exit statuses are never negative.
const TimedOutStatus = -1

const defaultShell = "/bin/sh"

// ErrEmptyCommand is reported (inside a SpawnError) for a blank command line.
var ErrEmptyCommand = errors.New("empty command line")

// Result is the captured outcome of one invocation.
type Result struct {
	Argv       []string
	Dir        string
	ExitStatus int
	Stdout     []byte
	Stderr     []byte
	TimedOut   bool
	Duration   time.Duration
}

// Success reports a zero exit within the deadline.
func (r *Result) Success() bool {
	return !r.TimedOut && r.ExitStatus == 0
}

// Runner spawns commands. It holds no per-scenario state.
type Runner struct {
	logger    *slog.Logger
	shell     bool
	shellPath string
	killGrace time.Duration
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithShell hands command lines to /bin/sh -c instead of splitting them into
// words and executing the program directly. A missing program then shows up
// as exit status 127 from the shell rather than a SpawnError.
func WithShell(enabled bool) Option {
	return func(r *Runner) { r.shell = enabled }
}

// WithKillGrace bounds how long Run waits for a killed command to be reaped.
func WithKillGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.killGrace = d
		}
	}
}

func New(opts ...Option) *Runner {
	r := &Runner{
		logger:    logging.Logger,
		shellPath: defaultShell,
		killGrace: config.DefaultKillGrace,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes commandLine in ec's working directory with ec's environment.
//
// A non-zero exit is returned as data. A command that outlives ec.Timeout()
// is killed along with its descendants and reported with TimedOut set. The
// deadline applies to the command itself; background children it leaves in
// its process group are killed once it exits. A command that cannot be
// launched fails with a *harness.SpawnError.
func (r *Runner) Run(ctx context.Context, commandLine string, ec *harness.ExecutionContext) (*Result, error) {
	argv, err := r.split(commandLine, ec)
	if err != nil {
		return nil, &harness.SpawnError{Argv: []string{commandLine}, Err: err}
	}
	return r.RunArgv(ctx, argv, ec)
}

// RunArgv is Run for a command that is already split into words.
func (r *Runner) RunArgv(ctx context.Context, argv []string, ec *harness.ExecutionContext) (*Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, &harness.SpawnError{Argv: argv, Err: ErrEmptyCommand}
	}
	log := r.logger.With("scenario", ec.ScenarioID(), "argv", argv, "dir", ec.WorkingDirectory())

	path, err := lookPath(argv[0], ec)
	if err != nil {
		log.Debug("spawn failed", "error", err)
		return nil, &harness.SpawnError{Argv: argv, Err: err}
	}

	// Files rather than pipes, so Wait returns when the root exits even if a
	// background child still holds the descriptors.
	stdout, err := newCapture("stdout")
	if err != nil {
		return nil, err
	}
	defer stdout.discard()
	stderr, err := newCapture("stderr")
	if err != nil {
		return nil, err
	}
	defer stderr.discard()

	cmd := exec.Command(path, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Dir = ec.WorkingDirectory()
	cmd.Env = ec.Environ()
	cmd.Stdin = nil
	cmd.Stdout = stdout.f
	cmd.Stderr = stderr.f
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		log.Debug("spawn failed", "error", err)
		return nil, &harness.SpawnError{Argv: argv, Err: err}
	}
	pid := cmd.Process.Pid
	log.Debug("spawned", "pid", pid, "timeout", ec.Timeout())

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(ec.Timeout())
	defer timer.Stop()

	timedOut := false
	select {
	case <-done:
	case <-timer.C:
		timedOut = true
		log.Warn("command timed out; killing process tree", "pid", pid)
		r.killTree(pid, log)
		r.awaitExit(done, pid, log)
	case <-ctx.Done():
		log.Warn("run cancelled; killing process tree", "pid", pid)
		r.killTree(pid, log)
		r.awaitExit(done, pid, log)
		return nil, fmt.Errorf("run %s: %w", strings.Join(argv, " "), ctx.Err())
	}
	duration := time.Since(start)

	// Stragglers left in the group would otherwise outlive the workspace.
	if err := processes.SignalGroup(pid, syscall.SIGKILL); err != nil {
		log.Debug("sweeping process group failed", "pgid", pid, "error", err)
	}

	res := &Result{
		Argv:     argv,
		Dir:      cmd.Dir,
		TimedOut: timedOut,
		Duration: duration,
	}
	if res.Stdout, err = stdout.contents(); err != nil {
		return nil, err
	}
	if res.Stderr, err = stderr.contents(); err != nil {
		return nil, err
	}
	if timedOut {
		res.ExitStatus = TimedOutStatus
	} else {
		res.ExitStatus = exitStatus(cmd.ProcessState)
	}
	log.Debug("exited", "pid", pid, "status", res.ExitStatus, "timed_out", res.TimedOut, "duration", res.Duration)
	return res, nil
}

// awaitExit waits up to the kill grace for a killed root to be reaped.
func (r *Runner) awaitExit(done <-chan error, pid int, log *slog.Logger) {
	grace := time.NewTimer(r.killGrace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		log.Error("killed process was not reaped in time", "pid", pid, "grace", r.killGrace)
	}
}

// capture is a temp file standing in for one output stream.
type capture struct {
	f *os.File
}

func newCapture(stream string) (*capture, error) {
	f, err := os.CreateTemp("", "cliharness-"+stream+"-*")
	if err != nil {
		return nil, &harness.FilesystemError{Op: "capture " + stream, Path: os.TempDir(), Err: err}
	}
	return &capture{f: f}, nil
}

func (c *capture) contents() ([]byte, error) {
	data, err := os.ReadFile(c.f.Name())
	if err != nil {
		return nil, &harness.FilesystemError{Op: "read capture", Path: c.f.Name(), Err: err}
	}
	return data, nil
}

func (c *capture) discard() {
	_ = c.f.Close()
	_ = os.Remove(c.f.Name())
}

func (r *Runner) split(commandLine string, ec *harness.ExecutionContext) ([]string, error) {
	if strings.TrimSpace(commandLine) == "" {
		return nil, ErrEmptyCommand
	}
	if r.shell {
		return []string{r.shellPath, "-c", commandLine}, nil
	}
	argv, err := shell.Fields(commandLine, ec.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse command line: %w", err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

// killTree snapshots pid's descendants before killing anything, since they
// are reparented away from pid once it dies.
func (r *Runner) killTree(pid int, log *slog.Logger) {
	descendants, err := processes.Descendants(pid)
	if err != nil && !errors.Is(err, processes.ErrUnsupported) {
		log.Debug("listing descendants failed", "pid", pid, "error", err)
	}
	log.Debug("signalling process tree", "pid", pid, "descendants", descendants, "signal", processes.SignalName(syscall.SIGKILL))
	if err := processes.SignalTree(pid, descendants, syscall.SIGKILL); err != nil {
		log.Error("killing process tree failed", "pid", pid, "error", err)
	}
}

// lookPath resolves name against ec's working directory and PATH, which
// may differ from the host's.
func lookPath(name string, ec *harness.ExecutionContext) (string, error) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return exec.LookPath(ec.Resolve(name))
	}
	for _, dir := range filepath.SplitList(ec.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		if found, err := exec.LookPath(ec.Resolve(filepath.Join(dir, name))); err == nil {
			return found, nil
		}
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return TimedOutStatus
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return signalStatus(state)
}
