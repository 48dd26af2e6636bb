// Package workspace resets the scratch directory a scenario runs its commands in.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brandonbloom/cliharness/internal/config"
	"github.com/brandonbloom/cliharness/internal/harness"
	"github.com/brandonbloom/cliharness/internal/logging"
)

const defaultLockTimeout = config.DefaultLockTimeout

// ErrUnsafeName indicates a workspace name that could resolve outside its base.
var ErrUnsafeName = errors.New("workspace name must be a single directory name")

// Manager prepares scratch workspaces. It holds no per-scenario state and may
// be shared between scenarios.
type Manager struct {
	logger      *slog.Logger
	lockTimeout time.Duration
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLockTimeout bounds how long PrepareClean waits on a concurrent reset.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lockTimeout = d
		}
	}
}

func New(opts ...Option) *Manager {
	m := &Manager{
		logger:      logging.Logger,
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PrepareClean switches ec to baseDir, removes any existing entry called name,
// creates it afresh, and switches ec into it. On success ec's working
// directory is the new, empty workspace, whose path is returned.
//
// A missing baseDir is an InvalidPathError. Any other failure is a
// FilesystemError; an absent workspace is not a failure.
func (m *Manager) PrepareClean(ctx context.Context, ec *harness.ExecutionContext, baseDir, name string) (string, error) {
	if !config.ValidWorkspaceName(name) {
		return "", &harness.FilesystemError{Op: "prepare", Path: filepath.Join(baseDir, name), Err: ErrUnsafeName}
	}
	if err := ec.SetWorkingDirectory(baseDir); err != nil {
		return "", err
	}
	base := ec.WorkingDirectory()
	target := filepath.Join(base, name)
	log := m.logger.With("scenario", ec.ScenarioID(), "workspace", target)

	self := lockHolder{PID: os.Getpid(), Scenario: ec.ScenarioID()}
	unlock, err := acquireLock(ctx, filepath.Join(base, "."+name+".lock"), m.lockTimeout, self, log)
	if err != nil {
		return "", &harness.FilesystemError{Op: "lock", Path: target, Err: err}
	}
	defer unlock()

	if err := removeAllUnder(base, target); err != nil {
		log.Error("workspace removal failed", "error", err)
		return "", &harness.FilesystemError{Op: "remove", Path: target, Err: err}
	}
	if err := os.Mkdir(target, 0o755); err != nil {
		log.Error("workspace creation failed", "error", err)
		return "", &harness.FilesystemError{Op: "create", Path: target, Err: err}
	}
	if err := ec.SetWorkingDirectory(target); err != nil {
		return "", err
	}

	log.Debug("workspace reset")
	return target, nil
}

// ChangeDirectory moves ec to path, resolved against its current working
// directory. ec is unchanged on failure.
func (m *Manager) ChangeDirectory(ec *harness.ExecutionContext, path string) error {
	if err := ec.SetWorkingDirectory(path); err != nil {
		m.logger.Debug("change directory failed", "scenario", ec.ScenarioID(), "path", path, "error", err)
		return err
	}
	m.logger.Debug("changed directory", "scenario", ec.ScenarioID(), "dir", ec.WorkingDirectory())
	return nil
}

// IsEmpty reports whether dir has no entries.
func IsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

func removeAllUnder(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return err
	}
	if rel == "." {
		return fmt.Errorf("refusing to remove root: %s", root)
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return fmt.Errorf("refusing to remove outside root: %s", target)
	}
	return os.RemoveAll(target)
}
