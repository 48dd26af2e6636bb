// Package harness holds the per-scenario state shared by the workspace manager
// and the command runner, along with the error taxonomy both report.
//
// The working directory lives on the ExecutionContext and is passed to every
// filesystem and process operation; nothing here calls os.Chdir.
package harness

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is applied by Reset.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNonPositiveTimeout is returned by SetTimeout for zero or negative values.
	ErrNonPositiveTimeout = errors.New("timeout must be positive")
	// ErrTimeoutOutOfRange is returned for timeouts a time.Duration cannot hold.
	ErrTimeoutOutOfRange = errors.New("timeout out of range")
)

// ExecutionContext is the mutable configuration of one scenario. It is not
// safe for concurrent use; each scenario owns its own.
type ExecutionContext struct {
	home       string
	dir        string
	timeout    time.Duration
	scenarioID string
	env        map[string]string
	hostEnv    func() []string
}

// NewExecutionContext returns a reset context whose default working directory
// is home. An empty home means the process working directory.
func NewExecutionContext(home string) (*ExecutionContext, error) {
	if home == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		home = wd
	}
	abs, err := checkDir(home)
	if err != nil {
		return nil, err
	}
	ec := &ExecutionContext{home: abs, hostEnv: os.Environ}
	ec.Reset()
	return ec, nil
}

// Reset restores the defaults: DefaultTimeout, the home directory, no env
// overrides, and a fresh scenario ID.
func (ec *ExecutionContext) Reset() {
	ec.dir = ec.home
	ec.timeout = DefaultTimeout
	ec.env = make(map[string]string)
	ec.scenarioID = uuid.NewString()
}

// ScenarioID identifies the scenario since the last Reset.
func (ec *ExecutionContext) ScenarioID() string { return ec.scenarioID }

// Home is the directory Reset returns to.
func (ec *ExecutionContext) Home() string { return ec.home }

// WorkingDirectory is an absolute path to an existing directory.
func (ec *ExecutionContext) WorkingDirectory() string { return ec.dir }

// Timeout bounds each command run under this context.
func (ec *ExecutionContext) Timeout() time.Duration { return ec.timeout }

// SetWorkingDirectory moves the context to path, resolved against the current
// working directory when relative. The context is unchanged on error.
func (ec *ExecutionContext) SetWorkingDirectory(path string) error {
	abs, err := checkDir(ec.Resolve(path))
	if err != nil {
		return err
	}
	ec.dir = abs
	return nil
}

// Resolve makes path absolute relative to the working directory.
func (ec *ExecutionContext) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(ec.dir, path)
}

// SetTimeout replaces the per-command deadline.
func (ec *ExecutionContext) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrNonPositiveTimeout, d)
	}
	ec.timeout = d
	return nil
}

// SetTimeoutSeconds is SetTimeout for step phrases that speak in seconds.
func (ec *ExecutionContext) SetTimeoutSeconds(secs float64) error {
	d, err := SecondsToDuration(secs)
	if err != nil {
		return err
	}
	return ec.SetTimeout(d)
}

// SecondsToDuration converts a positive number of seconds, rejecting NaN and
// values past the range of time.Duration instead of letting them wrap.
func SecondsToDuration(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) {
		return 0, fmt.Errorf("%w: %v seconds", ErrTimeoutOutOfRange, secs)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("%w: %v seconds", ErrNonPositiveTimeout, secs)
	}
	ns := secs * float64(time.Second)
	if ns >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v seconds exceeds %s", ErrTimeoutOutOfRange, secs, time.Duration(math.MaxInt64))
	}
	return time.Duration(ns), nil
}

// Setenv overrides a variable for commands run under this context.
func (ec *ExecutionContext) Setenv(key, value string) {
	ec.env[key] = value
}

// Getenv looks up key in the overrides, then the host environment.
func (ec *ExecutionContext) Getenv(key string) string {
	if key == "PWD" {
		return ec.dir
	}
	if v, ok := ec.env[key]; ok {
		return v
	}
	return envMap(ec.hostEnv())[key]
}

// Environ is the child environment: the host environment with overrides
// applied and PWD pinned to the working directory. Entries are sorted.
func (ec *ExecutionContext) Environ() []string {
	m := envMap(ec.hostEnv())
	for k, v := range ec.env {
		m[k] = v
	}
	m["PWD"] = ec.dir
	return envSlice(m)
}

func checkDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &InvalidPathError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &InvalidPathError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return "", &InvalidPathError{Path: path, Err: errors.New("not a directory")}
	}
	return abs, nil
}

func envMap(env []string) map[string]string {
	out := make(map[string]string, len(env))
	for _, entry := range env {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}

func envSlice(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	slices.Sort(out)
	return out
}
