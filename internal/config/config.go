// Package config loads cliharness.toml and layers CLIHARNESS_* environment
// overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/brandonbloom/cliharness/internal/harness"
)

const (
	DefaultBaseDir       = "/tmp"
	DefaultWorkspaceName = "TestRepo"
	DefaultTimeout       = 10 * time.Second
	DefaultKillGrace     = 2 * time.Second
	DefaultLockTimeout   = 10 * time.Second
)

// Environment variables layered over the config file by ApplyEnv.
const (
	EnvTimeout   = "CLIHARNESS_TIMEOUT"
	EnvBaseDir   = "CLIHARNESS_BASE_DIR"
	EnvWorkspace = "CLIHARNESS_WORKSPACE"
	EnvShell     = "CLIHARNESS_SHELL"
)

// Config captures the harness settings stored in cliharness.toml.
type Config struct {
	Workspace WorkspaceBlock    `toml:"workspace"`
	Run       RunBlock          `toml:"run"`
	Env       map[string]string `toml:"env,omitempty"`
}

// WorkspaceBlock locates the scratch directory reset before each scenario.
type WorkspaceBlock struct {
	BaseDir     string `toml:"base_dir"`
	Name        string `toml:"name"`
	LockTimeout string `toml:"lock_timeout"`
}

// RunBlock governs how commands are executed. DeterministicEnv pins git
// identity, commit dates, and colour settings for reproducible output.
// EnvFile names a dotenv file whose variables are set for every command.
type RunBlock struct {
	Timeout          string `toml:"timeout"`
	KillGrace        string `toml:"kill_grace"`
	Shell            bool   `toml:"shell"`
	DeterministicEnv bool   `toml:"deterministic_env"`
	EnvFile          string `toml:"env_file,omitempty"`
}

var (
	// ErrNonPositiveTimeout indicates run.timeout was zero or negative. It wraps
	// harness.ErrNonPositiveTimeout.
	ErrNonPositiveTimeout = fmt.Errorf("config.run.timeout: %w", harness.ErrNonPositiveTimeout)
	// ErrInvalidWorkspaceName indicates the workspace name is not a single path element.
	ErrInvalidWorkspaceName = errors.New("config.workspace.name must be a single directory name")
	// ErrRelativeBaseDir indicates the workspace base is not absolute.
	ErrRelativeBaseDir = errors.New("config.workspace.base_dir must be absolute")
)

// Default returns the stock configuration: /tmp/TestRepo with a 10s timeout.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Workspace.BaseDir == "" {
		c.Workspace.BaseDir = DefaultBaseDir
	}
	if c.Workspace.Name == "" {
		c.Workspace.Name = DefaultWorkspaceName
	}
	if c.Workspace.LockTimeout == "" {
		c.Workspace.LockTimeout = DefaultLockTimeout.String()
	}
	if c.Run.Timeout == "" {
		c.Run.Timeout = DefaultTimeout.String()
	}
	if c.Run.KillGrace == "" {
		c.Run.KillGrace = DefaultKillGrace.String()
	}
}

// Validate ensures the configuration can drive a scenario.
func (c Config) Validate() error {
	if !filepath.IsAbs(c.Workspace.BaseDir) {
		return ErrRelativeBaseDir
	}
	if !ValidWorkspaceName(c.Workspace.Name) {
		return ErrInvalidWorkspaceName
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := positiveDuration("run.kill_grace", c.Run.KillGrace); err != nil {
		return err
	}
	if _, err := positiveDuration("workspace.lock_timeout", c.Workspace.LockTimeout); err != nil {
		return err
	}
	return nil
}

// ValidWorkspaceName reports whether name is a single, non-special path element.
func ValidWorkspaceName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator)
}

// Timeout is the per-command deadline.
func (c Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.Run.Timeout))
	if err != nil {
		return 0, fmt.Errorf("config.run.timeout: %w", err)
	}
	if d <= 0 {
		return 0, ErrNonPositiveTimeout
	}
	return d, nil
}

// KillGrace bounds how long the runner waits for a killed tree to be reaped.
func (c Config) KillGrace() time.Duration {
	d, err := positiveDuration("run.kill_grace", c.Run.KillGrace)
	if err != nil {
		return DefaultKillGrace
	}
	return d
}

// LockTimeout bounds how long a workspace reset waits for a concurrent reset.
func (c Config) LockTimeout() time.Duration {
	d, err := positiveDuration("workspace.lock_timeout", c.Workspace.LockTimeout)
	if err != nil {
		return DefaultLockTimeout
	}
	return d
}

// CommandEnv is the set of overrides applied to every command: the entries
// of run.env_file, then the [env] table on top.
func (c Config) CommandEnv() (map[string]string, error) {
	out := make(map[string]string, len(c.Env))
	if c.Run.EnvFile != "" {
		fileEnv, err := godotenv.Read(c.Run.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("config.run.env_file: %w", err)
		}
		for k, v := range fileEnv {
			out[k] = v
		}
	}
	for k, v := range c.Env {
		out[k] = v
	}
	return out, nil
}

// WorkspacePath is the absolute scratch directory.
func (c Config) WorkspacePath() string {
	return filepath.Join(c.Workspace.BaseDir, c.Workspace.Name)
}

func positiveDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("config.%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config.%s must be positive", key)
	}
	return d, nil
}

// ApplyEnv layers environment overrides on top of cfg. An unparsable or
// non-positive timeout falls back to the default rather than failing.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if raw := strings.TrimSpace(getenv(EnvTimeout)); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			c.Run.Timeout = d.String()
		} else if d, err := parseSeconds(raw); err == nil {
			c.Run.Timeout = d.String()
		} else {
			c.Run.Timeout = DefaultTimeout.String()
		}
	}
	if raw := strings.TrimSpace(getenv(EnvBaseDir)); raw != "" {
		c.Workspace.BaseDir = raw
	}
	if raw := strings.TrimSpace(getenv(EnvWorkspace)); raw != "" {
		c.Workspace.Name = raw
	}
	if raw := strings.TrimSpace(getenv(EnvShell)); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			c.Run.Shell = b
		}
	}
}

func parseSeconds(raw string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return harness.SecondsToDuration(secs)
}

// Load reads configuration from disk. Missing files return a default config.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if cfg.Run.EnvFile != "" && !filepath.IsAbs(cfg.Run.EnvFile) {
		cfg.Run.EnvFile = filepath.Join(filepath.Dir(path), cfg.Run.EnvFile)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to disk, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
