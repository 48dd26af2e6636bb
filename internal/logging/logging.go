package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
)

// EnvDebug turns on debug logging for child invocations of the driver.
const EnvDebug = "CLIHARNESS_DEBUG"

// Logger is shared by components that were not handed one explicitly.
var Logger = Discard()

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Initialize points Logger at a JSON log file when debug is enabled. With no
// debugFile, a uuid-named file under the state directory is used. The returned
// path is empty when logging stays disabled.
func Initialize(debug bool, debugFile string) (string, error) {
	if os.Getenv(EnvDebug) == "1" {
		debug = true
	}
	if !debug && debugFile == "" {
		Logger = Discard()
		return "", nil
	}

	path := debugFile
	if path == "" {
		dir, err := stateDir()
		if err != nil {
			return "", fmt.Errorf("failed to get log directory: %w", err)
		}
		path = filepath.Join(dir, uuid.NewString()+".log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}

	Logger = New(f)
	Logger.Info("debug logging initialized", "log_file", path)
	return path, nil
}

// New builds a debug-level JSON logger writing to w.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "cliharness"), nil
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "cliharness", "logs"), nil
	default:
		base := os.Getenv("XDG_STATE_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "state")
		}
		return filepath.Join(base, "cliharness"), nil
	}
}
