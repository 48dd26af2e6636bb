package harness

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidPathError reports a navigation target that is missing or not a directory.
type InvalidPathError struct {
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid path %s", e.Path)
	}
	return fmt.Sprintf("invalid path %s: %v", e.Path, e.Err)
}

func (e *InvalidPathError) Unwrap() error { return e.Err }

// FilesystemError reports a workspace reset that failed for a reason other
// than the target simply not existing.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// SpawnError reports a command that could not be launched at all. A command
// that ran and exited non-zero is never a SpawnError.
type SpawnError struct {
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	if len(e.Argv) == 0 {
		return fmt.Sprintf("spawn: %v", e.Err)
	}
	return fmt.Sprintf("spawn %s: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IsSetupError reports whether err aborts a scenario during setup, as opposed
// to a command or assertion failure.
func IsSetupError(err error) bool {
	var pathErr *InvalidPathError
	var fsErr *FilesystemError
	return errors.As(err, &pathErr) || errors.As(err, &fsErr)
}
