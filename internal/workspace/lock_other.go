//go:build !unix

package workspace

import (
	"context"
	"log/slog"
	"time"
)

// acquireLock is a no-op where flock is unavailable; concurrent resets of the
// same workspace are not serialised there.
func acquireLock(context.Context, string, time.Duration, lockHolder, *slog.Logger) (func(), error) {
	return func() {}, nil
}
