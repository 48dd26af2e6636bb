//go:build unix

package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const lockPollInterval = 25 * time.Millisecond

// acquireLock takes an exclusive flock on path on behalf of self and records
// self in the file. It polls until the lock is free, timeout passes, or ctx
// is done.
func acquireLock(ctx context.Context, path string, timeout time.Duration, self lockHolder, log *slog.Logger) (func(), error) {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	fd := int(f.Fd())

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	warned := false
	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			_ = f.Close()
			return nil, err
		}
		if !warned {
			holder := readLockHolder(path)
			log.Warn("waiting for workspace lock", "lock", path, "holder_pid", holder.PID, "holder_scenario", holder.Scenario)
			warned = true
		}
		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			_ = f.Close()
			holder := readLockHolder(path)
			if ctx.Err() != nil {
				return nil, fmt.Errorf("waiting on lock %s held by %s: %w", path, holder, ctx.Err())
			}
			return nil, fmt.Errorf("lock %s still held by %s after %s: %w", path, holder, timeout, context.DeadlineExceeded)
		}
	}

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt(self.record(), 0)
	}
	return func() {
		_ = f.Truncate(0)
		_ = unix.Flock(fd, unix.LOCK_UN)
		_ = f.Close()
	}, nil
}
