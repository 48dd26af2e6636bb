//go:build unix

package workspace

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandonbloom/cliharness/internal/logging"
)

func TestAcquireLockExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".TestRepo.lock")
	first := lockHolder{PID: os.Getpid(), Scenario: "scenario-a"}

	unlock, err := acquireLock(context.Background(), path, time.Second, first, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, first, readLockHolder(path))

	var logs bytes.Buffer
	second := lockHolder{PID: os.Getpid(), Scenario: "scenario-b"}
	_, err = acquireLock(context.Background(), path, 50*time.Millisecond, second, logging.New(&logs))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), first.String())
	assert.Contains(t, logs.String(), "waiting for workspace lock")
	assert.Contains(t, logs.String(), `"holder_scenario":"scenario-a"`)

	unlock()
	assert.Equal(t, lockHolder{}, readLockHolder(path))

	unlock2, err := acquireLock(context.Background(), path, time.Second, second, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, second, readLockHolder(path))
	unlock2()
}

func TestAcquireLockHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".TestRepo.lock")
	holder := lockHolder{PID: os.Getpid(), Scenario: "scenario-a"}
	unlock, err := acquireLock(context.Background(), path, time.Second, holder, logging.Discard())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = acquireLock(ctx, path, time.Minute, lockHolder{PID: 1, Scenario: "b"}, logging.Discard())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "scenario-a")
}

func TestReadLockHolderToleratesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	assert.Equal(t, lockHolder{}, readLockHolder(path))
	require.NoError(t, os.WriteFile(path, []byte("not a pid\n"), 0o644))
	assert.Equal(t, lockHolder{}, readLockHolder(path))
	assert.Equal(t, "an unknown holder", lockHolder{}.String())
}
