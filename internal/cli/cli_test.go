package cli

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandonbloom/cliharness/internal/config"
	"github.com/brandonbloom/cliharness/internal/runner"
)

type cliResult struct {
	stdout string
	stderr string
	code   int
}

// runCLI executes the root command in-process against a scratch base dir.
func runCLI(t *testing.T, base string, args ...string) cliResult {
	t.Helper()
	t.Setenv(config.EnvBaseDir, base)
	t.Setenv(config.EnvWorkspace, "TestRepo")
	t.Setenv(config.EnvTimeout, "")
	t.Setenv("CLIHARNESS_CONFIG", filepath.Join(base, "absent.toml"))

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	code := execute(cmd)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not on PATH")
	}
}

func TestRunPassesThroughOutputAndStatus(t *testing.T) {
	requireSh(t)
	base := t.TempDir()

	res := runCLI(t, base, "run", "--", "sh", "-c", "echo out; echo err >&2; exit 3")
	assert.Equal(t, 3, res.code)
	assert.Equal(t, "out\n", res.stdout)
	assert.Equal(t, "err\n", res.stderr)
}

func TestRunSingleArgumentIsSplit(t *testing.T) {
	requireSh(t)
	base := t.TempDir()

	res := runCLI(t, base, "run", `sh -c 'pwd; touch made-here'`)
	require.Equal(t, 0, res.code, res.stderr)
	repo := filepath.Join(base, "TestRepo")
	assert.Equal(t, repo+"\n", res.stdout)
	_, err := os.Stat(filepath.Join(repo, "made-here"))
	assert.NoError(t, err)
}

func TestRunResetsWorkspaceFirst(t *testing.T) {
	requireSh(t)
	base := t.TempDir()
	repo := filepath.Join(base, "TestRepo")
	require.NoError(t, os.MkdirAll(repo, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "old.txt"), []byte("x"), 0o644))

	res := runCLI(t, base, "run", "ls", "-A")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, strings.TrimSpace(res.stdout))
}

func TestRunTimeoutExits124(t *testing.T) {
	requireSh(t)
	res := runCLI(t, t.TempDir(), "run", "--timeout", "200ms", "--status", "always", "sleep", "5")
	assert.Equal(t, exitTimeout, res.code)
	assert.Contains(t, res.stderr, "timed out after 200ms")
}

func TestRunSpawnFailureExits127(t *testing.T) {
	res := runCLI(t, t.TempDir(), "run", "cliharness-definitely-not-installed")
	assert.Equal(t, exitSpawn, res.code)
	assert.Contains(t, res.stderr, "spawn cliharness-definitely-not-installed")
}

func TestRunDirFlag(t *testing.T) {
	requireSh(t)
	base := t.TempDir()

	res := runCLI(t, base, "run", "--dir", "missing", "true")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid path missing")

	res = runCLI(t, base, "run", "--dir", "../escape", "true")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "must not escape")

	res = runCLI(t, base, "run", "--dir", "/abs", "true")
	assert.Equal(t, 1, res.code)
}

func TestRunRejectsBadTimeoutFlag(t *testing.T) {
	res := runCLI(t, t.TempDir(), "run", "--timeout", "soon", "true")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid --timeout")
}

func TestRunMissingBaseIsSetupFailure(t *testing.T) {
	res := runCLI(t, filepath.Join(t.TempDir(), "missing"), "run", "true")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid path")
}

func TestResetPrintsWorkspace(t *testing.T) {
	base := t.TempDir()
	repo := filepath.Join(base, "TestRepo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "nested"), 0o755))

	res := runCLI(t, base, "reset")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, repo+"\n", res.stdout)

	entries, err := os.ReadDir(repo)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVersionCommand(t *testing.T) {
	res := runCLI(t, t.TempDir(), "version", "--verbose")
	require.Equal(t, 0, res.code)
	assert.True(t, strings.HasPrefix(res.stdout, "cliharness version "))
	assert.Contains(t, res.stdout, "go: ")
}

func TestFormatStatus(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	ok := &runner.Result{Argv: []string{"echo", "hi"}, Duration: 1500 * time.Microsecond}
	assert.Equal(t, "> ok  2ms  echo hi", formatStatus(ok, time.Second, 80))

	failed := &runner.Result{Argv: []string{"false"}, ExitStatus: 1, Duration: 2 * time.Second}
	assert.Equal(t, "> exit 1  2s  false", formatStatus(failed, time.Second, 80))

	timedOut := &runner.Result{Argv: []string{"sleep", "9"}, TimedOut: true, ExitStatus: runner.TimedOutStatus}
	assert.Contains(t, formatStatus(timedOut, 10*time.Second, 80), "timed out after 10s")

	long := &runner.Result{Argv: []string{"echo", strings.Repeat("x", 200)}}
	line := formatStatus(long, time.Second, 40)
	assert.Equal(t, 40, runewidth.StringWidth(line))
	assert.True(t, strings.HasSuffix(line, "..."))
}

func TestFormatStatusWidthIgnoresColour(t *testing.T) {
	prev := color.NoColor
	t.Cleanup(func() { color.NoColor = prev })

	long := &runner.Result{Argv: []string{"echo", strings.Repeat("y", 200)}, ExitStatus: 2}

	color.NoColor = true
	plain := formatStatus(long, time.Second, 40)
	require.Equal(t, 40, runewidth.StringWidth(plain))
	detail := strings.TrimPrefix(plain, "> exit 2  ")

	color.NoColor = false
	painted := formatStatus(long, time.Second, 40)
	assert.Contains(t, painted, "\x1b[")
	assert.Contains(t, painted, detail)
}

func TestValidateSubdir(t *testing.T) {
	assert.NoError(t, validateSubdir(""))
	assert.NoError(t, validateSubdir("a/b"))
	assert.Error(t, validateSubdir("/abs"))
	assert.Error(t, validateSubdir(".."))
	assert.Error(t, validateSubdir("a/../../b"))
}
