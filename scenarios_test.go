package cliharness_test

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/require"

	"github.com/brandonbloom/cliharness/internal/config"
	"github.com/brandonbloom/cliharness/internal/harness"
	"github.com/brandonbloom/cliharness/internal/steps"
)

// Embed scenario fixtures so changes invalidate the Go test cache.
//
//go:embed scenarios/*.feature
var scenarioFS embed.FS

func TestScenarios(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not on PATH")
	}

	suite := godog.TestSuite{
		Name: "cliharness",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			initializeScenario(t, sc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"scenarios"},
			FS:       scenarioFS,
			Strict:   true,
			TestingT: t,
		},
	}
	require.Zero(t, suite.Run(), "scenario suite failed")
}

func initializeScenario(t *testing.T, sc *godog.ScenarioContext) {
	cfg := config.Default()
	cfg.Workspace.BaseDir = t.TempDir()

	state, err := steps.NewScenario(cfg, nil)
	require.NoError(t, err)

	reg := steps.BindGodog(sc, state)

	// A second registry lets a step run another phrase and inspect its error.
	inner := &steps.Table{}
	steps.Bind(inner, state)

	bindAssertions(reg, inner, state)
}

// bindAssertions registers the outcome checks a host suite would provide.
func bindAssertions(reg steps.Registry, inner *steps.Table, state *steps.Scenario) {
	reg.Step(`^the exit status should be (\d+)$`, func(_ context.Context, args ...string) error {
		res, err := state.LastResult()
		if err != nil {
			return err
		}
		want, _ := strconv.Atoi(args[0])
		if res.TimedOut || res.ExitStatus != want {
			return fmt.Errorf("exit status %d (timed out: %v), want %d\nstderr: %s", res.ExitStatus, res.TimedOut, want, res.Stderr)
		}
		return nil
	})
	reg.Step(`^the (output|error output) should contain "([^"]*)"$`, func(_ context.Context, args ...string) error {
		res, err := state.LastResult()
		if err != nil {
			return err
		}
		stream := res.Stdout
		if args[0] == "error output" {
			stream = res.Stderr
		}
		if !bytes.Contains(stream, []byte(args[1])) {
			return fmt.Errorf("%s %q does not contain %q", args[0], stream, args[1])
		}
		return nil
	})
	reg.Step(`^the output should be empty$`, func(_ context.Context, _ ...string) error {
		res, err := state.LastResult()
		if err != nil {
			return err
		}
		if len(bytes.TrimSpace(res.Stdout)) != 0 {
			return fmt.Errorf("output %q is not empty", res.Stdout)
		}
		return nil
	})
	reg.Step(`^the command should have timed out$`, func(_ context.Context, _ ...string) error {
		res, err := state.LastResult()
		if err != nil {
			return err
		}
		if !res.TimedOut {
			return fmt.Errorf("command finished with status %d", res.ExitStatus)
		}
		return nil
	})
	reg.Step(`^the command should not have timed out$`, func(_ context.Context, _ ...string) error {
		res, err := state.LastResult()
		if err != nil {
			return err
		}
		if res.TimedOut {
			return fmt.Errorf("command timed out after %s", res.Duration)
		}
		return nil
	})
	reg.Step(`^the step "((?:[^"\\]|\\.)*)" should fail during setup$`, func(ctx context.Context, args ...string) error {
		phrase := strings.ReplaceAll(args[0], `\"`, `"`)
		err := inner.Dispatch(ctx, phrase)
		if err == nil {
			return fmt.Errorf("step %q succeeded", phrase)
		}
		if !harness.IsSetupError(err) {
			return fmt.Errorf("step %q failed outside setup: %w", phrase, err)
		}
		return nil
	})
}
