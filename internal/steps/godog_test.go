package steps

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
)

func runFeature(t *testing.T, contents string, init func(*godog.ScenarioContext)) int {
	t.Helper()
	suite := godog.TestSuite{
		Name:                "steps",
		ScenarioInitializer: init,
		Options: &godog.Options{
			Format: "progress",
			Output: io.Discard,
			Strict: true,
			FeatureContents: []godog.Feature{
				{Name: "adapter.feature", Contents: []byte(contents)},
			},
		},
	}
	return suite.Run()
}

func TestGodogRegistryPassesCaptureGroups(t *testing.T) {
	var got [][]string
	status := runFeature(t, `Feature: adapter
  Scenario: captures
    Given I pair "left" with "right"
    And nothing is captured
`, func(sc *godog.ScenarioContext) {
		reg := NewGodogRegistry(sc)
		reg.Step(`^I pair "([^"]*)" with "([^"]*)"$`, func(_ context.Context, args ...string) error {
			got = append(got, args)
			return nil
		})
		reg.Step(`^nothing is captured$`, func(_ context.Context, args ...string) error {
			got = append(got, args)
			return nil
		})
	})

	assert.Zero(t, status)
	assert.Equal(t, [][]string{{"left", "right"}, {}}, got)
}

func TestGodogRegistryReportsHandlerErrors(t *testing.T) {
	status := runFeature(t, `Feature: adapter
  Scenario: failing
    Given this step fails
`, func(sc *godog.ScenarioContext) {
		NewGodogRegistry(sc).Step(`^this step fails$`, func(context.Context, ...string) error {
			return errors.New("boom")
		})
	})
	assert.NotZero(t, status)
}
