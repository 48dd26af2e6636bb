// Package steps connects harness operations to the phrase-matching step
// registry of a host BDD framework.
//
// The host supplies a Registry; Bind registers the harness phrases on it.
// Table is a small regexp-backed Registry for hosts without one and for tests.
package steps

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/brandonbloom/cliharness/internal/harness"
)

// Handler runs one matched step. args are the pattern's capture groups.
type Handler func(ctx context.Context, args ...string) error

// Registry maps phrase patterns to handlers.
type Registry interface {
	Step(pattern string, h Handler)
}

// ErrUndefinedStep is returned by Table.Dispatch when no pattern matches.
var ErrUndefinedStep = errors.New("undefined step")

// StepError wraps a failure with the phrase that triggered it.
type StepError struct {
	Phrase string
	Err    error
}

func (e *StepError) Error() string {
	if e.Setup() {
		return fmt.Sprintf("setup: step %q: %v", e.Phrase, e.Err)
	}
	return fmt.Sprintf("step %q: %v", e.Phrase, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Setup reports whether the step failed while preparing the scenario rather
// than while asserting on it.
func (e *StepError) Setup() bool {
	return harness.IsSetupError(e.Err)
}

type entry struct {
	re      *regexp.Regexp
	handler Handler
}

// Table is an ordered list of anchored patterns; the first match wins.
type Table struct {
	entries []entry
}

var keywordPrefix = regexp.MustCompile(`^(?:Given|When|Then|And|But|\*)\s+`)

// Step compiles pattern and panics if it is invalid, as regexp.MustCompile does.
func (t *Table) Step(pattern string, h Handler) {
	t.entries = append(t.entries, entry{re: regexp.MustCompile(pattern), handler: h})
}

// Dispatch runs the handler whose pattern matches phrase. A leading Gherkin
// keyword is ignored.
func (t *Table) Dispatch(ctx context.Context, phrase string) error {
	text := keywordPrefix.ReplaceAllString(strings.TrimSpace(phrase), "")
	for _, e := range t.entries {
		m := e.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if err := e.handler(ctx, m[1:]...); err != nil {
			return &StepError{Phrase: text, Err: err}
		}
		return nil
	}
	return &StepError{Phrase: text, Err: ErrUndefinedStep}
}

// Patterns lists the registered patterns in match order.
func (t *Table) Patterns() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.re.String()
	}
	return out
}
