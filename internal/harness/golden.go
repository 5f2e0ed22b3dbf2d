package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the trace of one scenario run for golden
// comparison. It holds nothing engine-specific, so every engine must
// produce the same snapshot.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
// Map keys are sorted, so equal traces give equal bytes.
func (s TraceSnapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	return append(data, '\n'), nil
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// RunWithGolden executes a scenario and compares the trace of every
// engine against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot be executed. A trace mismatch fails
// the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) ([]*Result, error) {
	t.Helper()

	results, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		if err := AssertGolden(t, scenario.Name, result); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := TraceSnapshot{Scenario: scenarioName, Trace: result.Trace}.Marshal()
	if err != nil {
		return err
	}
	newGoldie(t).Assert(t, scenarioName, data)
	return nil
}

// AssertGoldenIR compares the IR text a result recorded for function's
// body of the given kind against testdata/golden/{name}.golden.
func AssertGoldenIR(t *testing.T, name string, result *Result, function, kind string) error {
	t.Helper()

	text, ok := result.IR[irKey(function, kind)]
	if !ok {
		return fmt.Errorf("no %s unit for %s on engine %s", kind, function, result.Engine)
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	newGoldie(t).Assert(t, name, []byte(text))
	return nil
}
