package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/fnjit/internal/store"
)

// ReplayResult compares one logged invocation with a fresh evaluation of
// the same inputs.
type ReplayResult struct {
	InvocationID string
	Function     string
	Seq          int64
	Want         map[string]string
	Got          map[string]string
	Err          error
}

// Match reports whether the re-run reproduced the logged outputs.
func (r ReplayResult) Match() bool {
	if r.Err != nil || len(r.Want) != len(r.Got) {
		return false
	}
	for k, v := range r.Want {
		if r.Got[k] != v {
			return false
		}
	}
	return true
}

// Diff lists the outputs whose values differ, sorted by name.
func (r ReplayResult) Diff() []string {
	var diffs []string
	for k, want := range r.Want {
		if got, ok := r.Got[k]; !ok || got != want {
			diffs = append(diffs, fmt.Sprintf("%s: logged %s, got %s", k, want, got))
		}
	}
	sort.Strings(diffs)
	return diffs
}

// Replay re-evaluates the most recent limit successful invocations of
// function logged in s (all functions when empty) and compares outputs.
// Logged values are in codec format, which the codecs decode again, so a
// deterministic function replays exactly. Replays are not logged.
func (e *Engine) Replay(ctx context.Context, s *store.Store, function string, limit int) ([]ReplayResult, error) {
	invs, err := s.ListInvocations(ctx, function, limit)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	results := []ReplayResult{}
	for _, inv := range invs {
		if inv.Error != "" {
			continue
		}
		inputs := make(map[string]any, len(inv.Inputs))
		for k, v := range inv.Inputs {
			inputs[k] = v
		}

		res, _, err := e.evaluate(ctx, inv.Function, inputs)
		results = append(results, ReplayResult{
			InvocationID: inv.ID,
			Function:     inv.Function,
			Seq:          inv.Seq,
			Want:         inv.Outputs,
			Got:          res.Formatted,
			Err:          err,
		})
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}
