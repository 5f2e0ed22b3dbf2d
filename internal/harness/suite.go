package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path         string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist (resolved to: %s)", e.Path, e.ResolvedPath)
}

// DiscoverScenarios returns path itself when it is a file, or the .yaml
// and .yml files directly inside it when it is a directory, sorted.
func DiscoverScenarios(path string) ([]string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = path
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path, ResolvedPath: resolved}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// SuiteResult summarizes a run over several scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one failed scenario. Engine is empty when the
// scenario could not be loaded or run.
type ScenarioFailure struct {
	Scenario     string `json:"scenario,omitempty"`
	ScenarioPath string `json:"scenario_path"`
	Engine       string `json:"engine,omitempty"`
	Error        string `json:"error"`
}

// RunSuite loads and runs every scenario in paths. A scenario counts as
// passed only when it passes on all of its engines. Failures are collected
// rather than returned; the error is reserved for a cancelled context.
func RunSuite(ctx context.Context, paths []string) (*SuiteResult, error) {
	result := &SuiteResult{}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.TotalScenarios++

		scenario, err := LoadScenario(p)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: p,
				Error:        fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		runs, err := RunContext(ctx, scenario)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Scenario:     scenario.Name,
				ScenarioPath: p,
				Error:        fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		if Passed(runs) {
			result.Passed++
			continue
		}
		result.Failed++
		for _, r := range runs {
			if r.Pass {
				continue
			}
			result.Failures = append(result.Failures, ScenarioFailure{
				Scenario:     scenario.Name,
				ScenarioPath: p,
				Engine:       r.Engine,
				Error:        strings.Join(r.Errors, "\n"),
			})
		}
	}

	return result, nil
}
