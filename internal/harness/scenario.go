package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fnjit/internal/jit"
)

// DefaultTolerance is the absolute difference allowed between expected and
// actual float outputs when a scenario sets none.
const DefaultTolerance = 1e-6

// Scenario defines a set of invocations and the checks run against them.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Functions lists CUE or HCL files, or directories of them, loaded
	// into the registry. Relative paths resolve against the scenario file.
	Functions []string `yaml:"functions"`

	// Engines restricts the run to the named execution engines.
	// Empty means every engine.
	Engines []string `yaml:"engines,omitempty"`

	// Tolerance overrides DefaultTolerance for float comparisons.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Cases are invoked in order.
	Cases []Case `yaml:"cases"`

	// Assertions run against the trace once all cases are done.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Case is one invocation.
type Case struct {
	Invoke string         `yaml:"invoke"`
	Inputs map[string]any `yaml:"inputs"`

	// Expect is optional; without it the call only has to succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome of a case. Either Outputs or Error is set.
type Expect struct {
	// Outputs is a subset match on the decoded outputs.
	Outputs map[string]any `yaml:"outputs,omitempty"`

	// Error is a substring the call's error must contain.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Function is used by trace_contains, trace_count and compiled.
	Function string `yaml:"function,omitempty"`

	// Inputs is a subset match on logged inputs (trace_contains).
	Inputs map[string]any `yaml:"inputs,omitempty"`

	// Functions is the expected first-invocation order (trace_order).
	Functions []string `yaml:"functions,omitempty"`

	// Count is the expected number of invocations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Kind is the expected body kind (compiled).
	Kind string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertCompiled      = "compiled"
)

// LoadScenario reads and parses a scenario YAML file. Function paths are
// resolved relative to the file's directory. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving function paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range scenario.Functions {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Functions[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// engines returns the engines the scenario runs against.
func (s *Scenario) engines() []string {
	if len(s.Engines) == 0 {
		return jit.Names()
	}
	return s.Engines
}

func (s *Scenario) tolerance() float64 {
	if s.Tolerance == 0 {
		return DefaultTolerance
	}
	return s.Tolerance
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Functions) == 0 {
		return fmt.Errorf("functions list is required and must be non-empty")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}

	for _, p := range s.Functions {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("function file not found: %s", p)
		}
	}

	known := make(map[string]bool)
	for _, name := range jit.Names() {
		known[name] = true
	}
	for _, name := range s.Engines {
		if !known[name] {
			return fmt.Errorf("unknown engine %q (known: %v)", name, jit.Names())
		}
	}

	for i, c := range s.Cases {
		if c.Invoke == "" {
			return fmt.Errorf("cases[%d]: invoke is required", i)
		}
		if c.Inputs == nil {
			return fmt.Errorf("cases[%d]: inputs is required (use empty map if no inputs)", i)
		}
		if c.Expect != nil && c.Expect.Error != "" && len(c.Expect.Outputs) > 0 {
			return fmt.Errorf("cases[%d].expect: outputs and error are mutually exclusive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Functions) == 0 {
			return fmt.Errorf("assertions[%d]: functions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertCompiled:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for compiled", index)
		}
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for compiled", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
