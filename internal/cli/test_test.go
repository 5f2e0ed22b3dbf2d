package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("testdata", "scenarios")

func TestTestCommand_Passing(t *testing.T) {
	output, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}),
		scenariosDir, "--filter", "blend", "--golden-dir", t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, output, "✓ blend [closure, interp]")
	assert.Contains(t, output, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommand_Failing(t *testing.T) {
	output, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}),
		scenariosDir, "--golden-dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, output, "✗ wrong [closure]")
	assert.Contains(t, output, `[closure] cases[0] lerp: output "result": expected 6, got 5`)
	assert.Contains(t, output, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_JSON(t *testing.T) {
	output, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}),
		filepath.Join(scenariosDir, "wrong.yaml"), "--golden-dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "wrong", resp.Data.Scenarios[0].Name)
	assert.False(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommand_NoMatches(t *testing.T) {
	output, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "zzz*")
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", output)
}

func TestTestCommand_MissingPath(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "testdata/nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `scenario path "testdata/nowhere" does not exist`)
}

func TestTestCommand_BadFilter(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// ============================================================================
// Golden files
// ============================================================================

func TestTestCommand_GoldenRoundTrip(t *testing.T) {
	goldenDir := t.TempDir()
	args := []string{scenariosDir, "--filter", "blend", "--golden-dir", goldenDir}

	output, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), append(args, "--update")...)
	require.NoError(t, err)
	assert.Contains(t, output, "(golden updated)")

	goldenPath := filepath.Join(goldenDir, "blend.golden")
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario": "blend"`)
	assert.Contains(t, string(data), `"type": "compilation"`)

	// Both engines must reproduce the recorded trace.
	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), args...)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))
	output, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), args...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "[closure] trace does not match golden file")
	assert.Contains(t, output, "[interp] trace does not match golden file")
}

func TestTestCommand_EngineOverride(t *testing.T) {
	output, err := execute(t, NewRootCommand(),
		"test", scenariosDir, "--filter", "blend", "--engine", "interp", "--golden-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "✓ blend [interp]\n")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "blend.golden"), goldenFilePath(filepath.Join("s", "blend.yaml"), ""))
	assert.Equal(t, filepath.Join("g", "blend.golden"), goldenFilePath(filepath.Join("s", "blend.yml"), "g"))
}
