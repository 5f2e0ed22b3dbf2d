package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayReproduces(t *testing.T) {
	dbPath := seedLog(t)
	_, err := runWithIDs(t, "b", &RootOptions{Format: "text", Database: dbPath},
		mathFunctions, "lerp", "-i", "a=1", "-i", "b=3", "-i", "t=0.5")
	require.NoError(t, err)

	for _, engineName := range []string{"closure", "interp"} {
		t.Run(engineName, func(t *testing.T) {
			output, err := execute(t, NewReplayCommand(&RootOptions{
				Format:   "text",
				Engine:   engineName,
				Database: dbPath,
			}), mathFunctions)
			require.NoError(t, err)
			assert.Contains(t, output, "Replay Summary: 2 call(s) on engine "+engineName)
			assert.Contains(t, output, "✓ All calls reproduced")
		})
	}
}

func TestReplaySkipsFailedCalls(t *testing.T) {
	dbPath := seedLog(t)
	_, err := runWithIDs(t, "b", &RootOptions{Format: "text", Database: dbPath}, mathFunctions, "lerp", "-i", "a=1")
	require.Error(t, err)

	output, err := execute(t, NewReplayCommand(&RootOptions{Format: "json", Database: dbPath}), mathFunctions)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllMatch)
	require.Equal(t, 1, resp.Data.Total)
	call := resp.Data.Calls[0]
	assert.Equal(t, "mix01", call.Function)
	assert.Equal(t, map[string]string{"y": "2.5"}, call.Logged)
	assert.Equal(t, call.Logged, call.Replayed)
}

func TestReplayDetectsChangedDefinition(t *testing.T) {
	dbPath := seedLog(t)

	// same signatures, but lerp now ignores t
	changed := filepath.Join(t.TempDir(), "math.cue")
	src, err := os.ReadFile(mathFunctions)
	require.NoError(t, err)
	edited := strings.Replace(string(src), `{op: "mul", args: ["d", "t"], out: "s"}`, `{op: "mul", args: ["d", "d"], out: "s"}`, 1)
	require.NotEqual(t, string(src), edited)
	require.NoError(t, os.WriteFile(changed, []byte(edited), 0644))

	output, err := execute(t, NewReplayCommand(&RootOptions{Format: "text", Database: dbPath}), changed)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ [4] mix01 (id-4)")
	assert.Contains(t, output, "y: logged 2.5, got 100")
	assert.Contains(t, output, "✗ Replay mismatch")
}

func TestReplayFunctionFilter(t *testing.T) {
	dbPath := seedLog(t)

	output, err := execute(t, NewReplayCommand(&RootOptions{Format: "text", Database: dbPath}),
		mathFunctions, "--function", "lerp")
	require.NoError(t, err)
	assert.Equal(t, "No invocations found in database.\n", output)
}

func TestReplayMissingFunctionInDefinitions(t *testing.T) {
	dbPath := seedLog(t)

	output, err := execute(t, NewReplayCommand(&RootOptions{Format: "json", Database: dbPath}),
		filepath.Join(functionsDir, "vec.hcl"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "E_REPLAY_MISMATCH", resp.Error.Code)
	require.Len(t, resp.Data.Calls, 1)
	assert.Contains(t, resp.Data.Calls[0].Error, "UNKNOWN_FUNCTION")
	assert.False(t, resp.Data.Calls[0].Match)
}

func TestReplayRequiresDatabase(t *testing.T) {
	_, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), mathFunctions)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
