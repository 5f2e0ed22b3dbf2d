package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFunctions(t *testing.T) {
	output, err := execute(t, NewListCommand(&RootOptions{Format: "text"}), mathFunctions)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"NAME", "SIGNATURE", "BODY", "IN", "OUT", "CALLS"}, strings.Fields(lines[0]))
	assert.True(t, strings.HasPrefix(lines[1], "clamp01 "))
	assert.True(t, strings.HasPrefix(lines[2], "lerp "))
	assert.Contains(t, lines[2], "12B")
	assert.Contains(t, lines[2], "4B")
	assert.Contains(t, lines[3], "[clamp01 lerp]")
	assert.NotContains(t, output, "math.sqrt")
}

func TestListIncludesHost(t *testing.T) {
	output, err := execute(t, NewListCommand(&RootOptions{Format: "json"}), functionsDir, "--host")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []FunctionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)

	byName := make(map[string]FunctionInfo, len(resp.Data))
	for _, info := range resp.Data {
		byName[info.Name] = info
	}
	require.Contains(t, byName, "math.length")
	assert.True(t, byName["math.length"].Host)
	assert.Equal(t, "compiled", byName["math.length"].Body)
	assert.Equal(t, 12, byName["math.length"].InputSize)

	scaled := byName["scaled_length"]
	assert.False(t, scaled.Host)
	assert.Equal(t, "build_ir", scaled.Body)
	assert.Equal(t, "length of v after scaling by k", scaled.Description)
	assert.Equal(t, []string{"scale", "math.length"}, scaled.Calls)
	assert.Equal(t, 16, scaled.InputSize)
	assert.Equal(t, 4, scaled.OutputSize)
}

func TestListMissingPath(t *testing.T) {
	_, err := execute(t, NewListCommand(&RootOptions{Format: "text"}), "testdata/nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
