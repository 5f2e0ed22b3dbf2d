package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileValidFunctions(t *testing.T) {
	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), mathFunctions)
	require.NoError(t, err)

	assert.Contains(t, output, "✓ Compiled 3 function(s) with engine closure")
	assert.Contains(t, output, "lerp(a float, b float, t float) -> (result float)")
	assert.Contains(t, output, "clamp01(x float) -> (y float)")
	assert.Contains(t, output, "tuple_call")
	assert.Contains(t, output, "fingerprint:")
	assert.NotContains(t, output, "define", "IR is only printed with --ir")
}

func TestCompileDirectoryMixesFormats(t *testing.T) {
	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), functionsDir)
	require.NoError(t, err)

	assert.Contains(t, output, "Compiled 5 function(s)")
	assert.Contains(t, output, "scale(v fvec3, k float) -> (out fvec3)")
	assert.Contains(t, output, "scaled_length(v fvec3, k float) -> (len float)")
}

func TestCompileValidFunctionsJSON(t *testing.T) {
	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "json", Engine: "interp"}),
		mathFunctions, "--function", "mix01")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "interp", resp.Data.Engine)

	require.Len(t, resp.Data.Functions, 1)
	fn := resp.Data.Functions[0]
	assert.Equal(t, "mix01", fn.Name)
	assert.Equal(t, "interp", fn.Engine)
	assert.Equal(t, []string{"build_ir", "tuple_call"}, fn.Bodies)
	assert.NotEmpty(t, fn.Unit)
	assert.Len(t, fn.Fingerprint, 64)
	assert.Empty(t, fn.IR)
}

func TestCompileShowIR(t *testing.T) {
	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}),
		mathFunctions, "--function", "lerp", "--ir")
	require.NoError(t, err)

	assert.Contains(t, output, "Compiled 1 function(s)")
	assert.Contains(t, output, "define")
	assert.Contains(t, output, "sub float")
}

func TestCompileOutputToDirectory(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "ir")

	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), mathFunctions, "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote IR to "+outDir)

	for _, name := range []string{"clamp01", "lerp", "mix01"} {
		data, err := os.ReadFile(filepath.Join(outDir, name+".ir"))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "define", name)
	}
}

func TestCompileUnknownFunction(t *testing.T) {
	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}),
		mathFunctions, "--function", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [UNKNOWN_FUNCTION]")
}

func TestCompileInvalidFunctions(t *testing.T) {
	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}),
		filepath.Join("testdata", "invalid"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	assert.Contains(t, output, "✗ Compilation failed")
	assert.Contains(t, output, "E104")
	assert.Contains(t, output, "quad")
}

func TestCompileCallCycle(t *testing.T) {
	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}),
		filepath.Join("testdata", "cycle"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCallCycle, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "call cycle")
}

func TestCompileMissingPath(t *testing.T) {
	output, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), "testdata/nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "E005")
	assert.Contains(t, output, "path not found: testdata/nowhere")
}

func TestFormatSignature(t *testing.T) {
	reg, _, err := loadRegistry([]string{mathFunctions})
	require.NoError(t, err)

	fn, ok := reg.Lookup("math.divmod")
	require.True(t, ok)
	assert.Equal(t, "(a int32, b int32) -> (quo int32, rem int32)", formatSignature(fn))
}
