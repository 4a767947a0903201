package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickdrive/gearbox/internal/traindef"
)

const tinyTrainCUE = `train: {
	name: "tiny"
	drive: {
		name: "pulse"
		gears: [
			{name: "half", ratio: 2, gears: [{name: "quarter", ratio: 2}]},
		]
	}
}
`

// writeTrainFile writes a CUE train definition into dir and returns its path.
func writeTrainFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateValidTrain(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "tiny.cue", tinyTrainCUE)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, `✓ Train "tiny" valid (3 gears)`)
	assert.Contains(t, output, "spec hash:")
}

func TestValidateValidTrainJSON(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "tiny.cue", tinyTrainCUE)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "tiny", resp.Data.Train)
	assert.Equal(t, 3, resp.Data.Gears)
	assert.Len(t, resp.Data.SpecHash, 64)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.cue")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E005]")
}

func TestValidateBrokenCUE(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "broken.cue", "train: {name: ")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E002]")
}

func TestValidateMissingTrainStruct(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "empty.cue", "gears: 3\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "train definition is required")
}

func TestValidateFloatRejection(t *testing.T) {
	content := `train: {
	name: "fractional"
	drive: {
		name: "pulse"
		gears: [{name: "half", ratio: 2.5}]
	}
}
`
	path := writeTrainFile(t, t.TempDir(), "float.cue", content)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	// Floats never compile, so this is a command error rather than a finding
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "float values are forbidden")
}

func TestValidateFindings(t *testing.T) {
	content := `train: {
	name: "bad"
	drive: {
		name: "pulse"
		gears: [{name: "half", ratio: 0}]
	}
}
`
	path := writeTrainFile(t, t.TempDir(), "bad.cue", content)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E103")
	assert.Contains(t, output, "ratio must be at least 1")
}

func TestValidateFindingsJSON(t *testing.T) {
	content := `train: {
	name: "bad"
	drive: {
		name: "pulse"
		gears: [
			{name: "half", ratio: 0},
			{name: "half", ratio: 2},
		]
	}
}
`
	path := writeTrainFile(t, t.TempDir(), "bad.cue", content)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	// Findings are collected, not fail-fast
	assert.Len(t, resp.Data.Errors, 2)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func TestValidateVerboseOutput(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "tiny.cue", tinyTrainCUE)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf) // Verbose output goes to stderr
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, stderrBuf.String(), `Compiled train "tiny"`)
}

func TestCountGears(t *testing.T) {
	spec := &traindef.GearSpec{
		Name:  "pulse",
		Ratio: 1,
		Gears: []traindef.GearSpec{
			{Name: "a", Ratio: 2},
			{Name: "b", Ratio: 3, Gears: []traindef.GearSpec{
				{Name: "c", Ratio: 4},
			}},
		},
	}

	assert.Equal(t, 4, countGears(spec))
	assert.Equal(t, 1, countGears(&traindef.GearSpec{Name: "lone", Ratio: 1}))
}

func TestLoadErrorCode(t *testing.T) {
	notExist := fmt.Errorf("read train definition: %w", os.ErrNotExist)
	assert.Equal(t, ErrCodeNotFound, loadErrorCode(notExist))

	compileErr := &traindef.CompileError{Field: "drive", Message: "drive gear is required"}
	assert.Equal(t, ErrCodeLoad, loadErrorCode(compileErr))

	assert.Equal(t, ErrCodeGeneric, loadErrorCode(errors.New("unclassified")))
}
