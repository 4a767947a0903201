package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickdrive/gearbox/internal/journal"
	"github.com/tickdrive/gearbox/internal/traindef"
)

func TestRunRequiresPulses(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "tiny.cue", tinyTrainCUE)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "pulses")
}

func TestRunTextOutput(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "tiny.cue", tinyTrainCUE)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs([]string{path, "--pulses", "4"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := stdoutBuf.String()
	assert.Contains(t, output, `Train "tiny" drove 4 pulse(s)`)
	assert.Contains(t, output, "GEAR")
	assert.Contains(t, output, "pulse")
	assert.Contains(t, output, "half")
	assert.Contains(t, output, "quarter")
	assert.Contains(t, output, "engaged")
	// No --db means no journaled run to refer to
	assert.NotContains(t, output, "Run:")
}

func TestRunJSONOutput(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "tiny.cue", tinyTrainCUE)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs([]string{path, "--pulses", "4"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdoutBuf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "tiny", resp.Data.Train)
	assert.Equal(t, 4, resp.Data.Pulses)
	assert.Len(t, resp.Data.SpecHash, 64)
	assert.Empty(t, resp.Data.RunID)

	// Declaration order, drive first
	require.Len(t, resp.Data.Gears, 3)
	assert.Equal(t, GearStatus{Name: "pulse", Rotations: 4, Phase: 0, State: "engaged"}, resp.Data.Gears[0])
	assert.Equal(t, GearStatus{Name: "half", Rotations: 2, Phase: 0, State: "engaged"}, resp.Data.Gears[1])
	assert.Equal(t, GearStatus{Name: "quarter", Rotations: 1, Phase: 0, State: "engaged"}, resp.Data.Gears[2])
}

func TestRunJournaled(t *testing.T) {
	dir := t.TempDir()
	path := writeTrainFile(t, dir, "tiny.cue", tinyTrainCUE)
	dbPath := filepath.Join(dir, "gears.db")

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs([]string{path, "--pulses", "4", "--db", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, stdoutBuf.String(), "Run: ")

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "tiny", runs[0].Train)
	assert.Equal(t, 4, runs[0].Pulses)

	counts, err := j.RotationCounts(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []journal.GearCount{
		{Gear: "half", Count: 2},
		{Gear: "pulse", Count: 4},
		{Gear: "quarter", Count: 1},
	}, counts)

	kinds, err := j.KindCounts(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []journal.KindCount{
		{Kind: "rotation", Count: 7},
		{Kind: "tick", Count: 10},
	}, kinds)
}

func TestRunFixedRunID(t *testing.T) {
	dir := t.TempDir()
	path := writeTrainFile(t, dir, "tiny.cue", tinyTrainCUE)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    filepath.Join(dir, "gears.db"),
		Pulses:      4,
		RunIDs:      journal.NewFixedGenerator("run-0001"),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)

	err := runTrain(opts, path, cmd)
	require.NoError(t, err)
	assert.Contains(t, stdoutBuf.String(), "Run: run-0001")
}

func TestRunNegativePulses(t *testing.T) {
	path := writeTrainFile(t, t.TempDir(), "tiny.cue", tinyTrainCUE)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs([]string{path, "--pulses", "-5"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdoutBuf.String(), "Error [E001]")
}

func TestRunMissingTrain(t *testing.T) {
	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.cue"), "--pulses", "4"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdoutBuf.String(), "Error [E005]")
}

func TestRunBuildFailure(t *testing.T) {
	content := `train: {
	name: "dup"
	drive: {
		name: "pulse"
		gears: [
			{name: "twin", ratio: 2},
			{name: "twin", ratio: 3},
		]
	}
}
`
	path := writeTrainFile(t, t.TempDir(), "dup.cue", content)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs([]string{path, "--pulses", "4"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build train")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdoutBuf.String(), "Error [E003]")
}

func TestDrivePulsesCancellation(t *testing.T) {
	spec := &traindef.TrainSpec{
		Name:  "t",
		Drive: traindef.GearSpec{Name: "pulse", Ratio: 1},
	}
	train, err := traindef.Build(spec)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driven, err := drivePulses(ctx, train, 5000)
	assert.Equal(t, 0, driven)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrivePulsesZero(t *testing.T) {
	spec := &traindef.TrainSpec{
		Name:  "t",
		Drive: traindef.GearSpec{Name: "pulse", Ratio: 1},
	}
	train, err := traindef.Build(spec)
	require.NoError(t, err)

	driven, err := drivePulses(context.Background(), train, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, driven)
}
