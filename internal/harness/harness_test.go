package harness

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_TraceSequence(t *testing.T) {
	scenario := &Scenario{
		Name:  "trace",
		Train: filepath.Join("testdata", "trains", "tiny.cue"),
		Flow:  []FlowStep{{Pulses: 2}},
	}

	result, err := NewRunner(nil).Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass)

	// Rotation events carry the unreduced phase the hooks observed.
	want := []TraceEvent{
		{Seq: 1, Gear: "pulse", Kind: KindTick, Phase: 1, State: "engaged"},
		{Seq: 2, Gear: "pulse", Kind: KindRotation, Phase: 1, State: "engaged"},
		{Seq: 3, Gear: "half", Kind: KindTick, Phase: 1, State: "engaged"},
		{Seq: 4, Gear: "pulse", Kind: KindTick, Phase: 1, State: "engaged"},
		{Seq: 5, Gear: "pulse", Kind: KindRotation, Phase: 1, State: "engaged"},
		{Seq: 6, Gear: "half", Kind: KindTick, Phase: 2, State: "engaged"},
		{Seq: 7, Gear: "half", Kind: KindRotation, Phase: 2, State: "engaged"},
		{Seq: 8, Gear: "quarter", Kind: KindTick, Phase: 1, State: "engaged"},
	}
	assert.Equal(t, want, result.Trace)
}

func TestRun_AssertionFailureIsNotAnError(t *testing.T) {
	scenario := &Scenario{
		Name:  "failing",
		Train: filepath.Join("testdata", "trains", "tiny.cue"),
		Flow:  []FlowStep{{Pulses: 2}},
		Assert: []Assertion{
			{Type: AssertRotations, Gear: "half", Count: 99},
		},
	}

	result, err := NewRunner(nil).Run(scenario)
	require.NoError(t, err, "assertion failures are reported, not returned")

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: rotations")
	assert.Contains(t, result.Errors[0], `99 rotations of "half"`)
	assert.Contains(t, result.Errors[0], "1 rotations")
}

func TestRun_EngageFlow(t *testing.T) {
	scenario := &Scenario{
		Name:  "engage",
		Train: filepath.Join("testdata", "trains", "tiny.cue"),
		Flow: []FlowStep{
			{Pulses: 2},
			{Engage: &EngageStep{Gear: "half", Value: false}},
			{Pulses: 1},
		},
		Assert: []Assertion{
			{Type: AssertState, Gear: "half", Value: "disengaged"},
			{Type: AssertEvents, Gear: "half", Kind: KindDisengaged, Count: 1},
		},
	}

	result, err := NewRunner(nil).Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, "half", last.Gear)
	assert.Equal(t, KindDisengaged, last.Kind)
	assert.Equal(t, "disengaged", last.State)
}

func TestRun_UnknownGearInEngageStep(t *testing.T) {
	scenario := &Scenario{
		Name:  "ghost",
		Train: filepath.Join("testdata", "trains", "tiny.cue"),
		Flow: []FlowStep{
			{Engage: &EngageStep{Gear: "ghost", Value: false}},
		},
	}

	_, err := NewRunner(nil).Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `flow[0]: unknown gear "ghost"`)
}

func TestRun_TrainFileMissing(t *testing.T) {
	scenario := &Scenario{
		Name:  "missing",
		Train: filepath.Join("testdata", "trains", "missing.cue"),
		Flow:  []FlowStep{{Pulses: 1}},
	}

	_, err := NewRunner(nil).Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load train")
}

func TestRun_InvalidTrainSpec(t *testing.T) {
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "dup.cue")
	content := `train: {
	name: "dup"
	drive: {
		name: "pulse"
		gears: [{name: "a", ratio: 2}, {name: "a", ratio: 3}]
	}
}
`
	require.NoError(t, os.WriteFile(trainPath, []byte(content), 0644))

	scenario := &Scenario{
		Name:  "dup",
		Train: trainPath,
		Flow:  []FlowStep{{Pulses: 1}},
	}

	_, err := NewRunner(nil).Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build train")
	assert.Contains(t, err.Error(), "duplicate gear name")
}

func TestRun_LogsFlowSteps(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	scenario := &Scenario{
		Name:  "logging",
		Train: filepath.Join("testdata", "trains", "tiny.cue"),
		Flow: []FlowStep{
			{Pulses: 1},
			{Engage: &EngageStep{Gear: "half", Value: false}},
		},
	}

	_, err := NewRunner(logger).Run(scenario)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "pulses driven")
	assert.Contains(t, out, "engagement toggled")
	assert.Contains(t, out, "state=disengaging")
}

func TestRun_WallClockChain(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "wall-clock.yaml"))
	require.NoError(t, err)

	result, err := NewRunner(nil).Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
