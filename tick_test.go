package gearbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_OneRotationPerRatio(t *testing.T) {
	drive := New(nil)
	p := newProbe()
	require.NoError(t, p.g.Connect(drive, 4))

	for i := 0; i < 4; i++ {
		drive.Tick()
	}

	assert.Equal(t, []string{"tick", "tick", "tick", "tick", "rotation"}, p.events)
	assert.Equal(t, 0, p.g.Phase(), "phase returns to its starting value after ratio pulses")
}

func TestTick_HooksObserveUnreducedPhase(t *testing.T) {
	drive := New(nil)
	p := newProbe()
	require.NoError(t, p.g.Connect(drive, 5, WithStep(3)))

	for i := 0; i < 4; i++ {
		drive.Tick()
	}

	// The phase a hook reads may reach ratio+step-1 before the carry.
	assert.Equal(t, []string{"tick", "tick", "rotation", "tick", "tick", "rotation"}, p.events)
	assert.Equal(t, []int{3, 6, 6, 4, 7, 7}, p.phases)
	assert.Equal(t, 2, p.g.Phase(), "overshoot carries into the next cycle")
}

func TestTick_DisengageCompletesOnNextTick(t *testing.T) {
	drive := New(nil)
	p := newProbe()
	require.NoError(t, p.g.Connect(drive, 1000))

	drive.Tick()
	require.Equal(t, []string{"tick"}, p.events)
	p.reset()

	// Mid-rotation disengage: the very next tick completes it, no
	// rotation boundary required.
	p.g.Engage(false)
	drive.Tick()
	assert.Equal(t, []string{"disengaged"}, p.events)
	assert.Equal(t, Disengaged, p.g.State())
	assert.Equal(t, 2, p.g.Phase(), "the phase update always happens")
}

func TestTick_DisengagedGearStillDrivesChildren(t *testing.T) {
	p := newProbe()
	q := NewCounter()
	require.NoError(t, q.Connect(p.g, 1))

	p.g.Engage(false)
	for i := 0; i < 5; i++ {
		p.g.Tick()
	}

	// The parent's own hooks went silent after the disengage completed,
	// but every one of its rotations still turned the child.
	assert.Equal(t, []string{"disengaged"}, p.events)
	assert.Equal(t, Disengaged, p.g.State())
	assert.Equal(t, uint64(5), q.Count())
}

func TestTick_SilentTickStillAdvancesPhase(t *testing.T) {
	drive := New(nil)
	g := New(nil)
	require.NoError(t, g.Connect(drive, 10))
	g.Engage(false)
	drive.Tick() // completes the disengage
	require.Equal(t, Disengaged, g.State())

	for i := 0; i < 3; i++ {
		drive.Tick()
	}
	assert.Equal(t, 4, g.Phase())
}

func TestTick_ChainDivision(t *testing.T) {
	// The classic chain: a pass-through stage, a fractional 12.5x
	// divider (1000/80) and a further 1000x divider.
	isr := NewCounter()
	ticks := NewCounter()
	ms := NewCounter()
	secs := NewCounter()
	require.NoError(t, ticks.Connect(isr.Gear, 1))
	require.NoError(t, ms.Connect(ticks.Gear, 1000, WithStep(80)))
	require.NoError(t, secs.Connect(ms.Gear, 1000))

	for i := 0; i < 24999; i++ {
		isr.Tick()
	}

	assert.Equal(t, uint64(24999), isr.Count())
	assert.Equal(t, uint64(24999), ticks.Count())
	assert.Equal(t, uint64(1999), ms.Count())
	assert.Equal(t, uint64(1), secs.Count())

	assert.Equal(t, 0, ticks.Phase())
	assert.Equal(t, 920, ms.Phase())
	assert.Equal(t, 999, secs.Phase())
}

func TestTick_ReengageWhileTickingResumesAtBoundary(t *testing.T) {
	drive := New(nil)
	p := newProbe()
	require.NoError(t, p.g.Connect(drive, 3))

	p.g.Engage(false)
	drive.Tick()
	require.Equal(t, Disengaged, p.g.State())
	p.reset()

	p.g.Engage(true)
	drive.Tick() // phase 2, still Engaging: silent
	assert.Empty(t, p.events)

	drive.Tick() // boundary: engagement completes, then the gear turns
	assert.Equal(t, []string{"engaged", "tick", "rotation"}, p.events)
	assert.Equal(t, Engaged, p.g.State())
}
