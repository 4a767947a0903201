package journal

import (
	"context"

	"github.com/tickdrive/gearbox"
	"github.com/tickdrive/gearbox/internal/traindef"
)

// Attach binds every relay in the train to record its hook events
// into the run. Hooks observe the unreduced phase, so that is what
// lands in the journal.
//
// Recording errors are not surfaced here; they latch in the run and
// come back from Finish.
func Attach(ctx context.Context, run *Run, train *traindef.Train) {
	for _, name := range train.Names() {
		bindRelay(ctx, run, name, train.Gear(name))
	}
}

func bindRelay(ctx context.Context, run *Run, name string, r *gearbox.Relay) {
	record := func(kind string) {
		_ = run.Record(ctx, Event{
			Gear:  name,
			Kind:  kind,
			Phase: r.Phase(),
			State: r.State().String(),
		})
	}

	r.HandleEngaged(func(*gearbox.Engagement) { record(KindEngaged) })
	r.HandleTick(func() { record(KindTick) })
	r.HandleRotation(func() { record(KindRotation) })
	r.HandleDisengaged(func() { record(KindDisengaged) })
}
