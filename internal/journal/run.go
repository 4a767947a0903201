package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrRunClosed reports use of a run after Finish or Abort.
var ErrRunClosed = errors.New("journal: run already closed")

// RunIDGenerator produces run identifiers.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs, so listing
// runs ordered by ID is chronological.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run IDs for testing, enabling
// deterministic journals and golden comparison.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
//
// Panics once all IDs are consumed; a test that begins more runs than
// it planned for should fail loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all run ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Run is one journaled drive session. It holds a single transaction
// from Begin to Finish or Abort, so the run lands in the journal
// entirely or not at all.
//
// Record failures latch: the first one is kept and returned again by
// Finish, which then rolls back. This lets hook closures record
// without error plumbing.
type Run struct {
	id     string
	tx     *sql.Tx
	now    func() time.Time
	seq    atomic.Int64
	err    error
	closed bool
}

// Begin starts a journaled run for the named train. The runs row is
// written inside the run's transaction, so an aborted run leaves no
// trace.
func (j *Journal) Begin(ctx context.Context, train, specHash string) (*Run, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	id := j.runIDs.Generate()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, train, spec_hash, started_at)
		VALUES (?, ?, ?, ?)
	`, id, train, specHash, j.now().UTC().Format(time.RFC3339))
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("begin run: %w", err)
	}

	return &Run{id: id, tx: tx, now: j.now}, nil
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Err returns the first recording failure, if any.
func (r *Run) Err() error { return r.err }

// Record appends one event with the next per-run seq. The given
// event's Seq is ignored. Replaying a (run, seq) pair is a no-op,
// so retried writes stay idempotent.
func (r *Run) Record(ctx context.Context, ev Event) error {
	if r.closed {
		return ErrRunClosed
	}

	seq := r.seq.Add(1)
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO gear_events (run_id, seq, gear, kind, phase, state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, r.id, seq, ev.Gear, ev.Kind, ev.Phase, ev.State)
	if err != nil {
		err = fmt.Errorf("record event: %w", err)
		if r.err == nil {
			r.err = err
		}
		return err
	}

	return nil
}

// Finish stamps the pulse count and finish time and commits the run.
// If any Record failed, Finish rolls back and returns that failure
// instead.
func (r *Run) Finish(ctx context.Context, pulses int) error {
	if r.closed {
		return ErrRunClosed
	}
	r.closed = true

	if r.err != nil {
		r.tx.Rollback()
		return fmt.Errorf("finish run %s: %w", r.id, r.err)
	}

	_, err := r.tx.ExecContext(ctx, `
		UPDATE runs SET pulses = ?, finished_at = ? WHERE id = ?
	`, pulses, r.now().UTC().Format(time.RFC3339), r.id)
	if err != nil {
		r.tx.Rollback()
		return fmt.Errorf("finish run %s: %w", r.id, err)
	}

	if err := r.tx.Commit(); err != nil {
		return fmt.Errorf("finish run %s: commit: %w", r.id, err)
	}
	return nil
}

// Abort rolls back an unfinished run. Aborting a closed run is a
// no-op.
func (r *Run) Abort() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.tx.Rollback()
}
