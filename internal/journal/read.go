package journal

import (
	"context"
	"fmt"
)

// RunSummary is one committed run.
type RunSummary struct {
	ID         string `json:"id"`
	Train      string `json:"train"`
	SpecHash   string `json:"spec_hash"`
	Pulses     int    `json:"pulses"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// GearCount is an event count for one gear.
type GearCount struct {
	Gear  string `json:"gear"`
	Count int    `json:"count"`
}

// KindCount is an event count for one kind.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Runs lists committed runs, oldest first. UUIDv7 IDs sort by creation
// time, so ordering by ID is chronological.
//
// Returns an empty slice (not nil) if the journal holds no runs.
func (j *Journal) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, train, spec_hash, pulses, started_at, finished_at
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Train, &r.SpecHash, &r.Pulses, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if runs == nil {
		runs = []RunSummary{}
	}

	return runs, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (j *Journal) ReadRun(ctx context.Context, id string) (RunSummary, error) {
	var r RunSummary
	err := j.db.QueryRowContext(ctx, `
		SELECT id, train, spec_hash, pulses, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id).Scan(&r.ID, &r.Train, &r.SpecHash, &r.Pulses, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return RunSummary{}, err
	}
	return r, nil
}

// Events returns a run's event timeline ordered by seq.
//
// Returns an empty slice (not nil) if the run has no events.
func (j *Journal) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, gear, kind, phase, state
		FROM gear_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Seq, &ev.Gear, &ev.Kind, &ev.Phase, &ev.State); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return events, nil
}

// RotationCounts aggregates a run's rotation events per gear, ordered
// by gear name.
//
// Returns an empty slice (not nil) if the run recorded no rotations.
func (j *Journal) RotationCounts(ctx context.Context, runID string) ([]GearCount, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT gear, COUNT(*)
		FROM gear_events
		WHERE run_id = ? AND kind = ?
		GROUP BY gear
		ORDER BY gear COLLATE BINARY ASC
	`, runID, KindRotation)
	if err != nil {
		return nil, fmt.Errorf("query rotation counts: %w", err)
	}
	defer rows.Close()

	var counts []GearCount
	for rows.Next() {
		var c GearCount
		if err := rows.Scan(&c.Gear, &c.Count); err != nil {
			return nil, fmt.Errorf("scan rotation count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rotation counts: %w", err)
	}

	if counts == nil {
		counts = []GearCount{}
	}

	return counts, nil
}

// KindCounts aggregates a run's events per kind, ordered by kind.
//
// Returns an empty slice (not nil) if the run has no events.
func (j *Journal) KindCounts(ctx context.Context, runID string) ([]KindCount, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM gear_events
		WHERE run_id = ?
		GROUP BY kind
		ORDER BY kind COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query kind counts: %w", err)
	}
	defer rows.Close()

	var counts []KindCount
	for rows.Next() {
		var c KindCount
		if err := rows.Scan(&c.Kind, &c.Count); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kind counts: %w", err)
	}

	if counts == nil {
		counts = []KindCount{}
	}

	return counts, nil
}
