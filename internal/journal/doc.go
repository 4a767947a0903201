// Package journal provides SQLite-backed recording of gear hook events.
//
// The journal is an append-only event log for post-hoc tracing. It
// persists what the hooks reported and nothing else: gear state is
// never stored or restored, and replaying a train definition always
// starts from scratch.
//
// A Run covers one drive session and holds a single transaction from
// Begin to Finish, so a run is journaled entirely or not at all.
// Within a run, events are stamped with a strictly increasing seq;
// all ordering uses seq, never wall-clock time. Run rows carry start
// and finish timestamps as operator metadata only.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Reads see committed runs only; finish or abort a run before
// querying.
package journal
