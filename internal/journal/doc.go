// Package journal provides SQLite-backed durable storage for engine
// traces.
//
// The journal is an append-only log of field events (create, mark,
// set, copy, release) grouped into recompute passes. All ordering uses
// the engine's logical sequence number, never timestamps, so a
// journaled pass replays identically regardless of wall time.
//
// Idempotency: events are keyed by seq with ON CONFLICT DO NOTHING, so
// re-flushing a buffer after a crash never duplicates rows.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: events always belong to a journaled pass
package journal
