package journal

import (
	"context"
	"fmt"

	"github.com/roach88/reflow/internal/field"
)

// BeginPass records a pass row. Idempotent: re-recording a known token
// is silently ignored, so a crash between flush and ack never
// duplicates a pass.
func (j *Journal) BeginPass(ctx context.Context, token string, startedSeq int64) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO passes (token, started_seq)
		VALUES (?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, startedSeq)
	if err != nil {
		return fmt.Errorf("begin pass: %w", err)
	}
	return nil
}

// WriteEvent inserts one trace event. Events are keyed by their
// logical sequence number; re-writing a seq is silently ignored for
// idempotency. Other constraint violations still return errors.
//
// The pass row referenced by ev.Pass must exist (foreign key).
func (j *Journal) WriteEvent(ctx context.Context, ev field.Event) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events (seq, pass_token, kind, node, field, changed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		ev.Seq,
		ev.Pass,
		string(ev.Kind),
		ev.Owner,
		ev.Field,
		boolToInt(ev.Changed),
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteEvents writes a batch of events in one transaction.
func (j *Journal) WriteEvents(ctx context.Context, events []field.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Pass rows first so the events' foreign keys resolve.
	for _, ev := range events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO passes (token, started_seq)
			VALUES (?, ?)
			ON CONFLICT(token) DO NOTHING
		`, ev.Pass, ev.Seq); err != nil {
			return fmt.Errorf("write events: pass row: %w", err)
		}
	}

	for _, ev := range events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (seq, pass_token, kind, node, field, changed)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(seq) DO NOTHING
		`,
			ev.Seq,
			ev.Pass,
			string(ev.Kind),
			ev.Owner,
			ev.Field,
			boolToInt(ev.Changed),
		); err != nil {
			return fmt.Errorf("write events: event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
