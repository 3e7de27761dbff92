package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/reflow/internal/field"
)

// PassInfo describes one journaled pass.
type PassInfo struct {
	Token      string
	StartedSeq int64
}

// ReadPass returns every event of a pass ordered by seq ASC. Returns
// an empty slice (not nil) if the pass has no events.
func (j *Journal) ReadPass(ctx context.Context, token string) ([]field.Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, pass_token, kind, node, field, changed
		FROM events
		WHERE pass_token = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query pass events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ReadAll returns every journaled event ordered by seq ASC.
func (j *Journal) ReadAll(ctx context.Context) ([]field.Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, pass_token, kind, node, field, changed
		FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Passes returns every journaled pass ordered by started_seq ASC.
func (j *Journal) Passes(ctx context.Context) ([]PassInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT token, started_seq
		FROM passes
		ORDER BY started_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []PassInfo{}
	for rows.Next() {
		var p PassInfo
		if err := rows.Scan(&p.Token, &p.StartedSeq); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// LastSeq returns the highest journaled sequence number, or 0 for an
// empty journal. Used to resume the engine clock after a restart.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func scanEvents(rows *sql.Rows) ([]field.Event, error) {
	events := []field.Event{}
	for rows.Next() {
		var (
			ev      field.Event
			kind    string
			changed int
		)
		if err := rows.Scan(&ev.Seq, &ev.Pass, &kind, &ev.Owner, &ev.Field, &changed); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = field.EventKind(kind)
		ev.Changed = changed != 0
		events = append(events, ev)
	}
	return events, rows.Err()
}
