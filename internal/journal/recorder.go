package journal

import (
	"context"
	"sync"

	"github.com/roach88/reflow/internal/field"
)

// Recorder implements field.Tracer by buffering events in memory and
// flushing them to a Journal in batches. The engine stays synchronous
// and side-effect free; durability happens at flush points chosen by
// the host (typically after each recompute pass).
type Recorder struct {
	journal *Journal

	mu  sync.Mutex
	buf []field.Event
}

// NewRecorder creates a recorder flushing into j.
func NewRecorder(j *Journal) *Recorder {
	return &Recorder{journal: j}
}

// Record buffers one event. Implements field.Tracer.
func (r *Recorder) Record(ev field.Event) {
	r.mu.Lock()
	r.buf = append(r.buf, ev)
	r.mu.Unlock()
}

// Pending returns the number of buffered, unflushed events.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Flush writes the buffered events to the journal and clears the
// buffer on success. On error the buffer is kept; a retried flush is
// safe because event writes are idempotent by seq.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.buf
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := r.journal.WriteEvents(ctx, batch); err != nil {
		return err
	}

	r.mu.Lock()
	r.buf = r.buf[len(batch):]
	r.mu.Unlock()
	return nil
}
