package field

// EventKind classifies engine trace events.
type EventKind string

const (
	// EventPassBegin marks the start of a pass (BeginPass).
	EventPassBegin EventKind = "pass_begin"

	// EventCreate records field creation (fields are born dirty).
	EventCreate EventKind = "create"

	// EventMark records a dirty transition during propagation.
	EventMark EventKind = "mark"

	// EventSet records a Set call. Changed is false when the equality
	// short-circuit suppressed downstream invalidation.
	EventSet EventKind = "set"

	// EventCopy records a cross-context CopyFrom transplant.
	EventCopy EventKind = "copy"

	// EventRelease records field destruction.
	EventRelease EventKind = "release"
)

// Event is one engine trace event. Seq is stamped by the registry
// clock; Pass is the token of the pass the event occurred in.
type Event struct {
	Seq     int64
	Pass    string
	Kind    EventKind
	Owner   string
	Field   string
	Changed bool
}

// Tracer receives engine events in seq order. Implementations must not
// call back into the registry.
type Tracer interface {
	Record(Event)
}

// SliceTracer accumulates events in memory. Test and harness helper.
type SliceTracer struct {
	Events []Event
}

// Record appends ev.
func (t *SliceTracer) Record(ev Event) {
	t.Events = append(t.Events, ev)
}

// Reset drops accumulated events.
func (t *SliceTracer) Reset() {
	t.Events = t.Events[:0]
}
