package field

import (
	"fmt"
	"io"
	"log/slog"
)

// Ref is a stable, comparable, weak handle to a field cell.
//
// A Ref never implies ownership: the owning tree node exclusively owns
// its fields, and fields reference each other only through Refs. Slots
// are reused after release with a bumped generation, so a Ref held
// across its field's destruction resolves to nothing instead of
// dereferencing a rebuilt stranger.
type Ref struct {
	Slot int32
	Gen  uint32
}

// NilRef is the zero-value-adjacent invalid reference.
var NilRef = Ref{Slot: -1}

// Valid reports whether the ref points at a slot (not whether the slot
// is still alive - resolution checks the generation).
func (r Ref) Valid() bool {
	return r.Slot >= 0
}

// cell is the registry-side state of one field. The typed value lives
// in Field[T]; everything the propagation graph needs is here.
type cell struct {
	gen         uint32
	alive       bool
	owner       string
	name        string
	dirty       bool
	deps        []Ref
	invalidates []Ref
	readers     map[Ref]bool // observed readers since last Set
}

// Registry is the per-context arena of field cells.
//
// All fields of one host tree live in one Registry and are operated on
// from one logical goroutine. The Registry performs dirty propagation,
// stamps every engine event with a logical sequence number, and routes
// advisory diagnostics.
type Registry struct {
	cells []cell
	free  []int32

	clock  *Clock
	tracer Tracer
	logger *slog.Logger

	// strict promotes undeclared-read diagnostics to panics.
	strict bool
	sink   func(*Diagnostic)

	passToken string
}

// Option configures a Registry.
type Option func(*Registry)

// WithTracer routes engine events (create, mark, set, copy, release)
// to t. Events are stamped with the registry clock.
func WithTracer(t Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// WithLogger sets the logger for advisory diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithStrictReads makes undeclared-read diagnostics fatal. Intended for
// debug builds and tests; release integrations should over-declare
// dependencies instead (always safe).
func WithStrictReads() Option {
	return func(r *Registry) { r.strict = true }
}

// WithDiagnostics installs a sink receiving advisory diagnostics in
// addition to the log.
func WithDiagnostics(sink func(*Diagnostic)) Option {
	return func(r *Registry) { r.sink = sink }
}

// WithClock replaces the registry clock. Used by tests and by replay to
// resume from a recorded position.
func WithClock(c *Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		clock:  NewClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BeginPass associates subsequent trace events with the given pass
// token. Tokens come from a PassTokenGenerator.
func (r *Registry) BeginPass(token string) {
	r.passToken = token
	r.emit(Event{Kind: EventPassBegin, Pass: token})
}

// Clock returns the registry's logical clock.
func (r *Registry) Clock() *Clock {
	return r.clock
}

// allocate claims a slot for a new field cell. Fields are born dirty
// with no value and empty edge sets.
func (r *Registry) allocate(owner, name string) Ref {
	var slot int32
	if n := len(r.free); n > 0 {
		slot = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.cells = append(r.cells, cell{})
		slot = int32(len(r.cells) - 1)
	}
	c := &r.cells[slot]
	c.alive = true
	c.owner = owner
	c.name = name
	c.dirty = true
	c.deps = nil
	c.invalidates = nil
	c.readers = nil
	ref := Ref{Slot: slot, Gen: c.gen}
	r.emit(Event{Kind: EventCreate, Pass: r.passToken, Owner: owner, Field: name})
	return ref
}

// release destroys the cell behind ref. The slot is recycled with a
// bumped generation so surviving refs go stale instead of aliasing.
func (r *Registry) release(ref Ref) {
	c, ok := r.resolve(ref)
	if !ok {
		return
	}
	r.emit(Event{Kind: EventRelease, Pass: r.passToken, Owner: c.owner, Field: c.name})
	c.alive = false
	c.gen++
	c.deps = nil
	c.invalidates = nil
	c.readers = nil
	r.free = append(r.free, ref.Slot)
}

// resolve returns the live cell behind ref, or ok=false if the ref is
// invalid or its field has been released.
func (r *Registry) resolve(ref Ref) (*cell, bool) {
	if !ref.Valid() || int(ref.Slot) >= len(r.cells) {
		return nil, false
	}
	c := &r.cells[ref.Slot]
	if !c.alive || c.gen != ref.Gen {
		return nil, false
	}
	return c, true
}

// mustResolve is resolve for direct field operations, where a stale ref
// is a programmer error rather than a skippable propagation target.
func (r *Registry) mustResolve(ref Ref, op string) *cell {
	c, ok := r.resolve(ref)
	if !ok {
		panic(fmt.Sprintf("field: %s through stale ref {slot=%d gen=%d}", op, ref.Slot, ref.Gen))
	}
	return c
}

// Dirty reports the dirty flag of the field behind ref.
func (r *Registry) Dirty(ref Ref) bool {
	return r.mustResolve(ref, "dirty check").dirty
}

// Key returns the diagnostic "owner.name" identifier for ref, or a
// placeholder for stale refs.
func (r *Registry) Key(ref Ref) string {
	c, ok := r.resolve(ref)
	if !ok {
		return fmt.Sprintf("<stale:%d/%d>", ref.Slot, ref.Gen)
	}
	return c.owner + "." + c.name
}

// MarkDirty sets the dirty flag on ref's field and eagerly propagates
// through the invalidates closure. Already-dirty fields short-circuit,
// which both terminates fan-in graphs and makes redundant calls cheap:
// over-approximating what a mutation reaches is always safe.
//
// MarkDirty never reads or writes values. Propagation into a released
// field is skipped; fields do not outlive their owner, so a stale edge
// means the whole subtree is gone.
func (r *Registry) MarkDirty(ref Ref) {
	c := r.mustResolve(ref, "mark dirty")
	r.markCell(ref, c)
}

func (r *Registry) markCell(ref Ref, c *cell) {
	if c.dirty {
		return
	}
	c.dirty = true
	r.emit(Event{Kind: EventMark, Pass: r.passToken, Owner: c.owner, Field: c.name})
	for _, target := range c.invalidates {
		if tc, ok := r.resolve(target); ok {
			r.markCell(target, tc)
		}
	}
}

// MarkDependents dirties every invalidation target of ref without
// touching ref's own flag. Hosts call this after CopyFrom to re-mark
// the consumer-side dependents of a transplanted field; the copy
// itself never propagates.
func (r *Registry) MarkDependents(ref Ref) {
	c := r.mustResolve(ref, "mark dependents")
	r.propagate(c)
}

// propagate dirties every invalidation target of ref without touching
// ref's own flag. Called by Set after a value change.
func (r *Registry) propagate(c *cell) {
	for _, target := range c.invalidates {
		if tc, ok := r.resolve(target); ok {
			r.markCell(target, tc)
		}
	}
}

// setDependencies replaces the declared dependency set. Dependency sets
// may vary by branch (a block-mode field depends on children only), so
// replacement is legal at any time, including mid-recompute. Dirtiness
// is untouched.
func (r *Registry) setDependencies(ref Ref, deps []Ref) {
	c := r.mustResolve(ref, "set dependencies")
	c.deps = append(c.deps[:0], deps...)
}

// setInvalidates replaces the forward-propagation set. A target from
// which ref is reachable back through invalidates edges would make
// MarkDirty cycle; that is a configuration error and panics here, at
// declaration time, rather than becoming a runtime state.
func (r *Registry) setInvalidates(ref Ref, targets []Ref) {
	c := r.mustResolve(ref, "set invalidates")
	for _, target := range targets {
		if target == ref {
			panic(fmt.Sprintf("field: %s invalidates itself", r.Key(ref)))
		}
		if r.reaches(target, ref) {
			panic(fmt.Sprintf("field: invalidation cycle %s -> %s -> ... -> %s",
				r.Key(ref), r.Key(target), r.Key(ref)))
		}
	}
	c.invalidates = append(c.invalidates[:0], targets...)
}

// reaches reports whether dst is reachable from src through live
// invalidates edges.
func (r *Registry) reaches(src, dst Ref) bool {
	seen := map[Ref]bool{}
	stack := []Ref{src}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == dst {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if c, ok := r.resolve(cur); ok {
			stack = append(stack, c.invalidates...)
		}
	}
	return false
}

// checkDepsClean panics if any declared dependency of c is dirty
// or has been released out from under it.
func (r *Registry) checkDepsClean(key string, c *cell) {
	for _, dep := range c.deps {
		dc, ok := r.resolve(dep)
		if !ok {
			panic(fmt.Sprintf("field: set %s with released dependency {slot=%d gen=%d}", key, dep.Slot, dep.Gen))
		}
		if dc.dirty {
			panic(fmt.Sprintf("field: set %s while dependency %s is dirty", key, dc.owner+"."+dc.name))
		}
	}
}

// registerReader records that reader consumed ref's value and raises an
// advisory diagnostic when the reader did not declare ref as a
// dependency. Over-declaring is always safe; this check exists purely
// to keep declarations accurate.
func (r *Registry) registerReader(ref Ref, c *cell, reader Ref) {
	if c.readers == nil {
		c.readers = make(map[Ref]bool)
	}
	c.readers[reader] = true

	rc, ok := r.resolve(reader)
	if !ok {
		return
	}
	for _, dep := range rc.deps {
		if dep == ref {
			return
		}
	}
	d := &Diagnostic{
		Code:    CodeUndeclaredRead,
		Field:   c.owner + "." + c.name,
		Reader:  rc.owner + "." + rc.name,
		Message: "read without declared dependency",
	}
	r.logger.Warn("undeclared read",
		"field", d.Field,
		"reader", d.Reader,
	)
	if r.sink != nil {
		r.sink(d)
	}
	if r.strict {
		panic(d.Error())
	}
}

// ObservedReaders returns the refs that have read ref's field since its
// last Set. Diagnostic use only.
func (r *Registry) ObservedReaders(ref Ref) []Ref {
	c := r.mustResolve(ref, "observed readers")
	out := make([]Ref, 0, len(c.readers))
	for reader := range c.readers {
		out = append(out, reader)
	}
	return out
}

func (r *Registry) emit(ev Event) {
	if r.tracer == nil {
		return
	}
	ev.Seq = r.clock.Next()
	r.tracer.Record(ev)
}
