package field

import "fmt"

// Field is a dependency-tracked cell holding one derived value of type
// T. The value cache lives in the Field; the dirty flag and the graph
// edges live in the owning Registry, addressed by Ref.
//
// Lifecycle: Uninitialized -> Dirty -> Clean -> Dirty -> Clean -> ...
// A field is created dirty with no value and becomes clean only through
// Set. It is destroyed with Release when its owning node goes away; no
// other field may hold a strong reference to it.
type Field[T any] struct {
	reg     *Registry
	ref     Ref
	value   T
	present bool
	equal   func(a, b T) bool
}

// Eq returns the == equality func for comparable value types. Fields
// built without an equality func treat every Set as a change, which is
// the conservative (always safe, possibly wasteful) default.
func Eq[T comparable]() func(a, b T) bool {
	return func(a, b T) bool { return a == b }
}

// New creates a field owned by the node identified by owner (opaque,
// diagnostics only) in reg. The field starts dirty, valueless, with
// empty dependency and invalidation sets.
func New[T any](reg *Registry, owner, name string, equal func(a, b T) bool) *Field[T] {
	return &Field[T]{
		reg:   reg,
		ref:   reg.allocate(owner, name),
		equal: equal,
	}
}

// Ref returns the weak handle other fields use to name this one in
// dependency and invalidation sets.
func (f *Field[T]) Ref() Ref {
	return f.ref
}

// Key returns the "owner.name" diagnostic identifier.
func (f *Field[T]) Key() string {
	return f.reg.Key(f.ref)
}

// Dirty reports whether the cached value is untrusted.
func (f *Field[T]) Dirty() bool {
	return f.reg.Dirty(f.ref)
}

// SetDependencies replaces the declared dependency set. Legal at any
// time; does not change dirtiness.
func (f *Field[T]) SetDependencies(deps ...Ref) {
	f.reg.setDependencies(f.ref, deps)
}

// SetInvalidates replaces the set of fields marked dirty when this
// field's value changes. Panics if any target closes a cycle back to
// this field.
func (f *Field[T]) SetInvalidates(targets ...Ref) {
	f.reg.setInvalidates(f.ref, targets)
}

// MarkDirty marks this field and the transitive closure of its
// invalidation targets dirty. The only way dirtiness spreads forward.
func (f *Field[T]) MarkDirty() {
	f.reg.MarkDirty(f.ref)
}

// Set stores a freshly computed value and clears the dirty flag.
//
// Panics if any declared dependency is dirty: that means the
// caller's traversal order is wrong, and tolerating it silently would
// reintroduce the forgotten-recompute bug this package exists to kill.
//
// If the new value equals the cached one, nothing downstream is
// touched - the short-circuit that makes idempotent recompute cheap.
// Otherwise every invalidation target is marked dirty.
func (f *Field[T]) Set(v T) {
	c := f.reg.mustResolve(f.ref, "set")
	f.reg.checkDepsClean(c.owner+"."+c.name, c)

	changed := !f.present || f.equal == nil || !f.equal(f.value, v)
	f.value = v
	f.present = true
	c.dirty = false
	c.readers = nil

	if changed {
		f.reg.emit(Event{Kind: EventSet, Pass: f.reg.passToken, Owner: c.owner, Field: c.name, Changed: true})
		f.reg.propagate(c)
	} else {
		f.reg.emit(Event{Kind: EventSet, Pass: f.reg.passToken, Owner: c.owner, Field: c.name})
	}
}

// Get returns the cached value. Panics if the field is dirty or has
// never been computed.
func (f *Field[T]) Get() T {
	c := f.reg.mustResolve(f.ref, "get")
	if c.dirty {
		panic(fmt.Sprintf("field: get on dirty field %s", c.owner+"."+c.name))
	}
	if !f.present {
		panic(fmt.Sprintf("field: get on uninitialized field %s", c.owner+"."+c.name))
	}
	return f.value
}

// Read is Get plus reader registration: reader is recorded in this
// field's observed-reader set, and a reader that did not declare this
// field as a dependency raises an advisory diagnostic (fatal under
// strict mode). Recompute drivers must read dependency values only
// through Read.
func (f *Field[T]) Read(reader Ref) T {
	c := f.reg.mustResolve(f.ref, "read")
	if c.dirty {
		panic(fmt.Sprintf("field: read on dirty field %s", c.owner+"."+c.name))
	}
	if !f.present {
		panic(fmt.Sprintf("field: read on uninitialized field %s", c.owner+"."+c.name))
	}
	f.reg.registerReader(f.ref, c, reader)
	return f.value
}

// CopyFrom transplants other's (value, dirty) state into this field,
// bypassing the dependency check entirely.
//
// UNCHECKED ESCAPE HATCH: intended only for cross-context snapshotting,
// where a producer context hands a consumer context updated values for
// a leaf subset of fields. The caller must separately notify the
// consumer's own downstream dependents; the engine performs no
// propagation here. Using CopyFrom within a single context to dodge
// the dependency check is a misuse this package forbids by convention.
func (f *Field[T]) CopyFrom(other *Field[T]) {
	c := f.reg.mustResolve(f.ref, "copy into")
	oc := other.reg.mustResolve(other.ref, "copy from")
	f.value = other.value
	f.present = other.present
	c.dirty = oc.dirty
	f.reg.emit(Event{Kind: EventCopy, Pass: f.reg.passToken, Owner: c.owner, Field: c.name})
}

// Release destroys the field. Surviving refs to it go stale: skipped by
// propagation, fatal on direct use.
func (f *Field[T]) Release() {
	f.reg.release(f.ref)
}
