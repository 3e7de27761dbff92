// Package field implements the protected-field primitive: a typed,
// dirty-flagged cell with declared dependency and invalidation edges,
// used to drive incremental recomputation over a tree of derived values.
//
// THE CORE GUARANTEE:
//
// Once the invalidates graph is declared soundly (a conservative
// over-approximation of the true data-dependency graph), a missed
// recomputation is impossible by construction. Skipping recomputation
// of a clean field is always safe; failing to skip is merely wasteful.
// Correctness bugs become performance bugs.
//
// INVARIANTS:
//
// No stale read: a field's value may be read only while clean. Get and
// Read panic on a dirty field.
//
// Dependency-before-compute: Set panics if any declared dependency is
// still dirty. Clean your inputs first; traversal order is the
// caller's contract.
//
// Closure soundness: whenever B's computed value is a function of A's
// value, B must be reachable from A through invalidates edges.
// Over-approximating is safe; omission is not.
//
// Idempotent recompute: the recompute function supplied by the caller
// must be a pure function of its declared dependencies. Set compares
// the new value against the cached one and suppresses downstream
// invalidation when nothing changed.
//
// ERROR CLASSES:
//
// Fatal (programmer error): reading dirty, setting with dirty
// dependencies, cyclic invalidates edges, using a stale ref. These
// panic at the violation site - a silently tolerated violation is
// exactly the missed-invalidation failure mode this package exists to
// eliminate.
//
// Advisory (diagnostic): a Read whose reader did not declare the read
// field as a dependency. Logged, reported to the diagnostics sink, and
// fatal only under strict mode.
//
// CONCURRENCY:
//
// A Registry and its fields belong to one execution context: all
// operations run on one logical goroutine in a strict sequence per
// pass. Two contexts each own a disjoint copy of the same logical
// fields and communicate only through the unchecked CopyFrom snapshot.
package field
