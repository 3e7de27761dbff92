package harness

import (
	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/layout"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every engine event in logical-clock order, as
	// journaled and read back.
	Trace []field.Event `json:"trace"`

	// RecomputeCounts records the number of field recomputations per
	// pass. Index 0 is the initial settling pass.
	RecomputeCounts []int `json:"recompute_counts"`

	// Diagnostics collects advisory diagnostics raised during the
	// run (undeclared reads).
	Diagnostics []*field.Diagnostic `json:"diagnostics,omitempty"`

	// Errors contains assertion failure messages. Empty if Pass.
	Errors []string `json:"errors,omitempty"`

	// Tree is the final tree, for ad-hoc inspection by callers.
	Tree *layout.Tree `json:"-"`
}

// NewResult creates a passing result; assertion failures flip it.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []field.Event{},
		Errors: []string{},
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
