package harness

import (
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// SQL is the statement that ran, compiled or raw.
	SQL string `json:"sql"`

	// Entities holds the exported root entities, nil if the query failed.
	Entities ir.Array `json:"entities,omitempty"`

	// QueryError is the query failure message, empty on success.
	QueryError string `json:"query_error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	roots []*model.Entity
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Roots returns the hydrated root entities.
func (r *Result) Roots() []*model.Entity {
	return r.roots
}
