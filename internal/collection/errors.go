package collection

import (
	"errors"
	"fmt"

	"github.com/roach88/rowgraph/internal/ir"
)

// ErrorCode categorizes collection errors.
type ErrorCode string

const (
	// ErrCodeHydrationOrder indicates joined rows for one root key were not
	// contiguous in the cursor.
	ErrCodeHydrationOrder ErrorCode = "HYDRATION_ORDER"

	// ErrCodeDependency indicates a column map that cannot be hydrated
	// against the query's relationships.
	ErrCodeDependency ErrorCode = "DEPENDENCY"
)

// HydrationOrderError reports a root key whose rows reappear after a
// different root key's group ended. It is fatal: the query that produced
// the cursor does not order rows by root key.
type HydrationOrderError struct {
	// Model is the root model name.
	Model string

	// Key is the root key that reappeared.
	Key ir.Key

	// Group is the zero-based index of the row group in which it reappeared.
	Group int
}

// Code returns ErrCodeHydrationOrder.
func (e *HydrationOrderError) Code() ErrorCode {
	return ErrCodeHydrationOrder
}

// Error implements the error interface.
func (e *HydrationOrderError) Error() string {
	return fmt.Sprintf("%s: %s key %s reappears in row group %d after its group was closed (rows must be ordered by root key)",
		ErrCodeHydrationOrder, e.Model, e.Key, e.Group)
}

// DependencyError reports a column map alias that cannot be resolved.
type DependencyError struct {
	Alias   string
	Message string
}

// Code returns ErrCodeDependency.
func (e *DependencyError) Code() ErrorCode {
	return ErrCodeDependency
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: alias %q: %s", ErrCodeDependency, e.Alias, e.Message)
}

// IsHydrationOrderError returns true if the error is a hydration order
// violation. Uses errors.As to handle wrapped errors.
func IsHydrationOrderError(err error) bool {
	var he *HydrationOrderError
	return errors.As(err, &he)
}

// IsDependencyError returns true if the error is a dependency tree error.
func IsDependencyError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
