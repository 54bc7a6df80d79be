package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Statement that produced the result
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nSQL:\n  %s\n", e.SQL)
	}

	return buf.String()
}

// queryFailed reports a data assertion evaluated against a failed query.
func queryFailed(result *Result, assertion Assertion) error {
	if result.QueryError == "" {
		return nil
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: "query to succeed",
		Actual:   result.QueryError,
		SQL:      result.SQL,
	}
}

// assertCount checks the number of root entities.
func assertCount(result *Result, assertion Assertion) error {
	if err := queryFailed(result, assertion); err != nil {
		return err
	}
	if len(result.roots) != assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d root entities", assertion.Count),
			Actual:   fmt.Sprintf("%d root entities", len(result.roots)),
			SQL:      result.SQL,
		}
	}
	return nil
}

// assertEntity checks the fields of one root entity (subset match).
func assertEntity(result *Result, assertion Assertion) error {
	if err := queryFailed(result, assertion); err != nil {
		return err
	}
	e, err := findRoot(result, assertion)
	if err != nil {
		return err
	}

	value := e.Value()
	fields := make([]string, 0, len(assertion.Expect))
	for f := range assertion.Expect {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		actual, ok := value[f]
		if !ok {
			actual = ir.Null{}
		}
		if !matchSubset(actual, assertion.Expect[f]) {
			return &AssertionError{
				Type:     AssertEntity,
				Expected: fmt.Sprintf("%s = %v", f, assertion.Expect[f]),
				Actual:   fmt.Sprintf("%s = %s", f, render(actual)),
				SQL:      result.SQL,
			}
		}
	}
	return nil
}

// assertRelated checks how many entities a relationship path holds. A
// to-one path counts 1 when present and 0 when null.
func assertRelated(result *Result, assertion Assertion) error {
	if err := queryFailed(result, assertion); err != nil {
		return err
	}
	e, err := findRoot(result, assertion)
	if err != nil {
		return err
	}

	var current ir.Value = e.Value()
	for _, segment := range strings.Split(assertion.Path, ".") {
		obj, ok := current.(ir.Object)
		if !ok {
			current = ir.Null{}
			break
		}
		next, ok := obj[segment]
		if !ok {
			return &AssertionError{
				Type:     AssertRelated,
				Expected: fmt.Sprintf("path %s", assertion.Path),
				Actual:   fmt.Sprintf("no relationship %q was hydrated", segment),
				SQL:      result.SQL,
			}
		}
		current = next
	}

	count := 0
	switch v := current.(type) {
	case ir.Array:
		count = len(v)
	case ir.Object:
		count = 1
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertRelated,
			Expected: fmt.Sprintf("%d entities at %s", assertion.Count, assertion.Path),
			Actual:   fmt.Sprintf("%d entities", count),
			SQL:      result.SQL,
		}
	}
	return nil
}

// assertError checks that the query failed with the expected message.
func assertError(result *Result, assertion Assertion) error {
	if !strings.Contains(result.QueryError, assertion.Contains) {
		actual := result.QueryError
		if actual == "" {
			actual = "query succeeded"
		}
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("error containing %q", assertion.Contains),
			Actual:   actual,
			SQL:      result.SQL,
		}
	}
	return nil
}

// findRoot locates the root entity whose key equals assertion.Key.
func findRoot(result *Result, assertion Assertion) (*model.Entity, error) {
	key := keyOf(assertion.Key)
	for _, e := range result.roots {
		if e.Key().Equal(key) {
			return e, nil
		}
	}
	return nil, &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("root entity with key %s", key),
		Actual:   "not found",
		SQL:      result.SQL,
	}
}

// keyOf converts a YAML key: a map is a composite key, anything else a
// scalar.
func keyOf(v any) ir.Key {
	switch val := ir.FromNative(v).(type) {
	case ir.Object:
		return ir.CompositeKey(val)
	default:
		return ir.ScalarKey(val)
	}
}

// matchSubset compares actual against an expected YAML value. Expected
// maps match objects field by field, ignoring extra fields; everything
// else must be equal.
func matchSubset(actual ir.Value, expected any) bool {
	exp, ok := expected.(map[string]any)
	if !ok {
		return ir.Equal(actual, ir.FromNative(expected))
	}
	obj, ok := actual.(ir.Object)
	if !ok {
		return false
	}
	for k, ev := range exp {
		av, ok := obj[k]
		if !ok {
			return false
		}
		if !matchSubset(av, ev) {
			return false
		}
	}
	return true
}

func render(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCount:
			err = assertCount(result, assertion)
		case AssertEntity:
			err = assertEntity(result, assertion)
		case AssertRelated:
			err = assertRelated(result, assertion)
		case AssertError:
			err = assertError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
