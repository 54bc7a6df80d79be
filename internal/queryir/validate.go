package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// Valid is true when Errors is empty.
	Valid bool

	Errors []string
}

// Err returns the problems as one error, or nil.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %v", r.Errors)
}

// Validate checks a query against a model registry:
//  1. The root model exists.
//  2. Every path resolves through declared relationships, and its parent
//     path is listed before it.
//  3. All hasMany paths lie on one chain (each is an ancestor or a
//     descendant of the others), so joins never multiply rows.
//  4. Filter fields exist on the model their path reaches.
//  5. Limit is not negative, and is only combined with paths when the root
//     has a single key field.
//
// Validate is a pure function with no side effects.
func Validate(q Query, reg *model.Registry) ValidationResult {
	v := &validator{reg: reg}
	v.validateQuery(q)
	return ValidationResult{Valid: len(v.errors) == 0, Errors: v.errors}
}

type validator struct {
	reg    *model.Registry
	errors []string
	models map[string]*model.Definition // path → model
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addError("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addError("nil query")
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	root, ok := v.reg.Model(sel.Model)
	if !ok {
		v.addError("unknown model %q", sel.Model)
		return
	}
	v.models = map[string]*model.Definition{"": root}

	var hasMany []string
	for _, path := range sel.With {
		if _, dup := v.models[path]; dup {
			v.addError("path %q listed twice", path)
			continue
		}
		parentPath := ir.ParentAlias(path)
		parent, ok := v.models[parentPath]
		if !ok {
			v.addError("path %q: parent path %q is not listed before it", path, parentPath)
			continue
		}
		rel, ok := parent.Relationship(ir.LastSegment(path))
		if !ok {
			v.addError("path %q: %s has no relationship %q", path, parent.Name(), ir.LastSegment(path))
			continue
		}
		to, ok := rel.To.(*model.Definition)
		if !ok {
			v.addError("path %q: related model is not schema-backed", path)
			continue
		}
		if rel.Type == model.HasMany {
			for _, other := range hasMany {
				if !strings.HasPrefix(path, other+".") {
					v.addError("paths %q and %q are both hasMany on different branches and would multiply rows", other, path)
				}
			}
			hasMany = append(hasMany, path)
		}
		v.models[path] = to
	}

	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}

	if sel.Limit < 0 {
		v.addError("limit must not be negative")
	}
	if sel.Limit > 0 && len(sel.With) > 0 && len(root.KeyFields()) != 1 {
		v.addError("limit with relationship paths needs a single-field key on %s", root.Name())
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateField(pred.Field)
		if _, ok := pred.Value.(ir.Array); ok {
			v.addError("field %q compared to an array", pred.Field)
		}
		if _, ok := pred.Value.(ir.Object); ok {
			v.addError("field %q compared to an object", pred.Field)
		}
	case *Equals:
		v.validatePredicate(*pred)
	case IsNull:
		v.validateField(pred.Field)
	case *IsNull:
		v.validateField(pred.Field)
	case *And:
		v.validatePredicate(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateField(field string) {
	path, name := SplitField(field)
	m, ok := v.models[path]
	if !ok {
		v.addError("field %q: path %q is not selected", field, path)
		return
	}
	if !m.HasField(name) {
		v.addError("field %q: %s has no field %q", field, m.Name(), name)
	}
}
