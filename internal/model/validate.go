package model

import (
	"errors"
	"fmt"
	"regexp"
)

// Schema validation error codes (E200-E299)
const (
	ErrModelName        = "E201" // model name missing, invalid or duplicated
	ErrModelNoFields    = "E202" // model must declare fields
	ErrModelKey         = "E203" // key missing or not a declared field
	ErrInvalidIdent     = "E204" // table or field is not a plain identifier
	ErrDuplicateField   = "E205" // field or relation name declared twice
	ErrRelationType     = "E206" // unknown relation type
	ErrRelationTarget   = "E207" // relation targets an unknown model
	ErrRelationColumn   = "E208" // relation column missing on its model
	ErrRelationRequired = "E209" // relation column required for its type
)

// identPattern restricts names that end up in SQL identifiers.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func joinValidation(errs []ValidationError) error {
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

// Validate checks a schema against the model rules.
// Returns all errors found (does not fail-fast).
func Validate(schema Schema) []ValidationError {
	var errs []ValidationError

	byName := make(map[string]ModelSpec, len(schema.Models))
	for i, m := range schema.Models {
		path := fmt.Sprintf("models[%d]", i)
		if !identPattern.MatchString(m.Name) {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("model name %q must be an identifier", m.Name),
				Code:    ErrModelName,
			})
			continue
		}
		if _, dup := byName[m.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate model %q", m.Name),
				Code:    ErrModelName,
			})
			continue
		}
		byName[m.Name] = m
	}

	for _, m := range schema.Models {
		if _, ok := byName[m.Name]; ok {
			errs = append(errs, validateModel(m, byName)...)
		}
	}
	return errs
}

func validateModel(m ModelSpec, byName map[string]ModelSpec) []ValidationError {
	var errs []ValidationError
	path := m.Name

	if m.Table != "" && !identPattern.MatchString(m.Table) {
		errs = append(errs, ValidationError{
			Field:   path + ".table",
			Message: fmt.Sprintf("table %q must be an identifier", m.Table),
			Code:    ErrInvalidIdent,
		})
	}

	if len(m.Fields) == 0 {
		errs = append(errs, ValidationError{
			Field:   path + ".fields",
			Message: "at least one field is required",
			Code:    ErrModelNoFields,
		})
	}

	names := make(map[string]bool, len(m.Fields)+len(m.Relations))
	for _, f := range m.Fields {
		if !identPattern.MatchString(f) {
			errs = append(errs, ValidationError{
				Field:   path + ".fields",
				Message: fmt.Sprintf("field %q must be an identifier", f),
				Code:    ErrInvalidIdent,
			})
		}
		if names[f] {
			errs = append(errs, ValidationError{
				Field:   path + ".fields",
				Message: fmt.Sprintf("duplicate field %q", f),
				Code:    ErrDuplicateField,
			})
		}
		names[f] = true
	}

	if len(m.Key) == 0 {
		errs = append(errs, ValidationError{
			Field:   path + ".key",
			Message: "at least one key field is required",
			Code:    ErrModelKey,
		})
	}
	for _, k := range m.Key {
		if !contains(m.Fields, k) {
			errs = append(errs, ValidationError{
				Field:   path + ".key",
				Message: fmt.Sprintf("key field %q is not a declared field", k),
				Code:    ErrModelKey,
			})
		}
	}

	for i, r := range m.Relations {
		rpath := fmt.Sprintf("%s.relations[%d]", path, i)

		if !identPattern.MatchString(r.Name) {
			errs = append(errs, ValidationError{
				Field:   rpath + ".name",
				Message: fmt.Sprintf("relation name %q must be an identifier", r.Name),
				Code:    ErrInvalidIdent,
			})
		}
		field := r.Field
		if field == "" {
			field = r.Name
		}
		if names[field] || names[r.Name] {
			errs = append(errs, ValidationError{
				Field:   rpath + ".name",
				Message: fmt.Sprintf("relation %q collides with another field or relation", r.Name),
				Code:    ErrDuplicateField,
			})
		}
		names[r.Name] = true
		names[field] = true

		typ, err := ParseRelationType(r.Type)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   rpath + ".type",
				Message: err.Error(),
				Code:    ErrRelationType,
			})
			continue
		}

		target, ok := byName[r.Model]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   rpath + ".model",
				Message: fmt.Sprintf("unknown model %q", r.Model),
				Code:    ErrRelationTarget,
			})
			continue
		}

		errs = append(errs, validateRelationColumns(rpath, typ, r, m, target)...)
	}
	return errs
}

// validateRelationColumns checks the join columns. HasOne and HasMany need
// the foreign column on the target; BelongsTo needs the local column on the
// owner. The other side defaults to the single key field.
func validateRelationColumns(rpath string, typ RelationType, r RelationSpec, owner, target ModelSpec) []ValidationError {
	var errs []ValidationError

	required, requiredName := r.Foreign, "foreign"
	if typ == BelongsTo {
		required, requiredName = r.Local, "local"
	}
	if required == "" {
		errs = append(errs, ValidationError{
			Field:   rpath + "." + requiredName,
			Message: fmt.Sprintf("%s relation requires %s", typ, requiredName),
			Code:    ErrRelationRequired,
		})
	}

	defaulted, defaultedName, defaultsFrom := r.Local, "local", owner
	if typ == BelongsTo {
		defaulted, defaultedName, defaultsFrom = r.Foreign, "foreign", target
	}
	if defaulted == "" && len(defaultsFrom.Key) != 1 {
		errs = append(errs, ValidationError{
			Field:   rpath + "." + defaultedName,
			Message: fmt.Sprintf("%s must be explicit when %s has a composite key", defaultedName, defaultsFrom.Name),
			Code:    ErrRelationRequired,
		})
	}

	if r.Local != "" && !contains(owner.Fields, r.Local) {
		errs = append(errs, ValidationError{
			Field:   rpath + ".local",
			Message: fmt.Sprintf("%s has no field %q", owner.Name, r.Local),
			Code:    ErrRelationColumn,
		})
	}
	if r.Foreign != "" && !contains(target.Fields, r.Foreign) {
		errs = append(errs, ValidationError{
			Field:   rpath + ".foreign",
			Message: fmt.Sprintf("%s has no field %q", target.Name, r.Foreign),
			Code:    ErrRelationColumn,
		})
	}
	return errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
