package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
	"github.com/roach88/rowgraph/internal/store"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric  = "E001"
	ErrCodeSchema   = "E002" // schema file does not parse
	ErrCodeInvalid  = "E004" // schema parses but breaks model rules
	ErrCodeNotFound = "E005"
	ErrCodeQuery    = "E006"
	ErrCodeDocument = "E007"
)

// LoadError represents an error that occurred while loading a schema.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchemaFile reads a schema file, mapping failures to LoadErrors.
func LoadSchemaFile(path string) (model.Schema, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return model.Schema{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema file not found: %s", path)}
	}

	schema, err := model.ReadSchema(path)
	if err != nil {
		var se *model.SchemaError
		if errors.As(err, &se) {
			return model.Schema{}, &LoadError{Code: ErrCodeSchema, Message: se.Message, Pos: se.Pos}
		}
		return model.Schema{}, &LoadError{Code: ErrCodeSchema, Message: err.Error()}
	}
	return schema, nil
}

// loadRegistry loads and validates the --schema file.
func loadRegistry(opts *RootOptions) (*model.Registry, error) {
	schema, err := LoadSchemaFile(opts.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	reg, err := model.NewRegistry(schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid schema", err)
	}
	return reg, nil
}

// openStore opens the --db database. The database file must exist.
func openStore(opts *RootOptions, logger *slog.Logger) (*store.Store, error) {
	if opts.Database != ":memory:" {
		if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
		}
	}
	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// parseLiteral reads a command-line value as a YAML scalar, so that 7 is
// a number, true a bool and null a null. Anything unparsable stays a string.
func parseLiteral(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// parseAssignment splits "path=value".
func parseAssignment(s string) (string, any, error) {
	path, value, ok := strings.Cut(s, "=")
	if !ok || path == "" {
		return "", nil, fmt.Errorf("expected path=value, got %q", s)
	}
	return path, parseLiteral(value), nil
}

// keyFromFlag converts a --key value. "{a: 1, b: x}" is a composite key.
func keyFromFlag(s string) ir.Key {
	switch v := ir.FromNative(parseLiteral(s)).(type) {
	case ir.Object:
		return ir.CompositeKey(v)
	default:
		return ir.ScalarKey(v)
	}
}
