package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Schema is the on-disk model schema, written in YAML or CUE.
type Schema struct {
	Models []ModelSpec `yaml:"models" json:"models"`
}

// ModelSpec declares one model.
type ModelSpec struct {
	Name      string         `yaml:"name" json:"name"`
	Table     string         `yaml:"table,omitempty" json:"table,omitempty"`
	Key       []string       `yaml:"key" json:"key"`
	Fields    []string       `yaml:"fields" json:"fields"`
	Relations []RelationSpec `yaml:"relations,omitempty" json:"relations,omitempty"`
}

// RelationSpec declares one relationship of a model.
type RelationSpec struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Model   string `yaml:"model" json:"model"`
	Field   string `yaml:"field,omitempty" json:"field,omitempty"`
	Local   string `yaml:"local,omitempty" json:"local,omitempty"`
	Foreign string `yaml:"foreign,omitempty" json:"foreign,omitempty"`
}

// SchemaError reports a schema file that could not be parsed.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadSchema reads a .yaml, .yml or .cue schema file and builds a Registry.
func LoadSchema(path string) (*Registry, error) {
	schema, err := ReadSchema(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(schema)
}

// ReadSchema reads and decodes a schema file without validating it.
func ReadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(path, data)
	}
	return Schema{}, fmt.Errorf("schema %s: unsupported extension (want .yaml, .yml or .cue)", path)
}

// ParseYAML decodes a YAML schema document.
func ParseYAML(data []byte) (Schema, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return Schema{}, &SchemaError{Field: "yaml", Message: err.Error()}
	}
	return schema, nil
}

// ParseCUE compiles a CUE schema document and decodes it. filename is used
// for error positions only.
func ParseCUE(filename string, data []byte) (Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Schema{}, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Schema{}, formatCUEError(err)
	}

	var schema Schema
	if err := v.Decode(&schema); err != nil {
		return Schema{}, formatCUEError(err)
	}
	return schema, nil
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &SchemaError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &SchemaError{Field: "cue", Message: first.Error()}
}
