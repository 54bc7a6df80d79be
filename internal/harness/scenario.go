package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/queryir"
)

// Scenario defines a query scenario: a schema, seed data, one query, and
// assertions over the hydrated result.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to the YAML or CUE schema file.
	// Relative to the scenario file location.
	Schema string `yaml:"schema"`

	// Seed lists SQL files executed in order before the query.
	// Relative to the scenario file location.
	Seed []string `yaml:"seed,omitempty"`

	// Setup is inline SQL executed after the seed files.
	Setup string `yaml:"setup,omitempty"`

	// Query is the query under test.
	Query QuerySpec `yaml:"query"`

	// Assertions validate the query result.
	// Supported types: count, entity, related, error
	Assertions []Assertion `yaml:"assertions"`
}

// QuerySpec is the YAML form of a queryir.Select.
type QuerySpec struct {
	Model string   `yaml:"model"`
	With  []string `yaml:"with,omitempty"`

	// Where maps qualified fields to literals. Entries are ANDed; a null
	// literal matches null fields.
	Where map[string]any `yaml:"where,omitempty"`

	// Filter is a filter expression (see queryir.ParseFilter), ANDed after
	// the Where entries.
	Filter string `yaml:"filter,omitempty"`

	Limit int `yaml:"limit,omitempty"`

	// RawSQL replaces the compiled SQL. It must return the compiled columns
	// in the compiled order.
	RawSQL string `yaml:"raw_sql,omitempty"`
}

// Select converts the query to a queryir.Select. Where entries are ordered
// by field name so compiled SQL is deterministic.
func (q QuerySpec) Select() (queryir.Select, error) {
	sel := queryir.Select{Model: q.Model, With: q.With, Limit: q.Limit}

	fields := make([]string, 0, len(q.Where))
	for f := range q.Where {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var preds []queryir.Predicate
	for _, f := range fields {
		v := ir.FromNative(q.Where[f])
		if _, isNull := v.(ir.Null); isNull {
			preds = append(preds, queryir.IsNull{Field: f})
			continue
		}
		preds = append(preds, queryir.Equals{Field: f, Value: v})
	}
	if q.Filter != "" {
		p, err := queryir.ParseFilter(q.Filter)
		if err != nil {
			return queryir.Select{}, err
		}
		preds = append(preds, p)
	}
	sel.Filter = queryir.Conjoin(preds...)
	return sel, nil
}

// Assertion validates the query result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count": Number of root entities
	// - "entity": Root entity with Key has the Expect fields
	// - "related": Relationship Path of the root entity with Key holds Count entities
	// - "error": Query failed with a message containing Contains
	Type string `yaml:"type"`

	// Key identifies a root entity (used by entity, related).
	// A map is a composite key.
	Key any `yaml:"key,omitempty"`

	// Expect contains expected field values (used by entity).
	// Subset match - nested maps match nested entities field by field.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Path is a dot-separated relationship path (used by related).
	Path string `yaml:"path,omitempty"`

	// Count is the expected number of entities (used by count, related).
	Count int `yaml:"count,omitempty"`

	// Contains is the expected error substring (used by error).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertCount   = "count"
	AssertEntity  = "entity"
	AssertRelated = "related"
	AssertError   = "error"
)

// LoadScenario reads and parses a scenario YAML file, resolving schema and
// seed paths relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema and seed paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths relative to base path BEFORE validation
	scenario.Schema = resolve(basePath, scenario.Schema)
	for i, seed := range scenario.Seed {
		scenario.Seed[i] = resolve(basePath, seed)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(basePath, path string) string {
	if path == "" || filepath.IsAbs(path) || basePath == "" {
		return path
	}
	return filepath.Join(basePath, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}

	for _, seed := range s.Seed {
		if _, err := os.Stat(seed); os.IsNotExist(err) {
			return fmt.Errorf("seed file not found: %s", seed)
		}
	}

	if s.Query.Model == "" {
		return fmt.Errorf("query.model is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEntity:
		if a.Key == nil {
			return fmt.Errorf("assertions[%d]: key is required for entity", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for entity", index)
		}
	case AssertRelated:
		if a.Key == nil {
			return fmt.Errorf("assertions[%d]: key is required for related", index)
		}
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for related", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertError:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
