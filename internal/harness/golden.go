package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rowgraph/internal/ir"
)

// Snapshot is the golden form of a result: the hydrated entities, or the
// query error.
func (r *Result) Snapshot(name string) ir.Object {
	snapshot := ir.Object{"scenario_name": ir.String(name)}
	if r.QueryError != "" {
		snapshot["error"] = ir.String(r.QueryError)
		return snapshot
	}
	entities := r.Entities
	if entities == nil {
		entities = ir.Array{}
	}
	snapshot["entities"] = entities
	return snapshot
}

// RunWithGolden executes a scenario and compares the result against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the result doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(result.Snapshot(scenarioName))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
