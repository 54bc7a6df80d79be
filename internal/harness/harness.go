package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
	"github.com/roach88/rowgraph/internal/querysql"
	"github.com/roach88/rowgraph/internal/store"
	"github.com/roach88/rowgraph/internal/testutil"
)

// Harness is the scenario execution engine.
type Harness struct {
	store  *store.Store
	reg    *model.Registry
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// deterministic document IDs.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the schema and build the model registry
// 3. Execute seed files and setup SQL
// 4. Compile and run the query, hydrating every root entity
// 5. Evaluate assertions
//
// Setup problems are returned as errors. A failing query is part of the
// result, so that error assertions can inspect it.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with a caller-supplied logger for the store and the
// collection.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithLogger(logger),
		store.WithIDGenerator(testutil.NewSequenceIDs()))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	reg, err := model.LoadSchema(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	h := &Harness{store: st, reg: reg, logger: logger}
	ctx := context.Background()

	if err := h.executeSetup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	h.executeQuery(ctx, scenario.Query, result)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeSetup runs seed files in order, then inline setup SQL.
func (h *Harness) executeSetup(ctx context.Context, scenario *Scenario) error {
	for _, path := range scenario.Seed {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed: %w", err)
		}
		if err := h.store.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
	}
	if scenario.Setup != "" {
		if err := h.store.Exec(ctx, scenario.Setup); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}
	return nil
}

// executeQuery compiles and runs the query. Compilation, execution and
// hydration failures all land in result.QueryError.
func (h *Harness) executeQuery(ctx context.Context, spec QuerySpec, result *Result) {
	sel, err := spec.Select()
	if err != nil {
		result.QueryError = err.Error()
		return
	}
	compiled, err := querysql.NewSQLCompiler(h.reg).Compile(sel)
	if err != nil {
		result.QueryError = err.Error()
		return
	}
	if spec.RawSQL != "" {
		compiled.SQL = spec.RawSQL
		compiled.Args = nil
	}
	result.SQL = compiled.SQL

	c, err := h.store.SelectCompiled(ctx, compiled)
	if err != nil {
		result.QueryError = err.Error()
		return
	}
	defer c.Close()

	roots, err := c.All()
	if err != nil {
		result.QueryError = err.Error()
		return
	}

	result.roots = roots
	result.Entities = make(ir.Array, len(roots))
	for i, e := range roots {
		result.Entities[i] = e.Value()
	}
	h.logger.Debug("scenario query complete", "model", spec.Model, "roots", len(roots))
}
