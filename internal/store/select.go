package store

import (
	"context"
	"fmt"

	"github.com/roach88/rowgraph/internal/collection"
	"github.com/roach88/rowgraph/internal/cursor"
	"github.com/roach88/rowgraph/internal/model"
	"github.com/roach88/rowgraph/internal/queryir"
	"github.com/roach88/rowgraph/internal/querysql"
)

// Select compiles q against reg, runs it, and returns a relational
// collection over the result. Root entities are hydrated on demand as the
// collection is read; rows are fetched from the driver one at a time.
//
// The collection owns the query's rows. Drain or Close it before running the
// next statement on this store.
func (s *Store) Select(ctx context.Context, reg *model.Registry, q queryir.Query, opts ...collection.Option) (*collection.Collection, error) {
	compiled, err := querysql.NewSQLCompiler(reg).Compile(q)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return s.SelectCompiled(ctx, compiled, opts...)
}

// SelectCompiled runs an already compiled query.
func (s *Store) SelectCompiled(ctx context.Context, q *querysql.Compiled, opts ...collection.Option) (*collection.Collection, error) {
	s.logger.Debug("select", "model", q.Root.Name(), "sql", q.SQL, "args", len(q.Args))

	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Root.Name(), err)
	}
	cur, err := cursor.NewRows(rows)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Root.Name(), err)
	}

	opts = append([]collection.Option{collection.WithLogger(s.logger)}, opts...)
	c, err := collection.NewRelational(q.Root, q, cur, opts...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Root.Name(), err)
	}
	return c, nil
}
