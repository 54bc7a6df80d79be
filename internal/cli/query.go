package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowgraph/internal/collection"
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
	"github.com/roach88/rowgraph/internal/queryir"
	"github.com/roach88/rowgraph/internal/querysql"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	With    []string // relationship paths
	Where   []string // path=value filters
	Filter  string   // filter expression
	Limit   int
	Key     string // fetch one root entity
	ShowSQL bool   // print the compiled SQL instead of running it
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <model>",
		Short: "Query root entities with related entities",
		Long: `Run a joined query and print one nested entity per root.

Relationship paths are dot-separated and must list parents first.
--where values are read as YAML scalars: 7 is a number, null matches nulls.
--filter takes an expression of "field = literal" and "field IS NULL"
terms joined by AND. All conditions are ANDed.

Examples:
  rowgraph query posts --with comments --with comments.author
  rowgraph query posts --with comments --where comments.author.name=ann
  rowgraph query posts --with comments --filter "comments.body IS NULL AND title = 'Hello'"
  rowgraph query posts --with comments --key 1
  rowgraph query posts --with comments --limit 10 --sql`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.With, "with", "w", nil, "relationship paths to load")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter as path=value (repeatable, ANDed)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression, e.g. \"author_id = 7 AND title IS NULL\"")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of root entities")
	cmd.Flags().StringVar(&opts.Key, "key", "", "fetch the root entity with this key")
	cmd.Flags().BoolVar(&opts.ShowSQL, "sql", false, "print the compiled SQL and exit")

	return cmd
}

// buildSelect converts the flags into a queryir.Select.
func (o *QueryOptions) buildSelect(modelName string) (queryir.Select, error) {
	sel := queryir.Select{Model: modelName, With: o.With, Limit: o.Limit}

	var preds []queryir.Predicate
	for _, w := range o.Where {
		path, value, err := parseAssignment(w)
		if err != nil {
			return queryir.Select{}, err
		}
		v := ir.FromNative(value)
		if _, isNull := v.(ir.Null); isNull {
			preds = append(preds, queryir.IsNull{Field: path})
			continue
		}
		preds = append(preds, queryir.Equals{Field: path, Value: v})
	}
	if o.Filter != "" {
		p, err := queryir.ParseFilter(o.Filter)
		if err != nil {
			return queryir.Select{}, err
		}
		preds = append(preds, p)
	}
	sel.Filter = queryir.Conjoin(preds...)
	return sel, nil
}

func runQuery(opts *QueryOptions, modelName string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	reg, err := loadRegistry(opts.RootOptions)
	if err != nil {
		return err
	}

	sel, err := opts.buildSelect(modelName)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	compiled, err := querysql.NewSQLCompiler(reg).Compile(sel)
	if err != nil {
		return formatter.Fail(ErrCodeQuery, ExitCommandError, "invalid query", err)
	}
	formatter.VerboseLog("SQL: %s", compiled.SQL)

	if opts.ShowSQL {
		return outputSQL(formatter, compiled)
	}

	st, err := openStore(opts.RootOptions, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := st.SelectCompiled(cmd.Context(), compiled, collection.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ErrCodeQuery, ExitFailure, "query failed", err)
	}
	defer c.Close()

	var roots []*model.Entity
	if opts.Key != "" {
		e, ok, err := c.Get(keyFromFlag(opts.Key))
		if err != nil {
			return formatter.Fail(ErrCodeQuery, ExitFailure, "query failed", err)
		}
		if !ok {
			err := fmt.Errorf("%s %s not found", modelName, opts.Key)
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return NewExitError(ExitFailure, err.Error())
		}
		roots = []*model.Entity{e}
	} else {
		roots, err = c.All()
		if err != nil {
			return formatter.Fail(ErrCodeQuery, ExitFailure, "query failed", err)
		}
	}

	return outputEntities(formatter, roots)
}

// outputEntities prints one canonical JSON line per entity, or a JSON
// response holding all of them.
func outputEntities(f *OutputFormatter, roots []*model.Entity) error {
	if f.JSON() {
		data := make([]any, len(roots))
		for i, e := range roots {
			data[i] = e.ToMap()
		}
		return f.Success(data)
	}

	for _, e := range roots {
		if err := f.Canonical(e.Value()); err != nil {
			return fmt.Errorf("entity %s: %w", e.Key(), err)
		}
	}
	return nil
}

func outputSQL(f *OutputFormatter, compiled *querysql.Compiled) error {
	if f.JSON() {
		return f.Success(map[string]any{
			"sql":     compiled.SQL,
			"args":    compiled.Args,
			"columns": columnNames(compiled.ColumnMap()),
		})
	}
	fmt.Fprintln(f.Writer, compiled.SQL)
	for i, arg := range compiled.Args {
		fmt.Fprintf(f.Writer, "  $%d = %v\n", i+1, arg)
	}
	return nil
}

// columnNames lists the fields each path contributes, in row order. The
// root path is ".".
func columnNames(m ir.ColumnMap) map[string][]string {
	out := make(map[string][]string, len(m))
	for _, g := range m {
		name := g.Alias
		if name == "" {
			name = "."
		}
		out[name] = g.Fields
	}
	return out
}
