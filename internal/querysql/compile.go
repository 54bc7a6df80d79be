package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
	"github.com/roach88/rowgraph/internal/queryir"
)

// Compiled is a query compiled to parameterized SQL for SQLite, together
// with the column map a hydrator needs to rebuild the entity tree from its
// rows. It implements collection.Query.
type Compiled struct {
	SQL  string
	Args []any

	// Root is the model of the top-level entities.
	Root *model.Definition

	columns ir.ColumnMap
	rels    map[string]model.Relationship
}

// ColumnMap returns the row layout: one group per path, in select order.
func (c *Compiled) ColumnMap() ir.ColumnMap { return c.columns }

// Relationships returns the relationship behind each non-root path.
func (c *Compiled) Relationships() map[string]model.Relationship { return c.rels }

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: ALL queries include ORDER BY on the root key first, so the rows of
// one root entity are contiguous.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	reg *model.Registry
}

// NewSQLCompiler creates a compiler resolving models against reg.
func NewSQLCompiler(reg *model.Registry) *SQLCompiler {
	return &SQLCompiler{reg: reg}
}

// path is one selected relationship path and its table alias.
type path struct {
	name  string
	alias string
	model *model.Definition
	rel   model.Relationship
}

// Compile converts a QueryIR query to parameterized SQL.
//
// MANDATORY: Every query is validated against the registry first.
// MANDATORY: Every query includes ORDER BY with the root key leading.
func (c *SQLCompiler) Compile(q queryir.Query) (*Compiled, error) {
	if q == nil {
		return nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		if query == nil {
			return nil, fmt.Errorf("cannot compile nil query")
		}
		return c.compileSelect(*query)
	default:
		return nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL.
func (c *SQLCompiler) compileSelect(q queryir.Select) (*Compiled, error) {
	if err := queryir.Validate(q, c.reg).Err(); err != nil {
		return nil, err
	}

	root := c.reg.MustModel(q.Model)
	paths := []path{{name: "", alias: "t0", model: root}}
	byName := map[string]path{"": paths[0]}
	out := &Compiled{
		Root: root,
		rels: make(map[string]model.Relationship, len(q.With)),
	}
	for i, name := range q.With {
		parent := byName[ir.ParentAlias(name)]
		rel, _ := parent.model.Relationship(ir.LastSegment(name))
		p := path{
			name:  name,
			alias: fmt.Sprintf("t%d", i+1),
			model: rel.To.(*model.Definition),
			rel:   rel,
		}
		paths = append(paths, p)
		byName[name] = p
		out.rels[name] = rel
	}

	// Build SELECT clause: every field of every path, grouped by path
	var cols []string
	for _, p := range paths {
		fields := p.model.Fields()
		out.columns = append(out.columns, ir.ColumnGroup{Alias: p.name, Fields: fields})
		for _, f := range fields {
			cols = append(cols, fmt.Sprintf("%s AS %s", column(p.alias, f), quote(columnAlias(p.name, f))))
		}
	}

	// Build FROM clause with one outer join per path
	from := c.compileFrom(paths, byName)

	// Build WHERE clause and collect parameters
	var where []string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter, byName)
		if err != nil {
			return nil, fmt.Errorf("compile filter: %w", err)
		}
		where = append(where, filterSQL)
		params = append(params, filterParams...)
	}

	// MANDATORY: Always add ORDER BY
	orderBy := stableOrderKey(paths)

	var limit string
	if q.Limit > 0 {
		if hasManyJoins(paths) {
			// LIMIT counts rows; restrict the roots instead. Validate only
			// admits a single-field root key here.
			rootKey := column("t0", root.KeyFields()[0])
			sub := fmt.Sprintf("SELECT DISTINCT %s FROM %s", rootKey, from)
			if len(where) > 0 {
				sub += " WHERE " + where[0]
				params = append(params, params...)
			}
			sub += fmt.Sprintf(" ORDER BY %s COLLATE BINARY ASC LIMIT ?", rootKey)
			where = append(where, fmt.Sprintf("%s IN (%s)", rootKey, sub))
			params = append(params, int64(q.Limit))
		} else {
			limit = " LIMIT ?"
		}
	}

	var whereClause string
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	// Assemble SQL
	out.SQL = fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s%s",
		strings.Join(cols, ", "),
		from,
		whereClause,
		orderBy,
		limit)
	if limit != "" {
		params = append(params, int64(q.Limit))
	}
	out.Args = params
	return out, nil
}

// compileFrom renders the root table and its LEFT JOINs.
// Example: "posts" AS "t0" LEFT JOIN "comments" AS "t1" ON "t1"."post_id" = "t0"."id"
func (c *SQLCompiler) compileFrom(paths []path, byName map[string]path) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s AS %s", quote(paths[0].model.Table()), quote(paths[0].alias))
	for _, p := range paths[1:] {
		parent := byName[ir.ParentAlias(p.name)]
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON %s = %s",
			quote(p.model.Table()),
			quote(p.alias),
			column(p.alias, p.rel.Foreign),
			column(parent.alias, p.rel.Local))
	}
	return b.String()
}

// stableOrderKey returns the ORDER BY clause for a query: the root key, then
// the key of each hasMany path in select order. To-one paths contribute at
// most one row per parent and need no ordering.
// Uses COLLATE BINARY for deterministic text ordering.
func stableOrderKey(paths []path) string {
	var parts []string
	for _, p := range paths {
		if p.name != "" && p.rel.Type != model.HasMany {
			continue
		}
		for _, f := range p.model.KeyFields() {
			parts = append(parts, column(p.alias, f)+" COLLATE BINARY ASC")
		}
	}
	return strings.Join(parts, ", ")
}

func hasManyJoins(paths []path) bool {
	for _, p := range paths[1:] {
		if p.rel.Type == model.HasMany {
			return true
		}
	}
	return false
}

// compilePredicate compiles a queryir.Predicate to SQL WHERE clause fragment.
// Returns (sql, params, error).
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate, byName map[string]path) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return compileEquals(pred, byName)
	case *queryir.Equals:
		return compileEquals(*pred, byName)
	case queryir.IsNull:
		return compileIsNull(pred, byName)
	case *queryir.IsNull:
		return compileIsNull(*pred, byName)
	case queryir.And:
		return c.compileAnd(pred, byName)
	case *queryir.And:
		return c.compileAnd(*pred, byName)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "field = ?".
// Comparing to Null compiles to "field IS NULL".
func compileEquals(eq queryir.Equals, byName map[string]path) (string, []any, error) {
	col, err := fieldColumn(eq.Field, byName)
	if err != nil {
		return "", nil, err
	}
	if ir.IsEmpty(eq.Value) {
		if _, isString := eq.Value.(ir.String); !isString {
			return col + " IS NULL", nil, nil
		}
	}

	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return col + " = ?", []any{param}, nil
}

func compileIsNull(n queryir.IsNull, byName map[string]path) (string, []any, error) {
	col, err := fieldColumn(n.Field, byName)
	if err != nil {
		return "", nil, err
	}
	return col + " IS NULL", nil, nil
}

// compileAnd compiles an And predicate to conjunction with AND.
func (c *SQLCompiler) compileAnd(and queryir.And, byName map[string]path) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred, byName)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

func fieldColumn(field string, byName map[string]path) (string, error) {
	pathName, name := queryir.SplitField(field)
	p, ok := byName[pathName]
	if !ok {
		return "", fmt.Errorf("field %q: path %q is not selected", field, pathName)
	}
	return column(p.alias, name), nil
}

// irValueToParam converts an ir.Value to a Go native type for SQL parameter.
// Arrays and objects are not supported as SQL parameters.
func irValueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Float:
		return float64(val), nil
	case ir.Bool:
		return bool(val), nil
	case ir.Null, nil:
		return nil, nil
	case ir.Opaque:
		return val.V, nil
	case ir.Array:
		return nil, errors.New("array cannot be used as SQL parameter directly")
	case ir.Object:
		return nil, errors.New("object cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

// columnAlias names a result column after its path: "comments.author.name".
// Root columns keep their field name.
func columnAlias(pathName, field string) string {
	if pathName == "" {
		return field
	}
	return pathName + "." + field
}

func column(alias, field string) string {
	return quote(alias) + "." + quote(field)
}

// quote quotes an identifier, doubling embedded quotes.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
