package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/roach88/rowgraph/internal/ir"
)

// Filter expression grammar:
//
//	filter  = term { "AND" term }
//	term    = field ( "=" literal | "IS" "NULL" )
//	field   = ident { "." ident }
//	literal = number | string | TRUE | FALSE | NULL
//
// Keywords are case-insensitive. Strings take single or double quotes.
type filterAST struct {
	Terms []*termAST `parser:"@@ ('AND' @@)*"`
}

type termAST struct {
	Field  []string    `parser:"@Ident ('.' @Ident)*"`
	IsNull bool        `parser:"( @('IS' 'NULL')"`
	Value  *literalAST `parser:"| '=' @@ )"`
}

type literalAST struct {
	Number *string `parser:"  @Number"`
	String *string `parser:"| @String"`
	Bool   *string `parser:"| @('TRUE' | 'FALSE')"`
	Null   bool    `parser:"| @'NULL'"`
}

var (
	filterLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Keyword", Pattern: `(?i)\b(AND|IS|NULL|TRUE|FALSE)\b`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Number", Pattern: `[-+]?\d*\.?\d+`},
		{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
		{Name: "Punct", Pattern: `[.=]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	filterParser = participle.MustBuild[filterAST](
		participle.Lexer(filterLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Keyword"),
		participle.Elide("Whitespace"),
	)
)

// ParseFilter parses a filter expression such as
//
//	comments.author.name = 'ann' AND author_id IS NULL
//
// into a Predicate. Fields are qualified by relationship path exactly as in
// Select.Filter. A single term yields an Equals or IsNull; several yield an
// And.
func ParseFilter(input string) (Predicate, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty filter")
	}

	ast, err := filterParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}

	preds := make([]Predicate, 0, len(ast.Terms))
	for _, t := range ast.Terms {
		p, err := t.predicate()
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return Conjoin(preds...), nil
}

func (t *termAST) predicate() (Predicate, error) {
	field := strings.Join(t.Field, ".")
	if t.IsNull {
		return IsNull{Field: field}, nil
	}
	v, err := t.Value.value()
	if err != nil {
		return nil, fmt.Errorf("parse filter: %s: %w", field, err)
	}
	if _, null := v.(ir.Null); null {
		return IsNull{Field: field}, nil
	}
	return Equals{Field: field, Value: v}, nil
}

func (l *literalAST) value() (ir.Value, error) {
	switch {
	case l.Number != nil:
		if n, err := strconv.ParseInt(*l.Number, 10, 64); err == nil {
			return ir.Int(n), nil
		}
		f, err := strconv.ParseFloat(*l.Number, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", *l.Number)
		}
		return ir.Float(f), nil
	case l.String != nil:
		return ir.String(*l.String), nil
	case l.Bool != nil:
		return ir.Bool(strings.EqualFold(*l.Bool, "true")), nil
	}
	return ir.Null{}, nil
}

// Conjoin combines predicates with And, flattening nested conjunctions and
// dropping nils. It returns nil for no predicates and the predicate itself
// for one.
func Conjoin(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
		case And:
			flat = append(flat, v.Predicates...)
		case *And:
			if v != nil {
				flat = append(flat, v.Predicates...)
			}
		default:
			flat = append(flat, p)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return And{Predicates: flat}
}
