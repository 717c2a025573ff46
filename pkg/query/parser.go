package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Query is a compiled filter expression
type Query struct {
	Root   Node
	source string
	dtypes map[string]columnar.DType
}

// String returns the normalised expression
func (q *Query) String() string { return q.Root.String() }

// Source returns the text the query was compiled from
func (q *Query) Source() string { return q.source }

// parser is a recursive-descent parser that resolves columns against a
// schema while it parses
type parser struct {
	lex    *lexer
	schema map[string]columnar.DType
	used   map[string]columnar.DType
	depth  *depthCounter
}

// Compile parses src against the schema of t
func Compile(t *columnar.Table, src string) (*Query, error) {
	return CompileSchema(t.Schema(), src)
}

// CompileSchema parses src against schema
func CompileSchema(schema columnar.Schema, src string) (*Query, error) {
	if err := ValidateQuery(src); err != nil {
		return nil, err
	}
	p := &parser{
		lex:    newLexer(src),
		schema: make(map[string]columnar.DType, len(schema.Fields)),
		used:   make(map[string]columnar.DType),
		depth:  newDepthCounter(),
	}
	for _, f := range schema.Fields {
		p.schema[f.Name] = f.Type
	}
	p.lex.skipWhitespace()
	if p.lex.eof() {
		return nil, errors.New(errors.CodeParse, "empty query")
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.lex.skipWhitespace()
	if !p.lex.eof() {
		return nil, p.lex.errorf(p.lex.pos, "unexpected input %q", p.lex.input[p.lex.pos:])
	}
	return &Query{Root: root, source: src, dtypes: p.used}, nil
}

// parseOr parses OR expressions (lowest precedence)
func (p *parser) parseOr() (Node, error) {
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.exit()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.lex.skipWhitespace()
		if !p.lex.keyword("or") {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrNode{Left: left, Right: right}
	}
}

// parseAnd parses AND expressions
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.lex.skipWhitespace()
		if !p.lex.keyword("and") {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &AndNode{Left: left, Right: right}
	}
}

// parseTerm parses a parenthesised expression or a predicate
func (p *parser) parseTerm() (Node, error) {
	p.lex.skipWhitespace()
	if p.lex.consume('(') {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.lex.skipWhitespace()
		if !p.lex.consume(')') {
			return nil, p.lex.errorf(p.lex.pos, "expected )")
		}
		return inner, nil
	}
	return p.parsePredicate()
}

// parsePredicate parses column op literal and converts the literal
func (p *parser) parsePredicate() (Node, error) {
	name, err := p.lex.readIdent()
	if err != nil {
		return nil, err
	}
	dtype, ok := p.schema[name]
	if !ok {
		return nil, errors.Newf(errors.CodeInvalid, "unknown column %q", name).WithColumnName(name)
	}
	p.lex.skipWhitespace()
	op, err := p.lex.readOp()
	if err != nil {
		return nil, err
	}
	p.lex.skipWhitespace()
	litStart := p.lex.pos
	text, quoted, err := p.lex.readLiteral()
	if err != nil {
		return nil, err
	}
	p.used[name] = dtype

	pred := &Predicate{Column: name, Op: op}
	switch {
	case !quoted && strings.EqualFold(text, "null"):
		pred.Kind = LiteralNull
	case !quoted && dtype == columnar.Float64 && strings.EqualFold(text, "nan"):
		pred.Kind = LiteralNaN
	}
	if pred.Kind != LiteralValue {
		if op != OpEqual && op != OpNotEqual {
			return nil, p.lex.errorf(litStart, "%s only supports == and !=", strings.ToLower(text))
		}
		return pred, nil
	}

	lit, err := convertLiteral(dtype, text)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "invalid literal").WithColumnName(name).WithDetail("offset", litStart)
	}
	pred.Literal = lit
	return pred, nil
}

func convertLiteral(dtype columnar.DType, text string) (columnar.Value, error) {
	switch dtype {
	case columnar.Int64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return columnar.Value{}, errors.Newf(errors.CodeParse, "malformed int64 literal %q", text)
		}
		return columnar.IntValue(n), nil
	case columnar.Float64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return columnar.Value{}, errors.Newf(errors.CodeParse, "malformed float64 literal %q", text)
		}
		if math.IsNaN(f) {
			return columnar.Value{}, errors.Newf(errors.CodeParse, "literal %q is NaN; use the unquoted keyword nan", text)
		}
		return columnar.FloatValue(f), nil
	default:
		return columnar.StringValue(text), nil
	}
}
