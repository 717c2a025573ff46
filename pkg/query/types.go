// Package query implements the boolean filter language evaluated over
// columnar tables.
//
// The grammar is
//
//	expr      := or_expr
//	or_expr   := and_expr ("or" and_expr)*
//	and_expr  := term ("and" term)*
//	term      := "(" expr ")" | predicate
//	predicate := column op literal
//	op        := "==" | "=" | "!=" | "<" | "<=" | ">" | ">="
//
// Literals are single- or double-quoted strings or bare tokens running to
// whitespace or ")". The unquoted keywords null and, for float columns,
// nan test the null flag and NaN-ness; both only allow == and !=.
// Literals are converted to the column dtype when the query is compiled, so
// malformed numbers and unknown columns fail before any row is read.
//
// Example usage:
//
//	mask, err := query.Evaluate(table, "age >= 20 or age == null")
//	filtered, err := query.Filter(table, "name == 'bob' and score > 1.5")
package query

import (
	"github.com/ajitpratap0/cpandas/pkg/columnar"
)

// Op is a comparison operator
type Op int

const (
	// OpEqual is == (or =)
	OpEqual Op = iota
	// OpNotEqual is !=
	OpNotEqual
	// OpLess is <
	OpLess
	// OpLessEqual is <=
	OpLessEqual
	// OpGreater is >
	OpGreater
	// OpGreaterEqual is >=
	OpGreaterEqual
)

func (op Op) String() string {
	switch op {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	}
	return "?"
}

// LiteralKind distinguishes value comparisons from the null and nan tests
type LiteralKind int

const (
	// LiteralValue compares against a typed value
	LiteralValue LiteralKind = iota
	// LiteralNull tests the null flag
	LiteralNull
	// LiteralNaN tests NaN-ness of a float cell
	LiteralNaN
)

// Node is a node of the expression tree
type Node interface {
	String() string
	eval(b *binding, row int) (bool, error)
}

// Predicate compares one column against a literal
type Predicate struct {
	Column  string
	Op      Op
	Kind    LiteralKind
	Literal columnar.Value
}

func (p *Predicate) String() string {
	switch p.Kind {
	case LiteralNull:
		return p.Column + " " + p.Op.String() + " null"
	case LiteralNaN:
		return p.Column + " " + p.Op.String() + " nan"
	}
	lit := p.Literal.String()
	if p.Literal.Type == columnar.String {
		lit = "'" + lit + "'"
	}
	return p.Column + " " + p.Op.String() + " " + lit
}

// AndNode is a short-circuit conjunction
type AndNode struct {
	Left, Right Node
}

func (n *AndNode) String() string {
	return "(" + n.Left.String() + " and " + n.Right.String() + ")"
}

// OrNode is a short-circuit disjunction
type OrNode struct {
	Left, Right Node
}

func (n *OrNode) String() string {
	return "(" + n.Left.String() + " or " + n.Right.String() + ")"
}
