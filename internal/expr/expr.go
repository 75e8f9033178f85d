// Package expr implements the restricted, injection-safe query expression
// language executed by the execute_query tool. The grammar is closed: column
// references, literals, comparisons, boolean combinators, and the five
// aggregate functions. Anything else fails to lex or parse; expressions are
// parsed fully before any row is touched, so a malformed query never
// partially executes.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/domain"
)

// Query is a parsed expression: either an aggregation (optionally filtered)
// or a bare row filter.
type Query struct {
	Agg    *AggExpr
	Filter Node
}

// AggExpr is an aggregate call such as sum(sales).
type AggExpr struct {
	Fn     dataset.AggFunc
	Column string
}

// Result is the outcome of evaluating a Query: a scalar for aggregations or
// the matching rows for filters.
type Result struct {
	Scalar *float64
	Rows   *dataset.Dataset
}

// Node is a boolean expression node evaluated per row.
type Node interface {
	eval(d *dataset.Dataset, row int) (bool, error)
	check(d *dataset.Dataset) error
}

// Parse compiles an expression. Errors carry InvalidExpression.
func Parse(input string) (*Query, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, errAt(p.peek().pos, "unexpected %q", p.peek().text)
	}
	return q, nil
}

// Eval runs the query against a dataset. Column references are resolved up
// front so an unknown column fails before any row is examined.
func (q *Query) Eval(d *dataset.Dataset) (*Result, error) {
	if q.Filter != nil {
		if err := q.Filter.check(d); err != nil {
			return nil, err
		}
	}
	if q.Agg != nil {
		if _, err := d.ColumnIndex(q.Agg.Column); err != nil {
			return nil, err
		}
	}

	scope := d
	if q.Filter != nil {
		var evalErr error
		scope = d.Filter(func(row int) bool {
			ok, err := q.Filter.eval(d, row)
			if err != nil && evalErr == nil {
				evalErr = err
			}
			return err == nil && ok
		})
		if evalErr != nil {
			return nil, evalErr
		}
	}

	if q.Agg == nil {
		return &Result{Rows: scope}, nil
	}
	v, err := scope.Aggregate(q.Agg.Column, q.Agg.Fn)
	if err != nil {
		return nil, err
	}
	return &Result{Scalar: &v}, nil
}

// ---- lexer ----

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOp    // comparison operator
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func errAt(pos int, format string, args ...interface{}) error {
	return domain.NewError(domain.CodeInvalidExpression,
		"invalid expression at offset %d: %s", pos, fmt.Sprintf(format, args...))
}

func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, errAt(i, "unterminated string literal")
			}
			tokens = append(tokens, token{tokString, string(runes[i+1 : j]), i})
			i = j + 1
		case r == '=' || r == '!' || r == '<' || r == '>':
			op := string(r)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
				i++
			}
			i++
			switch op {
			case "==", "!=", "<", "<=", ">", ">=":
				tokens = append(tokens, token{tokOp, op, i})
			default:
				return nil, errAt(i, "unknown operator %q", op)
			}
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			text := string(runes[i:j])
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, errAt(i, "malformed number %q", text)
			}
			tokens = append(tokens, token{tokNumber, text, i})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			tokens = append(tokens, token{tokIdent, string(runes[i:j]), i})
			i = j
		default:
			return nil, errAt(i, "unexpected character %q", string(r))
		}
	}
	return tokens, nil
}

// ---- parser ----

type parser struct {
	tokens []token
	next   int
}

func (p *parser) eof() bool   { return p.next >= len(p.tokens) }
func (p *parser) peek() token { return p.tokens[p.next] }

func (p *parser) advance() token {
	t := p.tokens[p.next]
	p.next++
	return t
}

func (p *parser) keyword(word string) bool {
	if p.eof() || p.peek().kind != tokIdent {
		return false
	}
	if !strings.EqualFold(p.peek().text, word) {
		return false
	}
	p.advance()
	return true
}

// parseQuery := agg [ 'where' boolexpr ] | boolexpr
func (p *parser) parseQuery() (*Query, error) {
	if p.eof() {
		return nil, errAt(0, "empty expression")
	}

	// Aggregate form: ident '(' ident ')'.
	if p.peek().kind == tokIdent && p.next+1 < len(p.tokens) && p.tokens[p.next+1].kind == tokLParen {
		if fn, err := dataset.ParseAggFunc(p.peek().text); err == nil {
			p.advance() // function name
			p.advance() // '('
			if p.eof() || p.peek().kind != tokIdent && p.peek().kind != tokString {
				return nil, errAt(pos(p), "expected a column name inside %s(...)", fn)
			}
			col := p.advance().text
			if p.eof() || p.peek().kind != tokRParen {
				return nil, errAt(pos(p), "expected ')' after column name")
			}
			p.advance()

			q := &Query{Agg: &AggExpr{Fn: fn, Column: col}}
			if p.keyword("where") {
				filter, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				q.Filter = filter
			}
			return q, nil
		}
	}

	filter, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return &Query{Filter: filter}, nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.keyword("not") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	if !p.eof() && p.peek().kind == tokLParen {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.eof() || p.peek().kind != tokRParen {
			return nil, errAt(pos(p), "expected ')'")
		}
		p.advance()
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.eof() || p.peek().kind != tokOp {
		return nil, errAt(pos(p), "expected a comparison operator")
	}
	op := p.advance().text
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &cmpNode{op: op, left: left, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	if p.eof() {
		return operand{}, errAt(pos(p), "expected a value or column name")
	}
	t := p.advance()
	switch t.kind {
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "and", "or", "not", "where":
			return operand{}, errAt(t.pos, "%q is a reserved word", t.text)
		}
		return operand{column: t.text}, nil
	case tokNumber:
		f, _ := strconv.ParseFloat(t.text, 64)
		return operand{number: &f}, nil
	case tokString:
		s := t.text
		return operand{str: &s}, nil
	default:
		return operand{}, errAt(t.pos, "expected a value or column name, got %q", t.text)
	}
}

func pos(p *parser) int {
	if p.eof() {
		if len(p.tokens) == 0 {
			return 0
		}
		return p.tokens[len(p.tokens)-1].pos
	}
	return p.peek().pos
}

// ---- evaluation ----

type operand struct {
	column string
	number *float64
	str    *string
}

func (o operand) check(d *dataset.Dataset) error {
	if o.column == "" {
		return nil
	}
	_, err := d.ColumnIndex(o.column)
	return err
}

// value resolves the operand for one row. Numeric returns take precedence
// when both sides can be numbers.
func (o operand) value(d *dataset.Dataset, row int) (str string, num *float64) {
	switch {
	case o.number != nil:
		return "", o.number
	case o.str != nil:
		return *o.str, nil
	default:
		idx, _ := d.ColumnIndex(o.column)
		raw := d.Cell(row, idx)
		if f, ok := d.Float(row, idx); ok {
			return raw, &f
		}
		return raw, nil
	}
}

type cmpNode struct {
	op    string
	left  operand
	right operand
}

func (n *cmpNode) check(d *dataset.Dataset) error {
	if err := n.left.check(d); err != nil {
		return err
	}
	return n.right.check(d)
}

func (n *cmpNode) eval(d *dataset.Dataset, row int) (bool, error) {
	ls, ln := n.left.value(d, row)
	rs, rn := n.right.value(d, row)
	if ln != nil && rn != nil {
		return compareFloats(n.op, *ln, *rn), nil
	}
	return compareStrings(n.op, ls, rs), nil
}

func compareFloats(op string, a, b float64) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func compareStrings(op string, a, b string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

type binaryNode struct {
	op    string
	left  Node
	right Node
}

func (n *binaryNode) check(d *dataset.Dataset) error {
	if err := n.left.check(d); err != nil {
		return err
	}
	return n.right.check(d)
}

func (n *binaryNode) eval(d *dataset.Dataset, row int) (bool, error) {
	l, err := n.left.eval(d, row)
	if err != nil {
		return false, err
	}
	if n.op == "and" && !l {
		return false, nil
	}
	if n.op == "or" && l {
		return true, nil
	}
	return n.right.eval(d, row)
}

type notNode struct {
	inner Node
}

func (n *notNode) check(d *dataset.Dataset) error { return n.inner.check(d) }

func (n *notNode) eval(d *dataset.Dataset, row int) (bool, error) {
	v, err := n.inner.eval(d, row)
	return !v, err
}
