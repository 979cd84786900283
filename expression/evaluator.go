package expression

import (
	"fmt"
	"strings"

	"github.com/tabeth/concreteoci/models"
)

// Predicate is a WHERE clause bound to a schema: every column is resolved and every
// literal converted to the column's canonical type.
type Predicate struct {
	terms []boundComparison
}

type boundComparison struct {
	column *models.Column
	op     TokenType
	value  any
}

// Evaluator binds parsed statements to a table schema.
type Evaluator struct {
	schema *models.Schema
}

func NewEvaluator(schema *models.Schema) *Evaluator {
	return &Evaluator{schema: schema}
}

// Compile resolves the statement's columns against the schema. Unknown columns and
// literals that cannot be coerced to the column type are reported as *QueryError.
func (e *Evaluator) Compile(stmt *SelectStatement) (*Predicate, error) {
	for _, name := range stmt.Columns {
		if _, ok := e.schema.Column(name); !ok {
			return nil, &QueryError{Detail: fmt.Sprintf("unknown column %s in projection", name)}
		}
	}
	pred := &Predicate{}
	for _, cmp := range stmt.Where {
		col, ok := e.schema.Column(cmp.Column)
		if !ok {
			return nil, &QueryError{Detail: fmt.Sprintf("unknown column %s in WHERE clause", cmp.Column), Pos: cmp.Literal.Pos}
		}
		v, err := literalValue(col, cmp.Literal)
		if err != nil {
			return nil, &QueryError{Detail: err.Error(), Pos: cmp.Literal.Pos}
		}
		pred.terms = append(pred.terms, boundComparison{column: col, op: cmp.Operator, value: v})
	}
	return pred, nil
}

// Match reports whether the row satisfies every term. A row lacking the column, or
// holding a value that cannot be compared, does not match.
func (p *Predicate) Match(row map[string]any) bool {
	for _, term := range p.terms {
		raw, ok := lookupFold(row, term.column.Name)
		if !ok {
			return false
		}
		v, err := CoerceValue(term.column, raw)
		if err != nil {
			return false
		}
		cmp, ok := Compare(term.column.Type, v, term.value)
		if !ok || !opHolds(term.op, cmp) {
			return false
		}
	}
	return true
}

// Project returns the requested columns of row, or row itself when columns is empty.
func (e *Evaluator) Project(stmt *SelectStatement, row map[string]any) map[string]any {
	if len(stmt.Columns) == 0 {
		return row
	}
	out := make(map[string]any, len(stmt.Columns))
	for _, name := range stmt.Columns {
		col, _ := e.schema.Column(name)
		if v, ok := lookupFold(row, col.Name); ok {
			out[col.Name] = v
		}
	}
	return out
}

func literalValue(col *models.Column, lit Token) (any, error) {
	switch lit.Type {
	case TokenString:
		if col.Type.IsTextual() || col.Type == models.TypeJSON {
			return CoerceValue(col, lit.Literal)
		}
		return ParseLiteral(col, lit.Literal)
	case TokenNumber:
		if col.Type.IsNumeric() || col.Type == models.TypeJSON {
			return ParseLiteral(col, lit.Literal)
		}
	case TokenIdentifier:
		if col.Type == models.TypeBoolean || col.Type == models.TypeJSON {
			return lit.Is("true"), nil
		}
	}
	return nil, fmt.Errorf("literal %s does not match %s column %s", lit.Literal, col.Type, col.Name)
}

func opHolds(op TokenType, cmp int) bool {
	switch op {
	case TokenEq:
		return cmp == 0
	case TokenNE:
		return cmp != 0
	case TokenLT:
		return cmp < 0
	case TokenLTE:
		return cmp <= 0
	case TokenGT:
		return cmp > 0
	case TokenGTE:
		return cmp >= 0
	}
	return false
}

func lookupFold(row map[string]any, name string) (any, bool) {
	if v, ok := row[name]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
