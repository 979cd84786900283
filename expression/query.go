package expression

import (
	"fmt"
	"strconv"
)

// QueryError reports a statement that does not fit the supported SELECT grammar or
// does not agree with the target table's schema.
type QueryError struct {
	Detail string
	Pos    int
}

func (e *QueryError) Error() string {
	return "invalid query: " + e.Detail
}

// Comparison is a single `column <op> literal` term of a WHERE clause.
type Comparison struct {
	Column   string
	Operator TokenType
	Literal  Token
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Column, c.Operator, c.Literal.Literal)
}

// SelectStatement is the parsed form of a query. Columns is nil for `SELECT *`.
// Where terms are joined with AND.
type SelectStatement struct {
	Columns   []string
	TableName string
	Where     []Comparison
	Limit     int
}

// ParseSelect parses the restricted statement
//
//	SELECT * | col [, col ...] FROM table [WHERE col op literal [AND ...]] [LIMIT n] [;]
//
// where op is one of = != <> < <= > >=.
func ParseSelect(statement string) (*SelectStatement, error) {
	tokens, err := Lex(statement)
	if err != nil {
		return nil, &QueryError{Detail: err.Error()}
	}
	qp := &queryParser{Parser: NewParser(tokens)}
	stmt, qerr := qp.parse()
	if qerr != nil {
		return nil, qerr
	}
	return stmt, nil
}

type queryParser struct {
	*Parser
}

func (p *queryParser) fail(tok Token, format string, args ...any) *QueryError {
	return &QueryError{Detail: fmt.Sprintf(format, args...), Pos: tok.Pos}
}

func (p *queryParser) parse() (*SelectStatement, *QueryError) {
	stmt := &SelectStatement{}
	if !p.matchKeyword("SELECT") {
		return nil, p.fail(p.peek(), "only SELECT statements are supported")
	}
	if err := p.parseProjection(stmt); err != nil {
		return nil, err
	}
	if !p.matchKeyword("FROM") {
		return nil, p.fail(p.peek(), "expected FROM, got %q", p.peek().Literal)
	}
	tableTok := p.advance()
	if tableTok.Type != TokenIdentifier || isReserved(tableTok) {
		return nil, p.fail(tableTok, "expected a table name, got %q", tableTok.Literal)
	}
	stmt.TableName = tableTok.Literal
	for p.match(TokenDot) {
		part := p.advance()
		if part.Type != TokenIdentifier {
			return nil, p.fail(part, "invalid table name")
		}
		stmt.TableName += "." + part.Literal
	}

	if p.matchKeyword("WHERE") {
		for {
			cmp, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			stmt.Where = append(stmt.Where, cmp)
			if !p.matchKeyword("AND") {
				break
			}
		}
	}
	if p.matchKeyword("LIMIT") {
		tok := p.advance()
		n, err := strconv.Atoi(tok.Literal)
		if tok.Type != TokenNumber || err != nil || n < 0 {
			return nil, p.fail(tok, "invalid LIMIT %q", tok.Literal)
		}
		stmt.Limit = n
	}
	p.match(TokenSemicolon)
	if !p.isAtEnd() {
		return nil, p.fail(p.peek(), "unexpected %q", p.peek().Literal)
	}
	return stmt, nil
}

func (p *queryParser) parseProjection(stmt *SelectStatement) *QueryError {
	if p.match(TokenStar) {
		return nil
	}
	for {
		tok := p.advance()
		if tok.Type != TokenIdentifier || isReserved(tok) {
			return p.fail(tok, "expected * or a column name, got %q", tok.Literal)
		}
		stmt.Columns = append(stmt.Columns, tok.Literal)
		if !p.match(TokenComma) {
			return nil
		}
	}
}

func (p *queryParser) parseComparison() (Comparison, *QueryError) {
	colTok := p.advance()
	if colTok.Type != TokenIdentifier || isReserved(colTok) {
		return Comparison{}, p.fail(colTok, "expected a column name, got %q", colTok.Literal)
	}
	if !p.match(TokenEq, TokenNE, TokenLT, TokenLTE, TokenGT, TokenGTE) {
		return Comparison{}, p.fail(p.peek(), "expected a comparison operator after %s", colTok.Literal)
	}
	op := p.prev().Type
	lit := p.advance()
	switch lit.Type {
	case TokenString, TokenNumber:
	case TokenIdentifier:
		if !lit.Is("true") && !lit.Is("false") {
			return Comparison{}, p.fail(lit, "expected a literal, got %q", lit.Literal)
		}
	default:
		return Comparison{}, p.fail(lit, "expected a literal, got %q", lit.Literal)
	}
	return Comparison{Column: colTok.Literal, Operator: op, Literal: lit}, nil
}

var reservedWords = []string{"SELECT", "FROM", "WHERE", "AND", "LIMIT"}

func isReserved(tok Token) bool {
	for _, w := range reservedWords {
		if tok.Is(w) {
			return true
		}
	}
	return false
}
