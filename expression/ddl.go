package expression

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tabeth/concreteoci/models"
)

// DDLReason identifies which validation rule a CREATE TABLE statement violated.
type DDLReason int

const (
	ReasonSyntax DDLReason = iota
	ReasonMissingTableName
	ReasonInvalidTableName
	ReasonMissingColumns
	ReasonMissingColumnType
	ReasonUnknownColumnType
	ReasonInvalidColumnDetails
	ReasonInvalidDefault
	ReasonDuplicateColumn
	ReasonMissingPrimaryKey
	ReasonUnknownKeyColumn
	ReasonDuplicateKeyColumn
	ReasonInvalidKeyType
	ReasonInvalidShardKey
	ReasonInvalidTTL
)

var reasonMessages = map[DDLReason]string{
	ReasonSyntax:               "invalid ddl statement",
	ReasonMissingTableName:     "missing table name",
	ReasonInvalidTableName:     "invalid table name",
	ReasonMissingColumns:       "missing table details",
	ReasonMissingColumnType:    "missing column type",
	ReasonUnknownColumnType:    "unknown column type",
	ReasonInvalidColumnDetails: "invalid column details",
	ReasonInvalidDefault:       "invalid default value",
	ReasonDuplicateColumn:      "duplicate column",
	ReasonMissingPrimaryKey:    "missing primary keys",
	ReasonUnknownKeyColumn:     "invalid primary keys, field doesn't exist",
	ReasonDuplicateKeyColumn:   "duplicate primary key field",
	ReasonInvalidKeyType:       "invalid primary key field type",
	ReasonInvalidShardKey:      "invalid shard key",
	ReasonInvalidTTL:           "invalid table ttl",
}

func (r DDLReason) String() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return fmt.Sprintf("DDLReason(%d)", int(r))
}

// DDLError is the failure result of ParseDDL. Callers branch on Reason.
type DDLError struct {
	Reason DDLReason
	Detail string
	Pos    int
}

func (e *DDLError) Error() string {
	if e.Detail == "" {
		return e.Reason.String()
	}
	return e.Reason.String() + ": " + e.Detail
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,255}$`)

// ParseDDL parses a single CREATE TABLE statement:
//
//	CREATE TABLE [IF NOT EXISTS] name (
//	    column type [DEFAULT literal] [NOT NULL], ...,
//	    PRIMARY KEY ([SHARD(col, ...),] col, ...)
//	) [USING TTL n DAYS|HOURS]
//
// It stops at the first violated rule and returns a *DDLError describing it.
func ParseDDL(ddl string) (*models.Schema, error) {
	tokens, err := Lex(ddl)
	if err != nil {
		return nil, &DDLError{Reason: ReasonSyntax, Detail: err.Error()}
	}
	dp := &ddlParser{Parser: NewParser(tokens)}
	schema, derr := dp.parse()
	if derr != nil {
		return nil, derr
	}
	return schema, nil
}

type ddlParser struct {
	*Parser
	schema    models.Schema
	sawKey    bool
	keyTokens []Token
}

func (p *ddlParser) fail(reason DDLReason, tok Token, format string, args ...any) *DDLError {
	return &DDLError{Reason: reason, Detail: fmt.Sprintf(format, args...), Pos: tok.Pos}
}

func (p *ddlParser) parse() (*models.Schema, *DDLError) {
	if !p.matchKeyword("CREATE") || !p.matchKeyword("TABLE") {
		return nil, p.fail(ReasonSyntax, p.peek(), "expected CREATE TABLE")
	}
	if p.peek().Is("IF") {
		p.advance()
		if !p.matchKeyword("NOT") || !p.matchKeyword("EXISTS") {
			return nil, p.fail(ReasonSyntax, p.peek(), "expected IF NOT EXISTS")
		}
		p.schema.IfNotExists = true
	}
	if err := p.parseTableName(); err != nil {
		return nil, err
	}

	if !p.match(TokenLParen) {
		if p.isAtEnd() || p.check(TokenSemicolon) {
			return nil, p.fail(ReasonMissingColumns, p.peek(), "table %s has no column definitions", p.schema.TableName)
		}
		return nil, p.fail(ReasonSyntax, p.peek(), "expected '(' after table name, got %q", p.peek().Literal)
	}
	if err := p.parseElements(); err != nil {
		return nil, err
	}
	if err := p.parseTableOptions(); err != nil {
		return nil, err
	}
	if err := p.validateKey(); err != nil {
		return nil, err
	}
	schema := p.schema
	return &schema, nil
}

func (p *ddlParser) parseTableName() *DDLError {
	tok := p.peek()
	switch tok.Type {
	case TokenIdentifier:
	case TokenEOF, TokenLParen, TokenSemicolon:
		return p.fail(ReasonMissingTableName, tok, "expected a table name")
	default:
		return p.fail(ReasonInvalidTableName, tok, "%q is not a valid table name", tok.Literal)
	}
	parts := []string{p.advance().Literal}
	for p.match(TokenDot) {
		if !p.check(TokenIdentifier) {
			return p.fail(ReasonInvalidTableName, p.peek(), "dangling '.' in table name")
		}
		parts = append(parts, p.advance().Literal)
	}
	for _, part := range parts {
		if !identifierRegex.MatchString(part) {
			return p.fail(ReasonInvalidTableName, tok, "%q is not a valid table name", strings.Join(parts, "."))
		}
	}
	p.schema.TableName = strings.Join(parts, ".")
	return nil
}

// parseElements consumes the comma separated definitions up to and including the
// closing parenthesis.
func (p *ddlParser) parseElements() *DDLError {
	for {
		tok := p.peek()
		switch {
		case tok.Type == TokenComma || tok.Type == TokenRParen:
			if len(p.schema.Columns) == 0 {
				return p.fail(ReasonMissingColumns, tok, "expected a column definition")
			}
			return p.fail(ReasonSyntax, tok, "empty definition")
		case tok.Type == TokenEOF:
			return p.fail(ReasonSyntax, tok, "unterminated column list")
		case tok.Is("PRIMARY") && p.peekAt(1).Is("KEY"):
			if err := p.parsePrimaryKey(); err != nil {
				return err
			}
		default:
			if err := p.parseColumn(); err != nil {
				return err
			}
		}

		if p.match(TokenRParen) {
			break
		}
		if !p.match(TokenComma) {
			return p.fail(ReasonSyntax, p.peek(), "expected ',' or ')', got %q", p.peek().Literal)
		}
	}
	if len(p.schema.Columns) == 0 {
		return p.fail(ReasonMissingColumns, p.prev(), "table %s has no columns", p.schema.TableName)
	}
	return nil
}

func (p *ddlParser) parseColumn() *DDLError {
	nameTok := p.advance()
	if nameTok.Type != TokenIdentifier || !identifierRegex.MatchString(nameTok.Literal) {
		return p.fail(ReasonInvalidColumnDetails, nameTok, "%q is not a valid column name", nameTok.Literal)
	}
	if _, exists := p.schema.Column(nameTok.Literal); exists {
		return p.fail(ReasonDuplicateColumn, nameTok, "column %s is declared more than once", nameTok.Literal)
	}
	col := models.Column{Name: nameTok.Literal, Nullable: true}

	typeTok := p.peek()
	if typeTok.Type == TokenComma || typeTok.Type == TokenRParen || typeTok.Type == TokenEOF {
		return p.fail(ReasonMissingColumnType, nameTok, "column %s has no type", col.Name)
	}
	p.advance()
	colType, ok := models.LookupColumnType(typeTok.Literal)
	if typeTok.Type != TokenIdentifier || !ok {
		return p.fail(ReasonUnknownColumnType, typeTok, "column %s has unknown type %q", col.Name, typeTok.Literal)
	}
	col.Type = colType
	if err := p.parseTypeParams(&col); err != nil {
		return err
	}

	var sawDefault, sawNotNull bool
	for !p.check(TokenComma) && !p.check(TokenRParen) && !p.isAtEnd() {
		tok := p.peek()
		switch {
		case tok.Is("NOT") && p.peekAt(1).Is("NULL") && !sawNotNull:
			p.advance()
			p.advance()
			col.Nullable = false
			sawNotNull = true
		case tok.Is("DEFAULT") && !sawDefault:
			p.advance()
			v, err := p.parseDefault(&col)
			if err != nil {
				return err
			}
			col.Default = v
			col.HasDefault = true
			sawDefault = true
		default:
			return p.fail(ReasonInvalidColumnDetails, tok, "unexpected %q in definition of column %s", tok.Literal, col.Name)
		}
	}
	p.schema.Columns = append(p.schema.Columns, col)
	return nil
}

func (p *ddlParser) parseTypeParams(col *models.Column) *DDLError {
	switch col.Type {
	case models.TypeTimestamp, models.TypeFixedBinary:
		if !p.match(TokenLParen) {
			if col.Type == models.TypeFixedBinary {
				return p.fail(ReasonInvalidColumnDetails, p.peek(), "FIXED_BINARY column %s needs a size", col.Name)
			}
			return nil
		}
		tok := p.advance()
		n, err := strconv.Atoi(tok.Literal)
		if tok.Type != TokenNumber || err != nil || n < 0 || (col.Type == models.TypeTimestamp && n > 9) {
			return p.fail(ReasonInvalidColumnDetails, tok, "invalid size %q for column %s", tok.Literal, col.Name)
		}
		col.Precision = n
		if !p.match(TokenRParen) {
			return p.fail(ReasonInvalidColumnDetails, p.peek(), "expected ')' after size of column %s", col.Name)
		}
	case models.TypeEnum:
		if !p.match(TokenLParen) {
			return p.fail(ReasonInvalidColumnDetails, p.peek(), "ENUM column %s needs a symbol list", col.Name)
		}
		for {
			tok := p.advance()
			if tok.Type != TokenIdentifier {
				return p.fail(ReasonInvalidColumnDetails, tok, "invalid enum symbol %q", tok.Literal)
			}
			col.Symbols = append(col.Symbols, tok.Literal)
			if p.match(TokenRParen) {
				break
			}
			if !p.match(TokenComma) {
				return p.fail(ReasonInvalidColumnDetails, p.peek(), "expected ',' or ')' in enum symbols")
			}
		}
	}
	return nil
}

func (p *ddlParser) parseDefault(col *models.Column) (any, *DDLError) {
	tok := p.advance()
	bad := func() *DDLError {
		return p.fail(ReasonInvalidDefault, tok, "%q is not a valid default for %s column %s", tok.Literal, col.Type, col.Name)
	}
	switch {
	case col.Type == models.TypeJSON:
		return nil, p.fail(ReasonInvalidDefault, tok, "JSON column %s cannot have a default", col.Name)
	case col.Type == models.TypeEnum:
		if tok.Type != TokenIdentifier && tok.Type != TokenString {
			return nil, bad()
		}
		v, err := CoerceValue(col, tok.Literal)
		if err != nil {
			return nil, bad()
		}
		return v, nil
	case col.Type == models.TypeTimestamp:
		if tok.Type != TokenString {
			return nil, bad()
		}
		v, err := normalizeTimestamp(col, tok.Literal)
		if err != nil {
			return nil, bad()
		}
		return v, nil
	case col.Type.IsTextual():
		if tok.Type != TokenString {
			return nil, bad()
		}
		return tok.Literal, nil
	case col.Type.IsNumeric():
		if tok.Type != TokenNumber {
			return nil, bad()
		}
		v, err := ParseLiteral(col, tok.Literal)
		if err != nil {
			return nil, bad()
		}
		return v, nil
	case col.Type == models.TypeBoolean:
		if !tok.Is("true") && !tok.Is("false") {
			return nil, bad()
		}
		return strings.EqualFold(tok.Literal, "true"), nil
	}
	return nil, bad()
}

func (p *ddlParser) parsePrimaryKey() *DDLError {
	start := p.advance() // PRIMARY
	p.advance()          // KEY
	if p.sawKey {
		return p.fail(ReasonSyntax, start, "primary key declared more than once")
	}
	p.sawKey = true
	if !p.match(TokenLParen) {
		return p.fail(ReasonSyntax, p.peek(), "expected '(' after PRIMARY KEY")
	}
	if p.match(TokenRParen) {
		return p.fail(ReasonMissingPrimaryKey, start, "primary key has no fields")
	}

	if p.peek().Is("SHARD") && p.peekAt(1).Type == TokenLParen {
		p.advance()
		p.advance()
		shard, err := p.parseKeyNames()
		if err != nil {
			return err
		}
		if len(shard) == 0 {
			return p.fail(ReasonInvalidShardKey, start, "shard key has no fields")
		}
		p.keyTokens = append(p.keyTokens, shard...)
		for _, tok := range shard {
			p.schema.ShardKey = append(p.schema.ShardKey, tok.Literal)
		}
		if p.match(TokenRParen) {
			return nil
		}
		if !p.match(TokenComma) {
			return p.fail(ReasonInvalidShardKey, p.peek(), "expected ',' or ')' after shard key")
		}
	}
	rest, err := p.parseKeyNames()
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return p.fail(ReasonMissingPrimaryKey, start, "primary key has no fields")
	}
	p.keyTokens = append(p.keyTokens, rest...)
	return nil
}

// parseKeyNames reads identifiers up to and including the closing parenthesis.
func (p *ddlParser) parseKeyNames() ([]Token, *DDLError) {
	var names []Token
	for {
		tok := p.advance()
		if tok.Type != TokenIdentifier {
			return nil, p.fail(ReasonSyntax, tok, "expected a primary key field, got %q", tok.Literal)
		}
		if tok.Is("SHARD") && p.check(TokenLParen) {
			return nil, p.fail(ReasonInvalidShardKey, tok, "SHARD must be the first element of the primary key")
		}
		names = append(names, tok)
		if p.match(TokenRParen) {
			return names, nil
		}
		if !p.match(TokenComma) {
			return nil, p.fail(ReasonSyntax, p.peek(), "expected ',' or ')' in primary key")
		}
	}
}

func (p *ddlParser) parseTableOptions() *DDLError {
	if p.matchKeyword("USING") {
		if !p.matchKeyword("TTL") {
			return p.fail(ReasonSyntax, p.peek(), "expected TTL after USING")
		}
		numTok := p.advance()
		n, err := strconv.Atoi(numTok.Literal)
		if numTok.Type != TokenNumber || err != nil || n < 0 {
			return p.fail(ReasonInvalidTTL, numTok, "%q is not a valid ttl", numTok.Literal)
		}
		unitTok := p.advance()
		switch strings.ToUpper(unitTok.Literal) {
		case "DAYS", "DAY":
			p.schema.TTL = time.Duration(n) * 24 * time.Hour
			p.schema.TTLUnit = "DAYS"
		case "HOURS", "HOUR":
			p.schema.TTL = time.Duration(n) * time.Hour
			p.schema.TTLUnit = "HOURS"
		default:
			return p.fail(ReasonInvalidTTL, unitTok, "ttl unit must be DAYS or HOURS, got %q", unitTok.Literal)
		}
	}
	p.match(TokenSemicolon)
	if !p.isAtEnd() {
		return p.fail(ReasonSyntax, p.peek(), "unexpected %q after table definition", p.peek().Literal)
	}
	return nil
}

func (p *ddlParser) validateKey() *DDLError {
	if !p.sawKey {
		return p.fail(ReasonMissingPrimaryKey, p.prev(), "table %s declares no primary key", p.schema.TableName)
	}
	seen := make(map[string]bool, len(p.keyTokens))
	for _, tok := range p.keyTokens {
		col, ok := p.schema.Column(tok.Literal)
		if !ok {
			return p.fail(ReasonUnknownKeyColumn, tok, "%s", tok.Literal)
		}
		lower := strings.ToLower(col.Name)
		if seen[lower] {
			return p.fail(ReasonDuplicateKeyColumn, tok, "%s", tok.Literal)
		}
		seen[lower] = true
		if col.Type == models.TypeJSON {
			return p.fail(ReasonInvalidKeyType, tok, "JSON field %s cannot be part of the primary key", col.Name)
		}
		col.Nullable = false
		p.schema.PrimaryKey = append(p.schema.PrimaryKey, col.Name)
	}
	if len(p.schema.ShardKey) == 0 {
		p.schema.ShardKey = append([]string(nil), p.schema.PrimaryKey...)
	} else {
		for i := range p.schema.ShardKey {
			p.schema.ShardKey[i] = p.schema.PrimaryKey[i]
		}
	}
	return nil
}

// ParseTimestamp accepts the ISO-8601 forms the SDKs send for TIMESTAMP fields.
func ParseTimestamp(s string) (time.Time, error) {
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
