package expression

// Parser is a cursor over a lexed token slice shared by the DDL and query parsers.
type Parser struct {
	tokens []Token
	pos    int
	len    int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		pos:    0,
		len:    len(tokens),
	}
}

func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// matchKeyword consumes the next token if it is the given keyword.
func (p *Parser) matchKeyword(keyword string) bool {
	if p.peek().Is(keyword) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(t TokenType) bool {
	if p.isAtEnd() {
		return t == TokenEOF
	}
	return p.peek().Type == t
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.prev()
}

func (p *Parser) isAtEnd() bool {
	return p.pos >= p.len || p.tokens[p.pos].Type == TokenEOF
}

func (p *Parser) peek() Token {
	if p.pos >= p.len {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// peekAt looks n tokens ahead of the cursor without consuming anything.
func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= p.len {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) prev() Token {
	if p.pos == 0 {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos-1]
}
