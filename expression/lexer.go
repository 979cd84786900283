package expression

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	// Identifiers and Literals
	TokenIdentifier // words, including keywords; the parsers decide which words are reserved
	TokenString     // 'text' or "text", Literal holds the unquoted value
	TokenNumber     // 12, -3.5, 1e9

	// Operators
	TokenEq  // =
	TokenNE  // <> or !=
	TokenLT  // <
	TokenLTE // <=
	TokenGT  // >
	TokenGTE // >=

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenComma     // ,
	TokenSemicolon // ;
	TokenStar      // *
	TokenDot       // .
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "end of input",
	TokenError:      "error",
	TokenIdentifier: "identifier",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenEq:         "=",
	TokenNE:         "<>",
	TokenLT:         "<",
	TokenLTE:        "<=",
	TokenGT:         ">",
	TokenGTE:        ">=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenStar:       "*",
	TokenDot:        ".",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q)", t.Type, t.Literal)
}

// Is reports whether the token is the given keyword, compared case-insensitively.
func (t Token) Is(keyword string) bool {
	return t.Type == TokenIdentifier && strings.EqualFold(t.Literal, keyword)
}

type Lexer struct {
	input  string
	start  int
	pos    int
	width  int
	tokens []Token
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.run()
	return l
}

// Tokens returns the lexed tokens. The last token is always TokenEOF or TokenError.
func (l *Lexer) Tokens() []Token {
	return l.tokens
}

// Lex tokenizes input and returns an error for the first invalid character or unterminated string.
func Lex(input string) ([]Token, error) {
	tokens := NewLexer(input).Tokens()
	if last := tokens[len(tokens)-1]; last.Type == TokenError {
		return nil, fmt.Errorf("%s at position %d", last.Literal, last.Pos)
	}
	return tokens, nil
}

type stateFn func(*Lexer) stateFn

func (l *Lexer) run() {
	for state := lexText; state != nil; {
		state = state(l)
	}
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return 0 // EOF
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += l.width
	return r
}

func (l *Lexer) backup() {
	l.pos -= l.width
}

func (l *Lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *Lexer) ignore() {
	l.start = l.pos
}

func (l *Lexer) emit(t TokenType) {
	l.tokens = append(l.tokens, Token{Type: t, Literal: l.input[l.start:l.pos], Pos: l.start})
	l.start = l.pos
}

func (l *Lexer) emitLiteral(t TokenType, literal string) {
	l.tokens = append(l.tokens, Token{Type: t, Literal: literal, Pos: l.start})
	l.start = l.pos
}

func (l *Lexer) errorf(format string, args ...any) stateFn {
	l.tokens = append(l.tokens, Token{Type: TokenError, Literal: fmt.Sprintf(format, args...), Pos: l.start})
	return nil
}

func (l *Lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

func (l *Lexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

func lexText(l *Lexer) stateFn {
	for {
		r := l.next()
		switch {
		case r == 0 && l.width == 0:
			l.emit(TokenEOF)
			return nil
		case unicode.IsSpace(r):
			l.ignore()
		case r == '(':
			l.emit(TokenLParen)
		case r == ')':
			l.emit(TokenRParen)
		case r == ',':
			l.emit(TokenComma)
		case r == ';':
			l.emit(TokenSemicolon)
		case r == '*':
			l.emit(TokenStar)
		case r == '=':
			l.emit(TokenEq)
		case r == '!':
			if l.next() != '=' {
				return l.errorf("unexpected character '!'")
			}
			l.emit(TokenNE)
		case r == '<':
			switch l.next() {
			case '=':
				l.emit(TokenLTE)
			case '>':
				l.emit(TokenNE)
			default:
				l.backup()
				l.emit(TokenLT)
			}
		case r == '>':
			if l.next() == '=' {
				l.emit(TokenGTE)
			} else {
				l.backup()
				l.emit(TokenGT)
			}
		case r == '\'' || r == '"':
			return lexString(l, r)
		case r == '-' || r == '+' || unicode.IsDigit(r):
			l.backup()
			return lexNumber
		case r == '.':
			if unicode.IsDigit(l.peek()) {
				l.backup()
				return lexNumber
			}
			l.emit(TokenDot)
		case isIdentStart(r):
			return lexIdentifier
		default:
			return l.errorf("unexpected character %q", r)
		}
	}
}

func lexIdentifier(l *Lexer) stateFn {
	for {
		r := l.next()
		if !isIdentPart(r) {
			l.backup()
			break
		}
	}
	l.emit(TokenIdentifier)
	return lexText
}

func lexNumber(l *Lexer) stateFn {
	l.accept("+-")
	digits := "0123456789"
	l.acceptRun(digits)
	if l.accept(".") {
		l.acceptRun(digits)
	}
	if l.accept("eE") {
		l.accept("+-")
		l.acceptRun(digits)
	}
	lit := l.input[l.start:l.pos]
	if strings.Trim(lit, "+-.eE") == "" {
		return l.errorf("malformed number %q", lit)
	}
	if isIdentPart(l.peek()) {
		return l.errorf("malformed number near %q", lit)
	}
	l.emit(TokenNumber)
	return lexText
}

// lexString scans a quoted literal. The quote character is escaped by doubling it
// or with a backslash.
func lexString(l *Lexer, quote rune) stateFn {
	var sb strings.Builder
	for {
		r := l.next()
		switch {
		case r == 0 && l.width == 0:
			return l.errorf("unterminated string")
		case r == '\\':
			esc := l.next()
			if esc == 0 && l.width == 0 {
				return l.errorf("unterminated string")
			}
			sb.WriteRune(esc)
		case r == quote:
			if l.peek() == quote {
				l.next()
				sb.WriteRune(quote)
				continue
			}
			l.emitLiteral(TokenString, sb.String())
			return lexText
		default:
			sb.WriteRune(r)
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
