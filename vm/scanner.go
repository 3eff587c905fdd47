package vm

import "github.com/josharian/intern"

type Scanner struct {
	start, curr, line, lineStart int
	// Position of the token being scanned.
	startLine, startCol int
	src                 []rune
}

func NewScanner(src string) *Scanner {
	return &Scanner{src: []rune(src), line: 1}
}

func (s *Scanner) ScanToken() Token {
	s.skipWhitespace()
	s.start = s.curr
	s.startLine, s.startCol = s.line, s.curr-s.lineStart+1
	if s.isAtEnd() {
		return s.makeToken(TEOF)
	}

	c := s.advance()
	switch {
	case isDigit(c): // Number literal.
		return s.number(c)

	case isAlpha(c): // Identifier.
		for isAlpha(s.peek()) || isDigit(s.peek()) {
			s.advance()
		}
		return s.makeToken(s.identType())
	}

	switch c {
	case '(':
		return s.makeToken(TLParen)
	case ')':
		return s.makeToken(TRParen)
	case ',':
		return s.makeToken(TComma)
	case '.':
		if isDigit(s.peek()) {
			return s.number(c)
		}
		return s.makeToken(TDot)
	case ':':
		return s.makeToken(TColon)
	case '?':
		return s.makeToken(TQuestion)
	case '-':
		return s.makeToken(TMinus)
	case '+':
		return s.makeToken(TPlus)
	case '/':
		return s.makeToken(TSlash)
	case '*':
		return s.makeToken(TStar)
	case '%':
		return s.makeToken(TPercent)
	case '^':
		return s.makeToken(TCaret)

	case '&':
		if s.match('&') {
			return s.makeToken(TAmpAmp)
		}
		return s.makeToken(TAmp)

	case '|':
		if s.match('|') {
			return s.makeToken(TPipePipe)
		}
		return s.makeToken(TPipe)

	case '!':
		if s.match('=') {
			return s.makeToken(TBangEqual)
		}
		return s.makeToken(TBang)

	case '=':
		switch {
		case s.match('='):
			return s.makeToken(TEqualEqual)
		case s.match('>'):
			return s.makeToken(TArrow)
		}
		return s.errorToken("unexpected '=', did you mean '=='?")

	case '<':
		switch {
		case s.match('='):
			return s.makeToken(TLessEqual)
		case s.match('<'):
			return s.makeToken(TShl)
		}
		return s.makeToken(TLess)

	case '>':
		switch {
		case s.match('='):
			return s.makeToken(TGreaterEqual)
		case s.match('>'):
			return s.makeToken(TShr)
		}
		return s.makeToken(TGreater)

	case '"': // Interpreted string literal.
		for {
			switch s.peek() {
			case '\n':
				return s.errorToken("newline in string")
			case '\\':
				s.advance()
				if !s.isAtEnd() {
					s.advance()
				}
			case '"':
				// Consume the closing quote.
				s.advance()
				return s.makeToken(TStr)
			default:
				if s.isAtEnd() {
					return s.errorToken("unterminated string")
				}
				s.advance()
			}
		}

	case '`': // Raw string literal.
		for s.peek() != '`' {
			if s.isAtEnd() {
				return s.errorToken("unterminated raw string")
			}
			if s.advance() == '\n' {
				s.newline()
			}
		}
		s.advance()
		return s.makeToken(TStr)
	}

	return s.errorToken("unexpected character")
}

// number consumes a Go-style numeric literal whose first rune is c.
// The literal itself is validated later by go/constant.
func (s *Scanner) number(c rune) Token {
	ty := TInt
	if c == '.' {
		ty = TFloat
	}
	if c == '0' {
		switch s.peek() {
		case 'x', 'X':
			s.advance()
			return s.hexNumber()
		case 'b', 'B', 'o', 'O':
			s.advance()
			for isDigit(s.peek()) || s.peek() == '_' {
				s.advance()
			}
			return s.makeToken(TInt)
		}
	}

	// Consume the integral part.
	for isDigit(s.peek()) || s.peek() == '_' {
		s.advance()
	}

	// Consume the fractional part if it exists.
	if ty == TInt && s.peek() == '.' && isDigit(s.peekNext()) {
		ty = TFloat
		s.advance()
		for isDigit(s.peek()) || s.peek() == '_' {
			s.advance()
		}
	}

	// Consume the exponent if it exists.
	if s.peek() == 'e' || s.peek() == 'E' {
		ty = TFloat
		s.advance()
		if s.peek() == '+' || s.peek() == '-' {
			s.advance()
		}
		if !isDigit(s.peek()) {
			return s.errorToken("exponent has no digits")
		}
		for isDigit(s.peek()) {
			s.advance()
		}
	}

	return s.makeToken(ty)
}

// hexNumber consumes the rest of a literal after its 0x prefix, including
// hexadecimal floats such as 0x1.8p-2.
func (s *Scanner) hexNumber() Token {
	ty := TInt
	for isHexDigit(s.peek()) || s.peek() == '_' {
		s.advance()
	}
	if s.peek() == '.' {
		ty = TFloat
		s.advance()
		for isHexDigit(s.peek()) || s.peek() == '_' {
			s.advance()
		}
	}
	if s.peek() != 'p' && s.peek() != 'P' {
		if ty == TFloat {
			return s.errorToken("hexadecimal mantissa requires a 'p' exponent")
		}
		return s.makeToken(ty)
	}
	s.advance()
	if s.peek() == '+' || s.peek() == '-' {
		s.advance()
	}
	if !isDigit(s.peek()) {
		return s.errorToken("exponent has no digits")
	}
	for isDigit(s.peek()) {
		s.advance()
	}
	return s.makeToken(TFloat)
}

// skipWhitespace makes the Scanner skip consecutive whitespaces and comments.
func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case '\n':
			s.advance()
			s.newline()

		case ' ', '\r', '\t':
			s.advance()

		case '/': // Skip comments.
			if s.peekNext() != '/' {
				return
			}
			// Skip until the end of the line.
			for s.peek() != '\n' && !s.isAtEnd() {
				s.advance()
			}

		default:
			return
		}
	}
}

func (s *Scanner) newline() {
	s.line++
	s.lineStart = s.curr
}

func (s *Scanner) advance() (res rune) {
	res = s.src[s.curr]
	s.curr++
	return
}

func (s *Scanner) peek() (res rune) {
	if s.isAtEnd() {
		return
	}
	return s.src[s.curr]
}

func (s *Scanner) peekNext() (res rune) {
	if s.isAtEnd() || s.curr+1 >= len(s.src) {
		return
	}
	return s.src[s.curr+1]
}

func (s *Scanner) match(expected rune) bool {
	if c := s.peek(); c == 0 /* isAtEnd */ || c != expected {
		return false
	}
	s.curr++
	return true
}

func (s *Scanner) isAtEnd() bool { return s.curr >= len(s.src) }

func (s *Scanner) makeToken(ty TokenType) Token {
	lexeme := string(s.src[s.start:s.curr])
	if ty == TIdent {
		lexeme = intern.String(lexeme)
	}
	return Token{
		Type:   ty,
		Lexeme: lexeme,
		Offset: s.start,
		Line:   s.startLine,
		Col:    s.startCol,
	}
}

func (s *Scanner) errorToken(reason string) Token {
	tk := s.makeToken(TErr)
	tk.Error = &reason
	return tk
}

func (s *Scanner) identType() TokenType {
	if ty, ok := keywords[string(s.src[s.start:s.curr])]; ok {
		return ty
	}
	return TIdent
}

var keywords = map[string]TokenType{
	"alignof": TAlignof,
	"const":   TConst,
	"false":   TFalse,
	"len":     TLen,
	"sizeof":  TSizeof,
	"true":    TTrue,
}

func isDigit(c rune) bool    { return '0' <= c && c <= '9' }
func isHexDigit(c rune) bool { return isDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' }
func isAlpha(c rune) bool    { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_' }

type Token struct {
	Type              TokenType
	Lexeme            string
	Offset, Line, Col int

	// Error message for TErr.
	Error *string
}

func (tk Token) String() string { return tk.Lexeme }

func (tk Token) Eq(other Token) bool { return tk.Type == other.Type && tk.Lexeme == other.Lexeme }

//go:generate stringer -type=TokenType

type TokenType int

const (
	TLParen TokenType = iota
	TRParen
	TComma
	TDot
	TColon
	TQuestion
	TArrow
	TMinus
	TPlus
	TSlash
	TStar
	TPercent
	TCaret
	TAmp
	TAmpAmp
	TPipe
	TPipePipe
	TShl
	TShr
	TBang
	TBangEqual
	TEqualEqual
	TGreater
	TGreaterEqual
	TLess
	TLessEqual
	TIdent
	TStr
	TInt
	TFloat
	TAlignof
	TConst
	TFalse
	TLen
	TSizeof
	TTrue
	TErr
	TEOF
)
