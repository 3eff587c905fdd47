package vm

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rami3l/staticassert/debug"
	e "github.com/rami3l/staticassert/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMessage is the payload of a failed assertion without `=> message`.
const DefaultMessage = "Static assert failed."

type DeclKind int

const (
	DeclConst DeclKind = iota
	DeclType
	DeclUnsizedType
)

// Decl is one entry of the generic declaration list.
type Decl struct {
	Kind DeclKind
	Name Token
	// Go type syntax of a DeclConst, e.g. `uint8` or `time.Duration`.
	TypeExpr string
}

func (d Decl) String() string {
	switch d.Kind {
	case DeclConst:
		return fmt.Sprintf("%s: %s", d.Name, d.TypeExpr)
	case DeclUnsizedType:
		return d.Name.String() + "?"
	default:
		return d.Name.String()
	}
}

// Ref is an identifier used by the expression but not declared in the list.
// Pkg is non-empty for a qualified `pkg.Name`.
type Ref struct {
	Pkg  string
	Name Token
}

// Invocation is a parsed `(decls) expr [=> message]`.
type Invocation struct {
	Decls []Decl
	Refs  []Ref
	Chunk *Chunk
	// Source tokens of the predicate and of the message, if any.
	Expr, Message []Token
	Src           string
}

func (inv *Invocation) Decl(name string) (Decl, bool) {
	for _, d := range inv.Decls {
		if d.Name.Lexeme == name {
			return d, true
		}
	}
	return Decl{}, false
}

func (inv *Invocation) String() string {
	decls := make([]string, len(inv.Decls))
	for i, d := range inv.Decls {
		decls[i] = d.String()
	}
	return fmt.Sprintf("(%s) %s", strings.Join(decls, ", "), JoinTokens(inv.Expr))
}

// JoinTokens renders tokens back into source text with canonical spacing.
func JoinTokens(tks []Token) string {
	var sb strings.Builder
	for i, tk := range tks {
		if i > 0 && spaced(tks, i) {
			sb.WriteByte(' ')
		}
		sb.WriteString(tk.Lexeme)
	}
	return sb.String()
}

// spaced reports whether a space goes between tks[i-1] and tks[i].
func spaced(tks []Token, i int) bool {
	prev, tk := tks[i-1], tks[i]
	switch {
	case prev.Type == TDot || tk.Type == TDot:
		return false
	case prev.Type == TLParen || tk.Type == TRParen || tk.Type == TComma:
		return false
	case isUnaryOp(tks, i-1):
		return false
	case tk.Type == TLParen:
		return !isCallee(prev)
	}
	return true
}

func isCallee(tk Token) bool {
	switch tk.Type {
	case TSizeof, TAlignof, TLen, TIdent:
		return true
	}
	return false
}

func isOperand(tk Token) bool {
	switch tk.Type {
	case TIdent, TStr, TInt, TFloat, TTrue, TFalse, TRParen:
		return true
	}
	return false
}

// isUnaryOp reports whether tks[i] is a prefix operator.
func isUnaryOp(tks []Token, i int) bool {
	switch tks[i].Type {
	case TMinus, TPlus, TBang, TCaret:
		return i == 0 || !isOperand(tks[i-1])
	}
	return false
}

type Parser struct {
	*Scanner
	prev, curr     Token
	compilingChunk *Chunk

	inv *Invocation
	// Every token advanced past, in order.
	consumed []Token
	started  bool

	errors *multierror.Error
	// Whether the parser is trying to sync, i.e. in the error recovery process.
	panicMode bool
}

func NewParser() *Parser { return &Parser{} }

// Parse parses and compiles an invocation.
func Parse(src string) (*Invocation, error) { return NewParser().Parse(src) }

func (p *Parser) Parse(src string) (inv *Invocation, err error) {
	inv = p.begin(src)
	defer p.end()

	p.advance()
	p.declList()

	start := len(p.consumed)
	p.expr()
	inv.Expr = p.recorded(start)
	p.emitAssert()

	if p.match(TArrow) {
		start := len(p.consumed)
		p.expr()
		inv.Message = p.recorded(start)
		if len(inv.Message) == 0 {
			p.ErrorAtCurr("expect message after '=>'")
		}
	} else {
		p.emitConst(VStr(DefaultMessage))
	}
	p.emitBytes(byte(OpAbort))
	p.consume(TEOF, "expect end of invocation")

	p.endCompiler()
	err = p.errors.ErrorOrNil()
	return
}

// ParseExpr compiles a bare expression whose value is left on the stack.
// Every identifier in it is free.
func (p *Parser) ParseExpr(src string) (*Chunk, error) {
	inv := p.begin(src)
	defer p.end()

	p.advance()
	p.expr()
	p.emitBytes(byte(OpReturn))
	p.consume(TEOF, "expect end of expression")

	p.endCompiler()
	return inv.Chunk, p.errors.ErrorOrNil()
}

func (p *Parser) begin(src string) *Invocation {
	inv := &Invocation{Chunk: NewChunk(), Src: src}
	p.inv, p.compilingChunk = inv, inv.Chunk
	p.consumed, p.started, p.errors, p.panicMode = nil, false, nil, false
	p.Scanner = NewScanner(src)
	return inv
}

func (p *Parser) end() { p.inv, p.compilingChunk = nil, nil }

func (p *Parser) recorded(start int) []Token {
	return append([]Token(nil), p.consumed[start:]...)
}

/* Generic declarations */

func (p *Parser) declList() {
	p.consume(TLParen, "expect '(' before generic declarations")
	for !p.check(TRParen) && !p.check(TEOF) {
		p.decl()
		if p.panicMode {
			p.sync()
		}
		if !p.match(TComma) {
			break
		}
	}
	p.consume(TRParen, "expect ')' after generic declarations")
}

func (p *Parser) decl() {
	if p.match(TConst) {
		p.Error("expect identifier, got keyword `const`; a const parameter is written `N: type`, without `const`")
		return
	}
	name, ok := p.consume(TIdent, "expect generic parameter name")
	if !ok {
		return
	}
	if _, dup := p.inv.Decl(name.Lexeme); dup {
		p.Error(fmt.Sprintf("generic parameter %s is declared twice", name))
	}

	d := Decl{Kind: DeclType, Name: name}
	switch {
	case p.match(TColon):
		if p.check(TQuestion) {
			p.ErrorAtCurr(fmt.Sprintf(
				"to allow %[1]s to be an interface type write %[1]s? instead of %[1]s: ?Sized", name,
			))
			return
		}
		d.Kind, d.TypeExpr = DeclConst, p.typeExpr()
	case p.match(TQuestion):
		d.Kind = DeclUnsizedType
	}
	p.inv.Decls = append(p.inv.Decls, d)
}

func (p *Parser) typeExpr() string {
	first, ok := p.consume(TIdent, "expect type after ':'")
	if !ok {
		return ""
	}
	if !p.match(TDot) {
		return first.Lexeme
	}
	second, ok := p.consume(TIdent, "expect type name after '.'")
	if !ok {
		return ""
	}
	return first.Lexeme + "." + second.Lexeme
}

/* Parsing helpers */

func (p *Parser) check(ty TokenType) bool     { return p.curr.Type == ty }
func (p *Parser) checkPrev(ty TokenType) bool { return p.prev.Type == ty }

func (p *Parser) advance() {
	if p.started {
		p.consumed = append(p.consumed, p.curr)
	}
	p.started = true
	p.prev = p.curr
	for {
		// Skip until the first non-TErr token.
		if p.curr = p.ScanToken(); !p.check(TErr) {
			break
		}
		p.ErrorAt(p.curr, *p.curr.Error)
	}
}

func (p *Parser) match(ty TokenType) (matched bool) {
	if !p.check(ty) {
		return false
	}
	p.advance()
	return true
}

// consume advances past a token of type ty and returns a copy of it.
func (p *Parser) consume(ty TokenType, errorMsg string) (tk Token, ok bool) {
	if !p.check(ty) {
		p.ErrorAtCurr(errorMsg)
		return Token{}, false
	}
	p.advance()
	return p.prev, true
}

/* Compiling helpers */

func (p *Parser) currentChunk() *Chunk { return p.compilingChunk }

func (p *Parser) emitBytes(bs ...byte) {
	for _, b := range bs {
		p.currentChunk().Write(b, p.prev.Line)
	}
}

func (p *Parser) endCompiler() {
	if debug.DEBUG {
		logrus.Debugln(p.currentChunk().Disassemble("endCompiler"))
	}
}

/* Error handling */

// sync skips to the next generic declaration.
func (p *Parser) sync() {
	p.panicMode = false
	for !p.check(TEOF) && !p.check(TComma) && !p.check(TRParen) {
		p.advance()
	}
}

func (p *Parser) ErrorAt(tk Token, reason string) {
	// Don't collect error when we're syncing.
	if p.panicMode {
		return
	}
	p.panicMode = true

	var tkStr string
	switch tk.Type {
	case TEOF:
		tkStr = "end of invocation"
	case TErr:
		tkStr = fmt.Sprintf("`%v`", tk)
	case TIdent:
		tkStr = fmt.Sprintf("identifier `%v`", tk)
	default:
		tkStr = fmt.Sprintf("`%v`", tk)
	}
	reason1 := fmt.Sprintf("at %s, %s", tkStr, reason)
	err := &e.SyntaxError{Line: tk.Line, Col: tk.Col, Reason: reason1}

	if debug.DEBUG {
		logrus.Debugln(err)
	}

	p.errors = multierror.Append(p.errors, err)
}

func (p *Parser) Error(reason string)       { p.ErrorAt(p.prev, reason) }
func (p *Parser) ErrorAtCurr(reason string) { p.ErrorAt(p.curr, reason) }
func (p *Parser) HadError() bool            { return p.errors != nil }
