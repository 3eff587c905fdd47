package vm

import (
	"fmt"
	"go/constant"
	"go/token"
	"math"
	"strconv"

	"github.com/rami3l/staticassert/debug"
	e "github.com/rami3l/staticassert/errors"
	"github.com/sirupsen/logrus"
)

/* Single-pass compilation */

func (p *Parser) emitConst(val Value) { p.emitBytes(byte(OpConst), p.makeConst(val)) }

func (p *Parser) makeConst(val Value) byte {
	const_ := p.currentChunk().AddConst(val)
	if const_ > math.MaxUint8 {
		logrus.Panicln("too many consts in one chunk")
	}
	return byte(const_)
}

func (p *Parser) num() {
	kind := token.INT
	if p.prev.Type == TFloat {
		kind = token.FLOAT
	}
	val := constant.MakeFromLiteral(p.prev.Lexeme, kind, 0)
	if val.Kind() == constant.Unknown {
		p.Error("malformed number literal")
		return
	}
	p.emitConst(VNum{Value: val})
}

func (p *Parser) grouping() {
	p.expr()
	p.consume(TRParen, "expect ')' after expression")
}

func (p *Parser) lit() {
	switch p.prev.Type {
	case TFalse:
		p.emitBytes(byte(OpFalse))
	case TTrue:
		p.emitBytes(byte(OpTrue))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) str() {
	unquoted, err := strconv.Unquote(p.prev.Lexeme)
	if err != nil {
		p.Error("malformed string literal")
		return
	}
	p.emitConst(VStr(unquoted))
}

// name compiles an identifier or a qualified `pkg.Name`.
func (p *Parser) name() {
	first := p.prev
	if p.match(TDot) {
		second, ok := p.consume(TIdent, "expect name after '.'")
		if !ok {
			return
		}
		p.inv.Refs = append(p.inv.Refs, Ref{Pkg: first.Lexeme, Name: second})
		p.emitBytes(byte(OpGetQualified), p.makeConst(VStr(first.Lexeme)), p.makeConst(VStr(second.Lexeme)))
		return
	}
	if _, declared := p.inv.Decl(first.Lexeme); !declared {
		p.inv.Refs = append(p.inv.Refs, Ref{Name: first})
	}
	p.emitBytes(byte(OpGetName), p.makeConst(VStr(first.Lexeme)))
}

func (p *Parser) builtin() {
	fn := p.prev
	p.consume(TLParen, fmt.Sprintf("expect '(' after %s", fn))

	switch fn.Type {
	case TSizeof, TAlignof:
		p.typeOperand(fn)
		op := OpSizeof
		if fn.Type == TAlignof {
			op = OpAlignof
		}
		p.consume(TRParen, fmt.Sprintf("expect ')' after %s operand", fn))
		p.emitBytes(byte(op))
	case TLen:
		p.expr()
		p.consume(TRParen, "expect ')' after len operand")
		p.emitBytes(byte(OpLen))
	default:
		panic(e.Unreachable)
	}
}

// typeOperand compiles the operand of sizeof or alignof. A declared
// unsized-allowed type has no statically known size.
func (p *Parser) typeOperand(fn Token) {
	if _, ok := p.consume(TIdent, fmt.Sprintf("expect type operand for %s", fn)); !ok {
		return
	}
	if !p.check(TDot) {
		if d, declared := p.inv.Decl(p.prev.Lexeme); declared {
			switch d.Kind {
			case DeclUnsizedType:
				p.Error(fmt.Sprintf(
					"%[1]s requires a sized type, but %[2]s is declared %[2]s?; drop the '?' to use %[1]s", fn, d.Name,
				))
				return
			case DeclConst:
				p.Error(fmt.Sprintf("%s expects a type, but %s is a const parameter", fn, d.Name))
				return
			}
		}
	}
	p.name()
}

func (p *Parser) unary() {
	op := p.prev.Type

	// Compile the RHS.
	p.parsePrec(PrecUnary)

	// Emit the operator instruction.
	switch op {
	case TBang:
		p.emitBytes(byte(OpNot))
	case TMinus:
		p.emitBytes(byte(OpNeg))
	case TPlus:
		// Unary plus is the identity on numbers.
		p.emitBytes(byte(OpNeg), byte(OpNeg))
	case TCaret:
		p.emitBytes(byte(OpBitNot))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) binary() {
	op := p.prev.Type
	rule := parseRules[op]

	// Compile the RHS.
	p.parsePrec(rule.Prec + 1)

	// Emit the operator instruction.
	switch op {
	case TBangEqual:
		p.emitBytes(byte(OpEqual), byte(OpNot))
	case TEqualEqual:
		p.emitBytes(byte(OpEqual))
	case TGreater:
		p.emitBytes(byte(OpGreater))
	case TGreaterEqual:
		p.emitBytes(byte(OpLess), byte(OpNot))
	case TLess:
		p.emitBytes(byte(OpLess))
	case TLessEqual:
		p.emitBytes(byte(OpGreater), byte(OpNot))
	case TPlus:
		p.emitBytes(byte(OpAdd))
	case TMinus:
		p.emitBytes(byte(OpSub))
	case TStar:
		p.emitBytes(byte(OpMul))
	case TSlash:
		p.emitBytes(byte(OpDiv))
	case TPercent:
		p.emitBytes(byte(OpRem))
	case TAmp:
		p.emitBytes(byte(OpBitAnd))
	case TPipe:
		p.emitBytes(byte(OpBitOr))
	case TCaret:
		p.emitBytes(byte(OpXor))
	case TShl:
		p.emitBytes(byte(OpShl))
	case TShr:
		p.emitBytes(byte(OpShr))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) and() {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emitBytes(byte(OpPop))
	p.parsePrec(PrecAnd + 1)
	p.emitBytes(byte(OpCheckBool))
	p.patchJump(endJump)
}

func (p *Parser) or() {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emitBytes(byte(OpPop))
	p.parsePrec(PrecOr + 1)
	p.emitBytes(byte(OpCheckBool))
	p.patchJump(endJump)
}

func (p *Parser) expr() { p.parsePrec(PrecOr) }

// emitAssert turns the predicate on top of the stack into a conditional
// abort: the code following it computes the message and aborts.
func (p *Parser) emitAssert() {
	failJump := p.emitJump(OpJumpIfFalse)
	p.emitBytes(byte(OpPop), byte(OpReturn))
	p.patchJump(failJump)
	p.emitBytes(byte(OpPop))
}

func (p *Parser) emitJump(inst OpCode) (offset int) {
	p.emitBytes(byte(inst), 0xff, 0xff)
	return p.currentChunk().Len() - 2
}

func (p *Parser) patchJump(offset int) {
	// -2 to adjust for the bytecode for the jump offset itself.
	jump := p.currentChunk().Len() - offset - 2
	debug.AssertEq(byte(0xff), p.currentChunk().code[offset])
	if jump > math.MaxUint16 {
		logrus.Panicln("too much code to jump over")
	}
	p.currentChunk().code[offset] = byte(jump >> 8 & 0xff)
	p.currentChunk().code[offset+1] = byte(jump & 0xff)
}

type ParseFn = func(*Parser)

type ParseRule struct {
	Prefix, Infix ParseFn
	Prec
}

var parseRules []ParseRule

func init() {
	parseRules = []ParseRule{
		TLParen:       {(*Parser).grouping, nil, PrecNone},
		TMinus:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		TPlus:         {(*Parser).unary, (*Parser).binary, PrecTerm},
		TPipe:         {nil, (*Parser).binary, PrecTerm},
		TCaret:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		TSlash:        {nil, (*Parser).binary, PrecFactor},
		TStar:         {nil, (*Parser).binary, PrecFactor},
		TPercent:      {nil, (*Parser).binary, PrecFactor},
		TAmp:          {nil, (*Parser).binary, PrecFactor},
		TShl:          {nil, (*Parser).binary, PrecFactor},
		TShr:          {nil, (*Parser).binary, PrecFactor},
		TBang:         {(*Parser).unary, nil, PrecNone},
		TBangEqual:    {nil, (*Parser).binary, PrecComp},
		TEqualEqual:   {nil, (*Parser).binary, PrecComp},
		TGreater:      {nil, (*Parser).binary, PrecComp},
		TGreaterEqual: {nil, (*Parser).binary, PrecComp},
		TLess:         {nil, (*Parser).binary, PrecComp},
		TLessEqual:    {nil, (*Parser).binary, PrecComp},
		TAmpAmp:       {nil, (*Parser).and, PrecAnd},
		TPipePipe:     {nil, (*Parser).or, PrecOr},
		TIdent:        {(*Parser).name, nil, PrecNone},
		TStr:          {(*Parser).str, nil, PrecNone},
		TInt:          {(*Parser).num, nil, PrecNone},
		TFloat:        {(*Parser).num, nil, PrecNone},
		TAlignof:      {(*Parser).builtin, nil, PrecNone},
		TLen:          {(*Parser).builtin, nil, PrecNone},
		TSizeof:       {(*Parser).builtin, nil, PrecNone},
		TFalse:        {(*Parser).lit, nil, PrecNone},
		TTrue:         {(*Parser).lit, nil, PrecNone},
		TEOF:          {},
	}
}

func (p *Parser) parsePrec(prec Prec) {
	p.advance()

	// Parse LHS.
	prefix := parseRules[p.prev.Type].Prefix
	if prefix == nil {
		p.Error("expect expression")
		return
	}
	prefix(p)

	// Parse RHS if there's one maintaining rule.Prec >= prec.
	for {
		rule := parseRules[p.curr.Type]
		if rule.Prec < prec {
			break
		}
		p.advance()
		if rule.Infix == nil {
			panic(e.Unreachable)
		}
		rule.Infix(p)
	}
}

/* Precedence */

//go:generate stringer -type=Prec

// Prec follows the Go operator precedence levels.
type Prec int

const (
	PrecNone   Prec = iota
	PrecOr          // ||
	PrecAnd         // &&
	PrecComp        // == != < <= > >=
	PrecTerm        // + - | ^
	PrecFactor      // * / % << >> &
	PrecUnary       // ! - + ^
	PrecPrimary
)
