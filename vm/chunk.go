package vm

import "fmt"

//go:generate stringer -type=OpCode

type OpCode byte

const (
	OpReturn OpCode = iota
	OpAbort
	OpConst
	OpTrue
	OpFalse
	OpPop
	OpGetName
	OpGetQualified
	OpEqual
	OpGreater
	OpLess
	OpNot
	OpNeg
	OpBitNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpBitAnd
	OpBitOr
	OpXor
	OpShl
	OpShr
	OpSizeof
	OpAlignof
	OpLen
	OpJump
	OpJumpIfFalse
	OpCheckBool
)

type Chunk struct {
	code []byte
	// Contract: len(lines) == len(code)
	lines  []int
	consts []Value
}

func NewChunk() *Chunk { return &Chunk{} }

func (c *Chunk) Write(b byte, line int) {
	c.code = append(c.code, b)
	c.lines = append(c.lines, line)
}

func (c *Chunk) AddConst(const_ Value) (idx int) {
	idx = len(c.consts)
	c.consts = append(c.consts, const_)
	return
}

func (c *Chunk) Len() int { return len(c.code) }

func (c *Chunk) DisassembleInst(offset int) (res string, newOffset int) {
	sprintf := func(format string, a ...any) { res += fmt.Sprintf(format, a...) }

	sprintf("%04d ", offset)
	if offset > 0 && c.lines[offset] == c.lines[offset-1] {
		sprintf("   | ")
	} else {
		sprintf("%4d ", c.lines[offset])
	}

	switch inst := OpCode(c.code[offset]); inst {
	// Unary operators.
	case OpConst, OpGetName:
		const_ := c.code[offset+1]
		sprintf("%-16s %4d '%s'", inst, const_, c.consts[const_])
		return res, offset + 2
	// Binary operators.
	case OpGetQualified:
		pkg, name := c.code[offset+1], c.code[offset+2]
		sprintf("%-16s %4d %4d '%s.%s'", inst, pkg, name, c.consts[pkg], c.consts[name])
		return res, offset + 3
	// Jumps.
	case OpJump, OpJumpIfFalse:
		jump := int(c.code[offset+1])<<8 | int(c.code[offset+2])
		sprintf("%-16s %4d -> %d", inst, offset, offset+3+jump)
		return res, offset + 3
	// Nullary operators.
	default:
		sprintf("%s", inst)
		return res, offset + 1
	}
}

func (c *Chunk) Disassemble(name string) (res string) {
	res = fmt.Sprintf("== %s ==\n", name)
	for i := 0; i < len(c.code); {
		var delta string
		delta, i = c.DisassembleInst(i)
		res += delta + "\n"
	}
	return res
}
