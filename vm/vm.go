package vm

import (
	"bufio"
	"fmt"
	"go/token"
	"go/types"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rami3l/staticassert/debug"
	e "github.com/rami3l/staticassert/errors"
	"github.com/sirupsen/logrus"
)

type VM struct {
	chunk *Chunk
	ip    int
	stack []Value
	env   Env
}

func NewVM() *VM { return &VM{} }

func (vm *VM) push(val Value) {
	vm.stack = append(vm.stack, val)
}

func (vm *VM) pop() (last Value) {
	len_ := len(vm.stack)
	vm.stack, last = vm.stack[:len_-1], vm.stack[len_-1]
	return
}

// pop2 pops the operands of a binary operation, left first.
func (vm *VM) pop2() (lhs, rhs Value) {
	rhs = vm.pop()
	return vm.pop(), rhs
}

// unsignedBits returns the size in bits of the type of v if it is unsigned,
// otherwise 0.
func (vm *VM) unsignedBits(v Value) uint {
	num, ok := v.(VNum)
	if !ok || basicInfo(num.Type)&types.IsUnsigned == 0 {
		return 0
	}
	return uint(8 * vm.env.Sizes().Sizeof(num.Type.Underlying()))
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[len(vm.stack)-1-distance]
}

// REPL reads lines and evaluates each of them under a shared set of
// bindings. A line starting with '(' is an invocation, a line starting with
// ':' is a command, and anything else is an expression whose value is
// printed.
func (vm *VM) REPL(in io.Reader, out io.Writer, interactive bool) error {
	env := NewBindings(NewUniverse())

	var readLine func() (string, error)
	if interactive {
		reader, err := readline.New(">> ")
		if err != nil {
			return err
		}
		defer reader.Close()
		readLine = reader.Readline
	} else {
		scanner := bufio.NewScanner(in)
		readLine = func() (string, error) {
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return "", err
				}
				return "", io.EOF
			}
			return scanner.Text(), nil
		}
	}

	for {
		line, err := readLine()
		switch err {
		case nil:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
		case readline.ErrInterrupt: // ^C
			continue
		case io.EOF: // ^D
			return nil
		default:
			return err
		}

		switch line[0] {
		case ':':
			if err := env.Command(line, out); err != nil {
				logrus.Error(err)
			}
		case '(':
			if err := vm.Interpret(line, env); err != nil {
				logrus.Error(err)
				continue
			}
			fmt.Fprintln(out, "ok")
		default:
			val, err := vm.EvalString(line, env)
			if err != nil {
				logrus.Error(err)
				continue
			}
			fmt.Fprintln(out, val)
		}
	}
}

func (vm *VM) Interpret(src string, env Env) error {
	inv, err := Parse(src)
	if err != nil {
		return err
	}
	return vm.Run(inv, env)
}

// Run forces the evaluation of the invocation under env. Const parameters
// take their declared types first. It returns an *errors.AssertionError
// carrying the message if the predicate is false.
func (vm *VM) Run(inv *Invocation, env Env) error {
	env, err := TypeConsts(inv, env)
	if err != nil {
		return err
	}
	_, err = vm.Eval(inv.Chunk, env)
	return err
}

// TypeConsts rebinds the bound const parameters of inv to their declared
// types. Unbound ones are left to fail at evaluation.
func TypeConsts(inv *Invocation, env Env) (Env, error) {
	var res *Bindings
	for _, d := range inv.Decls {
		if d.Kind != DeclConst {
			continue
		}
		val, ok := env.Lookup(d.Name.Lexeme)
		if !ok {
			continue
		}
		t, ok := lookupType(d.TypeExpr, env)
		if !ok {
			return nil, &e.EvalError{Line: d.Name.Line, Reason: fmt.Sprintf("undefined type %s", d.TypeExpr)}
		}
		typed, err := Convert(val, t, env.Sizes())
		if err != nil {
			return nil, &e.EvalError{Line: d.Name.Line, Reason: fmt.Sprintf("%s: %s", d.Name, err)}
		}
		if res == nil {
			res = NewBindings(env)
		}
		res.Bind(d.Name.Lexeme, typed)
	}
	if res == nil {
		return env, nil
	}
	return res, nil
}

func lookupType(expr string, env Env) (types.Type, bool) {
	var val Value
	if pkg, name, found := strings.Cut(expr, "."); found {
		val, _ = env.LookupQualified(pkg, name)
	} else {
		val, _ = env.Lookup(expr)
	}
	typ, ok := val.(VType)
	return typ.Type, ok
}

// EvalString evaluates a bare expression.
func (vm *VM) EvalString(src string, env Env) (Value, error) {
	chunk, err := NewParser().ParseExpr(src)
	if err != nil {
		return nil, err
	}
	return vm.Eval(chunk, env)
}

// Eval runs chunk under env and returns the value left on the stack, if any.
func (vm *VM) Eval(chunk *Chunk, env Env) (Value, error) {
	vm.chunk, vm.ip, vm.stack, vm.env = chunk, 0, nil, env
	defer func() { vm.env = nil }()
	return vm.run()
}

var arithOps = map[OpCode]func(v, w Value) (Value, bool){
	OpSub: VSub, OpMul: VMul, OpGreater: VGreater, OpLess: VLess, OpDiv: VDiv, OpRem: VRem,
	OpBitAnd: VBitAnd, OpBitOr: VBitOr, OpXor: VXor,
}

func (vm *VM) run() (Value, error) {
	if vm.chunk == nil {
		return nil, vm.Error("chunk uninitialized")
	}

	readByte := func() (res byte) {
		res = vm.chunk.code[vm.ip]
		vm.ip++
		return
	}
	readShort := func() int {
		hi := readByte()
		return int(hi)<<8 | int(readByte())
	}
	readName := func() string {
		name, _ := vm.chunk.consts[readByte()].(VStr)
		return string(name)
	}

	for {
		if debug.DEBUG {
			logrus.Debugln(vm.stackTrace())
			instDump, _ := vm.chunk.DisassembleInst(vm.ip)
			logrus.Debugln(instDump)
		}
		oldIP := vm.ip
		switch inst := OpCode(readByte()); inst {
		case OpReturn:
			debug.Assertf(len(vm.stack) <= 1, "stack not drained on return: %s", vm.stackTrace())
			if len(vm.stack) == 0 {
				return nil, nil
			}
			return vm.pop(), nil
		case OpAbort:
			msg, ok := vm.pop().(VStr)
			if !ok {
				return nil, vm.Error("assertion message must be a string")
			}
			return nil, &e.AssertionError{Message: string(msg)}
		case OpConst:
			vm.push(vm.chunk.consts[readByte()])
		case OpTrue:
			vm.push(VBool(true))
		case OpFalse:
			vm.push(VBool(false))
		case OpPop:
			vm.pop()
		case OpGetName:
			name := readName()
			val, ok := vm.env.Lookup(name)
			if !ok {
				return nil, vm.Error(fmt.Sprintf("undefined: %s", name))
			}
			vm.push(val)
		case OpGetQualified:
			pkg := readName()
			name := readName()
			val, ok := vm.env.LookupQualified(pkg, name)
			if !ok {
				return nil, vm.Error(fmt.Sprintf("undefined: %s.%s", pkg, name))
			}
			vm.push(val)
		case OpEqual:
			lhs, rhs, err := vm.coerce(vm.pop2())
			if err != nil {
				return nil, err
			}
			res, ok := VEq(lhs, rhs)
			if !ok {
				return nil, vm.Error(fmt.Sprintf("mismatched types %s and %s", kindOf(lhs), kindOf(rhs)))
			}
			vm.push(res)
		case OpNot:
			res, ok := VNot(vm.pop())
			if !ok {
				return nil, vm.Error("operand of '!' must be a boolean")
			}
			vm.push(res)
		case OpCheckBool:
			if _, ok := vm.peek(0).(VBool); !ok {
				return nil, vm.Error("operands of '&&' and '||' must be booleans")
			}
		case OpNeg, OpBitNot:
			operand := vm.pop()
			var (
				res Value
				ok  bool
			)
			if inst == OpNeg {
				res, ok = VNeg(operand)
			} else {
				res, ok = VBitNot(operand, vm.unsignedBits(operand))
			}
			if !ok {
				return nil, vm.Error("operand must be a number")
			}
			if err := vm.fit(res); err != nil {
				return nil, err
			}
			vm.push(res)
		case OpAdd, OpSub, OpMul, OpGreater, OpLess, OpDiv, OpRem, OpBitAnd, OpBitOr, OpXor:
			lhs, rhs, err := vm.coerce(vm.pop2())
			if err != nil {
				return nil, err
			}
			if (inst == OpDiv || inst == OpRem) && VIsZero(rhs) {
				return nil, vm.Error("division by zero")
			}
			op, reason := arithOps[inst], "operands must be numbers of the same type"
			switch inst {
			case OpAdd:
				op, reason = VAdd, "operands must be all numbers or all strings of the same type"
			case OpRem, OpBitAnd, OpBitOr, OpXor:
				reason = "operands must be integers of the same type"
			}
			res, ok := op(lhs, rhs)
			if !ok {
				return nil, vm.Error(fmt.Sprintf("%s, got %s and %s", reason, kindOf(lhs), kindOf(rhs)))
			}
			if err := vm.fit(res); err != nil {
				return nil, err
			}
			vm.push(res)
		case OpShl, OpShr:
			op := token.SHL
			if inst == OpShr {
				op = token.SHR
			}
			rhs := vm.pop()
			res, ok := VShift(vm.pop(), rhs, op)
			if !ok {
				return nil, vm.Error("shifted operand must be an integer and shift count a non-negative integer")
			}
			if err := vm.fit(res); err != nil {
				return nil, err
			}
			vm.push(res)
		case OpSizeof, OpAlignof:
			fn := "sizeof"
			if inst == OpAlignof {
				fn = "alignof"
			}
			typ, ok := vm.pop().(VType)
			if !ok {
				return nil, vm.Error(fmt.Sprintf("%s expects a type", fn))
			}
			if isParam(typ.Type) {
				return nil, vm.Error(fmt.Sprintf("%s of type parameter %s is not a constant", fn, typ))
			}
			size := vm.env.Sizes().Sizeof(typ.Type)
			if inst == OpAlignof {
				size = vm.env.Sizes().Alignof(typ.Type)
			}
			vm.push(NewVInt(size))
		case OpLen:
			s, ok := vm.pop().(VStr)
			if !ok {
				return nil, vm.Error("len expects a string")
			}
			vm.push(NewVInt(int64(len(s))))
		case OpJump:
			jump := readShort()
			vm.ip += jump
		case OpJumpIfFalse:
			jump := readShort()
			cond, ok := vm.peek(0).(VBool)
			if !ok {
				return nil, vm.Error(fmt.Sprintf("condition must be a boolean, got %s", kindOf(vm.peek(0))))
			}
			if !cond {
				vm.ip += jump
			}
		default:
			return nil, &e.EvalError{
				Line:   vm.chunk.lines[oldIP],
				Reason: fmt.Sprintf("unknown instruction '%d'", inst),
			}
		}
	}
}

// coerce converts an untyped numeric operand to the type of the other one,
// as Go does for binary operations on constants.
func (vm *VM) coerce(lhs, rhs Value) (Value, Value, error) {
	x, isNum := lhs.(VNum)
	y, isNum2 := rhs.(VNum)
	if !isNum || !isNum2 || (x.Type == nil) == (y.Type == nil) {
		return lhs, rhs, nil
	}
	var err error
	if x.Type == nil {
		lhs, err = Convert(x, y.Type, vm.env.Sizes())
	} else {
		rhs, err = Convert(y, x.Type, vm.env.Sizes())
	}
	if err != nil {
		return nil, nil, vm.Error(err.Error())
	}
	return lhs, rhs, nil
}

// fit checks that a typed result is representable by its type.
func (vm *VM) fit(res Value) error {
	if num, ok := res.(VNum); ok && num.Type != nil {
		if _, err := Convert(VNum{Value: num.Value}, num.Type, vm.env.Sizes()); err != nil {
			return vm.Error(err.Error())
		}
	}
	return nil
}

// isParam reports whether t is a bare type parameter.
func isParam(t types.Type) bool {
	_, ok := t.(*types.TypeParam)
	return ok
}

func (vm *VM) Error(reason string) *e.EvalError {
	err := &e.EvalError{Reason: reason}
	if vm.chunk != nil && vm.ip > 0 {
		err.Line = vm.chunk.lines[vm.ip-1]
	}
	return err
}

func (vm *VM) stackTrace() string {
	res := "          "
	for _, slot := range vm.stack {
		res += fmt.Sprintf("[ %s ]", slot)
	}
	return res
}
