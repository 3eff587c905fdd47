package expand

import (
	"fmt"
	"go/constant"
	"go/types"
	"strings"

	"github.com/rami3l/staticassert/vm"
)

// render translates invocation tokens into a Go constant expression. Every
// name is folded to a literal or to a type qualified for g.pkg. Typed
// constants keep their type through a conversion, and sizeof and alignof
// take the type of the typed operands, or int64 if there are none.
func (g *generator) render(tks []vm.Token, env vm.Env) (string, error) {
	var (
		parts    []string
		sized    []int
		floating bool
		typed    types.Type
	)
	for i := 0; i < len(tks); i++ {
		tk := tks[i]
		switch tk.Type {
		case vm.TSizeof, vm.TAlignof:
			end := i + 2
			for end < len(tks) && tks[end].Type != vm.TRParen {
				end++
			}
			if end >= len(tks) {
				return "", errSkip("unbalanced " + tk.Lexeme)
			}
			val, err := lookup(tks[i+2:end], env)
			if err != nil {
				return "", err
			}
			typ, ok := val.(vm.VType)
			if !ok {
				return "", errSkip(fmt.Sprintf("%s expects a type", tk.Lexeme))
			}
			t, err := g.typeString(typ.Type)
			if err != nil {
				return "", err
			}
			fn := "Sizeof"
			if tk.Type == vm.TAlignof {
				fn = "Alignof"
			}
			sized = append(sized, len(parts))
			parts = append(parts, fmt.Sprintf("(%s.%s(*new(%s)))", g.use("unsafe", "unsafe"), fn, t))
			i = end
		case vm.TIdent:
			end := i + 1
			if i+2 < len(tks) && tks[i+1].Type == vm.TDot {
				end = i + 3
			}
			val, err := lookup(tks[i:end], env)
			if err != nil {
				return "", err
			}
			lit, isFloat, err := literal(val)
			if err != nil {
				return "", err
			}
			if num, ok := val.(vm.VNum); ok && num.Type != nil {
				if typed != nil && !types.Identical(typed, num.Type) {
					return "", errSkip(fmt.Sprintf("mixed constant types %s and %s", typed, num.Type))
				}
				typed = num.Type
				t, err := g.typeString(num.Type)
				if err != nil {
					return "", err
				}
				lit = fmt.Sprintf("%s(%s)", t, strings.TrimSuffix(strings.TrimPrefix(lit, "("), ")"))
			}
			parts = append(parts, lit)
			floating = floating || isFloat
			i = end - 1
		case vm.TFloat:
			floating = true
			parts = append(parts, tk.Lexeme)
		default:
			parts = append(parts, tk.Lexeme)
		}
	}
	if len(sized) > 0 {
		conv := "int64"
		if typed != nil {
			t, err := g.typeString(typed)
			if err != nil {
				return "", err
			}
			conv = t
		}
		if floating && (typed == nil || isInteger(typed)) {
			// sizeof is typed, so its operands lose untyped float semantics.
			return "", errSkip("sizeof or alignof mixed with floating-point operands")
		}
		for _, i := range sized {
			parts[i] = conv + parts[i]
		}
	}
	return strings.Join(parts, " "), nil
}

func isInteger(t types.Type) bool {
	basic, ok := t.Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsInteger != 0
}

// lookup resolves `name` or `pkg.name`.
func lookup(tks []vm.Token, env vm.Env) (val vm.Value, err error) {
	var ok bool
	switch len(tks) {
	case 1:
		val, ok = env.Lookup(tks[0].Lexeme)
	case 3:
		val, ok = env.LookupQualified(tks[0].Lexeme, tks[2].Lexeme)
	}
	if !ok {
		var names []string
		for _, tk := range tks {
			names = append(names, tk.Lexeme)
		}
		return nil, errSkip("undefined: " + strings.Join(names, ""))
	}
	return
}

func literal(val vm.Value) (lit string, isFloat bool, err error) {
	switch val := val.(type) {
	case vm.VBool:
		return val.String(), false, nil
	case vm.VStr:
		return val.String(), false, nil
	case vm.VNum:
		if val.IsInt() {
			if constant.Sign(val.Value) < 0 {
				return "(" + val.ExactString() + ")", false, nil
			}
			return val.ExactString(), false, nil
		}
		num, den := constant.Num(val.Value), constant.Denom(val.Value)
		if num.Kind() == constant.Unknown || den.Kind() == constant.Unknown {
			return "", true, errSkip("float constant out of range: " + val.String())
		}
		return fmt.Sprintf("(%s.0 / %s)", num.ExactString(), den.ExactString()), true, nil
	case vm.VType:
		return "", false, errSkip(fmt.Sprintf("type %s used outside sizeof or alignof", val))
	}
	return "", false, errSkip(fmt.Sprintf("unsupported value %v", val))
}

// typeString renders t for g.pkg, failing on types that cannot be named
// from there.
func (g *generator) typeString(t types.Type) (string, error) {
	if err := g.nameable(t); err != nil {
		return "", err
	}
	return types.TypeString(t, g.qualifier), nil
}

func (g *generator) nameable(t types.Type) error {
	switch t := t.(type) {
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() != nil {
			if obj.Parent() != obj.Pkg().Scope() {
				return errSkip(fmt.Sprintf("local type %s", obj.Name()))
			}
			if obj.Pkg() != g.pkg && !obj.Exported() {
				return errSkip(fmt.Sprintf("unexported type %s.%s", obj.Pkg().Name(), obj.Name()))
			}
		}
		for i := 0; i < t.TypeArgs().Len(); i++ {
			if err := g.nameable(t.TypeArgs().At(i)); err != nil {
				return err
			}
		}
	case *types.Pointer:
		return g.nameable(t.Elem())
	case *types.Slice:
		return g.nameable(t.Elem())
	case *types.Array:
		return g.nameable(t.Elem())
	case *types.Chan:
		return g.nameable(t.Elem())
	case *types.Map:
		if err := g.nameable(t.Key()); err != nil {
			return err
		}
		return g.nameable(t.Elem())
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			if err := g.nameable(t.Field(i).Type()); err != nil {
				return err
			}
		}
	case *types.Signature:
		for _, tuple := range []*types.Tuple{t.Params(), t.Results()} {
			for i := 0; i < tuple.Len(); i++ {
				if err := g.nameable(tuple.At(i).Type()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
