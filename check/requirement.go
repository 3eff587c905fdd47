package check

import (
	"fmt"
	"go/constant"
	"go/types"
	"strings"

	"github.com/rami3l/staticassert/utils"
)

// Requirement is an assertion that must hold for every instantiation of the
// object it is attached to. Its arguments are expressed in terms of that
// object's own generics.
type Requirement struct {
	Assertion *Assertion
	// Type arguments by declared name. They may mention the type parameters
	// of the object.
	Types  map[string]types.Type
	Consts map[string]ConstArg
	// Instantiations the requirement was carried through, innermost first.
	Via []string
}

// ConstArg is either a known constant Value or the name of the Param of the
// object it comes from.
type ConstArg struct {
	Value constant.Value
	Param string
}

func (arg ConstArg) String() string {
	if arg.Value != nil {
		return arg.Value.ExactString()
	}
	return "param " + arg.Param
}

func direct(a *Assertion) *Requirement {
	r := &Requirement{
		Assertion: a,
		Types:     make(map[string]types.Type),
		Consts:    make(map[string]ConstArg),
	}
	tparams := make(map[string]*types.TypeParam)
	for _, tp := range TypeParams(a.Owner) {
		tparams[tp.Obj().Name()] = tp
	}
	for _, d := range a.Inv.Decls {
		name := d.Name.Lexeme
		if tp, ok := tparams[name]; ok {
			r.Types[name] = tp
			continue
		}
		r.Consts[name] = ConstArg{Param: name}
	}
	return r
}

// pending reports whether r still depends on the generics of its object.
func (r *Requirement) pending() bool {
	for _, t := range r.Types {
		if mentionsTypeParam(t) {
			return true
		}
	}
	for _, arg := range r.Consts {
		if arg.Value == nil {
			return true
		}
	}
	return false
}

func (r *Requirement) key(obj types.Object) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%p %p", obj, r.Assertion)
	for _, name := range utils.SortedKeys(r.Types) {
		fmt.Fprintf(&sb, " %s=%s", name, types.TypeString(r.Types[name], nil))
	}
	for _, name := range utils.SortedKeys(r.Consts) {
		fmt.Fprintf(&sb, " %s=%s", name, r.Consts[name])
	}
	return sb.String()
}

func walkTypeParams(t types.Type, visit func(*types.TypeParam)) {
	switch t := t.(type) {
	case *types.TypeParam:
		visit(t)
	case *types.Pointer:
		walkTypeParams(t.Elem(), visit)
	case *types.Slice:
		walkTypeParams(t.Elem(), visit)
	case *types.Array:
		walkTypeParams(t.Elem(), visit)
	case *types.Chan:
		walkTypeParams(t.Elem(), visit)
	case *types.Map:
		walkTypeParams(t.Key(), visit)
		walkTypeParams(t.Elem(), visit)
	case *types.Named:
		for i := 0; i < t.TypeArgs().Len(); i++ {
			walkTypeParams(t.TypeArgs().At(i), visit)
		}
	case *types.Tuple:
		for i := 0; i < t.Len(); i++ {
			walkTypeParams(t.At(i).Type(), visit)
		}
	case *types.Signature:
		walkTypeParams(t.Params(), visit)
		walkTypeParams(t.Results(), visit)
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			walkTypeParams(t.Field(i).Type(), visit)
		}
	case *types.Interface:
		for i := 0; i < t.NumExplicitMethods(); i++ {
			walkTypeParams(t.ExplicitMethod(i).Type(), visit)
		}
		for i := 0; i < t.NumEmbeddeds(); i++ {
			walkTypeParams(t.EmbeddedType(i), visit)
		}
	case *types.Union:
		for i := 0; i < t.Len(); i++ {
			walkTypeParams(t.Term(i).Type(), visit)
		}
	}
}

func mentionsTypeParam(t types.Type) (res bool) {
	walkTypeParams(t, func(*types.TypeParam) { res = true })
	return
}

// subst replaces the type parameters in t according to m. It fails on
// function, struct, and interface literals mentioning type parameters.
func subst(t types.Type, m map[*types.TypeParam]types.Type) (types.Type, bool) {
	if !mentionsTypeParam(t) {
		return t, true
	}
	switch t := t.(type) {
	case *types.TypeParam:
		if u, ok := m[t]; ok {
			return u, true
		}
		return t, true
	case *types.Pointer:
		elem, ok := subst(t.Elem(), m)
		return types.NewPointer(elem), ok
	case *types.Slice:
		elem, ok := subst(t.Elem(), m)
		return types.NewSlice(elem), ok
	case *types.Array:
		elem, ok := subst(t.Elem(), m)
		return types.NewArray(elem, t.Len()), ok
	case *types.Chan:
		elem, ok := subst(t.Elem(), m)
		return types.NewChan(t.Dir(), elem), ok
	case *types.Map:
		key, ok := subst(t.Key(), m)
		elem, ok1 := subst(t.Elem(), m)
		return types.NewMap(key, elem), ok && ok1
	case *types.Named:
		args := make([]types.Type, t.TypeArgs().Len())
		for i := range args {
			arg, ok := subst(t.TypeArgs().At(i), m)
			if !ok {
				return t, false
			}
			args[i] = arg
		}
		res, err := types.Instantiate(nil, t.Origin(), args, false)
		return res, err == nil
	}
	return t, false
}
