package check

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"github.com/sirupsen/logrus"
)

// site is a call of, or a reference to, an instantiation of callee.
type site struct {
	pos    token.Pos
	ident  *ast.Ident
	callee types.Object
	// Type arguments in the order of TypeParams(callee).
	targs []types.Type
	// Arguments by callee parameter name, nil if callee is not called.
	args map[string]ConstArg
	// The function declaration the site is in, nil at package level.
	encl  *types.Func
	where string
}

func (s *site) typeMap() map[*types.TypeParam]types.Type {
	m := make(map[*types.TypeParam]types.Type)
	for i, tp := range TypeParams(s.callee) {
		if i < len(s.targs) && s.targs[i] != nil {
			m[tp] = s.targs[i]
		}
	}
	return m
}

func (s *site) String() string {
	var sb strings.Builder
	sb.WriteString(DisplayName(s.callee))
	if len(s.targs) > 0 {
		args := make([]string, len(s.targs))
		for i, t := range s.targs {
			args[i] = types.TypeString(t, shortQualifier)
		}
		fmt.Fprintf(&sb, "[%s]", strings.Join(args, ", "))
	}
	return sb.String()
}

func shortQualifier(p *types.Package) string { return p.Name() }

func unparen(x ast.Expr) ast.Expr {
	for {
		paren, ok := x.(*ast.ParenExpr)
		if !ok {
			return x
		}
		x = paren.X
	}
}

func (c *Checker) findSites(files []*ast.File, info *types.Info) (res []*site) {
	for _, file := range files {
		for _, decl := range file.Decls {
			var (
				encl  *types.Func
				nodes []ast.Node
			)
			switch decl := decl.(type) {
			case *ast.FuncDecl:
				// The receiver only restates the type parameters of the
				// method.
				encl, _ = info.Defs[decl.Name].(*types.Func)
				nodes = append(nodes, decl.Type)
				if decl.Body != nil {
					nodes = append(nodes, decl.Body)
				}
			default:
				nodes = append(nodes, decl)
			}

			called := make(map[*ast.Ident]bool)
			for _, node := range nodes {
				ast.Inspect(node, func(n ast.Node) bool {
					switch n := n.(type) {
					case *ast.CallExpr:
						if s := callSite(n, info, encl); s != nil {
							called[s.ident] = true
							s.where = c.Fset.Position(s.pos).String()
							res = append(res, s)
						}
					case *ast.Ident:
						if called[n] {
							break
						}
						if s := refSite(n, info, encl); s != nil {
							s.where = c.Fset.Position(s.pos).String()
							res = append(res, s)
						}
					}
					return true
				})
			}
		}
	}
	return
}

func callSite(call *ast.CallExpr, info *types.Info, encl *types.Func) *site {
	fun := unparen(call.Fun)
	switch x := fun.(type) {
	case *ast.IndexExpr:
		fun = unparen(x.X)
	case *ast.IndexListExpr:
		fun = unparen(x.X)
	}
	var (
		ident *ast.Ident
		sel   *ast.SelectorExpr
	)
	switch x := fun.(type) {
	case *ast.Ident:
		ident = x
	case *ast.SelectorExpr:
		ident, sel = x.Sel, x
	default:
		return nil
	}
	fn, ok := info.Uses[ident].(*types.Func)
	if !ok {
		return nil
	}
	origin := fn.Origin()
	s := &site{pos: call.Pos(), ident: ident, callee: origin, encl: encl, args: make(map[string]ConstArg)}

	sig := fn.Type().(*types.Signature)
	if recv := sig.Recv(); recv != nil {
		t := recv.Type()
		if ptr, ok := t.(*types.Pointer); ok {
			t = ptr.Elem()
		}
		if named, ok := t.(*types.Named); ok {
			for i := 0; i < named.TypeArgs().Len(); i++ {
				s.targs = append(s.targs, named.TypeArgs().At(i))
			}
		}
	}
	if inst, ok := info.Instances[ident]; ok {
		for i := 0; i < inst.TypeArgs.Len(); i++ {
			s.targs = append(s.targs, inst.TypeArgs.At(i))
		}
	}

	offset := 0
	if sel != nil {
		if selection, ok := info.Selections[sel]; ok && selection.Kind() == types.MethodExpr {
			offset = 1
		}
	}
	params := origin.Type().(*types.Signature).Params()
	if len(call.Args) != params.Len()+offset && !sig.Variadic() {
		// f(g()) with a multi-valued g.
		return s
	}
	for i := 0; i < params.Len(); i++ {
		name := params.At(i).Name()
		if name == "" || name == "_" || sig.Variadic() && i == params.Len()-1 || i+offset >= len(call.Args) {
			continue
		}
		s.args[name] = constArg(call.Args[i+offset], info, encl)
	}
	return s
}

func constArg(arg ast.Expr, info *types.Info, encl *types.Func) ConstArg {
	if tv, ok := info.Types[arg]; ok && tv.Value != nil {
		return ConstArg{Value: tv.Value}
	}
	ident, ok := unparen(arg).(*ast.Ident)
	if !ok || encl == nil {
		return ConstArg{}
	}
	v, ok := info.Uses[ident].(*types.Var)
	if !ok {
		return ConstArg{}
	}
	params := encl.Type().(*types.Signature).Params()
	for i := 0; i < params.Len(); i++ {
		if params.At(i) == v {
			return ConstArg{Param: v.Name()}
		}
	}
	return ConstArg{}
}

// refSite is an instantiated generic type, or a generic function used as a
// value.
func refSite(ident *ast.Ident, info *types.Info, encl *types.Func) *site {
	inst, ok := info.Instances[ident]
	if !ok {
		return nil
	}
	s := &site{pos: ident.Pos(), ident: ident, encl: encl}
	switch obj := info.Uses[ident].(type) {
	case *types.TypeName:
		named, ok := inst.Type.(*types.Named)
		if !ok {
			return nil
		}
		s.callee = named.Origin().Obj()
	case *types.Func:
		s.callee = obj.Origin()
	default:
		return nil
	}
	for i := 0; i < inst.TypeArgs.Len(); i++ {
		s.targs = append(s.targs, inst.TypeArgs.At(i))
	}
	return s
}

// unverifiable is the reason a requirement cannot be instantiated at a site.
type unverifiable string

func (u unverifiable) Error() string { return string(u) }

// apply instantiates r at s. The result is expressed in terms of the
// generics of the function enclosing s.
func (s *site) apply(r *Requirement) (*Requirement, error) {
	m := s.typeMap()
	res := &Requirement{
		Assertion: r.Assertion,
		Types:     make(map[string]types.Type, len(r.Types)),
		Consts:    make(map[string]ConstArg, len(r.Consts)),
		Via:       append(append([]string(nil), r.Via...), s.String()+" at "+s.where),
	}
	for name, t := range r.Types {
		u, ok := subst(t, m)
		if !ok {
			return nil, unverifiable(fmt.Sprintf("cannot substitute the type arguments of %s into %s", s, types.TypeString(t, shortQualifier)))
		}
		res.Types[name] = u
	}
	for name, arg := range r.Consts {
		if arg.Value != nil {
			res.Consts[name] = arg
			continue
		}
		if s.args == nil {
			return nil, unverifiable(fmt.Sprintf("%s is used as a value, so the argument for %s is unknown", s, arg.Param))
		}
		next, ok := s.args[arg.Param]
		if !ok || next.Value == nil && next.Param == "" {
			return nil, unverifiable(fmt.Sprintf("the argument of %s for %s is not a constant", s, arg.Param))
		}
		res.Consts[name] = next
	}
	return res, nil
}

// carries reports whether r, pending at s, can be carried over to the
// enclosing function.
func (s *site) carries(r *Requirement) bool {
	if s.encl == nil {
		return false
	}
	own := make(map[*types.TypeParam]bool)
	for _, tp := range TypeParams(s.encl) {
		own[tp] = true
	}
	res := true
	for _, t := range r.Types {
		walkTypeParams(t, func(tp *types.TypeParam) { res = res && own[tp] })
	}
	return res
}

func (c *Checker) propagate(sites []*site) {
	for changed := true; changed; {
		changed = false
		for _, s := range sites {
			if s.encl == nil {
				continue
			}
			for _, r := range c.Requirements(s.callee) {
				if len(r.Via) >= maxDepth {
					logrus.Debugf("%s: not carrying %s past %d instantiations", c.Fset.Position(s.pos), r.Assertion.Inv, maxDepth)
					continue
				}
				next, err := s.apply(r)
				if err != nil || !next.pending() || !s.carries(next) {
					continue
				}
				if c.AddRequirement(s.encl, next) {
					logrus.Debugf("%s: %s requires %s", c.Fset.Position(s.pos), DisplayName(s.encl), r.Assertion.Inv)
					changed = true
				}
			}
		}
	}
}
