package check

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rami3l/staticassert/directive"
	e "github.com/rami3l/staticassert/errors"
	"github.com/rami3l/staticassert/vm"
	"github.com/sirupsen/logrus"
)

// Assertion is a parsed directive bound to its owner.
type Assertion struct {
	Inv *vm.Invocation
	// *types.Func or *types.TypeName, nil at file level and for imported
	// assertions.
	Owner types.Object
	// Name is the display name of the owner.
	Name string
	Pkg  *types.Package
	// Pos is token.NoPos for assertions imported from other packages.
	Pos   token.Pos
	Where string

	env vm.Env
}

// Env resolves the names of the assertion as seen from its directive.
func (a *Assertion) Env() vm.Env { return a.env }

func (a *Assertion) String() string { return fmt.Sprintf("%s at %s", a.Inv, a.Where) }

// Imported rebuilds an assertion declared in another package from its
// source. Names resolve in the package scope of pkg.
func (c *Checker) Imported(src, where, name string, pkg *types.Package) (*Assertion, error) {
	key := where + "\x00" + src
	if a, ok := c.imported[key]; ok {
		return a, nil
	}
	inv, err := vm.Parse(src)
	if err != nil {
		return nil, err
	}
	a := &Assertion{Inv: inv, Name: name, Pkg: pkg, Where: where, env: c.newEnv(pkg.Scope(), pkg)}
	c.imported[key] = a
	return a, nil
}

// scopeEnv resolves names the way the Go file holding the directive does.
// Qualified names only reach exported objects.
type scopeEnv struct {
	scope *types.Scope
	pkg   *types.Package
	sizes types.Sizes
}

func (c *Checker) newEnv(scope *types.Scope, pkg *types.Package) *scopeEnv {
	return &scopeEnv{scope: scope, pkg: pkg, sizes: c.Sizes}
}

func (s *scopeEnv) Lookup(name string) (vm.Value, bool) { return vm.LookupScope(s.scope, name) }

func (s *scopeEnv) LookupQualified(pkgName, name string) (vm.Value, bool) {
	imported := s.importedPkg(pkgName)
	if imported == nil || !token.IsExported(name) {
		return nil, false
	}
	return vm.ObjectValue(imported.Scope().Lookup(name))
}

func (s *scopeEnv) importedPkg(name string) *types.Package {
	if _, obj := s.scope.LookupParent(name, token.NoPos); obj != nil {
		if pkgName, ok := obj.(*types.PkgName); ok {
			return pkgName.Imported()
		}
		return nil
	}
	for _, imp := range s.pkg.Imports() {
		if imp.Name() == name {
			return imp
		}
	}
	return nil
}

func (s *scopeEnv) Sizes() types.Sizes { return s.sizes }

func (s *scopeEnv) lookupType(expr string) (types.Type, bool) {
	var (
		val vm.Value
		ok  bool
	)
	if pkgName, name, found := strings.Cut(expr, "."); found {
		val, ok = s.LookupQualified(pkgName, name)
	} else {
		val, ok = s.Lookup(expr)
	}
	typ, isType := val.(vm.VType)
	return typ.Type, ok && isType
}

func (c *Checker) collectFile(file *ast.File, pkg *types.Package, info *types.Info) (diags []Diagnostic) {
	scope := info.Scopes[file]
	if scope == nil {
		scope = pkg.Scope()
	}
	env := c.newEnv(scope, pkg)

	for _, d := range directive.Find(file) {
		inv, err := vm.Parse(d.Text)
		if err != nil {
			diags = append(diags, syntaxDiagnostics(d, err)...)
			continue
		}
		a := &Assertion{
			Inv:   inv,
			Pkg:   pkg,
			Pos:   d.Pos(),
			Where: c.Fset.Position(d.Pos()).String(),
			env:   env,
		}
		if name := d.OwnerName(); name != nil {
			a.Owner = info.Defs[name]
			a.Name = DisplayName(a.Owner)
		}
		if errs := bind(a, env); len(errs) > 0 {
			for _, err := range errs {
				diags = append(diags, Diagnostic{Pos: d.Pos(), Err: err, Assertion: a})
			}
			continue
		}
		if len(inv.Decls) == 0 {
			c.constant[pkg] = append(c.constant[pkg], a)
			continue
		}
		c.AddRequirement(a.Owner, direct(a))
		logrus.Debugf("collected %s", a)
	}
	return
}

func syntaxDiagnostics(d *directive.Directive, err error) (diags []Diagnostic) {
	errs := []error{err}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		errs = merr.Errors
	}
	for _, err := range errs {
		pos := d.Pos()
		var synErr *e.SyntaxError
		if errors.As(err, &synErr) {
			pos = d.PosFor(synErr.Line, synErr.Col)
		}
		diags = append(diags, Diagnostic{Pos: pos, Err: err})
	}
	return
}

// generics are the parameters an assertion can bind to.
type generics struct {
	owner    string
	tparams  map[string]*types.TypeParam
	params   map[string]*types.Var
	variadic *types.Var
	isType   bool
}

func genericsOf(owner types.Object) (g generics) {
	g.tparams = make(map[string]*types.TypeParam)
	g.params = make(map[string]*types.Var)
	if owner == nil {
		return
	}
	g.owner = DisplayName(owner)
	for _, tp := range TypeParams(owner) {
		g.tparams[tp.Obj().Name()] = tp
	}
	switch owner := owner.(type) {
	case *types.Func:
		sig := owner.Type().(*types.Signature)
		for i := 0; i < sig.Params().Len(); i++ {
			g.params[sig.Params().At(i).Name()] = sig.Params().At(i)
		}
		if sig.Variadic() {
			g.variadic = sig.Params().At(sig.Params().Len() - 1)
		}
	case *types.TypeName:
		g.isType = true
	}
	return
}

// TypeParams returns the receiver type parameters and then the type
// parameters of a function, or the type parameters of a named type.
func TypeParams(obj types.Object) (res []*types.TypeParam) {
	var lists []*types.TypeParamList
	switch obj := obj.(type) {
	case *types.Func:
		sig := obj.Type().(*types.Signature)
		lists = append(lists, sig.RecvTypeParams(), sig.TypeParams())
	case *types.TypeName:
		if named, ok := obj.Type().(*types.Named); ok {
			lists = append(lists, named.TypeParams())
		}
	}
	for _, list := range lists {
		for i := 0; i < list.Len(); i++ {
			res = append(res, list.At(i))
		}
	}
	return
}

// DisplayName renders obj the way diagnostics refer to it, e.g. `Max` or
// `List.Push`.
func DisplayName(obj types.Object) string {
	fn, ok := obj.(*types.Func)
	if !ok {
		return obj.Name()
	}
	recv := fn.Type().(*types.Signature).Recv()
	if recv == nil {
		return fn.Name()
	}
	t := recv.Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name() + "." + fn.Name()
	}
	return fn.Name()
}

func bind(a *Assertion, env *scopeEnv) (errs []error) {
	g := genericsOf(a.Owner)
	fail := func(name, format string, args ...any) {
		errs = append(errs, &e.BindError{Name: name, Reason: fmt.Sprintf(format, args...)})
	}
	qualifier := types.RelativeTo(a.Pkg)

	for _, d := range a.Inv.Decls {
		name := d.Name.Lexeme
		if a.Owner == nil {
			fail(name, "generic parameter declared outside a generic function or type")
			continue
		}
		switch d.Kind {
		case vm.DeclType, vm.DeclUnsizedType:
			if _, ok := g.tparams[name]; ok {
				continue
			}
			if param, ok := g.params[name]; ok {
				fail(name, "const parameter %s needs an explicit type: (%s: %s)",
					name, name, types.TypeString(param.Type(), qualifier))
				continue
			}
			fail(name, "%s is not a type parameter of %s", name, g.owner)
		case vm.DeclConst:
			if g.isType {
				fail(name, "%s cannot be a const parameter of type %s, only functions take value parameters", name, g.owner)
				continue
			}
			param, ok := g.params[name]
			if !ok {
				if _, ok := g.tparams[name]; ok {
					fail(name, "%s is a type parameter of %s; declare it as (%s)", name, g.owner, name)
					continue
				}
				fail(name, "%s is not a parameter of %s", name, g.owner)
				continue
			}
			if param == g.variadic {
				fail(name, "%s is variadic and cannot be a const parameter", name)
				continue
			}
			declared, ok := env.lookupType(d.TypeExpr)
			if !ok {
				fail(name, "undefined type %s", d.TypeExpr)
				continue
			}
			if !types.Identical(declared, param.Type()) {
				fail(name, "%s is declared as %s, but the parameter has type %s",
					name, d.TypeExpr, types.TypeString(param.Type(), qualifier))
				continue
			}
			if basic, ok := param.Type().Underlying().(*types.Basic); !ok || basic.Info()&types.IsConstType == 0 {
				fail(name, "const parameter %s must have a boolean, numeric, or string type, got %s",
					name, types.TypeString(param.Type(), qualifier))
			}
		}
	}

	reported := make(map[string]bool)
	for _, ref := range a.Inv.Refs {
		name := ref.Name.Lexeme
		if ref.Pkg != "" || reported[name] {
			continue
		}
		reported[name] = true
		if _, ok := g.tparams[name]; ok {
			fail(name, "cannot use generic parameter %s from outer scope; declare it first: (%s)", name, name)
		} else if param, ok := g.params[name]; ok {
			fail(name, "cannot use generic parameter %s from outer scope; declare it first: (%s: %s)",
				name, name, types.TypeString(param.Type(), qualifier))
		}
	}
	return
}
