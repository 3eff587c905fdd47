package analyzer

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"github.com/rami3l/staticassert/check"
	"github.com/sirupsen/logrus"
)

// Fact carries the requirements of an exported generic function or type to
// the packages importing it.
type Fact struct {
	Requirements []RequirementFact
}

func (*Fact) AFact() {}

func (f *Fact) String() string {
	srcs := make([]string, len(f.Requirements))
	for i, r := range f.Requirements {
		srcs[i] = r.Src
	}
	return "requires " + strings.Join(srcs, "; ")
}

// RequirementFact is the serialized form of a check.Requirement.
type RequirementFact struct {
	// Invocation source and the location of its directive.
	Src, Where string
	// Display name of the assertion owner.
	Name string
	// Import path of the package the directive is in.
	Pkg string
	// Index into check.TypeParams of the fact owner, by declared name.
	Types  map[string]int
	Consts map[string]ConstFact
	Via    []string
}

// ConstFact is either a constant or the name of a parameter of the fact
// owner.
type ConstFact struct {
	Param string
	Kind  constant.Kind
	// Exact value. Floats are stored as a fraction Repr/Denom.
	Repr, Denom string
}

func encodeConst(arg check.ConstArg) ConstFact {
	val := arg.Value
	if val == nil {
		return ConstFact{Param: arg.Param}
	}
	res := ConstFact{Kind: val.Kind()}
	switch val.Kind() {
	case constant.Float:
		res.Repr = constant.Num(val).ExactString()
		res.Denom = constant.Denom(val).ExactString()
	case constant.Bool:
		res.Repr = fmt.Sprint(constant.BoolVal(val))
	default:
		res.Repr = val.ExactString()
	}
	return res
}

func (f ConstFact) decode() (check.ConstArg, bool) {
	if f.Param != "" {
		return check.ConstArg{Param: f.Param}, true
	}
	var val constant.Value
	switch f.Kind {
	case constant.Bool:
		val = constant.MakeBool(f.Repr == "true")
	case constant.String:
		val = constant.MakeFromLiteral(f.Repr, token.STRING, 0)
	case constant.Int:
		val = constant.MakeFromLiteral(f.Repr, token.INT, 0)
	case constant.Float:
		num := constant.MakeFromLiteral(f.Repr, token.INT, 0)
		den := constant.MakeFromLiteral(f.Denom, token.INT, 0)
		if num.Kind() == constant.Unknown || den.Kind() == constant.Unknown {
			return check.ConstArg{}, false
		}
		val = constant.BinaryOp(constant.ToFloat(num), token.QUO, den)
	}
	if val == nil || val.Kind() == constant.Unknown {
		return check.ConstArg{}, false
	}
	return check.ConstArg{Value: val}, true
}

// encode serializes the requirements on obj. Requirements whose type
// arguments are not plain type parameters of obj cannot be rebuilt from
// another package and are left out.
func encode(obj types.Object, rs []*check.Requirement) *Fact {
	index := make(map[*types.TypeParam]int)
	for i, tp := range check.TypeParams(obj) {
		index[tp] = i
	}
	var f Fact
outer:
	for _, r := range rs {
		rf := RequirementFact{
			Src:    r.Assertion.Inv.Src,
			Where:  r.Assertion.Where,
			Name:   r.Assertion.Name,
			Pkg:    r.Assertion.Pkg.Path(),
			Types:  make(map[string]int, len(r.Types)),
			Consts: make(map[string]ConstFact, len(r.Consts)),
			Via:    r.Via,
		}
		for name, t := range r.Types {
			tp, ok := t.(*types.TypeParam)
			if !ok {
				logrus.Debugf("not exporting %s on %s: %s is %s", r.Assertion.Inv, obj.Name(), name, t)
				continue outer
			}
			i, ok := index[tp]
			if !ok {
				continue outer
			}
			rf.Types[name] = i
		}
		for name, arg := range r.Consts {
			rf.Consts[name] = encodeConst(arg)
		}
		f.Requirements = append(f.Requirements, rf)
	}
	if len(f.Requirements) == 0 {
		return nil
	}
	return &f
}

// decode rebuilds the requirements on obj. Assertions resolve their names
// in the package they were declared in, which is obj's package or one of
// its transitive imports.
func decode(c *check.Checker, obj types.Object, f *Fact) (res []*check.Requirement) {
	tparams := check.TypeParams(obj)
	for _, rf := range f.Requirements {
		pkg := findPackage(obj.Pkg(), rf.Pkg)
		if pkg == nil {
			logrus.Debugf("%s: package %s of %s not found", obj.Name(), rf.Pkg, rf.Src)
			continue
		}
		a, err := c.Imported(rf.Src, rf.Where, rf.Name, pkg)
		if err != nil {
			logrus.Debugf("%s: %s", rf.Where, err)
			continue
		}
		r := &check.Requirement{
			Assertion: a,
			Types:     make(map[string]types.Type, len(rf.Types)),
			Consts:    make(map[string]check.ConstArg, len(rf.Consts)),
			Via:       rf.Via,
		}
		ok := true
		for name, i := range rf.Types {
			if i >= len(tparams) {
				ok = false
				break
			}
			r.Types[name] = tparams[i]
		}
		for name, cf := range rf.Consts {
			arg, valid := cf.decode()
			ok = ok && valid
			r.Consts[name] = arg
		}
		if ok {
			res = append(res, r)
		}
	}
	return
}

func findPackage(from *types.Package, path string) *types.Package {
	seen := make(map[*types.Package]bool)
	var visit func(p *types.Package) *types.Package
	visit = func(p *types.Package) *types.Package {
		if p == nil || seen[p] {
			return nil
		}
		seen[p] = true
		if p.Path() == path {
			return p
		}
		for _, imp := range p.Imports() {
			if found := visit(imp); found != nil {
				return found
			}
		}
		return nil
	}
	return visit(from)
}
