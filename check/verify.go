package check

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	e "github.com/rami3l/staticassert/errors"
	"github.com/rami3l/staticassert/vm"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Instance is an assertion with every declared generic bound, forced by the
// site at Pos.
type Instance struct {
	Assertion *Assertion
	Pos       token.Pos
	Types     map[string]types.Type
	Consts    map[string]constant.Value
	// Instantiations between the assertion owner and the site, innermost
	// first.
	Via []string
	// Unverifiable is the reason the arguments are not statically known,
	// or "".
	Unverifiable string
}

// String renders the instance like `Max[int32](N=4)`.
func (inst *Instance) String() string {
	var sb strings.Builder
	sb.WriteString(inst.Assertion.Name)
	var targs, consts []string
	for _, d := range inst.Assertion.Inv.Decls {
		name := d.Name.Lexeme
		if t, ok := inst.Types[name]; ok {
			targs = append(targs, types.TypeString(t, shortQualifier))
		}
		if val, ok := inst.Consts[name]; ok {
			consts = append(consts, name+"="+val.ExactString())
		}
	}
	if len(targs) > 0 {
		fmt.Fprintf(&sb, "[%s]", strings.Join(targs, ", "))
	}
	if len(consts) > 0 {
		fmt.Fprintf(&sb, "(%s)", strings.Join(consts, ", "))
	}
	return sb.String()
}

// Env binds the generics of the instance on top of the assertion scope.
func (inst *Instance) Env() (*vm.Bindings, error) {
	env := vm.NewBindings(inst.Assertion.env)
	for name, t := range inst.Types {
		env.Bind(name, vm.VType{Type: t})
	}
	for name, val := range inst.Consts {
		v, ok := vm.FromConstant(val)
		if !ok {
			return nil, &e.BindError{Name: name, Reason: fmt.Sprintf("unsupported constant %s", val)}
		}
		env.Bind(name, v)
	}
	return env, nil
}

// Key identifies the assertion and the arguments of inst.
func (inst *Instance) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%p", inst.Assertion)
	for _, d := range inst.Assertion.Inv.Decls {
		name := d.Name.Lexeme
		if t, ok := inst.Types[name]; ok {
			fmt.Fprintf(&sb, " %s=%s", name, types.TypeString(t, nil))
		}
		if val, ok := inst.Consts[name]; ok {
			fmt.Fprintf(&sb, " %s=%s", name, val.ExactString())
		}
	}
	return sb.String()
}

// Instances returns the instantiations forced by the sites of pkg. Sites
// whose requirements were carried over to their enclosing function are
// left out.
func (c *Checker) Instances(pkg *types.Package) (res []*Instance) {
	for _, s := range c.sites[pkg] {
		for _, r := range c.Requirements(s.callee) {
			next, err := s.apply(r)
			if err != nil {
				res = append(res, &Instance{Assertion: r.Assertion, Pos: s.pos, Via: r.Via, Unverifiable: err.Error()})
				continue
			}
			if next.pending() {
				if !s.carries(next) {
					logrus.Debugf("%s: skipping %s in generic context", s.where, s)
				}
				continue
			}
			inst := &Instance{
				Assertion: r.Assertion,
				Pos:       s.pos,
				Types:     next.Types,
				Consts:    make(map[string]constant.Value, len(next.Consts)),
				Via:       r.Via,
			}
			for name, arg := range next.Consts {
				inst.Consts[name] = arg.Value
			}
			res = append(res, inst)
		}
	}
	return
}

// Verify evaluates the assertions of pkg without generics once, and every
// instance forced by pkg once per distinct set of arguments. Each failing
// site is reported.
func (c *Checker) Verify(pkg *types.Package) (diags []Diagnostic) {
	for _, a := range c.constant[pkg] {
		if err := vm.NewVM().Run(a.Inv, a.env); err != nil {
			diags = append(diags, Diagnostic{Pos: a.Pos, Err: err, Assertion: a})
		}
	}

	for _, inst := range c.Instances(pkg) {
		if inst.Unverifiable != "" {
			if c.Strict {
				diags = append(diags, Diagnostic{
					Pos:       inst.Pos,
					Err:       fmt.Errorf("unverifiable instantiation: %s", inst.Unverifiable),
					Assertion: inst.Assertion,
				})
				continue
			}
			logrus.Debugf("%s: unverifiable instantiation: %s", c.Fset.Position(inst.Pos), inst.Unverifiable)
			continue
		}
		key := inst.Key()
		err, ok := c.cache[key]
		if !ok {
			err = evaluate(inst)
			c.cache[key] = err
			logrus.Debugf("evaluated %s: %v", inst, err)
		}
		if err != nil {
			diags = append(diags, Diagnostic{Pos: inst.Pos, Err: err, Assertion: inst.Assertion, Instance: inst})
		}
	}
	return
}

func evaluate(inst *Instance) error {
	for _, d := range inst.Assertion.Inv.Decls {
		if d.Kind != vm.DeclType {
			continue
		}
		if t := inst.Types[d.Name.Lexeme]; types.IsInterface(t) {
			return &e.BoundError{Name: d.Name.Lexeme, TypeArg: types.TypeString(t, shortQualifier)}
		}
	}
	env, err := inst.Env()
	if err != nil {
		return err
	}
	return vm.NewVM().Run(inst.Assertion.Inv, env)
}

type Diagnostic struct {
	Pos token.Pos
	Err error
	// Assertion is nil for syntax errors.
	Assertion *Assertion
	// Instance is nil for errors independent of instantiation.
	Instance *Instance
}

func (d Diagnostic) Message() string { return d.Err.Error() }

// Notes locate the assertion and the instantiation behind the diagnostic.
func (d Diagnostic) Notes() (res []string) {
	if d.Assertion == nil || d.Instance == nil && d.Assertion.Pos == d.Pos {
		return
	}
	note := "assertion " + d.Assertion.String()
	if d.Instance != nil {
		note += "; instance " + d.Instance.String()
		for _, via := range d.Instance.Via {
			res = append(res, "required by "+via)
		}
	}
	return append([]string{note}, res...)
}

// Format renders d as `file:line:col: message` followed by its notes, one
// per tab-indented line.
func (c *Checker) Format(d Diagnostic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", c.Fset.Position(d.Pos), d.Message())
	for _, note := range d.Notes() {
		fmt.Fprintf(&sb, "\n\t%s", note)
	}
	return sb.String()
}

func SortDiagnostics(diags []Diagnostic) []Diagnostic {
	slices.SortStableFunc(diags, func(a, b Diagnostic) bool { return a.Pos < b.Pos })
	return diags
}
