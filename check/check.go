// Package check binds //static:assert directives to the generic
// declarations they annotate and evaluates them once per distinct
// instantiation.
//
// An assertion becomes a requirement on its owner. A const parameter
// `(N: int)` is fed by the owner's value parameter N, and a type parameter
// `(T)` by the owner's type parameter T. Every call or reference site of the
// owner instantiates its requirements:
//   - Sites with constant arguments and concrete type arguments are
//     evaluated with the VM.
//   - Sites inside another function whose arguments flow from that
//     function's own parameters carry the requirement over to it. It is then
//     checked where that function is instantiated.
//   - Any other site is unverifiable. It is logged, or reported in strict
//     mode.
//
// Limitations (non-exhaustive):
//   - Function values and interface method calls are opaque.
//   - A const argument must be a constant expression, or an enclosing
//     parameter passed as is.
//   - Requirements are carried through at most 8 nested instantiations.
package check

import (
	"go/ast"
	"go/token"
	"go/types"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"golang.org/x/exp/slices"
)

type Config struct {
	// Strict reports unverifiable instantiations as errors.
	Strict bool
	Tags   []string
	// Tests includes test files and test packages.
	Tests bool
}

func (cfg *Config) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&cfg.Strict, "strict", false, "report instantiations that cannot be verified")
	fs.StringSliceVar(&cfg.Tags, "tags", nil, "comma-separated list of build tags")
	fs.BoolVar(&cfg.Tests, "tests", false, "also check test files")
}

// maxDepth bounds how many instantiations a requirement is carried through.
const maxDepth = 8

// Checker accumulates requirements over the packages it collects. Packages
// must be collected in dependency order.
type Checker struct {
	Config
	Fset  *token.FileSet
	Sizes types.Sizes
	// Import, if set, supplies the requirements of objects from packages
	// that were not collected by this Checker.
	Import func(types.Object) []*Requirement

	reqs     map[types.Object][]*Requirement
	seen     map[string]bool
	constant map[*types.Package][]*Assertion
	sites    map[*types.Package][]*site
	imported map[string]*Assertion
	cache    map[string]error
}

func NewChecker(fset *token.FileSet, sizes types.Sizes, cfg Config) *Checker {
	if sizes == nil {
		sizes = types.SizesFor("gc", runtime.GOARCH)
	}
	return &Checker{
		Config:   cfg,
		Fset:     fset,
		Sizes:    sizes,
		reqs:     make(map[types.Object][]*Requirement),
		seen:     make(map[string]bool),
		constant: make(map[*types.Package][]*Assertion),
		sites:    make(map[*types.Package][]*site),
		imported: make(map[string]*Assertion),
		cache:    make(map[string]error),
	}
}

// Check collects and verifies a single package.
func (c *Checker) Check(files []*ast.File, pkg *types.Package, info *types.Info) []Diagnostic {
	diags := c.Collect(files, pkg, info)
	return SortDiagnostics(append(diags, c.Verify(pkg)...))
}

// Collect finds the directives of pkg, binds them to their owners, and
// carries the requirements of the callees of pkg over to its functions.
// The diagnostics are syntax and binding errors.
func (c *Checker) Collect(files []*ast.File, pkg *types.Package, info *types.Info) (diags []Diagnostic) {
	for _, file := range files {
		diags = append(diags, c.collectFile(file, pkg, info)...)
	}
	sites := c.findSites(files, info)
	c.propagate(sites)
	c.sites[pkg] = sites
	return
}

// Requirements returns the requirements on obj, which must be an origin
// object.
func (c *Checker) Requirements(obj types.Object) []*Requirement {
	rs, ok := c.reqs[obj]
	if !ok && c.Import != nil {
		rs = c.Import(obj)
		c.reqs[obj] = rs
	}
	return rs
}

// Owners returns the objects of pkg carrying requirements, in source order.
func (c *Checker) Owners(pkg *types.Package) (res []types.Object) {
	for obj, rs := range c.reqs {
		if obj.Pkg() == pkg && len(rs) > 0 {
			res = append(res, obj)
		}
	}
	slices.SortFunc(res, func(a, b types.Object) bool { return a.Pos() < b.Pos() })
	return
}

// AddRequirement records r on obj unless an equivalent requirement exists.
func (c *Checker) AddRequirement(obj types.Object, r *Requirement) bool {
	key := r.key(obj)
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	c.reqs[obj] = append(c.Requirements(obj), r)
	return true
}

// Err aggregates diags into a single error, or nil.
func (c *Checker) Err(diags []Diagnostic) error {
	var res *multierror.Error
	for _, d := range diags {
		res = multierror.Append(res, &PosError{Pos: c.Fset.Position(d.Pos), Err: d.Err})
	}
	return res.ErrorOrNil()
}

// PosError is an error located in a Go source file.
type PosError struct {
	Pos token.Position
	Err error
}

func (e *PosError) Error() string { return e.Pos.String() + ": " + e.Err.Error() }
func (e *PosError) Unwrap() error { return e.Err }
