package check

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/packages"
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedImports | packages.NeedDeps |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedTypesSizes | packages.NeedSyntax | packages.NeedModule

// Load loads the packages matching patterns from source, dependencies
// included. Files named skip are replaced by their package clause, so stale
// generated files never take part in type checking.
func Load(fset *token.FileSet, cfg Config, skip string, patterns ...string) ([]*packages.Package, error) {
	conf := &packages.Config{
		Mode:  loadMode,
		Fset:  fset,
		Tests: cfg.Tests,
		ParseFile: func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			mode := parser.AllErrors | parser.ParseComments
			if skip != "" && filepath.Base(filename) == skip {
				mode = parser.PackageClauseOnly
			}
			return parser.ParseFile(fset, filename, src, mode)
		},
	}
	if len(cfg.Tags) > 0 {
		conf.BuildFlags = []string{"-tags=" + strings.Join(cfg.Tags, ",")}
	}
	pkgs, err := packages.Load(conf, patterns...)
	if err != nil {
		return nil, err
	}
	if n := packages.PrintErrors(pkgs); n > 0 {
		return nil, fmt.Errorf("%d errors while loading packages", n)
	}
	if len(pkgs) == 0 {
		return nil, errors.New("no packages matched")
	}
	return pkgs, nil
}

// CheckAll collects every package in dependency order and verifies the
// root packages.
func CheckAll(fset *token.FileSet, cfg Config, roots []*packages.Package) (*Checker, []Diagnostic) {
	c := NewChecker(fset, roots[0].TypesSizes, cfg)
	var diags []Diagnostic
	packages.Visit(roots, nil, func(pkg *packages.Package) {
		if !c.wants(pkg, roots) {
			return
		}
		logrus.Debugf("collecting %s", pkg.PkgPath)
		diags = append(diags, c.Collect(pkg.Syntax, pkg.Types, pkg.TypesInfo)...)
	})
	for _, pkg := range roots {
		diags = append(diags, c.Verify(pkg.Types)...)
	}
	// Test variants of a package repeat its diagnostics.
	diags = slices.CompactFunc(SortDiagnostics(diags), func(a, b Diagnostic) bool {
		return a.Pos == b.Pos && a.Message() == b.Message()
	})
	return c, diags
}

// wants skips dependencies outside of any module, i.e. the standard
// library.
func (c *Checker) wants(pkg *packages.Package, roots []*packages.Package) bool {
	for _, root := range roots {
		if pkg == root {
			return true
		}
	}
	return pkg.Module != nil && pkg.TypesInfo != nil
}

// NewInfo returns a types.Info recording everything Collect needs.
func NewInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Instances:  make(map[*ast.Ident]types.Instance),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
}
