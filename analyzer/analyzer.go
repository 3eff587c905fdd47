// Package analyzer runs the static assertions of a package as a
// golang.org/x/tools/go/analysis pass, so that they can be checked by
// `go vet -vettool`.
//
// Requirements of exported generic declarations travel across packages as
// object facts.
package analyzer

import (
	"flag"
	"go/types"
	"reflect"

	"github.com/rami3l/staticassert/check"
	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name:       "staticassert",
	Doc:        "check //static:assert directives against every instantiation",
	URL:        "https://github.com/rami3l/staticassert",
	Run:        run,
	FactTypes:  []analysis.Fact{new(Fact)},
	ResultType: reflect.TypeOf([]check.Diagnostic(nil)),
}

var strict bool

func init() {
	Analyzer.Flags.Init("staticassert", flag.ExitOnError)
	Analyzer.Flags.BoolVar(&strict, "strict", false, "report instantiations that cannot be verified")
}

func run(pass *analysis.Pass) (any, error) {
	c := check.NewChecker(pass.Fset, pass.TypesSizes, check.Config{Strict: strict})
	c.Import = func(obj types.Object) []*check.Requirement {
		var f Fact
		if obj.Pkg() == pass.Pkg || !pass.ImportObjectFact(obj, &f) {
			return nil
		}
		return decode(c, obj, &f)
	}

	diags := c.Check(pass.Files, pass.Pkg, pass.TypesInfo)
	for _, d := range diags {
		diag := analysis.Diagnostic{Pos: d.Pos, Message: d.Message()}
		for _, note := range d.Notes() {
			pos := d.Pos
			if d.Assertion != nil && d.Assertion.Pos.IsValid() {
				pos = d.Assertion.Pos
			}
			diag.Related = append(diag.Related, analysis.RelatedInformation{Pos: pos, Message: note})
		}
		pass.Report(diag)
	}

	for _, obj := range c.Owners(pass.Pkg) {
		if !obj.Exported() {
			continue
		}
		if f := encode(obj, c.Requirements(obj)); f != nil {
			pass.ExportObjectFact(obj, f)
		}
	}
	return diags, nil
}
