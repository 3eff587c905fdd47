// Package expand turns verified instantiations into Go constant
// expressions, so that the Go compiler itself rejects a failing one.
//
// Each instance becomes a message constant and a blank function:
//
//	const staticAssert0001Msg = "T must be 4 bytes long!"
//
//	func _() {
//		_ = map[bool]string{false: staticAssert0001Msg, (int64(unsafe.Sizeof(*new(int64))) == 4): staticAssert0001Msg}
//	}
//
// A false predicate duplicates the `false` key, which is a compile error.
// Blank functions are never emitted, so nothing reaches the binary.
//
// The compiler reports such a failure as "duplicate key false in map
// literal" at the generated line. The message constant sits right above it,
// but only `staticassert check` or the vet analyzer print the message
// itself. Const parameters keep their declared types, so an overflowing
// typed constant fails with the compiler's own overflow error instead.
package expand

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rami3l/staticassert/check"
	"github.com/rami3l/staticassert/utils"
	"github.com/rami3l/staticassert/vm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/tools/imports"
)

const Header = "// Code generated by staticassert; DO NOT EDIT."

type Config struct {
	Tags   []string
	Output string
	DryRun bool
}

func (cfg *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&cfg.Tags, "tags", nil, "comma-separated list of build tags")
	fs.StringVarP(&cfg.Output, "output", "o", "zz_staticassert_gen.go", "name of the generated file in each package")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "print the generated files instead of writing them")
}

// File is a generated Go source file.
type File struct {
	Path string
	Src  []byte
	// Checks counts the generated checks.
	Checks int
}

// Write writes f to disk, or prints it to out on a dry run.
func (f *File) Write(out io.Writer, dryRun bool) error {
	if dryRun {
		_, err := fmt.Fprintf(out, "// %s\n%s", f.Path, f.Src)
		return err
	}
	return os.WriteFile(f.Path, f.Src, 0o644)
}

// RemoveStale deletes path if it is a previously generated file.
func RemoveStale(path string) error {
	src, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(src, []byte(Header)) {
		return fmt.Errorf("%s exists and was not generated by staticassert", path)
	}
	logrus.Infof("removing stale %s", path)
	return os.Remove(path)
}

// errSkip marks an instance that has no Go constant expression.
type errSkip string

func (e errSkip) Error() string { return string(e) }

type generator struct {
	fset *token.FileSet
	pkg  *types.Package
	// Import path to local name, and back.
	imports map[string]string
	names   map[string]string
	// Declared package names by import path.
	declared map[string]string
	body     strings.Builder
	n        int
}

// Generate renders the instances forced by pkg into the file at path. It
// returns nil if no instance can be rendered.
func Generate(fset *token.FileSet, pkg *types.Package, insts []*check.Instance, path string) (*File, error) {
	g := &generator{
		fset:     fset,
		pkg:      pkg,
		imports:  make(map[string]string),
		names:    make(map[string]string),
		declared: make(map[string]string),
	}
	seen := make(map[string]bool)
	for _, inst := range insts {
		if inst.Unverifiable != "" || seen[inst.Key()] {
			continue
		}
		seen[inst.Key()] = true
		if err := g.instance(inst); err != nil {
			var skip errSkip
			if !errors.As(err, &skip) {
				return nil, err
			}
			logrus.Debugf("%s: not expanding %s: %s", fset.Position(inst.Pos), inst, skip)
		}
	}
	if g.n == 0 {
		return nil, nil
	}

	src, err := imports.Process(path, g.file(), &imports.Options{Comments: true, TabIndent: true, TabWidth: 8})
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", path, err)
	}
	return &File{Path: path, Src: src, Checks: g.n}, nil
}

func (g *generator) file() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\npackage %s\n\n", Header, g.pkg.Name())
	if len(g.imports) > 0 {
		buf.WriteString("import (\n")
		for _, path := range utils.SortedKeys(g.imports) {
			if local := g.imports[path]; local != g.declared[path] {
				fmt.Fprintf(&buf, "\t%s %q\n", local, path)
				continue
			}
			fmt.Fprintf(&buf, "\t%q\n", path)
		}
		buf.WriteString(")\n\n")
	}
	buf.WriteString(g.body.String())
	return buf.Bytes()
}

func (g *generator) instance(inst *check.Instance) error {
	bindings, err := inst.Env()
	if err != nil {
		return err
	}
	inv := inst.Assertion.Inv
	var env vm.Env
	if env, err = vm.TypeConsts(inv, bindings); err != nil {
		return errSkip(err.Error())
	}
	pred, err := g.render(inv.Expr, env)
	if err != nil {
		return err
	}
	msg := strconv.Quote(vm.DefaultMessage)
	if inv.Message != nil {
		if msg, err = g.render(inv.Message, env); err != nil {
			return err
		}
	}

	g.n++
	name := fmt.Sprintf("staticAssert%04d", g.n)
	pos := g.fset.Position(inst.Pos)
	fmt.Fprintf(&g.body, "// %s at %s:%d:%d\n", inst, filepath.Base(pos.Filename), pos.Line, pos.Column)
	fmt.Fprintf(&g.body, "// %s\n", inv)
	fmt.Fprintf(&g.body, "const %sMsg = %s\n\n", name, msg)
	fmt.Fprintf(&g.body, "func _() {\n\t_ = map[bool]string{false: %[1]sMsg, (%[2]s): %[1]sMsg}\n}\n\n", name, pred)
	return nil
}

// use returns the local name of the package at path, importing it if
// needed.
func (g *generator) use(path, name string) string {
	if local, ok := g.imports[path]; ok {
		return local
	}
	local := name
	for i := 2; g.names[local] != "" || g.pkg.Scope().Lookup(local) != nil; i++ {
		local = name + strconv.Itoa(i)
	}
	g.imports[path] = local
	g.names[local] = path
	g.declared[path] = name
	return local
}

func (g *generator) qualifier(p *types.Package) string {
	if p == g.pkg {
		return ""
	}
	return g.use(p.Path(), p.Name())
}
