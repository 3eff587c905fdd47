package expand_test

import (
	"bytes"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/rami3l/staticassert/check"
	"github.com/rami3l/staticassert/expand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	fset *token.FileSet
	file *ast.File
	path string
	gen  *expand.File
}

func generate(t *testing.T, src string) fixture {
	t.Helper()
	dir := t.TempDir()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filepath.Join(dir, "a.go"), src, parser.ParseComments)
	require.NoError(t, err)

	info := check.NewInfo()
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	pkg, err := conf.Check("a", fset, []*ast.File{file}, info)
	require.NoError(t, err)

	c := check.NewChecker(fset, types.SizesFor("gc", "amd64"), check.Config{})
	c.Collect([]*ast.File{file}, pkg, info)
	path := filepath.Join(dir, "zz_staticassert_gen.go")
	gen, err := expand.Generate(fset, pkg, c.Instances(pkg), path)
	require.NoError(t, err)
	return fixture{fset, file, path, gen}
}

// compile type-checks the source file together with the generated one
// and returns the errors.
func (f fixture) compile(t *testing.T) (errs []string) {
	t.Helper()
	gen, err := parser.ParseFile(f.fset, f.path, f.gen.Src, 0)
	require.NoError(t, err, string(f.gen.Src))
	conf := types.Config{
		Importer: importer.ForCompiler(f.fset, "source", nil),
		Error:    func(err error) { errs = append(errs, err.Error()) },
	}
	_, _ = conf.Check("a", f.fset, []*ast.File{f.file, gen}, nil)
	return
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	f := generate(t, heredoc.Doc(`
		package a

		func Four[T any]() {
			//static:assert (T) sizeof(T) == 4 => "T must be 4 bytes long!"
		}

		func Halve[T any](N int) {
			//static:assert (N: int, T) N == sizeof(T) / 2
		}

		type Pair struct{ a, b int64 }

		func use() {
			Four[int32]()
			Four[int32]()
			Halve[Pair](8)
			Four[int64]()
		}
	`))
	require.NotNil(t, f.gen)
	assert.Equal(t, 3, f.gen.Checks)

	src := string(f.gen.Src)
	assert.Contains(t, src, expand.Header+"\n\npackage a\n")
	assert.Contains(t, src, "\t\"unsafe\"\n")
	assert.Contains(t, src, `const staticAssert0001Msg = "T must be 4 bytes long!"`)
	assert.Contains(t, src, `const staticAssert0002Msg = "Static assert failed."`)
	assert.Contains(t, src, "unsafe.Sizeof(*new(Pair))")
	assert.Contains(t, src, "// Four[int64] at a.go:17:2")
	assert.NotContains(t, src, "staticAssert0004")

	errs := f.compile(t)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "duplicate key false")
}

func TestFolding(t *testing.T) {
	t.Parallel()
	f := generate(t, heredoc.Doc(`
		package a

		import "math"

		const limit = 64

		var _ = math.Pi

		func Bits(N int) {
			//static:assert (N: int) N <= limit && N > -1 && N < math.MaxInt8 => "bad width: " + "N"
		}

		func use() {
			Bits(8)
			Bits(-3)
		}
	`))
	require.NotNil(t, f.gen)
	src := string(f.gen.Src)
	assert.Contains(t, src, "(int(-3) <= 64 && int(-3) > -1 && int(-3) < 127)")
	assert.Contains(t, src, "(int(8) <= 64 && int(8) > -1 && int(8) < 127)")
	assert.NotContains(t, src, "import")
	assert.Contains(t, src, `"bad width: " + "N"`)

	errs := f.compile(t)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "duplicate key false")
}

func TestTypedConsts(t *testing.T) {
	t.Parallel()
	f := generate(t, heredoc.Doc(`
		package a

		import "time"

		func Pack[T any](N uint8) {
			//static:assert (N: uint8, T) N * sizeof(T) <= 64
		}

		func Wait(D time.Duration) {
			//static:assert (D: time.Duration) D >= time.Millisecond
		}

		func Dec(N uint) {
			//static:assert (N: uint) N - 1 < 10
		}

		func use() {
			Pack[int64](4)
			Pack[int64](16)
			Wait(3)
			Dec(0)
		}
	`))
	require.NotNil(t, f.gen)
	assert.Equal(t, 4, f.gen.Checks)

	src := string(f.gen.Src)
	assert.Contains(t, src, "(uint8(16) * uint8(unsafe.Sizeof(*new(int64))) <= 64)")
	assert.Contains(t, src, "(time.Duration(3) >= time.Duration(1000000))")
	assert.Contains(t, src, "(uint(0) - 1 < 10)")
	assert.Contains(t, src, "\t\"time\"\n")

	var dups, overflows int
	for _, err := range f.compile(t) {
		switch {
		case strings.Contains(err, "duplicate key false"):
			dups++
		case strings.Contains(err, "overflows uint"):
			overflows++
		default:
			t.Errorf("unexpected error: %s", err)
		}
	}
	assert.Equal(t, 2, dups)
	assert.Equal(t, 1, overflows)
}

func TestSkipped(t *testing.T) {
	t.Parallel()
	f := generate(t, heredoc.Doc(`
		package a

		func Same[T, U any]() {
			//static:assert (T, U) T == U
		}

		func Four[T any]() {
			//static:assert (T) sizeof(T) == 4
		}

		func Ratio[T any](N int) {
			//static:assert (N: int, T) sizeof(T) * 1.5 > N
		}

		func use() {
			Same[int, int]()
			type local int32
			Four[local]()
			Ratio[int8](1)
		}
	`))
	assert.Nil(t, f.gen)
}

func TestWrite(t *testing.T) {
	t.Parallel()
	f := generate(t, heredoc.Doc(`
		package a

		func Four[T any]() {
			//static:assert (T) sizeof(T) == 4
		}

		var _ = Four[uint32]
	`))
	require.NotNil(t, f.gen)

	var out bytes.Buffer
	require.NoError(t, f.gen.Write(&out, true))
	assert.Equal(t, "// "+f.path+"\n"+string(f.gen.Src), out.String())
	assert.NoFileExists(t, f.path)

	require.NoError(t, f.gen.Write(&out, false))
	assert.FileExists(t, f.path)
	assert.Empty(t, f.compile(t))

	require.NoError(t, expand.RemoveStale(f.path))
	assert.NoFileExists(t, f.path)
	assert.NoError(t, expand.RemoveStale(f.path))
}

func TestRemoveStaleKeepsHandwritten(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "zz_staticassert_gen.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))
	assert.ErrorContains(t, expand.RemoveStale(path), "was not generated by staticassert")
	assert.FileExists(t, path)
}
