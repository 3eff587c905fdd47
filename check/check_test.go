package check_test

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/rami3l/staticassert/check"
	e "github.com/rami3l/staticassert/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { logrus.SetLevel(logrus.DebugLevel) }

type fixture struct {
	c     *check.Checker
	diags []check.Diagnostic
}

func typecheck(t *testing.T, cfg check.Config, src string) fixture {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "a.go", src, parser.ParseComments)
	require.NoError(t, err)

	info := check.NewInfo()
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	pkg, err := conf.Check("a", fset, []*ast.File{file}, info)
	require.NoError(t, err)

	c := check.NewChecker(fset, types.SizesFor("gc", "amd64"), cfg)
	return fixture{c, c.Check([]*ast.File{file}, pkg, info)}
}

// lines renders each diagnostic as `line: message`.
func (f fixture) lines() (res []string) {
	for _, d := range f.diags {
		res = append(res, fmt.Sprintf("%d: %s", f.c.Fset.Position(d.Pos).Line, d.Message()))
	}
	return
}

func TestNonZero(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func foo(N uint) {
			//static:assert (N: uint) N != 0 => "N must be a non-zero value!"
		}

		func main() {
			foo(12)
			foo(0)
			foo(1 - 1)
		}
	`))
	assert.Equal(t, []string{
		"9: static assertion failed: N must be a non-zero value!",
		"10: static assertion failed: N must be a non-zero value!",
	}, f.lines())

	notes := f.diags[0].Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "assertion (N: uint) N != 0 at a.go:4:18; instance foo(N=0)", notes[0])
}

func TestGreater(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func bar(N, M int) {
			//static:assert (N: int, M: int) N > M => "N must be greater than M!"
		}

		func use() {
			bar(4, 7)
			bar(7, 4)
		}
	`))
	assert.Equal(t, []string{"8: static assertion failed: N must be greater than M!"}, f.lines())
}

func TestSizeof(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		const Half = 2

		func Four[T any]() {
			//static:assert (T) sizeof(T) == 4 => "T must be 4 bytes long!"
		}

		func Halve[T any](N int) {
			//static:assert (N: int, T) N == sizeof(T) / Half
		}

		func use() {
			Four[int32]()
			Four[int64]()
			Four[float32]()
			Halve[uint64](4)
			Halve[uint8](4)
		}
	`))
	assert.Equal(t, []string{
		"15: static assertion failed: T must be 4 bytes long!",
		"18: static assertion failed: Static assert failed.",
	}, f.lines())
	assert.Equal(t, "Four[int64]", f.diags[0].Instance.String())
	assert.Equal(t, "Halve[uint8](N=4)", f.diags[1].Instance.String())
}

func TestIndependentAssertions(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		// Window takes at least one and at most eight elements.
		//
		//static:assert (N: int) N > 0 => "empty window"
		//static:assert (N: int) N <= 8 => "window too large"
		func Window(N int) {}

		func use() {
			Window(0)
			Window(9)
			Window(4)
		}
	`))
	assert.Equal(t, []string{
		"10: static assertion failed: empty window",
		"11: static assertion failed: window too large",
	}, f.lines())
}

func TestConstantAssertions(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		//static:assert () 1 + 2 < 17
		//static:assert () 45 * 25 < 3

		func F[T any]() {
			//static:assert () len("abc") == 2 => "checked once"
		}

		func use() {
			F[int]()
			F[string]()
		}
	`))
	assert.Equal(t, []string{
		"4: static assertion failed: Static assert failed.",
		"7: static assertion failed: checked once",
	}, f.lines())
	assert.Empty(t, f.diags[0].Notes())
}

func TestGenericTypesAndMethods(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		//static:assert (T) sizeof(T) <= 8 => "T too large"
		type Box[T any] struct{ v T }

		var _ Box[int64]
		var _ Box[[4]int64]

		type List[T any] struct{ items []T }

		func (l *List[T]) Push(v T) {
			//static:assert (T) sizeof(T) > 1 => "use a bitset"
			l.items = append(l.items, v)
		}

		func use() {
			var l List[bool]
			l.Push(true)
			(*List[int16]).Push(&List[int16]{}, 1)
		}
	`))
	assert.Equal(t, []string{
		"7: static assertion failed: T too large",
		"18: static assertion failed: use a bitset",
	}, f.lines())
	assert.Equal(t, "List.Push[bool]", f.diags[1].Instance.String())
}

func TestCarriedRequirements(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func inner[T any]() {
			//static:assert (T) sizeof(T) <= 4 => "too big"
		}

		func outer[U any]() { inner[U]() }

		func outermost[V any]() { outer[[2]V]() }

		func foo(N uint) {
			//static:assert (N: uint) N != 0 => "zero"
		}

		func g(n uint) { foo(n) }

		func use() {
			outer[int8]()
			outer[int64]()
			outermost[int16]()
			outermost[int32]()
			g(3)
			g(0)
		}
	`))
	assert.Equal(t, []string{
		"19: static assertion failed: too big",
		"21: static assertion failed: too big",
		"23: static assertion failed: zero",
	}, f.lines())

	notes := f.diags[1].Notes()
	require.Len(t, notes, 3)
	assert.Equal(t, "assertion (T) sizeof(T) <= 4 at a.go:4:18; instance inner[[2]int32]", notes[0])
	assert.Equal(t, "required by inner[U] at a.go:7:23", notes[1])
	assert.Equal(t, "required by outer[[2]V] at a.go:9:27", notes[2])
}

func TestRecursionTerminates(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func grow[T any](n int) {
			//static:assert (T) sizeof(T) < 8
			if n > 0 {
				grow[T](n - 1)
			}
		}

		func use() { grow[int64](3) }
	`))
	assert.Equal(t, []string{"10: static assertion failed: Static assert failed."}, f.lines())
}

func TestCarryDepthBound(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func Four[T any]() {
			//static:assert (T) sizeof(T) == 4
		}

		func w1[T any]() { Four[T]() }
		func w2[T any]() { w1[T]() }
		func w3[T any]() { w2[T]() }
		func w4[T any]() { w3[T]() }
		func w5[T any]() { w4[T]() }
		func w6[T any]() { w5[T]() }
		func w7[T any]() { w6[T]() }
		func w8[T any]() { w7[T]() }
		func w9[T any]() { w8[T]() }

		func use() {
			w8[int64]()
			w9[int64]()
		}
	`))
	assert.Equal(t, []string{"18: static assertion failed: Static assert failed."}, f.lines())
	notes := f.diags[0].Notes()
	require.Len(t, notes, 9)
	assert.Equal(t, "required by Four[T] at a.go:7:20", notes[1])
	assert.Equal(t, "required by w7[T] at a.go:14:20", notes[8])
}

func TestSizedness(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func Unsized[T any]() {
			//static:assert (T?) T == T
		}

		func Sized[T any]() {
			//static:assert (T) true
		}

		func use() {
			Unsized[any]()
			Unsized[error]()
			Sized[int]()
			Sized[any]()
		}
	`))
	require.Len(t, f.diags, 1)
	assert.Equal(t, 15, f.c.Fset.Position(f.diags[0].Pos).Line)
	var boundErr *e.BoundError
	require.ErrorAs(t, f.diags[0].Err, &boundErr)
	assert.Equal(t, "T", boundErr.Name)
	assert.Contains(t, f.diags[0].Message(), "declare it as T? to allow interface types")
}

func TestBindErrors(t *testing.T) {
	t.Parallel()
	for src, reason := range map[string]string{
		"func F[T any](n int) {\n//static:assert () sizeof(T) > 0\n}":       "cannot use generic parameter T from outer scope; declare it first: (T)",
		"func F(n int) {\n//static:assert () n > 0\n}":                      "cannot use generic parameter n from outer scope; declare it first: (n: int)",
		"func F(N int) {\n//static:assert (N) N > 0\n}":                     "const parameter N needs an explicit type: (N: int)",
		"func F(N int) {\n//static:assert (N: uint) N > 0\n}":               "N is declared as uint, but the parameter has type int",
		"func F(N int) {\n//static:assert (M: int) M > 0\n}":                "M is not a parameter of F",
		"func F[T any]() {\n//static:assert (T: int) T > 0\n}":              "T is a type parameter of F; declare it as (T)",
		"func F[T any]() {\n//static:assert (U) true\n}":                    "U is not a type parameter of F",
		"func F(N ...int) {\n//static:assert (N: int) true\n}":              "N is variadic",
		"func F(N int) {\n//static:assert (N: Nope) N > 0\n}":               "undefined type Nope",
		"func F(p *int) {\n//static:assert (p: *int) true\n}":               "expect type after ':'",
		"type S[T any] struct{}\n//static:assert (N: int) N > 0\nvar x int": "generic parameter declared outside a generic function or type",
		"//static:assert (N: int) N > 0\ntype S[T any] struct{}":            "N cannot be a const parameter of type S",
	} {
		f := typecheck(t, check.Config{}, "package a\n\n"+src+"\n")
		require.NotEmpty(t, f.diags, src)
		assert.Contains(t, f.diags[0].Message(), reason, src)
	}
}

func TestOuterScopeIsBindError(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func F[T any]() {
			//static:assert () sizeof(T) > 0
		}

		func use() { F[int]() }
	`))
	require.Len(t, f.diags, 1)
	var bindErr *e.BindError
	require.ErrorAs(t, f.diags[0].Err, &bindErr)
	assert.Equal(t, "T", bindErr.Name)
}

func TestSyntaxErrorPosition(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, "package a\n\nfunc F(N uint) {\n\t//static:assert (N: uint N > 0\n}\n")
	require.NotEmpty(t, f.diags)
	var synErr *e.SyntaxError
	require.ErrorAs(t, f.diags[0].Err, &synErr)

	pos := f.c.Fset.Position(f.diags[0].Pos)
	assert.Equal(t, 4, pos.Line)
	// The directive text starts at column 18, and the stray N is its 10th
	// rune.
	assert.Equal(t, 27, pos.Column)
}

func TestStrict(t *testing.T) {
	t.Parallel()
	src := heredoc.Doc(`
		package a

		func foo(N uint) {
			//static:assert (N: uint) N != 0
		}

		func h(n uint) { foo(n + 1) }

		func bar[T any](N uint) {
			//static:assert (N: uint) N != 0
		}

		var f = bar[int]
	`)
	assert.Empty(t, typecheck(t, check.Config{}, src).diags)

	lines := typecheck(t, check.Config{Strict: true}, src).lines()
	assert.Equal(t, []string{
		"7: unverifiable instantiation: the argument of foo for N is not a constant",
		"13: unverifiable instantiation: bar[int] is used as a value, so the argument for N is unknown",
	}, lines)
}

func TestQualifiedNames(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		import "math"

		var Pi = math.Pi

		func Bits[T any](N int) {
			//static:assert (N: int, T) N <= math.MaxInt8 && sizeof(T) * 8 >= N
		}

		func use() {
			Bits[uint16](16)
			Bits[uint16](17)
			Bits[uint16](200)
		}
	`))
	assert.Equal(t, []string{
		"13: static assertion failed: Static assert failed.",
		"14: static assertion failed: Static assert failed.",
	}, f.lines())
}

func TestQualifiedConstType(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		import "time"

		func Wait(D time.Duration) {
			//static:assert (D: time.Duration) D >= time.Millisecond => "too short"
		}

		func use() {
			Wait(time.Second)
			Wait(3)
		}
	`))
	assert.Equal(t, []string{"11: static assertion failed: too short"}, f.lines())
}

func TestTypedOverflow(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func Dec(N uint) {
			//static:assert (N: uint) N - 1 < 10
		}

		func Wide(N uint8) {
			//static:assert (N: uint8) N * 2 > 100
		}

		func use() {
			Dec(5)
			Dec(0)
			Wide(60)
			Wide(200)
		}
	`))
	lines := f.lines()
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "13: "), lines[0])
	assert.Contains(t, lines[0], "constant -1 overflows uint")
	assert.True(t, strings.HasPrefix(lines[1], "15: "), lines[1])
	assert.Contains(t, lines[1], "constant 400 overflows uint8")
}

func TestFormat(t *testing.T) {
	t.Parallel()
	f := typecheck(t, check.Config{}, heredoc.Doc(`
		package a

		func foo(N uint) {
			//static:assert (N: uint) N != 0 => "N must be a non-zero value!"
		}

		var _ = func() int { foo(0); return 0 }()
	`))
	require.Len(t, f.diags, 1)
	assert.Equal(t,
		"a.go:7:22: static assertion failed: N must be a non-zero value!\n"+
			"\tassertion (N: uint) N != 0 at a.go:4:18; instance foo(N=0)",
		f.c.Format(f.diags[0]))
	assert.ErrorContains(t, f.c.Err(f.diags), "a.go:7:22: static assertion failed")
}
