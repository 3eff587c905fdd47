package vm_test

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	e "github.com/rami3l/staticassert/errors"
	"github.com/rami3l/staticassert/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecls(t *testing.T) {
	t.Parallel()
	inv, err := vm.Parse(`(N: usize, T, U?, D: time.Duration) N > 0 => "msg"`)
	require.NoError(t, err)

	require.Len(t, inv.Decls, 4)
	assert.Equal(t, vm.DeclConst, inv.Decls[0].Kind)
	assert.Equal(t, "usize", inv.Decls[0].TypeExpr)
	assert.Equal(t, vm.DeclType, inv.Decls[1].Kind)
	assert.Equal(t, vm.DeclUnsizedType, inv.Decls[2].Kind)
	assert.Equal(t, "time.Duration", inv.Decls[3].TypeExpr)
	for i, name := range []string{"N", "T", "U", "D"} {
		assert.Equal(t, name, inv.Decls[i].Name.Lexeme)
	}

	assert.Equal(t, "N > 0", vm.JoinTokens(inv.Expr))
	assert.Equal(t, `"msg"`, vm.JoinTokens(inv.Message))
	assert.Equal(t, "(N: usize, T, U?, D: time.Duration) N > 0", inv.String())
}

func TestParseEmptyAndTrailingComma(t *testing.T) {
	t.Parallel()
	inv, err := vm.Parse("() 1 + 2 < 17")
	require.NoError(t, err)
	assert.Empty(t, inv.Decls)
	assert.Nil(t, inv.Message)

	inv, err = vm.Parse("(T,) sizeof(T) > 0")
	require.NoError(t, err)
	assert.Len(t, inv.Decls, 1)
}

func TestParseRefs(t *testing.T) {
	t.Parallel()
	inv, err := vm.Parse("(N: int) N > M && N < math.MaxInt8 && sizeof(Header) > 0")
	require.NoError(t, err)

	var refs []string
	for _, ref := range inv.Refs {
		if ref.Pkg != "" {
			refs = append(refs, ref.Pkg+"."+ref.Name.Lexeme)
			continue
		}
		refs = append(refs, ref.Name.Lexeme)
	}
	assert.Equal(t, []string{"M", "math.MaxInt8", "Header"}, refs)
}

func TestJoinTokens(t *testing.T) {
	t.Parallel()
	for input, output := range map[string]string{
		"()  -N+1==sizeof( T )":      "-N + 1 == sizeof(T)",
		"() !(a&&b)||len(\"x\")>0":   `!(a && b) || len("x") > 0`,
		"() pkg . Max - ^ 1 * ( 2 )": "pkg.Max - ^1 * (2)",
		"() 1 <<2>> 1 != 4 % 3":      "1 << 2 >> 1 != 4 % 3",
	} {
		inv, err := vm.Parse(input)
		require.NoError(t, err, input)
		assert.Equal(t, output, vm.JoinTokens(inv.Expr), input)
	}
}

func assertSyntaxError(t *testing.T, input, reason string) {
	t.Helper()
	_, err := vm.Parse(input)
	require.Error(t, err, input)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok, input)
	var synErr *e.SyntaxError
	require.ErrorAs(t, merr.Errors[0], &synErr, input)
	assert.Contains(t, synErr.Reason, reason, input)
}

func TestSyntaxErrors(t *testing.T) {
	t.Parallel()
	assertSyntaxError(t, "N > 0", "expect '(' before generic declarations")
	assertSyntaxError(t, "(N: usize N > 0", "expect ')' after generic declarations")
	assertSyntaxError(t, "(N: ) N > 0", "expect type after ':'")
	assertSyntaxError(t, "(N; usize) N > 0", "unexpected character")
	assertSyntaxError(t, "(const N: usize) N > 0", "without `const`")
	assertSyntaxError(t, "(T: ?Sized) true", "write T? instead of T: ?Sized")
	assertSyntaxError(t, "(T, T) true", "declared twice")
	assertSyntaxError(t, "() 1 = 1", "did you mean '=='?")
	assertSyntaxError(t, "() 1 < 2 =>", "expect expression")
	assertSyntaxError(t, `() 1 < 2 => "a" "b"`, "expect end of invocation")
	assertSyntaxError(t, "() => \"msg\"", "expect expression")
	assertSyntaxError(t, "() (1 < 2", "expect ')' after expression")
	assertSyntaxError(t, `() "abc`, "unterminated string")
	assertSyntaxError(t, "(T?) sizeof(T) > 0", "sizeof requires a sized type, but T is declared T?")
	assertSyntaxError(t, "(N: int) alignof(N) > 0", "alignof expects a type, but N is a const parameter")
	assertSyntaxError(t, "() 1e > 0", "exponent has no digits")
	assertSyntaxError(t, "() 0x1p > 0", "exponent has no digits")
	assertSyntaxError(t, "() 0x1.8 > 0", "hexadecimal mantissa requires a 'p' exponent")
	assertSyntaxError(t, "() 0b102 > 0", "malformed number literal")
	assertSyntaxError(t, "() 0o8 > 0", "malformed number literal")
}

func TestSyntaxErrorPosition(t *testing.T) {
	t.Parallel()
	_, err := vm.Parse("(N: usize)\n  N >> ) ")
	require.Error(t, err)

	var synErr *e.SyntaxError
	require.ErrorAs(t, err.(*multierror.Error).Errors[0], &synErr)
	assert.Equal(t, 2, synErr.Line)
	assert.Equal(t, 8, synErr.Col)
}

func TestRecoverAcrossDecls(t *testing.T) {
	t.Parallel()
	_, err := vm.Parse("(const N: int, M: ) true")
	require.Error(t, err)
	assert.Len(t, err.(*multierror.Error).Errors, 2)
}
