package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := App()
	var out bytes.Buffer
	app.SetOut(&out)
	app.SetArgs(args)
	err := app.Execute()
	return out.String(), err
}

func TestEval(t *testing.T) {
	const inv = `(N: int, T) N * sizeof(T) <= 64 => "too big"`

	out, err := execute(t, "eval", inv, "--arg", "N=4", "-a", "T=int64")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	out, err = execute(t, "eval", inv, "--arg", "N=16", "-a", "T=int64")
	assert.ErrorIs(t, err, errFailed)
	assert.Equal(t, "static assertion failed: too big\n", out)

	_, err = execute(t, "eval", inv, "--arg", "N")
	assert.ErrorContains(t, err, "malformed binding")
}

func TestEvalTypedConst(t *testing.T) {
	out, err := execute(t, "eval", "(N: uint) N > 0", "--arg", "N=-1")
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "N: constant -1 overflows uint")

	out, err = execute(t, "eval", "(N: uint8) N * 2 > 100", "--arg", "N=200")
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "constant 400 overflows uint8")
}

func TestExpandHelp(t *testing.T) {
	out, err := execute(t, "expand", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, `only "duplicate key false in map`)
	assert.Contains(t, out, `Run "staticassert check"`)
}

func TestREPLFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.txt")
	require.NoError(t, os.WriteFile(path, []byte(heredoc.Doc(`
		:bind N=3
		N * 2
		(N: int) N > 2
		(N: int) N > 5 => "small"
		:env
	`)), 0o644))

	out, err := execute(t, "repl", path)
	require.NoError(t, err)
	assert.Equal(t, "6\nok\nN = 3\n", out)
}

func TestInvokedByVet(t *testing.T) {
	t.Parallel()
	for _, args := range [][]string{
		{"-flags"},
		{"-V=full"},
		{"/tmp/go-build/vet.cfg"},
		{"-strict=true", "/tmp/go-build/vet.cfg"},
	} {
		assert.True(t, InvokedByVet(args), args)
	}
	for _, args := range [][]string{
		nil,
		{"check", "./..."},
		{"eval", "() true"},
	} {
		assert.False(t, InvokedByVet(args), args)
	}
}
