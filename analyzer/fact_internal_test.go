package analyzer

import (
	"go/constant"
	"go/token"
	"testing"

	"github.com/rami3l/staticassert/check"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstFact(t *testing.T) {
	t.Parallel()
	vals := []constant.Value{
		constant.MakeInt64(-12),
		constant.MakeFromLiteral("1180591620717411303424", token.INT, 0),
		constant.MakeFloat64(1.5),
		constant.BinaryOp(constant.MakeInt64(1), token.QUO, constant.MakeInt64(3)),
		constant.MakeString("a \"quoted\"\nstring"),
		constant.MakeBool(true),
	}
	for _, val := range vals {
		val := val
		t.Run(val.ExactString(), func(t *testing.T) {
			t.Parallel()
			arg, ok := encodeConst(check.ConstArg{Value: val}).decode()
			require.True(t, ok)
			assert.True(t, constant.Compare(val, token.EQL, arg.Value), "got %s", arg.Value)
		})
	}

	arg, ok := encodeConst(check.ConstArg{Param: "N"}).decode()
	require.True(t, ok)
	assert.Equal(t, check.ConstArg{Param: "N"}, arg)
}
