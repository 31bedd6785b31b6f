package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSearch struct{ name string }

func TestFragmentContext(t *testing.T) {
	ctx := NewFragmentContext(nil).
		RegisterFragment("UserSearch", &fakeSearch{name: "a"})

	require.Nil(t, ctx.DB())
	require.NotNil(t, ctx.Fragment("UserSearch"))
	require.Nil(t, ctx.Fragment("OrderSearch"))

	// 同名注册后者覆盖前者
	ctx.RegisterFragment("UserSearch", &fakeSearch{name: "b"})
	require.Equal(t, "b", ctx.Fragment("UserSearch").(*fakeSearch).name)
}

func TestFragmentOf(t *testing.T) {
	ctx := NewFragmentContext(nil).RegisterFragment("UserSearch", &fakeSearch{})

	got, err := FragmentOf[*fakeSearch](ctx, "UserSearch")
	require.NoError(t, err)
	require.NotNil(t, got)

	_, err = FragmentOf[*fakeSearch](ctx, "missing")
	require.ErrorContains(t, err, "未注册")

	_, err = FragmentOf[string](ctx, "UserSearch")
	require.ErrorContains(t, err, "类型不匹配")
}
