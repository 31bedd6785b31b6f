package aotgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newSearchContext(t *testing.T) *MethodContext {
	t.Helper()
	model := newUserModel(t)
	m := &MethodDescriptor{
		Name: "FindByStatusAndAgeGreaterThan",
		Params: []ParamDescriptor{
			ctxParam(t),
			{Name: "status", Type: mustType(t, "string")},
			{Name: "age", Type: mustType(t, "int")},
			{Name: "page", Type: mustType(t, "query.Pageable")},
			{Name: "sort", Type: mustType(t, "query.Sort")},
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "[]User")},
			{Name: "", Type: mustType(t, "error")},
		},
	}
	meta := NewFragmentMetadata()
	meta.AddField("db", "*gorm.DB")
	return NewMethodContext(model, m, meta)
}

func TestMethodContext_ParameterLookups(t *testing.T) {
	ctx := newSearchContext(t)

	// 特殊参数不参与绑定
	require.Equal(t, []string{"status", "age"}, ctx.BindableParameterNames())

	name, ok := ctx.ContextParameterName()
	require.True(t, ok)
	require.Equal(t, "ctx", name)

	name, ok = ctx.PageableParameterName()
	require.True(t, ok)
	require.Equal(t, "page", name)

	name, ok = ctx.SortParameterName()
	require.True(t, ok)
	require.Equal(t, "sort", name)

	_, ok = ctx.LimitParameterName()
	require.False(t, ok)
	_, ok = ctx.VectorParameterName()
	require.False(t, ok)
}

func TestMethodContext_BindableByIndexAndName(t *testing.T) {
	ctx := newSearchContext(t)

	require.Equal(t, "status", ctx.BindableParameterName(0))
	require.Equal(t, "age", ctx.BindableParameterName(1))
	require.Equal(t, "", ctx.BindableParameterName(2))

	got, err := ctx.RequiredBindableParameterName(1)
	require.NoError(t, err)
	require.Equal(t, "age", got)

	_, err = ctx.RequiredBindableParameterName(5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no bindable parameter with index 5")

	got, err = ctx.RequiredBindableParameterNameByName("status")
	require.NoError(t, err)
	require.Equal(t, "status", got)

	// page 是特殊参数，不可绑定
	_, err = ctx.RequiredBindableParameterNameByName("page")
	require.Error(t, err)
}

func TestMethodContext_ReturnShapes(t *testing.T) {
	model := newUserModel(t)
	meta := NewFragmentMetadata()

	newCtx := func(results ...string) *MethodContext {
		m := &MethodDescriptor{Name: "FindByEmail"}
		for _, r := range results {
			m.Results = append(m.Results, ParamDescriptor{Type: mustType(t, r)})
		}
		return NewMethodContext(model, m, meta)
	}

	// 切片结果
	ctx := newCtx("[]User", "error")
	require.True(t, ctx.IsArray())
	require.False(t, ctx.IsOptional())
	require.Equal(t, "[]User", ctx.ReturnTypeName())
	require.Equal(t, "User", ctx.ActualReturnTypeName())
	require.False(t, ctx.IsProjecting())

	// 指针结果（可空）
	ctx = newCtx("*User", "error")
	require.True(t, ctx.IsOptional())
	require.False(t, ctx.IsArray())
	require.Equal(t, "User", ctx.ActualReturnTypeName())

	// 纯 error
	ctx = newCtx("error")
	require.True(t, ctx.IsVoid())
	require.Equal(t, "", ctx.ReturnTypeName())

	// 标量结果不算投影
	ctx = newCtx("int64", "error")
	require.False(t, ctx.IsProjecting())

	// 非领域类型的结果是投影
	ctx = newCtx("[]UserSummary", "error")
	require.True(t, ctx.IsProjecting())
	require.False(t, ctx.IsInterfaceProjection())

	// 包内接口投影
	ctx = newCtx("[]UserSearch", "error")
	require.True(t, ctx.IsInterfaceProjection())
}

func TestMethodContext_LocalVariable(t *testing.T) {
	model := newUserModel(t)
	m := &MethodDescriptor{
		Name: "FindByResult",
		Params: []ParamDescriptor{
			{Name: "result", Type: mustType(t, "string")},
		},
	}
	ctx := NewMethodContext(model, m, NewFragmentMetadata())

	// 与参数名冲突时换名，且同一逻辑名在方法内稳定
	first := ctx.LocalVariable("result")
	require.Equal(t, "result_1", first)
	require.Equal(t, first, ctx.LocalVariable("result"))

	require.Equal(t, "db", ctx.LocalVariable("db"))
}

func TestMethodContext_FieldNameOf(t *testing.T) {
	ctx := newSearchContext(t)
	require.Equal(t, "db", ctx.FieldNameOf("*gorm.DB"))
	require.Equal(t, "", ctx.FieldNameOf("*redis.Client"))
}
