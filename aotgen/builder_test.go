package aotgen

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// MockMethodContributor 手写的 gomock 风格 MethodContributor 替身
type MockMethodContributor struct {
	ctrl     *gomock.Controller
	recorder *MockMethodContributorMockRecorder
}

type MockMethodContributorMockRecorder struct {
	mock *MockMethodContributor
}

func NewMockMethodContributor(ctrl *gomock.Controller) *MockMethodContributor {
	mock := &MockMethodContributor{ctrl: ctrl}
	mock.recorder = &MockMethodContributorMockRecorder{mock: mock}
	return mock
}

func (m *MockMethodContributor) EXPECT() *MockMethodContributorMockRecorder {
	return m.recorder
}

func (m *MockMethodContributor) Contribute(ctx *MethodContext) (*MethodCode, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Contribute", ctx)
	ret0, _ := ret[0].(*MethodCode)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockMethodContributorMockRecorder) Contribute(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Contribute",
		reflect.TypeOf((*MockMethodContributor)(nil).Contribute), ctx)
}

func newBuildableModel(t *testing.T) *RepositoryModel {
	t.Helper()
	model := newUserModel(t)
	addLocalMethod(model, &MethodDescriptor{
		Name: "FindByEmail",
		Params: []ParamDescriptor{
			ctxParam(t),
			{Name: "email", Type: mustType(t, "string")},
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "*User")},
			{Name: "", Type: mustType(t, "error")},
		},
	})
	return model
}

func TestRepositoryBuilder_Build(t *testing.T) {
	model := newBuildableModel(t)
	addLocalMethod(model, &MethodDescriptor{
		Name:   "Archive",
		Params: []ParamDescriptor{ctxParam(t)},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "error")},
		},
	})

	res, err := NewRepositoryBuilder(model, nil).Build()
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	// 构造函数：单个 FragmentContext 参数 + 逐字段取值
	ctor := res.Constructor
	require.Equal(t, "NewUserRepositoryImpl", ctor.Name)
	require.Equal(t, []CtorParam{{Name: "ctx", Type: "*query.FragmentContext"}}, ctor.Params)
	require.Equal(t, []string{
		"db := ctx.DB()",
		"crudFragment := query.NewCrudFragment[User, uint](ctx.DB())",
		`userSearch := ctx.Fragment("UserSearch").(UserSearch)`,
	}, ctor.Lines)
	require.Equal(t,
		"&UserRepositoryImpl{db: db, CrudFragment: crudFragment, UserSearch: userSearch}",
		ctor.ReturnExpr)

	// 结构体字段：db + 两个嵌入 fragment
	fields := res.Meta.Fields()
	require.Len(t, fields, 3)
	require.Equal(t, "db", fields[0].Name)
	require.True(t, fields[1].Embedded)
	require.True(t, fields[2].Embedded)

	// 本地生成的方法与委托
	require.Len(t, res.Meta.RepositoryMethods(), 1)
	require.Equal(t, "FindByEmail", res.Meta.RepositoryMethods()[0].Method.Name)

	// Archive 无法识别：未实现的委托
	var unimplemented int
	for _, d := range res.Meta.DelegateMethods() {
		if d.Fragment == nil {
			unimplemented++
			require.Equal(t, "Archive", d.Method.Name)
		}
	}
	require.Equal(t, 1, unimplemented)

	// 清单条目与分类一致
	entry, ok := res.Manifest.MethodFor("FindByEmail")
	require.True(t, ok)
	require.Equal(t, "query", entry.Kind)
	require.Equal(t, "email = ?", entry.Query.Attribute("where"))

	entry, ok = res.Manifest.MethodFor("Save")
	require.True(t, ok)
	require.Equal(t, "base-delegate", entry.Kind)
	require.NotNil(t, entry.Fragment)
	require.Equal(t, "query.CrudRepository[User, uint]", entry.Fragment.Interface)

	entry, ok = res.Manifest.MethodFor("SearchByKeyword")
	require.True(t, ok)
	require.Equal(t, "fragment", entry.Kind)
	require.Equal(t, "UserSearchImpl", entry.Fragment.Implementation)

	entry, ok = res.Manifest.MethodFor("Archive")
	require.True(t, ok)
	require.Equal(t, "unsupported", entry.Kind)

	// 方法体需要的导入被收集
	require.Contains(t, res.Imports, Import{Path: "errors"})
}

func TestRepositoryBuilder_ContributorErrorFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockMethodContributor(ctrl)
	mock.EXPECT().Contribute(gomock.Any()).Return(nil, errors.New("boom"))

	model := newBuildableModel(t)
	res, err := NewRepositoryBuilder(model, mock).Build()
	require.NoError(t, err, "单个方法失败不中断整个仓储")

	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "FindByEmail")
	require.Contains(t, res.Warnings[0], "boom")

	// 回退为未实现的委托
	entry, ok := res.Manifest.MethodFor("FindByEmail")
	require.True(t, ok)
	require.Equal(t, "unsupported", entry.Kind)
	require.Empty(t, res.Meta.RepositoryMethods())
}

func TestRepositoryBuilder_ContributorPanicIsolated(t *testing.T) {
	model := newBuildableModel(t)
	contributor := ContributorFunc(func(ctx *MethodContext) (*MethodCode, error) {
		panic("contributor exploded")
	})

	res, err := NewRepositoryBuilder(model, contributor).Build()
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "panic")
}

func TestRepositoryBuilder_DeclineFallsBackToFragment(t *testing.T) {
	// 本接口重新声明了 fragment 的方法；生成器放弃时委托给 fragment
	ctrl := gomock.NewController(t)
	mock := NewMockMethodContributor(ctrl)
	mock.EXPECT().Contribute(gomock.Any()).Return(nil, nil)

	model := newUserModel(t)
	addLocalMethod(model, &MethodDescriptor{
		Name: "SearchByKeyword",
		Params: []ParamDescriptor{
			ctxParam(t),
			{Name: "keyword", Type: mustType(t, "string")},
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "[]User")},
			{Name: "", Type: mustType(t, "error")},
		},
	})

	res, err := NewRepositoryBuilder(model, mock).Build()
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	entry, ok := res.Manifest.MethodFor("SearchByKeyword")
	require.True(t, ok)
	require.Equal(t, "fragment", entry.Kind)
	require.Equal(t, "UserSearch", entry.Fragment.Interface)

	// 本地重新声明与 fragment 声明合并为一个清单条目
	count := 0
	for _, e := range res.Manifest.Methods {
		if e.Name == "SearchByKeyword" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

// addBaseMethod 测试辅助：向基础 fragment 追加方法声明
func addBaseMethod(model *RepositoryModel, m *MethodDescriptor) *MethodDescriptor {
	m.DeclaredBy = "query.CrudRepository"
	m.Origin = OriginBase
	model.Fragments[0].Signatures = append(model.Fragments[0].Signatures, m.Signature())
	model.Methods = append(model.Methods, m)
	return m
}

func TestRepositoryBuilder_RedeclaredMethodSingleManifestEntry(t *testing.T) {
	// 同一签名经基础嵌入与本接口重新声明两次到达，只产生一个清单条目
	model := newUserModel(t)
	addBaseMethod(model, &MethodDescriptor{
		Name: "FindByID",
		Params: []ParamDescriptor{
			ctxParam(t),
			{Name: "id", Type: mustType(t, "uint")},
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "*User")},
			{Name: "", Type: mustType(t, "error")},
		},
	})
	addLocalMethod(model, &MethodDescriptor{
		Name: "FindByID",
		Params: []ParamDescriptor{
			ctxParam(t),
			{Name: "id", Type: mustType(t, "uint")},
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "*User")},
			{Name: "", Type: mustType(t, "error")},
		},
	})

	res, err := NewRepositoryBuilder(model, nil).Build()
	require.NoError(t, err)

	var entries []MethodMetadata
	for _, entry := range res.Manifest.Methods {
		if entry.Name == "FindByID" {
			entries = append(entries, entry)
		}
	}
	require.Len(t, entries, 1)
	require.Equal(t, "query", entries[0].Kind)

	require.Len(t, res.Meta.RepositoryMethods(), 1)
	require.Equal(t, "FindByID", res.Meta.RepositoryMethods()[0].Method.Name)
}

func TestRepositoryBuilder_BaseQueryMethodGeneratedLocally(t *testing.T) {
	// 基础方法命名符合派生查询约定时本地生成，不再委托嵌入字段
	model := newUserModel(t)
	addBaseMethod(model, &MethodDescriptor{
		Name: "ExistsByID",
		Params: []ParamDescriptor{
			ctxParam(t),
			{Name: "id", Type: mustType(t, "uint")},
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "bool")},
			{Name: "", Type: mustType(t, "error")},
		},
	})

	res, err := NewRepositoryBuilder(model, nil).Build()
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	require.Len(t, res.Meta.RepositoryMethods(), 1)
	require.Equal(t, "ExistsByID", res.Meta.RepositoryMethods()[0].Method.Name)

	entry, ok := res.Manifest.MethodFor("ExistsByID")
	require.True(t, ok)
	require.Equal(t, "query", entry.Kind)
	require.Equal(t, "id = ?", entry.Query.Attribute("where"))

	// 非查询命名的基础方法仍然委托
	entry, ok = res.Manifest.MethodFor("Save")
	require.True(t, ok)
	require.Equal(t, "base-delegate", entry.Kind)
}

func TestRepositoryBuilder_BaseQueryMethodFallsBackOnError(t *testing.T) {
	// 基础查询方法生成失败时回退为基础委托而不是未实现
	ctrl := gomock.NewController(t)
	mock := NewMockMethodContributor(ctrl)
	mock.EXPECT().Contribute(gomock.Any()).Return(nil, errors.New("boom"))

	model := newUserModel(t)
	addBaseMethod(model, &MethodDescriptor{
		Name: "FindByID",
		Params: []ParamDescriptor{
			ctxParam(t),
			{Name: "id", Type: mustType(t, "uint")},
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "*User")},
			{Name: "", Type: mustType(t, "error")},
		},
	})

	res, err := NewRepositoryBuilder(model, mock).Build()
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)

	entry, ok := res.Manifest.MethodFor("FindByID")
	require.True(t, ok)
	require.Equal(t, "base-delegate", entry.Kind)
	require.NotNil(t, entry.Fragment)
}

func TestRepositoryBuilder_StreamingRepositoryDelegatesQueries(t *testing.T) {
	// 仓储只要有方法返回通道，所有查询方法都按委托登记，不做本地生成
	model := newBuildableModel(t)
	addLocalMethod(model, &MethodDescriptor{
		Name: "WatchAll",
		Params: []ParamDescriptor{
			ctxParam(t),
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "<-chan User")},
			{Name: "", Type: mustType(t, "error")},
		},
	})

	res, err := NewRepositoryBuilder(model, nil).Build()
	require.NoError(t, err)

	require.Empty(t, res.Meta.RepositoryMethods())
	require.Equal(t, "STREAMING", res.Manifest.Type)

	// 无人声明的查询方法记录为未实现的委托
	entry, ok := res.Manifest.MethodFor("FindByEmail")
	require.True(t, ok)
	require.Equal(t, "unsupported", entry.Kind)

	// 非查询方法不受影响
	entry, ok = res.Manifest.MethodFor("Save")
	require.True(t, ok)
	require.Equal(t, "base-delegate", entry.Kind)
}

func TestRepositoryBuilder_UnresolvableGenericsSkipContributor(t *testing.T) {
	// 含不可解析类型参数的方法不调用生成器，直接回退
	ctrl := gomock.NewController(t)
	mock := NewMockMethodContributor(ctrl)

	model := newUserModel(t)
	model.TypeParams = []TypeParamDecl{
		{Name: "K", Constraint: mustType(t, "V", "V")},
		{Name: "V", Constraint: mustType(t, "any")},
	}
	addLocalMethod(model, &MethodDescriptor{
		Name: "FindByKey",
		Params: []ParamDescriptor{
			ctxParam(t),
			{Name: "key", Type: mustType(t, "K", "K", "V")},
		},
		Results: []ParamDescriptor{
			{Name: "", Type: mustType(t, "*User")},
			{Name: "", Type: mustType(t, "error")},
		},
	})

	res, err := NewRepositoryBuilder(model, mock).Build()
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "FindByKey")

	entry, ok := res.Manifest.MethodFor("FindByKey")
	require.True(t, ok)
	require.Equal(t, "unsupported", entry.Kind)
}
