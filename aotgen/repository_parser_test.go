package aotgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRepository_UserRepository(t *testing.T) {
	model, err := ParseRepository("example/repository.go", "UserRepository", ParseOptions{})
	require.NoError(t, err)

	require.Equal(t, "UserRepository", model.Name)
	require.Equal(t, "example", model.PackageName)
	require.Equal(t, "github.com/donutnomad/repogen/aotgen/example", model.PackagePath)
	require.Equal(t, "UserRepositoryImpl", model.ImplName())

	// 领域与主键从嵌入的 CrudRepository 实参推断
	require.Equal(t, "User", model.Domain.String())
	require.Equal(t, "uint", model.ID.String())
	require.False(t, model.IsStreaming())

	// 基础 fragment + 自定义 fragment
	require.Len(t, model.Fragments, 2)
	base := model.Fragments[0]
	require.True(t, base.Base)
	require.Equal(t, "query.CrudRepository[User, uint]", base.Interface)
	require.Equal(t, "*query.CrudFragment[User, uint]", base.FieldType)

	search := model.Fragments[1]
	require.False(t, search.Base)
	require.Equal(t, "UserSearchFragment", search.Interface)
	// 同包存在 <接口名>Impl 结构体时记为实现
	require.Equal(t, "UserSearchFragmentImpl", search.Implementation)
	require.Contains(t, search.Signatures, "SearchByKeyword(context.Context, string) ([]User, error)")

	// 8 个基础 CRUD 方法 + 1 个 fragment 方法 + 11 个本地方法
	require.Len(t, model.Methods, 20)

	// 包内接口集合用于投影判定
	require.True(t, model.KnownInterfaces["UserSearchFragment"])
	require.True(t, model.KnownInterfaces["OrderRepository"])
}

func TestParseRepository_Classification(t *testing.T) {
	model, err := ParseRepository("example/repository.go", "UserRepository", ParseOptions{})
	require.NoError(t, err)

	byName := make(map[string]*MethodDescriptor)
	for _, m := range model.Methods {
		byName[m.Name] = m
	}

	require.Equal(t, KindBaseDelegate, Classify(byName["Save"], model))
	require.Equal(t, KindBaseDelegate, Classify(byName["FindAllPaged"], model))
	require.Equal(t, KindFragment, Classify(byName["SearchByKeyword"], model))
	require.Equal(t, KindQuery, Classify(byName["FindByEmail"], model))
	require.Equal(t, KindQuery, Classify(byName["CountByStatus"], model))
	require.Equal(t, KindQuery, Classify(byName["DeleteByStatus"], model))

	// 命名符合派生查询约定的基础方法也走查询路径
	require.Equal(t, KindQuery, Classify(byName["FindByID"], model))
	require.Equal(t, KindQuery, Classify(byName["ExistsByID"], model))
	require.Equal(t, KindQuery, Classify(byName["DeleteByID"], model))
}

func TestParseRepository_OrderRepository(t *testing.T) {
	model, err := ParseRepository("example/repository.go", "OrderRepository", ParseOptions{})
	require.NoError(t, err)

	require.Equal(t, "Order", model.Domain.String())
	require.Equal(t, "uint", model.ID.String())
	require.Len(t, model.Fragments, 1)
	require.True(t, model.Fragments[0].Base)
	// 8 个基础方法 + 5 个本地方法
	require.Len(t, model.Methods, 13)
}

func TestParseRepository_DomainOverride(t *testing.T) {
	model, err := ParseRepository("example/repository.go", "OrderRepository", ParseOptions{
		Domain: "User",
		ID:     "string",
	})
	require.NoError(t, err)
	// 注解参数优先于嵌入推断
	require.Equal(t, "User", model.Domain.String())
	require.Equal(t, "string", model.ID.String())
}

func TestParseRepository_Errors(t *testing.T) {
	_, err := ParseRepository("example/repository.go", "NoSuchRepository", ParseOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "未找到接口")

	// 无嵌入 CrudRepository 且注解未指定 domain
	_, err = ParseRepository("example/repository.go", "UserSearchFragment", ParseOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "无法确定领域类型")

	_, err = ParseRepository("example/nonexistent.go", "UserRepository", ParseOptions{})
	require.Error(t, err)
}

func TestParseRepository_FullBuild(t *testing.T) {
	// 端到端：解析示例接口并完成整个构建流程
	model, err := ParseRepository("example/repository.go", "UserRepository", ParseOptions{})
	require.NoError(t, err)

	res, err := NewRepositoryBuilder(model, nil).Build()
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	// 11 个本地方法 + 3 个查询命名的基础方法全部生成了查询方法体
	require.Len(t, res.Meta.RepositoryMethods(), 14)
	for _, d := range res.Meta.DelegateMethods() {
		require.NotNil(t, d.Fragment, "方法 %s 不应回退为未实现", d.Method.Name)
	}

	// 清单覆盖全部非跳过方法
	require.Len(t, res.Manifest.Methods, 20)
}
