package aotgen

import (
	"testing"

	"github.com/donutnomad/repogen/internal/typeref"
	"github.com/stretchr/testify/require"
)

func TestFragmentMetadata_Fields(t *testing.T) {
	meta := NewFragmentMetadata()
	meta.AddField("db", "*gorm.DB")
	meta.AddEmbeddedField("*query.CrudFragment[User, uint]", "*query.CrudFragment[User, uint]")

	// 同名字段先写者胜
	meta.AddField("db", "*sql.DB")

	fields := meta.Fields()
	require.Len(t, fields, 2)
	require.Equal(t, "*gorm.DB", fields[0].Type)
	require.True(t, fields[1].Embedded)

	require.Equal(t, "db", meta.FieldNameOf("*gorm.DB"))
	require.Equal(t, "", meta.FieldNameOf("*redis.Client"))
	require.True(t, meta.HasField("db"))
}

func TestFragmentMetadata_ConstructorArguments(t *testing.T) {
	meta := NewFragmentMetadata()

	calls := 0
	supplier := func() ConstructorArgument {
		calls++
		return ConstructorArgument{
			Name:      "db",
			Type:      "*gorm.DB",
			FieldName: "db",
			Origin:    ByType("*gorm.DB"),
		}
	}

	meta.AddConstructorArgument("db", supplier)
	meta.AddConstructorArgument("db", supplier)
	require.Equal(t, 1, calls, "同名参数只计算一次")

	meta.AddConstructorArgument("frag", func() ConstructorArgument {
		return ConstructorArgument{
			Name:      "frag",
			Type:      "UserSearch",
			FieldName: "UserSearch",
			Embedded:  true,
			Origin:    ByNameAndType("UserSearch", "UserSearch"),
		}
	})

	args := meta.ConstructorArguments()
	require.Len(t, args, 2)
	require.Equal(t, "db", args[0].Name)
	require.Equal(t, "frag", args[1].Name)

	// 绑定的字段随参数一并登记
	require.True(t, meta.HasField("db"))
	require.True(t, meta.HasField("UserSearch"))
}

func TestFragmentMetadata_RemoveConstructorArguments(t *testing.T) {
	meta := NewFragmentMetadata()
	meta.AddConstructorArgument("db", func() ConstructorArgument {
		return ConstructorArgument{Name: "db", Type: "*gorm.DB", FieldName: "db", Origin: ByType("*gorm.DB")}
	})
	meta.AddConstructorArgument("cache", func() ConstructorArgument {
		return ConstructorArgument{Name: "cache", Type: "*Cache", FieldName: "cache", Origin: ByNameAndType("cache", "*Cache")}
	})

	meta.RemoveConstructorArguments("db")
	require.Len(t, meta.ConstructorArguments(), 1)
	require.False(t, meta.HasField("db"), "移除参数时同时移除绑定字段")
	require.True(t, meta.HasField("cache"))
}

func TestFragmentMetadata_MethodRegistries(t *testing.T) {
	meta := NewFragmentMetadata()
	m := &MethodDescriptor{
		Name:   "FindByEmail",
		Params: []ParamDescriptor{{Name: "email", Type: typeref.Named("", "string")}},
	}

	meta.AddRepositoryMethod(m, &MethodCode{Lines: []string{"return nil, nil"}})
	// 同签名再次登记不覆盖
	meta.AddRepositoryMethod(m, &MethodCode{Lines: []string{"panic(1)"}})

	locals := meta.RepositoryMethods()
	require.Len(t, locals, 1)
	require.Equal(t, []string{"return nil, nil"}, locals[0].Code.Lines)
	require.True(t, meta.HasMethod(m.Signature()))

	d := &MethodDescriptor{Name: "Save"}
	meta.AddDelegateMethod(d, nil)
	require.Len(t, meta.DelegateMethods(), 1)
	require.Nil(t, meta.DelegateMethods()[0].Fragment)
}

func TestOriginRender(t *testing.T) {
	expr, err := ByType("*gorm.DB").Render("ctx")
	require.NoError(t, err)
	require.Equal(t, "ctx.DB()", expr)

	expr, err = ByType("*Cache").Render("ctx")
	require.NoError(t, err)
	require.Equal(t, `ctx.Fragment("*Cache").(*Cache)`, expr)

	expr, err = ByNameAndType("UserSearch", "UserSearch").Render("ctx")
	require.NoError(t, err)
	require.Equal(t, `ctx.Fragment("UserSearch").(UserSearch)`, expr)

	expr, err = ReservedParameter().Render("ctx")
	require.NoError(t, err)
	require.Equal(t, "ctx", expr)

	expr, err = CustomOrigin("query.NewCrudFragment[User, uint](%s.DB())").Render("ctx")
	require.NoError(t, err)
	require.Equal(t, "query.NewCrudFragment[User, uint](ctx.DB())", expr)

	_, err = CustomOrigin("").Render("ctx")
	require.Error(t, err)
}
