package typeref

import (
	"go/ast"
	"go/parser"
	"testing"

	"github.com/stretchr/testify/require"
)

func parseRef(t *testing.T, src string, typeParams ...string) Ref {
	t.Helper()
	expr, err := parser.ParseExpr(src)
	require.NoError(t, err)
	tp := make(map[string]bool)
	for _, n := range typeParams {
		tp[n] = true
	}
	return Parse(expr, tp)
}

func TestParse(t *testing.T) {
	r := parseRef(t, "User")
	require.Equal(t, KindNamed, r.Kind)
	require.Equal(t, "User", r.Name)
	require.Empty(t, r.Pkg)

	r = parseRef(t, "query.Pageable")
	require.Equal(t, KindNamed, r.Kind)
	require.Equal(t, "query", r.Pkg)
	require.Equal(t, "Pageable", r.Name)

	r = parseRef(t, "*User")
	require.Equal(t, KindPointer, r.Kind)
	require.Equal(t, "User", r.Elem.Name)

	r = parseRef(t, "[]User")
	require.Equal(t, KindSlice, r.Kind)

	r = parseRef(t, "[4]byte")
	require.Equal(t, KindArray, r.Kind)
	require.Equal(t, "4", r.Name)

	r = parseRef(t, "map[string]int")
	require.Equal(t, KindMap, r.Kind)
	require.Equal(t, "string", r.Key.Name)
	require.Equal(t, "int", r.Val.Name)

	r = parseRef(t, "<-chan User")
	require.Equal(t, KindChan, r.Kind)
	require.Equal(t, "<-chan", r.Name)

	// 裸省略号不是合法表达式，按参数列表里的 AST 形式构造
	r = Parse(&ast.Ellipsis{Elt: ast.NewIdent("string")}, nil)
	require.Equal(t, KindEllipsis, r.Kind)
	require.Equal(t, "string", r.Elem.Name)

	r = parseRef(t, "T", "T")
	require.Equal(t, KindTypeParam, r.Kind)

	// 未声明的单字母标识符仍是命名类型
	r = parseRef(t, "T")
	require.Equal(t, KindNamed, r.Kind)
}

func TestParseGeneric(t *testing.T) {
	r := parseRef(t, "CrudRepository[User, uint]")
	require.Equal(t, KindNamed, r.Kind)
	require.Equal(t, "CrudRepository", r.Name)
	require.Len(t, r.Args, 2)
	require.Equal(t, "User", r.Args[0].Name)
	require.Equal(t, "uint", r.Args[1].Name)

	r = parseRef(t, "query.CrudFragment[D]", "D")
	require.Len(t, r.Args, 1)
	require.Equal(t, KindTypeParam, r.Args[0].Kind)
}

func TestParseConstraintUnion(t *testing.T) {
	r := parseRef(t, "~string | int")
	require.Equal(t, KindUnion, r.Kind)
	require.Len(t, r.Terms, 2)
	require.True(t, r.Terms[0].Approx)
	require.False(t, r.Terms[1].Approx)
	require.Equal(t, "~string | int", r.String())

	// 多项联合展平为单层
	r = parseRef(t, "int | int32 | int64")
	require.Len(t, r.Terms, 3)
}

func TestString(t *testing.T) {
	// 解析后再渲染应回到源码形式
	for _, src := range []string{
		"User",
		"*User",
		"[]*User",
		"[4]byte",
		"map[string][]User",
		"chan User",
		"<-chan User",
		"chan<- User",
		"query.CrudRepository[User, uint]",
		"func(int, string) (bool, error)",
	} {
		require.Equal(t, src, parseRef(t, src).String())
	}

	require.Equal(t, "any", parseRef(t, "interface{}").String())
	require.Equal(t, "...string",
		Parse(&ast.Ellipsis{Elt: ast.NewIdent("string")}, nil).String())
}

func TestSimpleName(t *testing.T) {
	require.Equal(t, "User", parseRef(t, "*[]User").SimpleName())
	require.Equal(t, "CrudRepository", parseRef(t, "query.CrudRepository[User, uint]").SimpleName())
	require.Equal(t, "map[string]int", parseRef(t, "map[string]int").SimpleName())
}

func TestPredicates(t *testing.T) {
	require.True(t, parseRef(t, "error").IsError())
	require.False(t, parseRef(t, "*error").IsError())
	require.True(t, parseRef(t, "context.Context").IsContext())
	require.True(t, parseRef(t, "query.Sort").Is("query", "Sort"))
	require.False(t, parseRef(t, "Sort").Is("query", "Sort"))
}

func TestEqual(t *testing.T) {
	require.True(t, parseRef(t, "[]User").Equal(parseRef(t, "[]User")))
	require.False(t, parseRef(t, "[]User").Equal(parseRef(t, "[]*User")))
}

func TestSubstitute(t *testing.T) {
	args := map[string]Ref{
		"T": Named("", "User"),
		"K": Named("", "uint"),
	}

	require.Equal(t, "[]User", parseRef(t, "[]T", "T").Substitute(args).String())
	require.Equal(t, "map[uint]*User", parseRef(t, "map[K]*T", "T", "K").Substitute(args).String())
	require.Equal(t, "Repo[User]", parseRef(t, "Repo[T]", "T").Substitute(args).String())

	// 无映射的类型参数保持原样
	require.Equal(t, "V", parseRef(t, "V", "V").Substitute(args).String())
}

func TestTypeParams(t *testing.T) {
	r := parseRef(t, "map[K]chan []*V", "K", "V")
	require.ElementsMatch(t, []string{"K", "V"}, r.TypeParams())

	require.Empty(t, parseRef(t, "map[string]User").TypeParams())
}

func TestConstructors(t *testing.T) {
	r := PointerTo(Named("query", "Sort"))
	require.Equal(t, "*query.Sort", r.String())
	require.Equal(t, "[]T", SliceOf(TypeParam("T")).String())
}
