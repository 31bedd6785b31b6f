package typeref

import (
	"go/ast"
	"strings"
)

// Kind 类型引用的种类
type Kind int

const (
	KindNamed     Kind = iota + 1 // 命名类型，如 User、io.Reader
	KindPointer                   // 指针，如 *User
	KindSlice                     // 切片，如 []User
	KindArray                     // 数组，如 [4]byte
	KindMap                       // map，如 map[string]User
	KindChan                      // 通道，如 <-chan User
	KindFunc                      // 函数类型（不展开，仅保留字符串形式）
	KindEllipsis                  // 可变参数，如 ...string
	KindTypeParam                 // 类型参数引用，如 T
	KindUnion                     // 约束联合，如 ~string | int
)

// Ref 结构化的类型引用
// 从 ast.Expr 解析而来，命名类型保留包限定名与泛型实参
type Ref struct {
	Kind Kind
	Pkg  string // 包限定，如 "query"（无限定时为空）
	Name string // 命名类型/类型参数的名称；func 等复合形式存放完整字符串
	Args []Ref  // 泛型实参，如 CrudRepository[User, uint] 的 [User, uint]
	Elem *Ref   // 指针/切片/数组/通道/可变参数的元素类型
	Key  *Ref   // map 的键类型
	Val  *Ref   // map 的值类型

	// Approx 标记近似约束元素（~string），仅在约束解析中出现
	Approx bool
	// Terms 联合约束的各项
	Terms []Ref
}

// Parse 将 AST 表达式解析为 Ref
// typeParams 为当前作用域内的类型参数名集合，用于识别 KindTypeParam
func Parse(expr ast.Expr, typeParams map[string]bool) Ref {
	switch e := expr.(type) {
	case *ast.Ident:
		if typeParams[e.Name] {
			return Ref{Kind: KindTypeParam, Name: e.Name}
		}
		return Ref{Kind: KindNamed, Name: e.Name}
	case *ast.SelectorExpr:
		if pkg, ok := e.X.(*ast.Ident); ok {
			return Ref{Kind: KindNamed, Pkg: pkg.Name, Name: e.Sel.Name}
		}
		return Ref{Kind: KindNamed, Name: String(expr)}
	case *ast.StarExpr:
		elem := Parse(e.X, typeParams)
		return Ref{Kind: KindPointer, Elem: &elem}
	case *ast.ArrayType:
		elem := Parse(e.Elt, typeParams)
		if e.Len == nil {
			return Ref{Kind: KindSlice, Elem: &elem}
		}
		return Ref{Kind: KindArray, Name: String(e.Len), Elem: &elem}
	case *ast.MapType:
		key := Parse(e.Key, typeParams)
		val := Parse(e.Value, typeParams)
		return Ref{Kind: KindMap, Key: &key, Val: &val}
	case *ast.ChanType:
		elem := Parse(e.Value, typeParams)
		dir := "chan"
		switch e.Dir {
		case ast.SEND:
			dir = "chan<-"
		case ast.RECV:
			dir = "<-chan"
		}
		return Ref{Kind: KindChan, Name: dir, Elem: &elem}
	case *ast.Ellipsis:
		elem := Parse(e.Elt, typeParams)
		return Ref{Kind: KindEllipsis, Elem: &elem}
	case *ast.IndexExpr:
		base := Parse(e.X, typeParams)
		base.Args = []Ref{Parse(e.Index, typeParams)}
		return base
	case *ast.IndexListExpr:
		base := Parse(e.X, typeParams)
		for _, idx := range e.Indices {
			base.Args = append(base.Args, Parse(idx, typeParams))
		}
		return base
	case *ast.UnaryExpr:
		// 约束中的近似项 ~string
		r := Parse(e.X, typeParams)
		r.Approx = true
		return r
	case *ast.BinaryExpr:
		// 约束联合 A | B
		left := Parse(e.X, typeParams)
		right := Parse(e.Y, typeParams)
		var terms []Ref
		if left.Kind == KindUnion {
			terms = append(terms, left.Terms...)
		} else {
			terms = append(terms, left)
		}
		if right.Kind == KindUnion {
			terms = append(terms, right.Terms...)
		} else {
			terms = append(terms, right)
		}
		return Ref{Kind: KindUnion, Terms: terms}
	case *ast.ParenExpr:
		return Parse(e.X, typeParams)
	case *ast.FuncType:
		return Ref{Kind: KindFunc, Name: String(expr)}
	case *ast.InterfaceType:
		if e.Methods == nil || len(e.Methods.List) == 0 {
			return Ref{Kind: KindNamed, Name: "any"}
		}
		return Ref{Kind: KindNamed, Name: String(expr)}
	default:
		return Ref{Kind: KindNamed, Name: String(expr)}
	}
}

// String 将 AST 表达式还原为源码形式的字符串
func String(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + String(e.X)
	case *ast.SelectorExpr:
		return String(e.X) + "." + e.Sel.Name
	case *ast.ArrayType:
		if e.Len == nil {
			return "[]" + String(e.Elt)
		}
		return "[" + String(e.Len) + "]" + String(e.Elt)
	case *ast.MapType:
		return "map[" + String(e.Key) + "]" + String(e.Value)
	case *ast.ChanType:
		switch e.Dir {
		case ast.SEND:
			return "chan<- " + String(e.Value)
		case ast.RECV:
			return "<-chan " + String(e.Value)
		default:
			return "chan " + String(e.Value)
		}
	case *ast.FuncType:
		return funcTypeString(e)
	case *ast.InterfaceType:
		if e.Methods == nil || len(e.Methods.List) == 0 {
			return "any"
		}
		return "interface{}"
	case *ast.StructType:
		if e.Fields == nil || len(e.Fields.List) == 0 {
			return "struct{}"
		}
		return "struct{...}"
	case *ast.Ellipsis:
		return "..." + String(e.Elt)
	case *ast.BasicLit:
		return e.Value
	case *ast.IndexExpr:
		return String(e.X) + "[" + String(e.Index) + "]"
	case *ast.IndexListExpr:
		var indices []string
		for _, idx := range e.Indices {
			indices = append(indices, String(idx))
		}
		return String(e.X) + "[" + strings.Join(indices, ", ") + "]"
	case *ast.ParenExpr:
		return "(" + String(e.X) + ")"
	case *ast.UnaryExpr:
		return e.Op.String() + String(e.X)
	case *ast.BinaryExpr:
		return String(e.X) + " " + e.Op.String() + " " + String(e.Y)
	default:
		return "any"
	}
}

func funcTypeString(ft *ast.FuncType) string {
	var params []string
	if ft.Params != nil {
		for _, p := range ft.Params.List {
			typeStr := String(p.Type)
			n := len(p.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				params = append(params, typeStr)
			}
		}
	}
	var results []string
	if ft.Results != nil {
		for _, r := range ft.Results.List {
			typeStr := String(r.Type)
			n := len(r.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				results = append(results, typeStr)
			}
		}
	}
	s := "func(" + strings.Join(params, ", ") + ")"
	if len(results) == 1 {
		s += " " + results[0]
	} else if len(results) > 1 {
		s += " (" + strings.Join(results, ", ") + ")"
	}
	return s
}
