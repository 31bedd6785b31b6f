package typeref

import "strings"

// String 渲染回 Go 源码形式
func (r Ref) String() string {
	switch r.Kind {
	case KindPointer:
		return "*" + r.Elem.String()
	case KindSlice:
		return "[]" + r.Elem.String()
	case KindArray:
		return "[" + r.Name + "]" + r.Elem.String()
	case KindMap:
		return "map[" + r.Key.String() + "]" + r.Val.String()
	case KindChan:
		return r.Name + " " + r.Elem.String()
	case KindEllipsis:
		return "..." + r.Elem.String()
	case KindUnion:
		parts := make([]string, 0, len(r.Terms))
		for _, t := range r.Terms {
			parts = append(parts, t.termString())
		}
		return strings.Join(parts, " | ")
	default:
		name := r.Name
		if r.Pkg != "" {
			name = r.Pkg + "." + name
		}
		if len(r.Args) > 0 {
			args := make([]string, 0, len(r.Args))
			for _, a := range r.Args {
				args = append(args, a.String())
			}
			name += "[" + strings.Join(args, ", ") + "]"
		}
		return name
	}
}

func (r Ref) termString() string {
	if r.Approx {
		return "~" + r.String()
	}
	return r.String()
}

// SimpleName 去掉包限定与泛型实参的短名称
func (r Ref) SimpleName() string {
	switch r.Kind {
	case KindPointer, KindSlice, KindArray, KindChan, KindEllipsis:
		return r.Elem.SimpleName()
	case KindMap:
		return r.String()
	default:
		return r.Name
	}
}

// IsError 是否为内建 error 类型
func (r Ref) IsError() bool {
	return r.Kind == KindNamed && r.Pkg == "" && r.Name == "error"
}

// IsContext 是否为 context.Context
func (r Ref) IsContext() bool {
	return r.Kind == KindNamed && r.Pkg == "context" && r.Name == "Context"
}

// Is 判断是否为指定包限定的命名类型
func (r Ref) Is(pkg, name string) bool {
	return r.Kind == KindNamed && r.Pkg == pkg && r.Name == name
}

// Equal 结构化相等
func (r Ref) Equal(o Ref) bool {
	return r.String() == o.String()
}

// Substitute 将类型参数引用替换为实参，返回替换后的副本
func (r Ref) Substitute(args map[string]Ref) Ref {
	switch r.Kind {
	case KindTypeParam:
		if concrete, ok := args[r.Name]; ok {
			return concrete
		}
		return r
	case KindPointer, KindSlice, KindArray, KindChan, KindEllipsis:
		elem := r.Elem.Substitute(args)
		out := r
		out.Elem = &elem
		return out
	case KindMap:
		key := r.Key.Substitute(args)
		val := r.Val.Substitute(args)
		out := r
		out.Key, out.Val = &key, &val
		return out
	default:
		if len(r.Args) == 0 {
			return r
		}
		out := r
		out.Args = make([]Ref, len(r.Args))
		for i, a := range r.Args {
			out.Args[i] = a.Substitute(args)
		}
		return out
	}
}

// TypeParams 收集引用到的所有类型参数名
func (r Ref) TypeParams() []string {
	seen := make(map[string]bool)
	var collect func(Ref)
	collect = func(ref Ref) {
		switch ref.Kind {
		case KindTypeParam:
			seen[ref.Name] = true
		case KindPointer, KindSlice, KindArray, KindChan, KindEllipsis:
			collect(*ref.Elem)
		case KindMap:
			collect(*ref.Key)
			collect(*ref.Val)
		case KindUnion:
			for _, t := range ref.Terms {
				collect(t)
			}
		default:
			for _, a := range ref.Args {
				collect(a)
			}
		}
	}
	collect(r)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	return names
}

// Named 构造命名类型引用
func Named(pkg, name string, args ...Ref) Ref {
	return Ref{Kind: KindNamed, Pkg: pkg, Name: name, Args: args}
}

// TypeParam 构造类型参数引用
func TypeParam(name string) Ref {
	return Ref{Kind: KindTypeParam, Name: name}
}

// PointerTo 构造指针引用
func PointerTo(elem Ref) Ref {
	return Ref{Kind: KindPointer, Elem: &elem}
}

// SliceOf 构造切片引用
func SliceOf(elem Ref) Ref {
	return Ref{Kind: KindSlice, Elem: &elem}
}
