package aotgen

import (
	"sort"

	"github.com/donutnomad/repogen/internal/typeref"
)

// ResolvableGenerics 方法泛型可解析性分析结果
// 纯函数派生值：相同输入必然得到相同结果，可按 (接口, 方法签名) 缓存
type ResolvableGenerics struct {
	// resolved 能落到具体类型或简单约束的类型参数
	resolved map[string]bool
	// unwanted 无法在目标上下文解析、必须回退的类型参数
	unwanted map[string]bool
	// unresolvable 方法签名中是否残留无法解析的泛型
	unresolvable bool
}

// ResolveGenerics 对方法做泛型可解析性分析
// 依据：接口类型参数声明（约束形状）与实例化映射 TypeArgs
func ResolveGenerics(method *MethodDescriptor, model *RepositoryModel) *ResolvableGenerics {
	r := &ResolvableGenerics{
		resolved: make(map[string]bool),
		unwanted: make(map[string]bool),
	}

	declared := make(map[string]TypeParamDecl, len(model.TypeParams))
	for _, tp := range model.TypeParams {
		declared[tp.Name] = tp
	}

	// 划分类型参数：简单约束的可视为可解析，其余标记为 unwanted
	for _, tp := range model.TypeParams {
		if isClassBounded(tp.Constraint, declared) {
			r.resolved[tp.Name] = true
		} else {
			r.unwanted[tp.Name] = true
		}
	}

	// 实例化到具体类型的参数总是可解析
	for name, arg := range model.TypeArgs {
		if len(arg.TypeParams()) == 0 {
			r.resolved[name] = true
			delete(r.unwanted, name)
		}
	}

	// 逐个检查返回值与参数类型
	refs := make([]typeref.Ref, 0, len(method.Params)+len(method.Results))
	for _, p := range method.Params {
		refs = append(refs, p.Type)
	}
	for _, res := range method.Results {
		refs = append(refs, res.Type)
	}
	for _, ref := range refs {
		resolvedRef := ref.Substitute(model.TypeArgs)
		r.check(resolvedRef, declared)
	}

	return r
}

// check 递归检查一个类型引用
// 容器类型（切片、map、指针、泛型实例化等）进入其类型实参而不是直接判失败
func (r *ResolvableGenerics) check(ref typeref.Ref, declared map[string]TypeParamDecl) {
	switch ref.Kind {
	case typeref.KindTypeParam:
		if r.resolved[ref.Name] {
			return
		}
		if _, ok := declared[ref.Name]; !ok {
			// 未声明的类型参数：底层解析工具也无法解析
			r.unresolvable = true
			return
		}
		r.unwanted[ref.Name] = true
		r.unresolvable = true
	case typeref.KindPointer, typeref.KindSlice, typeref.KindArray, typeref.KindChan, typeref.KindEllipsis:
		r.check(*ref.Elem, declared)
	case typeref.KindMap:
		r.check(*ref.Key, declared)
		r.check(*ref.Val, declared)
	case typeref.KindUnion:
		// 签名中出现非简单约束形状，按不可解析处理
		r.unresolvable = true
	default:
		for _, arg := range ref.Args {
			r.check(arg, declared)
		}
	}
}

// HasUnresolvableGenerics 是否存在无法解析的泛型，需要回退处理
func (r *ResolvableGenerics) HasUnresolvableGenerics() bool {
	return r.unresolvable
}

// TypeVariables 可解析的类型参数名，排序后返回
func (r *ResolvableGenerics) TypeVariables() []string {
	return sortedKeys(r.resolved)
}

// UnwantedVariables 必须回退的类型参数名，排序后返回
func (r *ResolvableGenerics) UnwantedVariables() []string {
	return sortedKeys(r.unwanted)
}

// isClassBounded 约束是否为"简单"形状：any/comparable 或不引用其他
// 类型参数、不含联合与近似项的具体命名类型
func isClassBounded(constraint typeref.Ref, declared map[string]TypeParamDecl) bool {
	switch constraint.Kind {
	case typeref.KindNamed:
		if constraint.Approx {
			return false
		}
		for _, arg := range constraint.Args {
			if !isClassBounded(arg, declared) {
				return false
			}
		}
		return true
	case typeref.KindTypeParam:
		// 被其他类型参数约束
		return false
	case typeref.KindUnion:
		// 联合约束本身不简单，但各项全部简单时按通配上界处理
		for _, t := range constraint.Terms {
			if t.Approx || !isClassBounded(t, declared) {
				return false
			}
		}
		return true
	case typeref.KindPointer, typeref.KindSlice, typeref.KindArray:
		return isClassBounded(*constraint.Elem, declared)
	case typeref.KindMap:
		return isClassBounded(*constraint.Key, declared) && isClassBounded(*constraint.Val, declared)
	default:
		return false
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
