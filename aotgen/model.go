package aotgen

import (
	"sort"
	"strings"

	"github.com/donutnomad/repogen/internal/typeref"
	"github.com/samber/lo"
)

// DeclOrigin 方法的声明来源
type DeclOrigin int

const (
	OriginLocal    DeclOrigin = iota // 仓储接口自身声明
	OriginBase                       // 嵌入的基础 CrudRepository
	OriginFragment                   // 嵌入的自定义 fragment 接口
	OriginForeign                    // 嵌入的无关外部接口（如 fmt.Stringer）
)

func (o DeclOrigin) String() string {
	switch o {
	case OriginBase:
		return "base"
	case OriginFragment:
		return "fragment"
	case OriginForeign:
		return "foreign"
	default:
		return "local"
	}
}

// MethodFlag 方法修饰标记
type MethodFlag uint8

const (
	FlagUnexported MethodFlag = 1 << iota // 未导出方法
	FlagSynthetic                         // 合成方法（来自无关嵌入接口）
	FlagVariadic                          // 末参数为可变参数
)

// ParamDescriptor 参数/返回值描述
type ParamDescriptor struct {
	Name string
	Type typeref.Ref
}

// MethodDescriptor 结构化的方法描述
// 分类器只依赖它，不依赖任何活动的反射对象
type MethodDescriptor struct {
	Name       string
	Params     []ParamDescriptor
	Results    []ParamDescriptor
	DeclaredBy string // 声明方的显示名；本接口直接声明时为空
	Origin     DeclOrigin
	Flags      MethodFlag
}

// Signature 方法的完整泛型签名，作为各注册表的键
func (m *MethodDescriptor) Signature() string {
	params := lo.Map(m.Params, func(p ParamDescriptor, _ int) string {
		return p.Type.String()
	})
	results := lo.Map(m.Results, func(p ParamDescriptor, _ int) string {
		return p.Type.String()
	})
	sig := m.Name + "(" + strings.Join(params, ", ") + ")"
	switch len(results) {
	case 0:
	case 1:
		sig += " " + results[0]
	default:
		sig += " (" + strings.Join(results, ", ") + ")"
	}
	return sig
}

// IsStreaming 是否返回通道（流式方法不做本地生成）
func (m *MethodDescriptor) IsStreaming() bool {
	for _, r := range m.Results {
		if r.Type.Kind == typeref.KindChan {
			return true
		}
	}
	return false
}

// FragmentDescriptor 嵌入 fragment 的描述
type FragmentDescriptor struct {
	// Interface fragment 接口的显示名，如 "UserSearch" 或 "query.CrudRepository[User, uint]"
	Interface string
	// Implementation 已知实现类型；未知时为空（运行时仍可注册）
	Implementation string
	// FieldType 生成结构体中嵌入字段的类型
	FieldType string
	// Base 是否为基础 CRUD fragment
	Base bool
	// Signatures 该 fragment 声明的方法签名集合
	Signatures []string
}

// Declares 判断该 fragment 是否声明了指定签名的方法
func (f *FragmentDescriptor) Declares(signature string) bool {
	for _, s := range f.Signatures {
		if s == signature {
			return true
		}
	}
	return false
}

// TypeParamDecl 接口类型参数声明
type TypeParamDecl struct {
	Name       string
	Constraint typeref.Ref
}

// RepositoryModel 仓储接口的完整描述（RepositoryInformation）
type RepositoryModel struct {
	Name        string // 接口名
	PackageName string
	PackagePath string // 导入路径；无法确定时与 PackageName 相同
	FilePath    string

	Domain typeref.Ref // 领域类型
	ID     typeref.Ref // 主键类型

	TypeParams []TypeParamDecl
	// TypeArgs 类型参数到具体类型的实例化映射（来自注解或嵌入实参）
	TypeArgs map[string]typeref.Ref

	Methods   []*MethodDescriptor
	Fragments []*FragmentDescriptor

	// KnownInterfaces 包内可见的接口名集合，用于投影判定
	KnownInterfaces map[string]bool
}

// QualifiedName 接口的全限定名
func (m *RepositoryModel) QualifiedName() string {
	return m.PackagePath + "." + m.Name
}

// ImplName 生成实现结构体的名称
func (m *RepositoryModel) ImplName() string {
	return m.Name + "Impl"
}

// IsStreaming 只要任一方法返回通道，整个仓储按流式处理
func (m *RepositoryModel) IsStreaming() bool {
	for _, method := range m.Methods {
		if method.IsStreaming() {
			return true
		}
	}
	return false
}

// FragmentFor 查找声明了指定方法签名的 fragment
func (m *RepositoryModel) FragmentFor(signature string) *FragmentDescriptor {
	for _, f := range m.Fragments {
		if f.Declares(signature) {
			return f
		}
	}
	return nil
}

// SortedMethods 返回确定性排序的方法列表
// 排序键：声明方名称、方法名、参数个数、完整签名
func (m *RepositoryModel) SortedMethods() []*MethodDescriptor {
	methods := make([]*MethodDescriptor, len(m.Methods))
	copy(methods, m.Methods)
	sort.SliceStable(methods, func(i, j int) bool {
		a, b := methods[i], methods[j]
		if a.DeclaredBy != b.DeclaredBy {
			return a.DeclaredBy < b.DeclaredBy
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if len(a.Params) != len(b.Params) {
			return len(a.Params) < len(b.Params)
		}
		return a.Signature() < b.Signature()
	})
	return methods
}
