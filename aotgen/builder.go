package aotgen

import (
	"fmt"
	"strings"
	"unicode"
)

// BuildResult 单个仓储的构建产物
// 代码渲染与文件写出由 Generator 完成
type BuildResult struct {
	Model       *RepositoryModel
	Meta        *FragmentMetadata
	Constructor *ConstructorCode
	Manifest    *RepositoryMetadata
	// Imports 方法体需要的额外导入
	Imports []Import
	// Warnings 生成过程中的降级记录
	Warnings []string
}

// RepositoryBuilder 驱动单个仓储接口的完整生成流程：
// 登记字段与构造参数、逐方法分类、收集方法体与清单条目
type RepositoryBuilder struct {
	model       *RepositoryModel
	contributor MethodContributor
}

// NewRepositoryBuilder 创建构建器，contributor 为 nil 时使用派生查询生成器
func NewRepositoryBuilder(model *RepositoryModel, contributor MethodContributor) *RepositoryBuilder {
	if contributor == nil {
		contributor = DerivedQueryContributor{}
	}
	return &RepositoryBuilder{model: model, contributor: contributor}
}

// Build 执行构建
// 单个方法生成失败只降级为未实现的委托，不中断整个仓储
func (b *RepositoryBuilder) Build() (*BuildResult, error) {
	meta := NewFragmentMetadata()
	ctor := NewConstructorBuilder(meta, b.model.ImplName()).
		Customize(FragmentContextCustomizer("ctx"))

	res := &BuildResult{
		Model:    b.model,
		Meta:     meta,
		Manifest: NewRepositoryMetadata(b.model),
		Imports:  []Import{{Path: "gorm.io/gorm"}},
	}

	ctor.AddArgument("db", func() ConstructorArgument {
		return ConstructorArgument{
			Name:      "db",
			Type:      "*gorm.DB",
			FieldName: "db",
			Origin:    ByType("*gorm.DB"),
		}
	})

	names := NewVariableNameFactory("db", "ctx")
	for _, frag := range b.model.Fragments {
		frag := frag
		argName := names.Generate(lowerFirst(shortTypeName(frag.FieldType)))
		ctor.AddArgument(argName, func() ConstructorArgument {
			return ConstructorArgument{
				Name:      argName,
				Type:      frag.FieldType,
				FieldName: frag.FieldType,
				Embedded:  true,
				Origin:    fragmentOrigin(frag),
			}
		})
	}

	streaming := b.model.IsStreaming()
	resolvables := make(map[string]*ResolvableGenerics)
	for _, m := range b.model.SortedMethods() {
		sig := m.Signature()
		// 同一签名经多个来源到达（本接口重新声明嵌入方法）时只登记一次，
		// 排序靠前的分类结果生效
		if meta.HasMethod(sig) {
			continue
		}
		switch Classify(m, b.model) {
		case KindSkipped:
			continue
		case KindFragment:
			frag := b.model.FragmentFor(sig)
			meta.AddDelegateMethod(m, frag)
			res.Manifest.AddMethod(methodEntry(m, KindFragment, frag, nil))
		case KindBaseDelegate:
			frag := b.baseFragment()
			meta.AddDelegateMethod(m, frag)
			res.Manifest.AddMethod(methodEntry(m, KindBaseDelegate, frag, nil))
		case KindQuery:
			// 流式仓储不做任何本地生成，查询方法全部按委托登记
			if streaming {
				b.fallback(res, m)
				continue
			}
			rg, ok := resolvables[sig]
			if !ok {
				rg = ResolveGenerics(m, b.model)
				resolvables[sig] = rg
			}
			if rg.HasUnresolvableGenerics() {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"方法 %s 含不可解析的类型参数 %v，回退为委托", m.Name, rg.TypeVariables()))
				b.fallback(res, m)
				continue
			}
			code, err := b.contribute(m, meta)
			switch {
			case err != nil:
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"方法 %s 生成失败: %v，回退为委托", m.Name, err))
				b.fallback(res, m)
			case code == nil:
				b.fallback(res, m)
			default:
				meta.AddRepositoryMethod(m, code)
				res.Imports = append(res.Imports, code.Imports...)
				res.Manifest.AddMethod(methodEntry(m, KindQuery, nil, code.Query))
			}
		default:
			b.fallback(res, m)
		}
	}

	code, err := ctor.Build()
	if err != nil {
		return nil, fmt.Errorf("生成 %s 的构造函数失败: %w", b.model.ImplName(), err)
	}
	res.Constructor = code
	return res, nil
}

// contribute 调用方法体生成器，panic 统一降级为错误
func (b *RepositoryBuilder) contribute(m *MethodDescriptor, meta *FragmentMetadata) (code *MethodCode, err error) {
	defer func() {
		if r := recover(); r != nil {
			code = nil
			err = fmt.Errorf("生成方法 %s 时发生 panic: %v", m.Name, r)
		}
	}()
	return b.contributor.Contribute(NewMethodContext(b.model, m, meta))
}

// fallback 无法本地生成时的委托登记：
// 优先委托给声明了该签名的 fragment（基础 fragment 记为 base-delegate），
// 无人声明则记录为未实现
func (b *RepositoryBuilder) fallback(res *BuildResult, m *MethodDescriptor) {
	if frag := b.model.FragmentFor(m.Signature()); frag != nil {
		kind := KindFragment
		if frag.Base {
			kind = KindBaseDelegate
		}
		res.Meta.AddDelegateMethod(m, frag)
		res.Manifest.AddMethod(methodEntry(m, kind, frag, nil))
		return
	}
	res.Meta.AddDelegateMethod(m, nil)
	res.Manifest.AddMethod(methodEntry(m, KindUnsupported, nil, nil))
}

func (b *RepositoryBuilder) baseFragment() *FragmentDescriptor {
	for _, f := range b.model.Fragments {
		if f.Base {
			return f
		}
	}
	return nil
}

func methodEntry(m *MethodDescriptor, kind MethodKind, frag *FragmentDescriptor, query QueryMetadata) MethodMetadata {
	entry := MethodMetadata{
		Name:      m.Name,
		Signature: m.Signature(),
		Kind:      kind.String(),
		Query:     query,
	}
	if frag != nil {
		entry.Fragment = &FragmentTarget{
			Interface:      frag.Interface,
			Implementation: frag.Implementation,
		}
	}
	return entry
}

// fragmentOrigin 嵌入 fragment 的构造来源
// 基础 fragment 直接用数据库句柄构造，自定义 fragment 按接口名查找
func fragmentOrigin(frag *FragmentDescriptor) Origin {
	if frag.Base {
		typeArgs := ""
		if i := strings.Index(frag.FieldType, "["); i >= 0 {
			typeArgs = frag.FieldType[i:]
		}
		return CustomOrigin("query.NewCrudFragment" + typeArgs + "(%s.DB())")
	}
	return ByNameAndType(frag.Interface, frag.FieldType)
}

// shortTypeName 取类型的短名：去指针、去类型实参、去包限定
func shortTypeName(typ string) string {
	name := strings.TrimPrefix(typ, "*")
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(s)
	rs[0] = unicode.ToLower(rs[0])
	return string(rs)
}
