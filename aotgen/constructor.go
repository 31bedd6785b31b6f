package aotgen

import (
	"fmt"
	"strings"
)

// CtorParam 构造函数声明的参数
type CtorParam struct {
	Name string
	Type string
}

// ConstructorCode 构造函数的结构化生成结果
type ConstructorCode struct {
	Name   string
	Params []CtorParam
	// Lines 函数体中 return 之前的语句
	Lines []string
	// ReturnExpr 返回表达式（结构体字面量）
	ReturnExpr string
	// ReturnType 返回类型
	ReturnType string
}

// ConstructorCustomizer 构造定制钩子
// 在参数声明之后、字段赋值之前执行，可改写参数表并追加取值语句
type ConstructorCustomizer func(code *ConstructorCode, meta *FragmentMetadata) error

// ConstructorBuilder 生成构造函数
// 流程：按登记顺序声明参数 -> 执行定制钩子 -> 为绑定字段生成赋值
type ConstructorBuilder struct {
	meta       *FragmentMetadata
	implName   string
	customizer ConstructorCustomizer

	// added 本轮配置新增的构造参数名，Dispose 时整批移除
	added []string
}

// NewConstructorBuilder 创建构造函数构建器
func NewConstructorBuilder(meta *FragmentMetadata, implName string) *ConstructorBuilder {
	return &ConstructorBuilder{meta: meta, implName: implName}
}

// AddArgument 通过构建器登记构造参数，记录归属便于 Dispose
func (b *ConstructorBuilder) AddArgument(name string, supplier func() ConstructorArgument) ConstructorArgument {
	arg := b.meta.AddConstructorArgument(name, supplier)
	b.added = append(b.added, name)
	return arg
}

// Customize 替换定制钩子
func (b *ConstructorBuilder) Customize(customizer ConstructorCustomizer) *ConstructorBuilder {
	b.customizer = customizer
	return b
}

// Dispose 移除本轮配置登记的全部构造参数及其绑定字段
// 配置被替换后调用，随后可重新登记并再次 Build
func (b *ConstructorBuilder) Dispose() {
	b.meta.RemoveConstructorArguments(b.added...)
	b.added = nil
}

// Build 生成构造函数
func (b *ConstructorBuilder) Build() (*ConstructorCode, error) {
	args := b.meta.ConstructorArguments()

	code := &ConstructorCode{
		Name:       "New" + b.implName,
		ReturnType: "*" + b.implName,
	}
	// 1. 按登记顺序声明参数
	for _, arg := range args {
		code.Params = append(code.Params, CtorParam{Name: arg.Name, Type: arg.Type})
	}

	// 2. 定制钩子（默认行为：参数原样前转）
	if b.customizer != nil {
		if err := b.customizer(code, b.meta); err != nil {
			return nil, err
		}
	}

	// 3. 为绑定字段生成赋值（结构体字面量）
	var entries []string
	for _, arg := range args {
		if !arg.IsBoundToField() {
			continue
		}
		entries = append(entries, fmt.Sprintf("%s: %s", structLiteralKey(arg), arg.Name))
	}
	code.ReturnExpr = fmt.Sprintf("&%s{%s}", b.implName, strings.Join(entries, ", "))

	return code, nil
}

// structLiteralKey 结构体字面量键：嵌入字段使用类型短名
func structLiteralKey(arg ConstructorArgument) string {
	if !arg.Embedded {
		return arg.FieldName
	}
	name := strings.TrimPrefix(arg.FieldName, "*")
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// FragmentContextCustomizer 面向 FragmentContext 的构造定制
// 用单个保留参数替换参数表，并按各参数的 Origin 生成取值语句
func FragmentContextCustomizer(ctxParam string) ConstructorCustomizer {
	return func(code *ConstructorCode, meta *FragmentMetadata) error {
		args := meta.ConstructorArguments()
		code.Params = []CtorParam{{Name: ctxParam, Type: "*query.FragmentContext"}}
		for _, arg := range args {
			if arg.Origin.Kind == OriginReservedParameter {
				continue
			}
			expr, err := arg.Origin.Render(ctxParam)
			if err != nil {
				return fmt.Errorf("构造参数 %s: %w", arg.Name, err)
			}
			code.Lines = append(code.Lines, fmt.Sprintf("%s := %s", arg.Name, expr))
		}
		return nil
	}
}
