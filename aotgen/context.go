package aotgen

import (
	"fmt"

	"github.com/donutnomad/repogen/internal/typeref"
)

// specialParamNames query 包中的特殊参数类型名
var specialParamNames = map[string]bool{
	"Sort":           true,
	"Pageable":       true,
	"Limit":          true,
	"ScrollPosition": true,
	"Vector":         true,
	"Score":          true,
	"ScoreRange":     true,
	"Projection":     true,
}

// builtinTypes 判定投影时视作标量的内建类型
var builtinTypes = map[string]bool{
	"bool": true, "string": true, "error": true, "any": true, "byte": true, "rune": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
}

// isSpecialParam 参数是否为不可绑定的特殊参数
func isSpecialParam(ref typeref.Ref) bool {
	if ref.IsContext() {
		return true
	}
	return ref.Kind == typeref.KindNamed && ref.Pkg == "query" && specialParamNames[ref.Name]
}

// MethodContext 单个方法的生成环境
// 每个方法创建一个新实例，代码生成完成后丢弃
type MethodContext struct {
	model  *RepositoryModel
	method *MethodDescriptor
	meta   *FragmentMetadata

	names  *VariableNameFactory
	locals map[string]string
}

// NewMethodContext 创建方法上下文
// 命名工厂预先保留方法签名中的全部参数名
func NewMethodContext(model *RepositoryModel, method *MethodDescriptor, meta *FragmentMetadata) *MethodContext {
	paramNames := make([]string, 0, len(method.Params))
	for _, p := range method.Params {
		paramNames = append(paramNames, p.Name)
	}
	return &MethodContext{
		model:  model,
		method: method,
		meta:   meta,
		names:  NewVariableNameFactory(paramNames...),
		locals: make(map[string]string),
	}
}

// Model 所属仓储描述
func (c *MethodContext) Model() *RepositoryModel {
	return c.model
}

// Method 方法描述
func (c *MethodContext) Method() *MethodDescriptor {
	return c.method
}

// ReturnType 方法的结果类型（去掉 error 之后的首个结果）
// 纯 error 或无结果的方法返回 false
func (c *MethodContext) ReturnType() (typeref.Ref, bool) {
	for _, r := range c.method.Results {
		if !r.Type.IsError() {
			return r.Type.Substitute(c.model.TypeArgs), true
		}
	}
	return typeref.Ref{}, false
}

// ActualReturnType 结果的"实际"类型
// 切片/数组/指针/通道解到元素类型，map 与标量保持原样
func (c *MethodContext) ActualReturnType() (typeref.Ref, bool) {
	ret, ok := c.ReturnType()
	if !ok {
		return ret, false
	}
	for {
		switch ret.Kind {
		case typeref.KindSlice, typeref.KindArray, typeref.KindPointer, typeref.KindChan:
			ret = *ret.Elem
		default:
			return ret, true
		}
	}
}

// ReturnTypeName 结果类型的源码形式，void 方法返回空串
func (c *MethodContext) ReturnTypeName() string {
	ret, ok := c.ReturnType()
	if !ok {
		return ""
	}
	return ret.String()
}

// ActualReturnTypeName 实际结果类型的短名称
func (c *MethodContext) ActualReturnTypeName() string {
	ret, ok := c.ActualReturnType()
	if !ok {
		return ""
	}
	return ret.SimpleName()
}

// IsVoid 是否没有 error 之外的结果
func (c *MethodContext) IsVoid() bool {
	_, ok := c.ReturnType()
	return !ok
}

// IsOptional 结果是否为指针（可空）
func (c *MethodContext) IsOptional() bool {
	ret, ok := c.ReturnType()
	return ok && ret.Kind == typeref.KindPointer
}

// IsArray 结果是否为切片或数组
func (c *MethodContext) IsArray() bool {
	ret, ok := c.ReturnType()
	return ok && (ret.Kind == typeref.KindSlice || ret.Kind == typeref.KindArray)
}

// IsProjecting 实际结果类型是否不同于领域类型（且不是标量）
func (c *MethodContext) IsProjecting() bool {
	actual, ok := c.ActualReturnType()
	if !ok {
		return false
	}
	if actual.Kind == typeref.KindNamed && actual.Pkg == "" && builtinTypes[actual.Name] {
		return false
	}
	return !actual.Equal(c.model.Domain.Substitute(c.model.TypeArgs))
}

// IsInterfaceProjection 投影目标是否为包内接口
func (c *MethodContext) IsInterfaceProjection() bool {
	if !c.IsProjecting() {
		return false
	}
	actual, _ := c.ActualReturnType()
	return actual.Kind == typeref.KindNamed && actual.Pkg == "" && c.model.KnownInterfaces[actual.Name]
}

// AllParameterNames 按声明顺序返回全部参数名（含特殊参数）
func (c *MethodContext) AllParameterNames() []string {
	names := make([]string, 0, len(c.method.Params))
	for _, p := range c.method.Params {
		names = append(names, p.Name)
	}
	return names
}

// BindableParameters 参与查询绑定的参数（排除 context 与特殊参数）
func (c *MethodContext) BindableParameters() []ParamDescriptor {
	var out []ParamDescriptor
	for _, p := range c.method.Params {
		if !isSpecialParam(p.Type) {
			out = append(out, p)
		}
	}
	return out
}

// BindableParameterNames 可绑定参数名列表
func (c *MethodContext) BindableParameterNames() []string {
	bindable := c.BindableParameters()
	names := make([]string, 0, len(bindable))
	for _, p := range bindable {
		names = append(names, p.Name)
	}
	return names
}

// BindableParameterName 按可绑定序号取参数名，越界返回空串
func (c *MethodContext) BindableParameterName(index int) string {
	bindable := c.BindableParameters()
	if index < 0 || index >= len(bindable) {
		return ""
	}
	return bindable[index].Name
}

// RequiredBindableParameterName 按可绑定序号取参数名，越界报错
func (c *MethodContext) RequiredBindableParameterName(index int) (string, error) {
	name := c.BindableParameterName(index)
	if name == "" {
		return "", fmt.Errorf("no bindable parameter with index %d", index)
	}
	return name, nil
}

// BindableParameterNameByName 按声明名取可绑定参数名，未找到返回空串
func (c *MethodContext) BindableParameterNameByName(name string) string {
	for _, p := range c.BindableParameters() {
		if p.Name == name {
			return p.Name
		}
	}
	return ""
}

// RequiredBindableParameterNameByName 按声明名取可绑定参数名，未找到报错
func (c *MethodContext) RequiredBindableParameterNameByName(name string) (string, error) {
	found := c.BindableParameterNameByName(name)
	if found == "" {
		return "", fmt.Errorf("no bindable parameter with name %q", name)
	}
	return found, nil
}

// specialParameterName 查找指定特殊类型的参数名
func (c *MethodContext) specialParameterName(typeName string) (string, bool) {
	for _, p := range c.method.Params {
		if p.Type.Is("query", typeName) {
			return p.Name, true
		}
	}
	return "", false
}

// SortParameterName Sort 参数名
func (c *MethodContext) SortParameterName() (string, bool) {
	return c.specialParameterName("Sort")
}

// PageableParameterName Pageable 参数名
func (c *MethodContext) PageableParameterName() (string, bool) {
	return c.specialParameterName("Pageable")
}

// LimitParameterName Limit 参数名
func (c *MethodContext) LimitParameterName() (string, bool) {
	return c.specialParameterName("Limit")
}

// ScrollPositionParameterName ScrollPosition 参数名
func (c *MethodContext) ScrollPositionParameterName() (string, bool) {
	return c.specialParameterName("ScrollPosition")
}

// VectorParameterName Vector 参数名
func (c *MethodContext) VectorParameterName() (string, bool) {
	return c.specialParameterName("Vector")
}

// ScoreParameterName Score 参数名
func (c *MethodContext) ScoreParameterName() (string, bool) {
	return c.specialParameterName("Score")
}

// ScoreRangeParameterName ScoreRange 参数名
func (c *MethodContext) ScoreRangeParameterName() (string, bool) {
	return c.specialParameterName("ScoreRange")
}

// DynamicProjectionParameterName 动态投影参数名
func (c *MethodContext) DynamicProjectionParameterName() (string, bool) {
	return c.specialParameterName("Projection")
}

// ContextParameterName context.Context 参数名
func (c *MethodContext) ContextParameterName() (string, bool) {
	for _, p := range c.method.Params {
		if p.Type.IsContext() {
			return p.Name, true
		}
	}
	return "", false
}

// LocalVariable 分配局部变量名
// 同一逻辑名在本方法作用域内始终得到同一个生成名
func (c *MethodContext) LocalVariable(intended string) string {
	if actual, ok := c.locals[intended]; ok {
		return actual
	}
	actual := c.names.Generate(intended)
	c.locals[intended] = actual
	return actual
}

// FieldNameOf 代理到共享的 FragmentMetadata
func (c *MethodContext) FieldNameOf(typ string) string {
	return c.meta.FieldNameOf(typ)
}
