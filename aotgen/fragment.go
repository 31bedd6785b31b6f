package aotgen

import "fmt"

// OriginKind 构造参数取值方式
type OriginKind int

const (
	// OriginByType 按类型从 FragmentContext 取值（如数据库句柄）
	OriginByType OriginKind = iota + 1
	// OriginByNameAndType 按名称查找并断言类型
	OriginByNameAndType
	// OriginReservedParameter 保留参数本身（FragmentContext）
	OriginReservedParameter
	// OriginCustom 自定义取值代码
	OriginCustom
)

// Origin 封闭的构造参数来源变体，由 Render 统一求值
type Origin struct {
	Kind OriginKind
	// Name 按名称查找时的注册名
	Name string
	// Type 查找结果的目标类型（Go 源码形式）
	Type string
	// Code 自定义来源的取值表达式，%s 占位保留参数名
	Code string
}

// ByType 按类型取值来源
func ByType(typ string) Origin {
	return Origin{Kind: OriginByType, Type: typ}
}

// ByNameAndType 按名称加类型断言来源
func ByNameAndType(name, typ string) Origin {
	return Origin{Kind: OriginByNameAndType, Name: name, Type: typ}
}

// ReservedParameter 保留参数来源
func ReservedParameter() Origin {
	return Origin{Kind: OriginReservedParameter}
}

// CustomOrigin 自定义代码来源
func CustomOrigin(code string) Origin {
	return Origin{Kind: OriginCustom, Code: code}
}

// Render 生成取值表达式，ctxVar 为保留参数（FragmentContext）的变量名
func (o Origin) Render(ctxVar string) (string, error) {
	switch o.Kind {
	case OriginByType:
		switch o.Type {
		case "*gorm.DB":
			return ctxVar + ".DB()", nil
		default:
			return fmt.Sprintf("%s.Fragment(%q).(%s)", ctxVar, o.Type, o.Type), nil
		}
	case OriginByNameAndType:
		return fmt.Sprintf("%s.Fragment(%q).(%s)", ctxVar, o.Name, o.Type), nil
	case OriginReservedParameter:
		return ctxVar, nil
	case OriginCustom:
		if o.Code == "" {
			return "", fmt.Errorf("自定义构造参数来源缺少取值代码")
		}
		return fmt.Sprintf(o.Code, ctxVar), nil
	default:
		return "", fmt.Errorf("未知的构造参数来源: %d", o.Kind)
	}
}

// ConstructorArgument 构造参数值对象
type ConstructorArgument struct {
	// Name 参数名
	Name string
	// Type 参数类型（Go 源码形式）
	Type string
	// FieldName 绑定字段名；为空表示不绑定字段
	FieldName string
	// Embedded 绑定字段是否为匿名嵌入字段
	Embedded bool
	// Origin 取值来源
	Origin Origin
}

// IsBoundToField 是否绑定到生成结构体的字段
func (a *ConstructorArgument) IsBoundToField() bool {
	return a.FieldName != ""
}

// Field 生成结构体的字段
type Field struct {
	Name      string
	Type      string
	Embedded  bool
	Modifiers []string // 如 "static"（包级变量）等生成提示
}

// LocalMethod 本地生成的方法及其代码
type LocalMethod struct {
	Method *MethodDescriptor
	Code   *MethodCode
}

// DelegateMethod 委托方法记录
// Fragment 为 nil 表示未实现的委托（运行时回退）
type DelegateMethod struct {
	Method   *MethodDescriptor
	Fragment *FragmentDescriptor
}

// FragmentMetadata 生成类的类级累积器
// 单次生成过程独占使用，记录字段、构造参数与方法注册表
type FragmentMetadata struct {
	fieldOrder []string
	fields     map[string]Field

	argOrder []string
	args     map[string]*Lazy[ConstructorArgument]

	methodOrder   []string
	methods       map[string]*LocalMethod
	delegateOrder []string
	delegates     map[string]*DelegateMethod
}

// NewFragmentMetadata 创建空的累积器
func NewFragmentMetadata() *FragmentMetadata {
	return &FragmentMetadata{
		fields:    make(map[string]Field),
		args:      make(map[string]*Lazy[ConstructorArgument]),
		methods:   make(map[string]*LocalMethod),
		delegates: make(map[string]*DelegateMethod),
	}
}

// AddField 登记字段，字段名已存在时不做任何事（先写者胜）
func (f *FragmentMetadata) AddField(name, typ string, modifiers ...string) {
	if f.HasField(name) {
		return
	}
	f.fields[name] = Field{Name: name, Type: typ, Modifiers: modifiers}
	f.fieldOrder = append(f.fieldOrder, name)
}

// AddEmbeddedField 登记匿名嵌入字段，同名时先写者胜
func (f *FragmentMetadata) AddEmbeddedField(name, typ string) {
	if f.HasField(name) {
		return
	}
	f.fields[name] = Field{Name: name, Type: typ, Embedded: true}
	f.fieldOrder = append(f.fieldOrder, name)
}

// Fields 按登记顺序返回字段
func (f *FragmentMetadata) Fields() []Field {
	out := make([]Field, 0, len(f.fieldOrder))
	for _, name := range f.fieldOrder {
		out = append(out, f.fields[name])
	}
	return out
}

// FieldNameOf 线性扫描，返回首个类型匹配的字段名；无匹配返回空串
func (f *FragmentMetadata) FieldNameOf(typ string) string {
	for _, name := range f.fieldOrder {
		if f.fields[name].Type == typ {
			return name
		}
	}
	return ""
}

// HasField 字段是否已登记
func (f *FragmentMetadata) HasField(name string) bool {
	_, ok := f.fields[name]
	return ok
}

// AddConstructorArgument 登记构造参数
// 每个参数名只计算一次；若计算结果绑定字段，则同时登记字段
func (f *FragmentMetadata) AddConstructorArgument(name string, supplier func() ConstructorArgument) ConstructorArgument {
	lazy, ok := f.args[name]
	if !ok {
		lazy = NewLazy(supplier)
		f.args[name] = lazy
		f.argOrder = append(f.argOrder, name)
	}
	arg := lazy.Get()
	if arg.IsBoundToField() {
		if arg.Embedded {
			f.AddEmbeddedField(arg.FieldName, arg.Type)
		} else {
			f.AddField(arg.FieldName, arg.Type)
		}
	}
	return arg
}

// ConstructorArguments 按登记顺序返回全部构造参数
// 顺序稳定，即生成构造函数的参数顺序
func (f *FragmentMetadata) ConstructorArguments() []ConstructorArgument {
	out := make([]ConstructorArgument, 0, len(f.argOrder))
	for _, name := range f.argOrder {
		out = append(out, f.args[name].Get())
	}
	return out
}

// RemoveConstructorArguments 批量移除构造参数及其绑定字段
// 供构造定制被替换后重跑使用
func (f *FragmentMetadata) RemoveConstructorArguments(names ...string) {
	for _, name := range names {
		lazy, ok := f.args[name]
		if !ok {
			continue
		}
		arg := lazy.Get()
		delete(f.args, name)
		f.argOrder = removeString(f.argOrder, name)
		if arg.IsBoundToField() {
			delete(f.fields, arg.FieldName)
			f.fieldOrder = removeString(f.fieldOrder, arg.FieldName)
		}
	}
}

// AddRepositoryMethod 登记本地生成方法，按完整签名去重（先注册者胜）
func (f *FragmentMetadata) AddRepositoryMethod(method *MethodDescriptor, code *MethodCode) {
	sig := method.Signature()
	if _, ok := f.methods[sig]; ok {
		return
	}
	f.methods[sig] = &LocalMethod{Method: method, Code: code}
	f.methodOrder = append(f.methodOrder, sig)
}

// AddDelegateMethod 登记委托方法，按完整签名去重（先注册者胜）
func (f *FragmentMetadata) AddDelegateMethod(method *MethodDescriptor, fragment *FragmentDescriptor) {
	sig := method.Signature()
	if _, ok := f.delegates[sig]; ok {
		return
	}
	f.delegates[sig] = &DelegateMethod{Method: method, Fragment: fragment}
	f.delegateOrder = append(f.delegateOrder, sig)
}

// HasMethod 指定签名是否已登记（本地或委托）
func (f *FragmentMetadata) HasMethod(signature string) bool {
	if _, ok := f.methods[signature]; ok {
		return true
	}
	_, ok := f.delegates[signature]
	return ok
}

// RepositoryMethods 按登记顺序返回本地方法
func (f *FragmentMetadata) RepositoryMethods() []*LocalMethod {
	out := make([]*LocalMethod, 0, len(f.methodOrder))
	for _, sig := range f.methodOrder {
		out = append(out, f.methods[sig])
	}
	return out
}

// DelegateMethods 按登记顺序返回委托方法
func (f *FragmentMetadata) DelegateMethods() []*DelegateMethod {
	out := make([]*DelegateMethod, 0, len(f.delegateOrder))
	for _, sig := range f.delegateOrder {
		out = append(out, f.delegates[sig])
	}
	return out
}

func removeString(list []string, target string) []string {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
