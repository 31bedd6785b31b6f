package aotgen

import "fmt"

// VariableNameFactory 局部变量命名
// 同一生成作用域（一个方法或一个构造函数）内保证名称不冲突
// 非并发安全，每个作用域各持一个实例
type VariableNameFactory struct {
	reserved map[string]bool
}

// NewVariableNameFactory 创建命名工厂，预先保留签名中已有的参数名
func NewVariableNameFactory(parameterNames ...string) *VariableNameFactory {
	f := &VariableNameFactory{reserved: make(map[string]bool)}
	for _, name := range parameterNames {
		f.reserved[name] = true
	}
	return f
}

// Generate 为期望名称分配实际名称
// 首次请求返回原名并保留；重复请求追加 _N，N 取尚未保留的最小正整数
func (f *VariableNameFactory) Generate(intended string) string {
	if !f.reserved[intended] {
		f.reserved[intended] = true
		return intended
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", intended, n)
		if !f.reserved[candidate] {
			f.reserved[candidate] = true
			return candidate
		}
	}
}
