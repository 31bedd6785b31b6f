package query

import (
	"fmt"

	"gorm.io/gorm"
)

// FragmentContext 生成代码构造函数的保留参数
// 持有数据库句柄与已注册的 fragment 实例，供生成的构造函数取值
type FragmentContext struct {
	db        *gorm.DB
	fragments map[string]any
}

// NewFragmentContext 创建 FragmentContext
func NewFragmentContext(db *gorm.DB) *FragmentContext {
	return &FragmentContext{
		db:        db,
		fragments: make(map[string]any),
	}
}

// DB 返回数据库句柄
func (c *FragmentContext) DB() *gorm.DB {
	return c.db
}

// RegisterFragment 按名称注册 fragment 实例
// 重复注册同名 fragment 时后者覆盖前者
func (c *FragmentContext) RegisterFragment(name string, fragment any) *FragmentContext {
	c.fragments[name] = fragment
	return c
}

// Fragment 按名称查找 fragment 实例，未注册时返回 nil
func (c *FragmentContext) Fragment(name string) any {
	return c.fragments[name]
}

// FragmentOf 按名称查找并断言为指定类型
// 未注册或类型不匹配时返回错误
func FragmentOf[T any](c *FragmentContext, name string) (T, error) {
	var zero T
	v, ok := c.fragments[name]
	if !ok {
		return zero, fmt.Errorf("fragment %q 未注册", name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("fragment %q 类型不匹配: %T", name, v)
	}
	return typed, nil
}
