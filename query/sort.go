package query

import (
	"strings"

	"gorm.io/gorm"
)

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order 单个排序项
type Order struct {
	Column    string
	Direction Direction
}

// Sort 排序条件，由若干排序项按声明顺序组成
type Sort struct {
	Orders []Order
}

// By 构造升序排序
func By(columns ...string) Sort {
	s := Sort{}
	for _, c := range columns {
		s.Orders = append(s.Orders, Order{Column: c, Direction: Asc})
	}
	return s
}

// DescBy 构造降序排序
func DescBy(columns ...string) Sort {
	s := Sort{}
	for _, c := range columns {
		s.Orders = append(s.Orders, Order{Column: c, Direction: Desc})
	}
	return s
}

// And 追加另一组排序项
func (s Sort) And(other Sort) Sort {
	out := Sort{Orders: make([]Order, 0, len(s.Orders)+len(other.Orders))}
	out.Orders = append(out.Orders, s.Orders...)
	out.Orders = append(out.Orders, other.Orders...)
	return out
}

// IsSorted 是否包含任何排序项
func (s Sort) IsSorted() bool {
	return len(s.Orders) > 0
}

// Clause 渲染为 ORDER BY 子句内容（不含 ORDER BY 关键字）
func (s Sort) Clause() string {
	parts := make([]string, 0, len(s.Orders))
	for _, o := range s.Orders {
		parts = append(parts, o.Column+" "+string(o.Direction))
	}
	return strings.Join(parts, ", ")
}

// Apply 应用到 gorm 查询
func (s Sort) Apply(db *gorm.DB) *gorm.DB {
	if !s.IsSorted() {
		return db
	}
	return db.Order(s.Clause())
}
