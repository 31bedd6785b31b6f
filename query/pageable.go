package query

import "gorm.io/gorm"

// Pageable 分页请求：页号从 0 开始
type Pageable struct {
	Page int
	Size int
	Sort Sort
}

// PageOf 构造分页请求
func PageOf(page, size int) Pageable {
	return Pageable{Page: page, Size: size}
}

// WithSort 附加排序
func (p Pageable) WithSort(s Sort) Pageable {
	p.Sort = s
	return p
}

// Offset 返回偏移量
func (p Pageable) Offset() int {
	return p.Page * p.Size
}

// IsPaged 是否是有效分页（Size > 0）
func (p Pageable) IsPaged() bool {
	return p.Size > 0
}

// Apply 应用到 gorm 查询
func (p Pageable) Apply(db *gorm.DB) *gorm.DB {
	db = p.Sort.Apply(db)
	if !p.IsPaged() {
		return db
	}
	return db.Offset(p.Offset()).Limit(p.Size)
}

// Limit 结果条数上限，0 表示不限制
type Limit int

// IsLimited 是否限制条数
func (l Limit) IsLimited() bool {
	return l > 0
}

// Apply 应用到 gorm 查询
func (l Limit) Apply(db *gorm.DB) *gorm.DB {
	if !l.IsLimited() {
		return db
	}
	return db.Limit(int(l))
}

// ScrollPosition 键集滚动位置：记录上次读到的键值
// 零值表示从头开始
type ScrollPosition struct {
	Column string
	After  any
}

// IsInitial 是否为起始位置
func (s ScrollPosition) IsInitial() bool {
	return s.Column == "" || s.After == nil
}

// Apply 应用到 gorm 查询
func (s ScrollPosition) Apply(db *gorm.DB) *gorm.DB {
	if s.IsInitial() {
		return db
	}
	return db.Where(s.Column+" > ?", s.After)
}
