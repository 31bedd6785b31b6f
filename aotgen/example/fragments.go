package example

import (
	"context"

	"gorm.io/gorm"
)

// UserSearchFragmentImpl 是 UserSearchFragment 的手写实现
// 实现名遵循 接口名+Impl 的约定，生成器据此在清单中记录实现目标
type UserSearchFragmentImpl struct {
	DB *gorm.DB
}

func NewUserSearchFragmentImpl(db *gorm.DB) *UserSearchFragmentImpl {
	return &UserSearchFragmentImpl{DB: db}
}

// SearchByKeyword 在邮箱与姓名上做模糊匹配
func (f *UserSearchFragmentImpl) SearchByKeyword(ctx context.Context, keyword string) ([]User, error) {
	pattern := "%" + keyword + "%"
	var users []User
	err := f.DB.WithContext(ctx).
		Where("email LIKE ? OR name LIKE ?", pattern, pattern).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
