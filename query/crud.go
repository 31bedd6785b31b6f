package query

import (
	"context"

	"gorm.io/gorm"
)

// CrudRepository 仓储基础接口
// 仓储接口嵌入它即可获得基础 CRUD 方法，这些方法由 CrudFragment 委托实现
type CrudRepository[T any, ID comparable] interface {
	FindByID(ctx context.Context, id ID) (*T, error)
	FindAll(ctx context.Context) ([]T, error)
	FindAllPaged(ctx context.Context, pageable Pageable) ([]T, error)
	Save(ctx context.Context, entity *T) error
	SaveAll(ctx context.Context, entities []T) error
	DeleteByID(ctx context.Context, id ID) error
	Count(ctx context.Context) (int64, error)
	ExistsByID(ctx context.Context, id ID) (bool, error)
}

// CrudFragment CrudRepository 的 gorm 实现
type CrudFragment[T any, ID comparable] struct {
	db *gorm.DB
}

// NewCrudFragment 创建基础 CRUD fragment
func NewCrudFragment[T any, ID comparable](db *gorm.DB) *CrudFragment[T, ID] {
	return &CrudFragment[T, ID]{db: db}
}

func (f *CrudFragment[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	var entity T
	if err := f.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (f *CrudFragment[T, ID]) FindAll(ctx context.Context) ([]T, error) {
	var entities []T
	if err := f.db.WithContext(ctx).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (f *CrudFragment[T, ID]) FindAllPaged(ctx context.Context, pageable Pageable) ([]T, error) {
	var entities []T
	if err := pageable.Apply(f.db.WithContext(ctx)).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (f *CrudFragment[T, ID]) Save(ctx context.Context, entity *T) error {
	return f.db.WithContext(ctx).Save(entity).Error
}

func (f *CrudFragment[T, ID]) SaveAll(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).Save(&entities).Error
}

func (f *CrudFragment[T, ID]) DeleteByID(ctx context.Context, id ID) error {
	var entity T
	return f.db.WithContext(ctx).Delete(&entity, "id = ?", id).Error
}

func (f *CrudFragment[T, ID]) Count(ctx context.Context) (int64, error) {
	var entity T
	var count int64
	if err := f.db.WithContext(ctx).Model(&entity).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (f *CrudFragment[T, ID]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	var entity T
	var count int64
	if err := f.db.WithContext(ctx).Model(&entity).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
