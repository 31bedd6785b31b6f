package example

import (
	"context"

	"github.com/donutnomad/repogen/query"
)

// UserSearchFragment 自定义查询片段，由手写的 UserSearchFragmentImpl 提供实现
type UserSearchFragment interface {
	SearchByKeyword(ctx context.Context, keyword string) ([]User, error)
}

// UserRepository 用户仓储
// 基础 CRUD 由嵌入的 CrudRepository 提供，派生查询方法按命名约定生成
// @Repository
type UserRepository interface {
	query.CrudRepository[User, uint]
	UserSearchFragment

	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByStatusOrderByCreatedAtDesc(ctx context.Context, status string) ([]User, error)
	FindTop10ByStatus(ctx context.Context, status string) ([]User, error)
	FindByNameContainingIgnoreCase(ctx context.Context, name string) ([]User, error)
	FindByAgeBetween(ctx context.Context, min int, max int) ([]User, error)
	FindByActiveTrueAndAgeGreaterThan(ctx context.Context, age int, page query.Pageable) ([]User, error)
	FindDistinctByStatusIn(ctx context.Context, statuses []string) ([]User, error)
	// 投影查询：只选取 UserSummary 中声明的列
	FindByActiveTrue(ctx context.Context) ([]UserSummary, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	DeleteByStatus(ctx context.Context, status string) (int64, error)
}

// OrderRepository 订单仓储
// @Repository
type OrderRepository interface {
	query.CrudRepository[Order, uint]

	FindByUserIDOrderByCreatedAtDesc(ctx context.Context, userID uint) ([]Order, error)
	FindByStatusIn(ctx context.Context, statuses []string) ([]Order, error)
	FindByAmountGreaterThanEqual(ctx context.Context, amount int64, sort query.Sort) ([]Order, error)
	CountByUserID(ctx context.Context, userID uint) (int64, error)
	DeleteByUserID(ctx context.Context, userID uint) error
}
