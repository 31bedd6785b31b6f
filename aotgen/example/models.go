package example

import (
	"time"

	"gorm.io/datatypes"
)

// User 用户实体
type User struct {
	ID        uint   `gorm:"primarykey"`
	Email     string `gorm:"uniqueIndex;size:128"`
	Name      string `gorm:"size:64"`
	Age       int
	Status    string `gorm:"index;size:32"`
	Active    bool
	Profile   datatypes.JSON
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order 订单实体
type Order struct {
	ID        uint `gorm:"primarykey"`
	UserID    uint `gorm:"index"`
	Amount    int64
	Status    string `gorm:"index;size:32"`
	Meta      datatypes.JSONMap
	CreatedAt time.Time
}

// UserSummary 用户的投影视图（只选取部分列）
type UserSummary struct {
	ID    uint
	Email string
	Name  string
}
