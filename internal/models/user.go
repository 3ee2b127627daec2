package models

import (
	"time"
)

// User 用户表（按令牌识别）
type User struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                       // 主键
	Token       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`             // 访问令牌
	Nickname    string     `gorm:"type:varchar(50);default:''" json:"nickname"`                // 昵称
	Phone       string     `gorm:"type:varchar(20);default:''" json:"phone"`                   // 手机号
	UserType    string     `gorm:"type:varchar(20);not null;default:'guest'" json:"user_type"` // 用户类型
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`                     // 是否启用
	LastVisitAt *time.Time `json:"last_visit_at"`                                              // 最后访问时间
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt   time.Time  `json:"updated_at"`                                                 // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
