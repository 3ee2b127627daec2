package models

import (
	"time"

	"github.com/crsp-mall/internal/constants"
)

// OrderStatusLog 订单状态流转记录
type OrderStatusLog struct {
	ID         uint                  `gorm:"primarykey" json:"id"`
	OrderID    uint                  `gorm:"index;not null" json:"order_id"`
	FromStatus constants.OrderStatus `gorm:"type:varchar(20)" json:"from_status"` // 初始创建时为空
	ToStatus   constants.OrderStatus `gorm:"type:varchar(20);not null" json:"to_status"`
	Actor      string                `gorm:"type:varchar(20);not null" json:"actor"` // admin/user/system
	ActorID    uint                  `gorm:"not null;default:0" json:"actor_id"`
	CreatedAt  time.Time             `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (OrderStatusLog) TableName() string {
	return "order_status_logs"
}
