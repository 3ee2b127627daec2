package models

import (
	"time"

	"github.com/crsp-mall/internal/constants"
)

// Order 订单表
type Order struct {
	ID              uint                  `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo         string                `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	UserID          uint                  `gorm:"index;not null" json:"user_id"`                             // 用户ID
	UserName        string                `gorm:"type:varchar(100);not null" json:"user_name"`               // 收货人
	UserPhone       string                `gorm:"type:varchar(20);not null" json:"user_phone"`               // 收货电话
	ShippingAddress string                `gorm:"type:varchar(500);not null" json:"shipping_address"`        // 收货地址
	TotalAmount     Money                 `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 订单金额
	ProductCount    int                   `gorm:"not null;default:0" json:"product_count"`                   // 商品件数
	Status          constants.OrderStatus `gorm:"type:varchar(20);index;not null" json:"status"`             // 订单状态
	Remark          string                `gorm:"type:varchar(500)" json:"remark"`                           // 备注
	PaidAt          *time.Time            `gorm:"index" json:"paid_at"`                                      // 支付时间
	ShippedAt       *time.Time            `json:"shipped_at"`                                                // 发货时间
	CompletedAt     *time.Time            `json:"completed_at"`                                              // 完成时间
	CanceledAt      *time.Time            `json:"canceled_at"`                                               // 取消时间
	CreatedAt       time.Time             `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time             `gorm:"index" json:"updated_at"`                                   // 更新时间

	Items      []OrderItem      `gorm:"foreignKey:OrderID" json:"items,omitempty"`       // 订单项
	StatusLogs []OrderStatusLog `gorm:"foreignKey:OrderID" json:"status_logs,omitempty"` // 状态流转记录
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
