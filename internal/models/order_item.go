package models

import (
	"time"
)

// OrderItem 订单项表（下单时的商品快照）
type OrderItem struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID    uint      `gorm:"index;not null" json:"order_id"`                           // 订单ID
	ProductID  uint      `gorm:"index;not null" json:"product_id"`                         // 商品ID
	Title      string    `gorm:"type:varchar(200);not null" json:"title"`                  // 商品标题快照
	Image      string    `gorm:"type:varchar(500)" json:"image"`                           // 商品图片快照
	SpecName   string    `gorm:"type:varchar(100)" json:"spec_name"`                       // 规格
	UnitPrice  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 单价（下单时实时价格）
	Quantity   int       `gorm:"not null" json:"quantity"`                                 // 数量
	TotalPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 小计
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                  // 创建时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
