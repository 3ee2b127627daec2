package models

import (
	"time"
)

// CartItem 购物车项
type CartItem struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                                                          // 主键
	UserID       uint      `gorm:"not null;uniqueIndex:idx_cart_user_product_spec" json:"user_id"`                                // 用户ID
	ProductID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_product_spec" json:"product_id"`                             // 商品ID
	SpecName     string    `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_cart_user_product_spec" json:"spec_name"` // 规格名称
	ProductTitle string    `gorm:"type:varchar(200)" json:"product_title"`                                                        // 商品标题快照
	ProductImage string    `gorm:"type:varchar(500)" json:"product_image"`                                                        // 商品图片快照
	ProductPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"product_price"`                                    // 加购时价格快照
	Quantity     int       `gorm:"not null;default:1" json:"quantity"`                                                            // 数量
	Selected     bool      `gorm:"not null;default:true" json:"selected"`                                                         // 是否勾选结算
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                                                                       // 创建时间
	UpdatedAt    time.Time `json:"updated_at"`                                                                                    // 更新时间
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal 快照价小计
func (c *CartItem) LineTotal() Money {
	return c.ProductPrice.MulQuantity(c.Quantity)
}
