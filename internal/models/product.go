package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	Title       string         `gorm:"type:varchar(200);not null" json:"title"`            // 标题
	Description string         `gorm:"type:text" json:"description"`                       // 描述
	Images      StringArray    `gorm:"type:json" json:"images"`                            // 图片数组
	Spec        string         `gorm:"type:varchar(200)" json:"spec"`                      // 规格说明
	Price       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 现价
	Stock       *int           `json:"stock"`                                              // 库存（nil 表示不限库存）
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`                // 是否上架
	SortOrder   int            `gorm:"default:0;index" json:"sort_order"`                  // 排序权重
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// InStock 库存为空（不限）或大于 0
func (p *Product) InStock() bool {
	return p.Stock == nil || *p.Stock > 0
}

// HasEnoughStock 是否足够扣减指定数量
func (p *Product) HasEnoughStock(quantity int) bool {
	return p.Stock == nil || *p.Stock >= quantity
}

// CurrentStock 当前库存，不限库存返回 -1
func (p *Product) CurrentStock() int {
	if p.Stock == nil {
		return -1
	}
	return *p.Stock
}
