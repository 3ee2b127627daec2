package repository

import (
	"time"

	"github.com/crsp-mall/internal/models"
)

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	UserPhone   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	UserType string
}

// UserOrderSummary 用户订单统计，消费金额不含已取消订单
type UserOrderSummary struct {
	OrderCount    int64
	TotalSpending models.Money
}

// AuthzAuditLogListFilter 查询授权审计日志的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	Action          string
	Role            string
}
