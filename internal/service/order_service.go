package service

import (
	"strings"

	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"
)

// OrderDetail 订单详情（含状态流转记录）
type OrderDetail struct {
	Order       *models.Order           `json:"order"`
	StatusLabel string                  `json:"status_label"`
	NextStatus  []string                `json:"next_status"`
	StatusLogs  []models.OrderStatusLog `json:"status_logs"`
}

// OrderService 订单查询与后台管理
type OrderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// ListByUser 用户订单列表，按创建时间倒序
func (s *OrderService) ListByUser(userID uint, status string, page, pageSize int) ([]models.Order, int64, error) {
	if userID == 0 {
		return nil, 0, newBizError(ErrUnauthorized, "用户未登录")
	}
	status, err := normalizeStatusFilter(status)
	if err != nil {
		return nil, 0, err
	}
	orders, total, err := s.orderRepo.ListByUser(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   status,
	})
	if err != nil {
		return nil, 0, storeFault(err)
	}
	return orders, total, nil
}

// GetByUser 用户订单详情，非本人订单按不存在处理
func (s *OrderService) GetByUser(orderID, userID uint) (*models.Order, error) {
	if userID == 0 {
		return nil, newBizError(ErrUnauthorized, "用户未登录")
	}
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, storeFault(err)
	}
	if order == nil {
		return nil, newBizError(ErrOrderNotFound, "订单不存在")
	}
	return order, nil
}

// AdminList 后台订单列表
func (s *OrderService) AdminList(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	status, err := normalizeStatusFilter(filter.Status)
	if err != nil {
		return nil, 0, err
	}
	filter.Status = status
	filter.OrderNo = strings.TrimSpace(filter.OrderNo)
	filter.UserPhone = strings.TrimSpace(filter.UserPhone)
	orders, total, err := s.orderRepo.ListAdmin(filter)
	if err != nil {
		return nil, 0, storeFault(err)
	}
	return orders, total, nil
}

// AdminGet 后台订单详情
func (s *OrderService) AdminGet(orderID uint) (*OrderDetail, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, storeFault(err)
	}
	if order == nil {
		return nil, newBizError(ErrOrderNotFound, "订单不存在")
	}
	logs, err := s.orderRepo.ListStatusLogs(order.ID)
	if err != nil {
		return nil, storeFault(err)
	}
	next := AllowedTargets(order.Status)
	nextStatus := make([]string, 0, len(next))
	for _, status := range next {
		nextStatus = append(nextStatus, status.String())
	}
	return &OrderDetail{
		Order:       order,
		StatusLabel: OrderStatusLabel(order.Status),
		NextStatus:  nextStatus,
		StatusLogs:  logs,
	}, nil
}

// AdminDelete 删除订单及其订单项、流转记录，不回补库存
func (s *OrderService) AdminDelete(orderID, adminID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return storeFault(err)
	}
	if order == nil {
		return newBizError(ErrOrderNotFound, "订单不存在")
	}
	if err := s.orderRepo.Delete(order.ID); err != nil {
		return storeFault(err)
	}
	logger.Infow("order_deleted",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"status", order.Status,
		"admin_id", adminID,
	)
	return nil
}

func normalizeStatusFilter(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	status, err := ParseOrderStatus(raw)
	if err != nil {
		return "", err
	}
	return status.String(), nil
}
