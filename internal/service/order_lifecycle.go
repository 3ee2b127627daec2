package service

import (
	"errors"
	"time"

	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"

	"gorm.io/gorm"
)

// TransitionAuthorizer 判定发起者能否执行某个状态流转；管理员按各自所属角色判定
type TransitionAuthorizer interface {
	AllowTransition(role, from, to string) (bool, error)
	AllowAdminTransition(adminID uint, from, to string) (bool, error)
}

// Actor 状态流转的发起者
type Actor struct {
	Role string
	ID   uint
}

// AdminActor 管理员
func AdminActor(adminID uint) Actor { return Actor{Role: constants.ActorAdmin, ID: adminID} }

// UserActor 下单用户
func UserActor(userID uint) Actor { return Actor{Role: constants.ActorUser, ID: userID} }

// SystemActor 系统任务
func SystemActor() Actor { return Actor{Role: constants.ActorSystem} }

// errStatusRaced 并发下状态已被其他请求修改
var errStatusRaced = errors.New("order status changed concurrently")

// OrderLifecycleService 订单状态机
type OrderLifecycleService struct {
	orderRepo  repository.OrderRepository
	authorizer TransitionAuthorizer
	observer   Observer
	now        func() time.Time
}

// NewOrderLifecycleService 创建订单状态机服务；authorizer 为空时只按状态表判定
func NewOrderLifecycleService(orderRepo repository.OrderRepository, authorizer TransitionAuthorizer, observer Observer) *OrderLifecycleService {
	return &OrderLifecycleService{
		orderRepo:  orderRepo,
		authorizer: authorizer,
		observer:   observerOrNop(observer),
		now:        time.Now,
	}
}

// CreateInitial 以待付款状态创建订单并写入首条流转记录，orderRepo 需绑定调用方事务
func (s *OrderLifecycleService) CreateInitial(orderRepo repository.OrderRepository, order *models.Order, items []models.OrderItem, actor Actor) error {
	order.Status = constants.OrderStatusPending
	if err := orderRepo.Create(order, items); err != nil {
		return err
	}
	return orderRepo.CreateStatusLog(&models.OrderStatusLog{
		OrderID:   order.ID,
		ToStatus:  constants.OrderStatusPending,
		Actor:     actor.Role,
		ActorID:   actor.ID,
		CreatedAt: order.CreatedAt,
	})
}

// Transition 按状态表推进订单状态
func (s *OrderLifecycleService) Transition(orderID uint, target constants.OrderStatus, actor Actor) (*models.Order, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	return s.apply(order, target, actor)
}

// AdminUpdateStatus 管理端更新订单状态
func (s *OrderLifecycleService) AdminUpdateStatus(orderID uint, rawStatus string, adminID uint) (*models.Order, error) {
	target, err := ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.Transition(orderID, target, AdminActor(adminID))
}

// UserCancel 用户取消订单（仅待付款）
func (s *OrderLifecycleService) UserCancel(orderID, userID uint) (*models.Order, error) {
	return s.userTransition(orderID, userID, constants.OrderStatusPending, constants.OrderStatusCancelled, "仅待付款订单可取消")
}

// UserConfirmReceipt 用户确认收货（仅已发货）
func (s *OrderLifecycleService) UserConfirmReceipt(orderID, userID uint) (*models.Order, error) {
	return s.userTransition(orderID, userID, constants.OrderStatusShipped, constants.OrderStatusCompleted, "仅已发货订单可确认收货")
}

// CancelExpired 超时任务取消待付款订单；订单已流转时直接返回
func (s *OrderLifecycleService) CancelExpired(orderID uint) (*models.Order, bool, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, false, err
	}
	if order.Status != constants.OrderStatusPending {
		return order, false, nil
	}
	updated, err := s.apply(order, constants.OrderStatusCancelled, SystemActor())
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return order, false, nil
		}
		return nil, false, err
	}
	return updated, true, nil
}

func (s *OrderLifecycleService) userTransition(orderID, userID uint, required, target constants.OrderStatus, statusMessage string) (*models.Order, error) {
	if userID == 0 {
		return nil, newBizError(ErrUnauthorized, "用户未登录")
	}
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, newBizError(ErrUnauthorized, "无权操作此订单")
	}
	if order.Status != required {
		return nil, newBizError(ErrInvalidTransition, "%s", statusMessage)
	}
	return s.apply(order, target, UserActor(userID))
}

func (s *OrderLifecycleService) loadOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, storeFault(err)
	}
	if order == nil {
		return nil, newBizError(ErrOrderNotFound, "订单不存在")
	}
	return order, nil
}

func (s *OrderLifecycleService) apply(order *models.Order, target constants.OrderStatus, actor Actor) (*models.Order, error) {
	if !target.Valid() {
		return nil, newBizError(ErrInvalidOrderStatus, "无效的订单状态: %s", target)
	}
	from := order.Status
	rule, ok := lookupTransition(from, target)
	if !ok {
		logger.Debugw("order_transition_rejected",
			"order_id", order.ID,
			"from", from,
			"to", target,
			"actor", actor.Role,
		)
		return nil, newBizError(ErrInvalidTransition, "订单状态不允许从「%s」变更为「%s」", OrderStatusLabel(from), OrderStatusLabel(target))
	}
	if s.authorizer != nil {
		allowed, err := s.allow(actor, from, target)
		if err != nil {
			return nil, storeFault(err)
		}
		if !allowed {
			return nil, newBizError(ErrForbidden, "无权执行该状态变更")
		}
	}

	now := s.now()
	updates := map[string]interface{}{"updated_at": now}
	if rule.stampColumn != "" {
		updates[rule.stampColumn] = now
	}
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		applied, err := orderRepo.UpdateStatusIfCurrent(order.ID, from, target, updates)
		if err != nil {
			return err
		}
		if !applied {
			return errStatusRaced
		}
		return orderRepo.CreateStatusLog(&models.OrderStatusLog{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   target,
			Actor:      actor.Role,
			ActorID:    actor.ID,
			CreatedAt:  now,
		})
	})
	if err != nil {
		if errors.Is(err, errStatusRaced) {
			return nil, newBizError(ErrInvalidTransition, "订单状态已变更，请刷新后重试")
		}
		logger.Errorw("order_transition_store_fault",
			"order_id", order.ID,
			"from", from,
			"to", target,
			"error", err,
		)
		return nil, storeFault(err)
	}

	order.Status = target
	order.UpdatedAt = now
	stampOrderField(order, rule.stampColumn, now)
	s.observer.OrderTransitioned(actor.Role, string(from), string(target))
	logger.Infow("order_transitioned",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"from", from,
		"to", target,
		"actor", actor.Role,
		"actor_id", actor.ID,
	)
	return order, nil
}

func (s *OrderLifecycleService) allow(actor Actor, from, to constants.OrderStatus) (bool, error) {
	if actor.Role == constants.ActorAdmin {
		return s.authorizer.AllowAdminTransition(actor.ID, string(from), string(to))
	}
	return s.authorizer.AllowTransition(actor.Role, string(from), string(to))
}

func stampOrderField(order *models.Order, column string, at time.Time) {
	stamped := at
	switch column {
	case "paid_at":
		order.PaidAt = &stamped
	case "shipped_at":
		order.ShippedAt = &stamped
	case "completed_at":
		order.CompletedAt = &stamped
	case "canceled_at":
		order.CanceledAt = &stamped
	}
}

// CancelStalePending 扫描超过 expireAfter 仍待付款的订单并取消，返回取消数量
func (s *OrderLifecycleService) CancelStalePending(expireAfter time.Duration, limit int) (int, error) {
	if expireAfter <= 0 {
		return 0, nil
	}
	ids, err := s.orderRepo.ListPendingIDsBefore(s.now().Add(-expireAfter), limit)
	if err != nil {
		return 0, storeFault(err)
	}
	cancelled := 0
	for _, id := range ids {
		_, ok, err := s.CancelExpired(id)
		if err != nil {
			if KindOf(err) == KindStoreFault {
				return cancelled, err
			}
			continue
		}
		if ok {
			cancelled++
		}
	}
	return cancelled, nil
}
