package worker

import (
	"context"
	"errors"

	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/queue"
	"github.com/crsp-mall/internal/service"

	"github.com/hibiken/asynq"
)

// OrderExpirer 取消超时待付款订单
type OrderExpirer interface {
	CancelExpired(orderID uint) (*models.Order, bool, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	expirer OrderExpirer
}

// NewConsumer 创建消费者
func NewConsumer(expirer OrderExpirer) *Consumer {
	return &Consumer{expirer: expirer}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderTimeoutCancelPayload(task)
	if err != nil {
		logger.Warnw("worker_order_timeout_cancel_invalid_payload", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	return c.cancelExpired(payload.OrderID)
}

// cancelExpired 业务拒绝（不存在、已流转）视为完成，仅持久化故障触发重试
func (c *Consumer) cancelExpired(orderID uint) error {
	if c.expirer == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_expirer_nil", "order_id", orderID)
		return nil
	}
	order, cancelled, err := c.expirer.CancelExpired(orderID)
	if err != nil {
		switch service.KindOf(err) {
		case service.KindNotFound:
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", orderID)
			return nil
		case service.KindStoreFault:
			logger.Warnw("worker_order_timeout_cancel_failed", "order_id", orderID, "error", err)
			return err
		default:
			logger.Debugw("worker_order_timeout_cancel_skip_rejected", "order_id", orderID, "error", err)
			return nil
		}
	}
	if !cancelled {
		logger.Debugw("worker_order_timeout_cancel_skip_not_pending", "order_id", orderID, "status", order.Status)
		return nil
	}
	logger.Infow("worker_order_timeout_cancelled", "order_id", order.ID, "order_no", order.OrderNo)
	return nil
}
