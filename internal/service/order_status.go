package service

import (
	"strings"

	"github.com/crsp-mall/internal/constants"
)

// transitionRule 状态流转规则，stampColumn 为需要写入的时间字段
type transitionRule struct {
	stampColumn string
}

// orderTransitions 订单状态表：未列出的组合一律拒绝
var orderTransitions = map[constants.OrderStatus]map[constants.OrderStatus]transitionRule{
	constants.OrderStatusPending: {
		constants.OrderStatusPaid: {stampColumn: "paid_at"},
		// canceled_at 仅用于展示取消时间，不参与流转判定
		constants.OrderStatusCancelled: {stampColumn: "canceled_at"},
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusShipped: {stampColumn: "shipped_at"},
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusCompleted: {stampColumn: "completed_at"},
	},
}

var orderStatusLabels = map[constants.OrderStatus]string{
	constants.OrderStatusPending:   "待付款",
	constants.OrderStatusPaid:      "已付款",
	constants.OrderStatusShipped:   "已发货",
	constants.OrderStatusCompleted: "已完成",
	constants.OrderStatusCancelled: "已取消",
}

// ParseOrderStatus 解析状态字符串，未知状态返回校验错误
func ParseOrderStatus(raw string) (constants.OrderStatus, error) {
	status := constants.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", newBizError(ErrInvalidOrderStatus, "无效的订单状态: %s", strings.TrimSpace(raw))
	}
	return status, nil
}

// IsTransitionAllowed 判断状态表是否允许 from -> to
func IsTransitionAllowed(from, to constants.OrderStatus) bool {
	_, ok := lookupTransition(from, to)
	return ok
}

// AllowedTargets 当前状态可流转的目标状态
func AllowedTargets(from constants.OrderStatus) []constants.OrderStatus {
	targets := make([]constants.OrderStatus, 0, 2)
	for _, status := range constants.AllOrderStatuses {
		if IsTransitionAllowed(from, status) {
			targets = append(targets, status)
		}
	}
	return targets
}

// IsTerminalStatus 终态没有任何出边
func IsTerminalStatus(status constants.OrderStatus) bool {
	return len(orderTransitions[status]) == 0
}

// OrderStatusLabel 状态中文名
func OrderStatusLabel(status constants.OrderStatus) string {
	if label, ok := orderStatusLabels[status]; ok {
		return label
	}
	return string(status)
}

func lookupTransition(from, to constants.OrderStatus) (transitionRule, bool) {
	targets, ok := orderTransitions[from]
	if !ok {
		return transitionRule{}, false
	}
	rule, ok := targets[to]
	return rule, ok
}
