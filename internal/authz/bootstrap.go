package authz

import (
	"fmt"

	"github.com/crsp-mall/internal/constants"
)

// TransitionSeed 预置的角色流转权限
type TransitionSeed struct {
	Role string
	From string
	To   string
}

// BuiltinTransitionSeeds 预置权限矩阵
// 管理员可执行状态表内任意流转；用户只能取消待付款订单与确认收货；系统只能超时取消
func BuiltinTransitionSeeds() []TransitionSeed {
	return []TransitionSeed{
		{Role: constants.ActorAdmin, From: "*", To: "*"},
		{Role: constants.ActorUser, From: string(constants.OrderStatusPending), To: string(constants.OrderStatusCancelled)},
		{Role: constants.ActorUser, From: string(constants.OrderStatusShipped), To: string(constants.OrderStatusCompleted)},
		{Role: constants.ActorSystem, From: string(constants.OrderStatusPending), To: string(constants.OrderStatusCancelled)},
	}
}

// BootstrapBuiltinPolicies 初始化预置流转权限（幂等）
func (s *Service) BootstrapBuiltinPolicies() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinTransitionSeeds() {
		if _, err := s.GrantTransition(seed.Role, seed.From, seed.To); err != nil {
			return fmt.Errorf("bootstrap %s %s->%s failed: %w", seed.Role, seed.From, seed.To, err)
		}
	}
	return nil
}

// BootstrapAdminRoles 尚未分配角色的管理员挂到 role:admin（幂等）
func (s *Service) BootstrapAdminRoles(adminIDs []uint) error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, adminID := range adminIDs {
		roles, err := s.AdminRoles(adminID)
		if err != nil {
			return fmt.Errorf("load roles of admin %d failed: %w", adminID, err)
		}
		if len(roles) > 0 {
			continue
		}
		if err := s.AssignAdminRole(adminID, constants.ActorAdmin); err != nil {
			return err
		}
	}
	return nil
}
