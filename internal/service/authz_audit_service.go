package service

import (
	"strings"
	"time"

	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"
)

// 授权审计动作
const (
	AuthzAuditActionGrant  = "grant_transition"
	AuthzAuditActionRevoke = "revoke_transition"
	AuthzAuditActionAssign = "assign_role"
)

// AuthzAuditRecordInput 授权审计记录输入
type AuthzAuditRecordInput struct {
	OperatorAdminID uint
	TargetAdminID   *uint
	Action          string
	Role            string
	FromStatus      string
	ToStatus        string
	RequestID       string
}

// AuthzAuditService 授权审计服务
type AuthzAuditService struct {
	repo repository.AuthzAuditLogRepository
}

// NewAuthzAuditService 创建授权审计服务
func NewAuthzAuditService(repo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{repo: repo}
}

// Record 记录一次授权变更；缺少操作人或动作时忽略
func (s *AuthzAuditService) Record(input AuthzAuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if input.OperatorAdminID == 0 || strings.TrimSpace(input.Action) == "" {
		return nil
	}

	item := &models.AuthzAuditLog{
		OperatorAdminID: input.OperatorAdminID,
		TargetAdminID:   input.TargetAdminID,
		Action:          strings.TrimSpace(input.Action),
		Role:            strings.ToLower(strings.TrimSpace(input.Role)),
		FromStatus:      strings.ToLower(strings.TrimSpace(input.FromStatus)),
		ToStatus:        strings.ToLower(strings.TrimSpace(input.ToStatus)),
		RequestID:       strings.TrimSpace(input.RequestID),
		CreatedAt:       time.Now(),
	}
	return s.repo.Create(item)
}

// ListForAdmin 管理端查询授权审计日志
func (s *AuthzAuditService) ListForAdmin(filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuthzAuditLog{}, 0, nil
	}
	return s.repo.ListAdmin(filter)
}
