package admin

import (
	handlershared "github.com/crsp-mall/internal/http/handlers/shared"
	"github.com/crsp-mall/internal/http/response"
	"github.com/crsp-mall/internal/repository"
	"github.com/crsp-mall/internal/service"

	"github.com/gin-gonic/gin"
)

// TransitionPolicyRequest 状态流转授权请求
type TransitionPolicyRequest struct {
	Role string `json:"role" binding:"required"`
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// AssignRoleRequest 分配角色请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListTransitionPolicies 当前流转授权策略
func (h *Handler) ListTransitionPolicies(c *gin.Context) {
	policies, err := h.AuthzService.Policies()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, policies)
}

// GrantTransitionPolicy 授予角色状态流转权限（状态表之外的组合依然会被拒绝）
func (h *Handler) GrantTransitionPolicy(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	req, ok := bindTransitionPolicy(c)
	if !ok {
		return
	}
	added, err := h.AuthzService.GrantTransition(req.Role, req.From, req.To)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	h.recordAudit(c, service.AuthzAuditRecordInput{
		OperatorAdminID: adminID,
		Action:          service.AuthzAuditActionGrant,
		Role:            req.Role,
		FromStatus:      req.From,
		ToStatus:        req.To,
	})
	response.Success(c, gin.H{"added": added})
}

// RevokeTransitionPolicy 撤销角色状态流转权限
func (h *Handler) RevokeTransitionPolicy(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	req, ok := bindTransitionPolicy(c)
	if !ok {
		return
	}
	if err := h.AuthzService.RevokeTransition(req.Role, req.From, req.To); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	h.recordAudit(c, service.AuthzAuditRecordInput{
		OperatorAdminID: adminID,
		Action:          service.AuthzAuditActionRevoke,
		Role:            req.Role,
		FromStatus:      req.From,
		ToStatus:        req.To,
	})
	response.Success(c, gin.H{"revoked": true})
}

// AssignAdminRole 将管理员挂到角色下
func (h *Handler) AssignAdminRole(c *gin.Context) {
	operatorID, ok := getAdminID(c)
	if !ok {
		return
	}
	targetID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.AssignAdminRole(targetID, req.Role); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	h.recordAudit(c, service.AuthzAuditRecordInput{
		OperatorAdminID: operatorID,
		TargetAdminID:   &targetID,
		Action:          service.AuthzAuditActionAssign,
		Role:            req.Role,
	})
	response.Success(c, gin.H{"assigned": true})
}

// ListAuthzAuditLogs 授权变更审计日志
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	operatorID, _ := handlershared.ParseQueryUint(c.Query("operator_admin_id"))
	logs, total, err := h.AuthzAudit.ListForAdmin(repository.AuthzAuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: operatorID,
		Action:          c.Query("action"),
		Role:            c.Query("role"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}

func (h *Handler) recordAudit(c *gin.Context, input service.AuthzAuditRecordInput) {
	input.RequestID = response.RequestID(c)
	if err := h.AuthzAudit.Record(input); err != nil {
		requestLog(c).Warnw("authz_audit_record_failed", "action", input.Action, "error", err)
		return
	}
	requestLog(c).Infow("authz_policy_changed",
		"action", input.Action,
		"role", input.Role,
		"from", input.FromStatus,
		"to", input.ToStatus,
	)
}

func bindTransitionPolicy(c *gin.Context) (TransitionPolicyRequest, bool) {
	var req TransitionPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return req, false
	}
	for _, raw := range []string{req.From, req.To} {
		if raw == "*" {
			continue
		}
		if _, err := service.ParseOrderStatus(raw); err != nil {
			respondServiceError(c, err)
			return req, false
		}
	}
	return req, true
}
