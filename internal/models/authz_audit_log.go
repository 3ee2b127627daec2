package models

import "time"

// AuthzAuditLog 状态流转授权变更审计
type AuthzAuditLog struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	OperatorAdminID uint      `gorm:"index;not null" json:"operator_admin_id"`
	TargetAdminID   *uint     `gorm:"index" json:"target_admin_id,omitempty"` // 仅 assign_role 时有值
	Action          string    `gorm:"type:varchar(50);index;not null" json:"action"`
	Role            string    `gorm:"type:varchar(120);index;not null;default:''" json:"role"`
	FromStatus      string    `gorm:"type:varchar(20);not null;default:''" json:"from_status"`
	ToStatus        string    `gorm:"type:varchar(20);not null;default:''" json:"to_status"`
	RequestID       string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuthzAuditLog) TableName() string {
	return "authz_audit_logs"
}
