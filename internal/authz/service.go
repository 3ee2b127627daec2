package authz

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/crsp-mall/internal/constants"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	casbinTableName = "casbin_rule"
	rolePrefix      = "role:"
	adminPrefix     = "admin:"
	orderPrefix     = "order:"
	anyStatus       = "*"
)

var (
	// ErrUnavailable 授权服务未初始化
	ErrUnavailable = errors.New("authz service unavailable")
	// ErrRoleRequired 角色为空
	ErrRoleRequired = errors.New("role is required")
)

// 主体为角色或管理员，资源为 order:<当前状态>，动作为目标状态；
// 资源与动作都允许使用 * 通配
const transitionModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy 一条流转授权
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 订单状态流转授权，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 基于 gorm 连接创建授权服务并加载已有策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(transitionModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch", util.KeyMatchFunc)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// AllowTransition 角色能否把订单从 from 推进到 to
func (s *Service) AllowTransition(role, from, to string) (bool, error) {
	subject, err := s.subject(role)
	if err != nil {
		return false, err
	}
	return s.enforcer.Enforce(subject, ObjectForStatus(from), NormalizeAction(to))
}

// AllowAdminTransition 按管理员所属角色判定；尚未分配角色的管理员按 role:admin 处理
func (s *Service) AllowAdminTransition(adminID uint, from, to string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	subject := SubjectForAdmin(adminID)
	roles, err := s.enforcer.GetRolesForUser(subject)
	if err != nil {
		return false, fmt.Errorf("load admin roles failed: %w", err)
	}
	if len(roles) == 0 {
		subject = rolePrefix + constants.ActorAdmin
	}
	return s.enforcer.Enforce(subject, ObjectForStatus(from), NormalizeAction(to))
}

// GrantTransition 授予流转权限，返回是否新增
func (s *Service) GrantTransition(role, from, to string) (bool, error) {
	subject, err := s.subject(role)
	if err != nil {
		return false, err
	}
	action := NormalizeAction(to)
	if action == "" {
		return false, errors.New("target status is required")
	}
	added, err := s.enforcer.AddPolicy(subject, ObjectForStatus(from), action)
	if err != nil {
		return false, fmt.Errorf("grant transition failed: %w", err)
	}
	return added, nil
}

// RevokeTransition 撤销流转权限，不存在时视为成功
func (s *Service) RevokeTransition(role, from, to string) error {
	subject, err := s.subject(role)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.RemovePolicy(subject, ObjectForStatus(from), NormalizeAction(to)); err != nil {
		return fmt.Errorf("revoke transition failed: %w", err)
	}
	return nil
}

// AssignAdminRole 管理员改挂到指定角色，原有角色解除
func (s *Service) AssignAdminRole(adminID uint, role string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if adminID == 0 {
		return errors.New("admin id is required")
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.DeleteRolesForUser(subject); err != nil {
		return fmt.Errorf("reset admin roles failed: %w", err)
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, normalized); err != nil {
		return fmt.Errorf("assign admin role failed: %w", err)
	}
	return nil
}

// AdminRoles 管理员当前所属角色
func (s *Service) AdminRoles(adminID uint) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
}

// Policies 全部流转策略，按主体、资源、动作排序
func (s *Service) Policies() ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetPolicy()
	if err != nil {
		return nil, err
	}
	result := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) >= 3 {
			result = append(result, Policy{Subject: rule[0], Object: rule[1], Action: rule[2]})
		}
	}
	slices.SortFunc(result, func(a, b Policy) int {
		return cmp.Or(
			cmp.Compare(a.Subject, b.Subject),
			cmp.Compare(a.Object, b.Object),
			cmp.Compare(a.Action, b.Action),
		)
	})
	return result, nil
}

func (s *Service) subject(role string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	return NormalizeRole(role)
}

// SubjectForAdmin 管理员主体标识
func SubjectForAdmin(adminID uint) string {
	return adminPrefix + strconv.FormatUint(uint64(adminID), 10)
}

// ObjectForStatus 订单状态资源标识，空状态视为通配
func ObjectForStatus(status string) string {
	normalized := strings.ToLower(strings.TrimSpace(status))
	if normalized == "" {
		normalized = anyStatus
	}
	return orderPrefix + normalized
}

// NormalizeRole 角色名统一为 role:<name>；admin:<id> 原样保留
func NormalizeRole(role string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if strings.HasPrefix(normalized, adminPrefix) {
		return normalized, nil
	}
	name := strings.TrimPrefix(normalized, rolePrefix)
	if name == "" {
		return "", ErrRoleRequired
	}
	return rolePrefix + name, nil
}

// NormalizeAction 目标状态统一小写
func NormalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}
