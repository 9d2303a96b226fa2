package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/portfolio-next/internal/permission"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	userSubjectFmt  = "user:%s"
	rolePrefix      = "role:"
	roleAnchor      = "role:__anchor__"
)

var (
	// ErrUnavailable 授权服务未初始化或存储不可用
	ErrUnavailable = errors.New("authz unavailable")
	// ErrInvalidPolicy 主体/资源/动作不合法
	ErrInvalidPolicy = errors.New("invalid authz policy")
	// ErrBuiltinPolicy 预置角色的默认策略不可撤销
	ErrBuiltinPolicy = errors.New("builtin authz policy")
)

func invalidPolicy(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPolicy, msg)
}

const defaultRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service Casbin 路由授权服务
// 主体为角色（role:<name>）或单个用户（user:<id>），资源为去掉 /api/v1 前缀的路由模板。
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}

	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}

	m, err := model.NewModelFromString(defaultRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}

	return &Service{enforcer: enforcer}, nil
}

// Enforce 执行授权判断
func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	if s == nil || s.enforcer == nil {
		return false, ErrUnavailable
	}
	return s.enforcer.Enforce(strings.TrimSpace(sub), NormalizeObject(obj), NormalizeAction(act))
}

// EnforceActor 按当前用户判定授权
// 先按角色主体判定，再按用户主体判定（单独授予的策略）。
func (s *Service) EnforceActor(actor *permission.Actor, obj, act string) (bool, error) {
	if actor == nil {
		return false, nil
	}
	allow, err := s.Enforce(SubjectForActor(actor), obj, act)
	if err != nil || allow {
		return allow, err
	}
	if strings.TrimSpace(actor.ID) == "" {
		return false, nil
	}
	return s.Enforce(SubjectForUser(actor.ID), obj, act)
}

// EnsureRole 确保角色存在
func (s *Service) EnsureRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if s == nil || s.enforcer == nil {
		return "", ErrUnavailable
	}
	if normalized == roleAnchor {
		return "", invalidPolicy("reserved role is not allowed")
	}

	exists, err := s.enforcer.HasNamedGroupingPolicy("g", normalized, roleAnchor)
	if err != nil {
		return "", fmt.Errorf("%w: check role: %w", ErrUnavailable, err)
	}
	if exists {
		return normalized, nil
	}

	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor); err != nil {
		return "", fmt.Errorf("%w: create role: %w", ErrUnavailable, err)
	}
	return normalized, nil
}

// ListRoles 列出角色
func (s *Service) ListRoles() ([]string, error) {
	if s == nil || s.enforcer == nil {
		return nil, ErrUnavailable
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("%w: list roles: %w", ErrUnavailable, err)
	}
	roleSet := make(map[string]struct{})
	for _, rule := range rules {
		for _, item := range rule {
			if strings.HasPrefix(item, rolePrefix) && item != roleAnchor {
				roleSet[item] = struct{}{}
			}
		}
	}
	roles := make([]string, 0, len(roleSet))
	for role := range roleSet {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles, nil
}

// GrantPolicy 为主体授予策略，主体不带前缀时按角色处理
func (s *Service) GrantPolicy(subject, object, action string) error {
	normalizedSubject, err := s.ensureSubject(subject)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return invalidPolicy("action is required")
	}
	if _, err := s.enforcer.AddPolicy(normalizedSubject, NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("%w: grant policy: %w", ErrUnavailable, err)
	}
	return nil
}

// RevokePolicy 撤销主体策略；预置角色的默认策略返回 ErrBuiltinPolicy
func (s *Service) RevokePolicy(subject, object, action string) error {
	normalizedSubject, err := NormalizeSubject(subject)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return invalidPolicy("action is required")
	}
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	if isBuiltinPolicy(normalizedSubject, NormalizeObject(object), normalizedAction) {
		return ErrBuiltinPolicy
	}
	if _, err := s.enforcer.RemovePolicy(normalizedSubject, NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("%w: revoke policy: %w", ErrUnavailable, err)
	}
	return nil
}

// GetPolicies 查询主体的直接策略
func (s *Service) GetPolicies(subject string) ([]Policy, error) {
	normalizedSubject, err := NormalizeSubject(subject)
	if err != nil {
		return nil, err
	}
	if s == nil || s.enforcer == nil {
		return nil, ErrUnavailable
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, normalizedSubject)
	if err != nil {
		return nil, fmt.Errorf("%w: get policies: %w", ErrUnavailable, err)
	}
	policies := convertPolicies(rules)
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Object == policies[j].Object {
			return policies[i].Action < policies[j].Action
		}
		return policies[i].Object < policies[j].Object
	})
	return policies, nil
}

func (s *Service) ensureSubject(subject string) (string, error) {
	normalized, err := NormalizeSubject(subject)
	if err != nil {
		return "", err
	}
	if s == nil || s.enforcer == nil {
		return "", ErrUnavailable
	}
	if strings.HasPrefix(normalized, rolePrefix) {
		return s.EnsureRole(normalized)
	}
	return normalized, nil
}

func convertPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return policies
}

// SubjectForActor 生成角色主体；固定管理员邮箱一律按 admin 处理
func SubjectForActor(actor *permission.Actor) string {
	if actor == nil {
		return ""
	}
	if permission.IsAdmin(actor) {
		return rolePrefix + "admin"
	}
	role, err := NormalizeRole(actor.Role)
	if err != nil {
		return ""
	}
	return role
}

// SubjectForUser 生成用户主体标识
func SubjectForUser(userID string) string {
	return fmt.Sprintf(userSubjectFmt, strings.TrimSpace(userID))
}

// NormalizeSubject 统一主体标识（user:<id> 保持不变，其余按角色处理）
func NormalizeSubject(subject string) (string, error) {
	normalized := strings.TrimSpace(subject)
	if strings.HasPrefix(normalized, "user:") {
		if len(normalized) <= len("user:") {
			return "", invalidPolicy("user id is required")
		}
		return normalized, nil
	}
	return NormalizeRole(normalized)
}

// NormalizeRole 统一角色名称
func NormalizeRole(role string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "" {
		return "", invalidPolicy("role is required")
	}
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if !strings.HasPrefix(normalized, rolePrefix) {
		normalized = rolePrefix + normalized
	}
	if len(normalized) <= len(rolePrefix) {
		return "", invalidPolicy("role is required")
	}
	return normalized, nil
}

// NormalizeObject 统一授权资源路径
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	return normalized
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
