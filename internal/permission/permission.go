// Package permission 提供纯函数形式的权限判定。
//
// 判定只依赖传入的 Actor 与资源属主，不读取配置也不访问存储；
// 任何缺失或非法输入都返回 false。
package permission

import (
	"strings"

	"github.com/portfolio-next/internal/constants"
)

// Actor 当前请求的操作者
// PinnedAdmin 由身份解析阶段根据固定管理员邮箱列表设置。
type Actor struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	PinnedAdmin bool   `json:"pinned_admin"`
}

// CanManageOwnContent 操作者是否为资源属主
func CanManageOwnContent(actorID, ownerID string) bool {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return false
	}
	return actorID == strings.TrimSpace(ownerID)
}

// CanModerate 角色是否具备版主能力
func CanModerate(role string) bool {
	switch NormalizeRole(role) {
	case constants.RoleModerator, constants.RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin 是否管理员：持久化角色为 admin，或命中固定管理员邮箱
func IsAdmin(actor *Actor) bool {
	if actor == nil || strings.TrimSpace(actor.ID) == "" {
		return false
	}
	return NormalizeRole(actor.Role) == constants.RoleAdmin || actor.PinnedAdmin
}

// CanModerateActor 操作者是否具备版主能力（含固定管理员）
func CanModerateActor(actor *Actor) bool {
	if actor == nil {
		return false
	}
	return IsAdmin(actor) || CanModerate(actor.Role)
}

// CanDeleteThreadItem 评论/主题删除守卫：属主或版主
func CanDeleteThreadItem(actor *Actor, ownerID string) bool {
	if actor == nil {
		return false
	}
	return CanManageOwnContent(actor.ID, ownerID) || CanModerateActor(actor)
}

// NormalizeRole 角色归一化，未知角色返回空串
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case constants.RoleUser:
		return constants.RoleUser
	case constants.RoleModerator:
		return constants.RoleModerator
	case constants.RoleAdmin:
		return constants.RoleAdmin
	default:
		return ""
	}
}

// IsPinnedEmail 邮箱是否在固定管理员列表内（忽略大小写与空白）
func IsPinnedEmail(email string, pinned []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return false
	}
	for _, item := range pinned {
		if strings.ToLower(strings.TrimSpace(item)) == normalized {
			return true
		}
	}
	return false
}
