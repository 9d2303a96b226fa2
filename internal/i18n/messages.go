package i18n

import "github.com/portfolio-next/internal/constants"

var catalog = map[string]map[string]string{
	constants.LocaleEnUS: {
		"error.bad_request":          "Bad request",
		"error.unauthorized":         "Please sign in first",
		"error.forbidden":            "You do not have permission to do this",
		"error.not_found":            "Not found",
		"error.validation_failed":    "Invalid input",
		"error.invalid_transition":   "This action is not allowed in the current state",
		"error.review_not_requested": "Review has not been requested for this post",
		"error.version_conflict":     "The content was changed by someone else, please reload",
		"error.persistence_failed":   "Failed to save changes",
		"error.internal":             "Internal server error",
		"error.too_many_requests":    "Too many requests, please try again later",
		"error.rate_limited":         "Too many requests, please retry in %d seconds",
		"error.oauth_disabled":       "This sign-in provider is not enabled",
		"error.oauth_state_invalid":  "The sign-in session expired, please try again",
		"error.oauth_failed":         "Sign-in with the provider failed",
		"error.oauth_email_missing":  "The provider did not share a verified email",
		"error.search_unavailable":   "Search is temporarily unavailable",
		"error.authz_policy_invalid": "Invalid permission policy",
		"error.authz_unavailable":    "Permission check is unavailable",
		"error.authz_builtin_policy": "Built-in role permissions cannot be revoked",
		"message.deleted":            "Deleted",
		"message.signed_in":          "Signed in",
	},
	constants.LocaleZhCN: {
		"error.bad_request":          "请求参数错误",
		"error.unauthorized":         "请先登录",
		"error.forbidden":            "无权执行该操作",
		"error.not_found":            "内容不存在",
		"error.validation_failed":    "输入不合法",
		"error.invalid_transition":   "当前状态不允许该操作",
		"error.review_not_requested": "该文章尚未申请审核",
		"error.version_conflict":     "内容已被他人修改，请刷新后重试",
		"error.persistence_failed":   "保存失败",
		"error.internal":             "服务器内部错误",
		"error.too_many_requests":    "请求过于频繁，请稍后再试",
		"error.rate_limited":         "请求过于频繁，请 %d 秒后重试",
		"error.oauth_disabled":       "未启用该登录方式",
		"error.oauth_state_invalid":  "登录会话已过期，请重试",
		"error.oauth_failed":         "第三方登录失败",
		"error.oauth_email_missing":  "第三方账号未提供已验证的邮箱",
		"error.search_unavailable":   "搜索暂不可用",
		"error.authz_policy_invalid": "权限策略不合法",
		"error.authz_unavailable":    "权限校验不可用",
		"error.authz_builtin_policy": "内置角色的默认权限不可撤销",
		"message.deleted":            "已删除",
		"message.signed_in":          "登录成功",
	},
}
