package constants

// 用户角色常量
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// 博客文章状态常量
const (
	BlogStatusDraft     = "draft"
	BlogStatusPublished = "published"
	BlogStatusArchived  = "archived"
)

// 内容生命周期操作常量
const (
	BlogOpCreate        = "create"
	BlogOpUpdate        = "update"
	BlogOpRequestReview = "request_review"
	BlogOpPublish       = "publish"
	BlogOpArchive       = "archive"
	BlogOpUnarchive     = "unarchive"
	BlogOpDelete        = "delete"
)

// 评论挂载资源类型常量
const (
	CommentResourceBlog      = "BLOG"
	CommentResourceCaseStudy = "CASE_STUDY"
)

// CommentTombstone 软删除后评论内容的固定占位
const CommentTombstone = "[deleted]"

// 删除结果常量
const (
	DeleteOutcomeTombstoned = "tombstoned"
	DeleteOutcomeRemoved    = "removed"
)

// OAuth 登录提供方常量
const (
	OAuthProviderGitHub = "github"
	OAuthProviderGoogle = "google"
)

// 审计操作常量（角色变更）
const (
	AuditActionRoleGrant = "role_grant"
)

// 审计对象类型常量
const (
	AuditTargetBlogPost = "blog_post"
	AuditTargetUser     = "user"
)

// 缓存失效路径常量
const (
	PathBlogListing  = "/blog"
	PathForumListing = "/forums"
	PathCaseStudies  = "/case-studies"
)

// 队列常量
const (
	QueueDefault    = "default"
	TaskBlogEnrich  = "blog:enrich"
	TaskSearchSync  = "search:sync_post"
	QueueEnrichment = "enrichment"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "pf"
)

// 站点语言常量
const (
	LocaleEnUS = "en-US"
	LocaleZhCN = "zh-CN"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleEnUS, LocaleZhCN}
