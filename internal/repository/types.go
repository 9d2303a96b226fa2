package repository

import "time"

// BlogPostListFilter 查询文章列表的过滤条件
type BlogPostListFilter struct {
	Page            int
	PageSize        int
	Status          string
	AuthorID        string
	ReviewRequested *bool
	Search          string
	Unenriched      bool
	WithAuthor      bool
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Role     string
	Keyword  string
}

// CommentListFilter 查询评论列表的过滤条件
type CommentListFilter struct {
	Page              int
	PageSize          int
	ResourceType      string
	ResourceID        string
	UserID            string
	IncludeTombstoned bool
}

// ForumPostListFilter 查询论坛主题的过滤条件
type ForumPostListFilter struct {
	Page       int
	PageSize   int
	CategoryID string
	UserID     string
}

// ContentAuditLogListFilter 查询内容审计日志的过滤条件
type ContentAuditLogListFilter struct {
	Page        int
	PageSize    int
	ActorID     string
	TargetType  string
	TargetID    string
	Action      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
