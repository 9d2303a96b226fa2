package service

import (
	"context"

	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/permission"
)

// DeleteOutcome 删除结果
type DeleteOutcome string

const (
	// DeleteTombstoned 内容被替换为占位文本，行保留
	DeleteTombstoned DeleteOutcome = constants.DeleteOutcomeTombstoned
	// DeleteRemoved 行被物理删除
	DeleteRemoved DeleteOutcome = constants.DeleteOutcomeRemoved
)

// ThreadDeleter 评论/主题删除的统一入口
// 属主或版主可删除；删除方式由具体实现决定。
type ThreadDeleter interface {
	Delete(ctx context.Context, actor *permission.Actor, id string) (DeleteOutcome, error)
}

// authorizeThreadDelete 删除守卫
func authorizeThreadDelete(actor *permission.Actor, ownerID string) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !permission.CanDeleteThreadItem(actor, ownerID) {
		return ErrUnauthorized
	}
	return nil
}
