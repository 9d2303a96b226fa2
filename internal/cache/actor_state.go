package cache

import (
	"context"
	"time"

	"github.com/portfolio-next/internal/models"
)

const actorStateCacheTTL = 10 * time.Minute

// ActorState 操作者身份快照
// 仅用于服务端 Redis 缓存，角色变更时必须删除。
type ActorState struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	UpdatedAt int64  `json:"updated_at"`
}

func actorStateKey(userID string) string {
	return "actor:state:" + userID
}

// BuildActorState 从用户模型构建快照
func BuildActorState(user *models.User) *ActorState {
	if user == nil {
		return nil
	}
	return &ActorState{
		UserID:    user.ID,
		Role:      user.Role,
		Email:     user.Email,
		Name:      user.Name,
		Image:     user.Image,
		UpdatedAt: time.Now().Unix(),
	}
}

// GetActorState 获取操作者快照
func GetActorState(ctx context.Context, userID string) (*ActorState, bool, error) {
	if userID == "" {
		return nil, false, nil
	}
	var state ActorState
	hit, err := GetJSON(ctx, actorStateKey(userID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetActorState 写入操作者快照
func SetActorState(ctx context.Context, state *ActorState) error {
	if state == nil || state.UserID == "" {
		return nil
	}
	return SetJSON(ctx, actorStateKey(state.UserID), state, actorStateCacheTTL)
}

// DelActorState 删除操作者快照
func DelActorState(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return Del(ctx, actorStateKey(userID))
}
