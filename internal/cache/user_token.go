package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/crsp-mall/internal/models"
)

// UserTokenState 用户令牌解析结果快照，避免每次请求查库
type UserTokenState struct {
	UserID    uint   `json:"user_id"`
	UserType  string `json:"user_type"`
	Nickname  string `json:"nickname"`
	UpdatedAt int64  `json:"updated_at"`
}

// 令牌只以摘要形式出现在 key 中
func userTokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:user_token:" + hex.EncodeToString(sum[:])
}

// BuildUserTokenState 从用户模型构建快照
func BuildUserTokenState(user *models.User) *UserTokenState {
	if user == nil {
		return nil
	}
	return &UserTokenState{
		UserID:    user.ID,
		UserType:  user.UserType,
		Nickname:  user.Nickname,
		UpdatedAt: time.Now().Unix(),
	}
}

// GetUserTokenState 获取令牌快照
func GetUserTokenState(ctx context.Context, token string) (*UserTokenState, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	var state UserTokenState
	hit, err := GetJSON(ctx, userTokenKey(token), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetUserTokenState 写入令牌快照
func SetUserTokenState(ctx context.Context, token string, state *UserTokenState, ttl time.Duration) error {
	if token == "" || state == nil {
		return nil
	}
	return SetJSON(ctx, userTokenKey(token), state, ttl)
}

// DelUserTokenState 删除令牌快照
func DelUserTokenState(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return Del(ctx, userTokenKey(token))
}
