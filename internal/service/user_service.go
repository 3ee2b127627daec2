package service

import (
	"context"
	"strings"
	"time"

	"github.com/crsp-mall/internal/cache"
	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"

	"github.com/google/uuid"
)

// UserService 令牌用户服务：游客初始化、令牌解析
type UserService struct {
	userRepo repository.UserRepository
	cacheTTL time.Duration
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, cacheTTL time.Duration) *UserService {
	return &UserService{userRepo: userRepo, cacheTTL: cacheTTL}
}

// InitGuest 复用已有令牌对应的用户，否则创建新游客
func (s *UserService) InitGuest(ctx context.Context, existingToken string) (*models.User, bool, error) {
	existingToken = strings.TrimSpace(existingToken)
	if existingToken != "" {
		user, err := s.userRepo.GetByToken(existingToken)
		if err != nil {
			return nil, false, storeFault(err)
		}
		if user != nil && user.IsActive {
			s.touch(user)
			return user, false, nil
		}
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	now := time.Now()
	user := &models.User{
		Token:       token,
		Nickname:    "游客" + strings.ToUpper(token[:6]),
		UserType:    constants.UserTypeGuest,
		IsActive:    true,
		LastVisitAt: &now,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, false, storeFault(err)
	}
	if err := cache.SetUserTokenState(ctx, token, cache.BuildUserTokenState(user), s.cacheTTL); err != nil {
		logger.Warnw("user_token_cache_set_failed", "user_id", user.ID, "error", err)
	}
	logger.Infow("user_guest_created", "user_id", user.ID)
	return user, true, nil
}

// ResolveToken 令牌解析为用户 ID，未知或已停用的令牌返回 0
func (s *UserService) ResolveToken(ctx context.Context, token string) (uint, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	if state, hit, err := cache.GetUserTokenState(ctx, token); err == nil && hit && state != nil {
		return state.UserID, nil
	} else if err != nil {
		logger.Warnw("user_token_cache_get_failed", "error", err)
	}

	user, err := s.userRepo.GetByToken(token)
	if err != nil {
		return 0, storeFault(err)
	}
	if user == nil || !user.IsActive {
		return 0, nil
	}
	if err := cache.SetUserTokenState(ctx, token, cache.BuildUserTokenState(user), s.cacheTTL); err != nil {
		logger.Warnw("user_token_cache_set_failed", "user_id", user.ID, "error", err)
	}
	return user.ID, nil
}

// GetByID 获取当前用户
func (s *UserService) GetByID(userID uint) (*models.User, error) {
	if userID == 0 {
		return nil, newBizError(ErrUnauthorized, "用户未登录")
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, storeFault(err)
	}
	if user == nil {
		return nil, newBizError(ErrUnauthorized, "用户未登录")
	}
	return user, nil
}

// UpdateProfile 更新昵称与手机号
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, nickname, phone string) (*models.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}
	nickname = strings.TrimSpace(nickname)
	phone = strings.TrimSpace(phone)
	if phone != "" && !recipientPhonePattern.MatchString(phone) {
		return nil, newBizError(ErrValidation, "请输入正确的手机号码")
	}
	if nickname != "" {
		user.Nickname = nickname
	}
	user.Phone = phone
	if err := s.userRepo.Update(user); err != nil {
		return nil, storeFault(err)
	}
	if err := cache.DelUserTokenState(ctx, user.Token); err != nil {
		logger.Warnw("user_token_cache_del_failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

func (s *UserService) touch(user *models.User) {
	now := time.Now()
	if err := s.userRepo.TouchVisit(user.ID, now); err != nil {
		logger.Warnw("user_touch_visit_failed", "user_id", user.ID, "error", err)
		return
	}
	user.LastVisitAt = &now
}
