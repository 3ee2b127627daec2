package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/crsp-mall/internal/cache"
	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"
)

const maxNicknameLength = 20

// AdminUserDetail 后台用户详情
type AdminUserDetail struct {
	User          *models.User `json:"user"`
	OrderCount    int64        `json:"order_count"`
	TotalSpending models.Money `json:"total_spending"`
	CartItemCount int64        `json:"cart_item_count"`
}

// AdminUserUpdateInput 后台编辑用户，nil 字段保持不变
type AdminUserUpdateInput struct {
	Nickname *string
	Phone    *string
	UserType *string
	IsActive *bool
}

// AdminUserService 后台用户管理
type AdminUserService struct {
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
}

// NewAdminUserService 创建后台用户服务
func NewAdminUserService(userRepo repository.UserRepository, orderRepo repository.OrderRepository, cartRepo repository.CartRepository) *AdminUserService {
	return &AdminUserService{userRepo: userRepo, orderRepo: orderRepo, cartRepo: cartRepo}
}

// List 用户列表
func (s *AdminUserService) List(filter repository.UserListFilter) ([]models.User, int64, error) {
	filter.UserType = strings.TrimSpace(filter.UserType)
	users, total, err := s.userRepo.List(filter)
	if err != nil {
		return nil, 0, storeFault(err)
	}
	return users, total, nil
}

// Get 用户详情，附带订单数、消费金额与购物车件数
func (s *AdminUserService) Get(userID uint) (*AdminUserDetail, error) {
	user, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.orderRepo.SummarizeByUser(userID)
	if err != nil {
		return nil, storeFault(err)
	}
	cartCount, err := s.cartRepo.CountByUser(userID)
	if err != nil {
		return nil, storeFault(err)
	}
	return &AdminUserDetail{
		User:          user,
		OrderCount:    summary.OrderCount,
		TotalSpending: summary.TotalSpending,
		CartItemCount: cartCount,
	}, nil
}

// Update 编辑用户；停用或修改后清除令牌缓存
func (s *AdminUserService) Update(ctx context.Context, userID uint, input AdminUserUpdateInput) (*models.User, error) {
	user, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	if input.Nickname != nil {
		nickname := strings.TrimSpace(*input.Nickname)
		if nickname != "" && utf8.RuneCountInString(nickname) <= maxNicknameLength {
			user.Nickname = nickname
		}
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != "" && !recipientPhonePattern.MatchString(phone) {
			return nil, newBizError(ErrValidation, "请输入正确的手机号码")
		}
		user.Phone = phone
	}
	if input.UserType != nil {
		switch userType := strings.TrimSpace(*input.UserType); userType {
		case constants.UserTypeGuest, constants.UserTypeRegistered:
			user.UserType = userType
		default:
			return nil, newBizError(ErrValidation, "无效的用户类型: %s", userType)
		}
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, storeFault(err)
	}
	s.dropTokenCache(ctx, user)
	return user, nil
}

// Delete 删除用户及其购物车，订单保留用于对账
func (s *AdminUserService) Delete(ctx context.Context, userID uint, adminID uint) error {
	user, err := s.load(userID)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(userID); err != nil {
		return storeFault(err)
	}
	s.dropTokenCache(ctx, user)
	logger.Infow("admin_user_deleted", "user_id", userID, "admin_id", adminID)
	return nil
}

func (s *AdminUserService) load(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, storeFault(err)
	}
	if user == nil {
		return nil, newBizError(ErrUserNotFound, "用户不存在")
	}
	return user, nil
}

func (s *AdminUserService) dropTokenCache(ctx context.Context, user *models.User) {
	if err := cache.DelUserTokenState(ctx, user.Token); err != nil {
		logger.Warnw("user_token_cache_del_failed", "user_id", user.ID, "error", err)
	}
}
