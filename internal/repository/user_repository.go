package repository

import (
	"strings"
	"time"

	"github.com/crsp-mall/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByToken(token string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	TouchVisit(id uint, at time.Time) error
	List(filter UserListFilter) ([]models.User, int64, error)
	Delete(id uint) error
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetByToken 根据令牌获取用户
func (r *GormUserRepository) GetByToken(token string) (*models.User, error) {
	return firstOrNil[models.User](r.db.Where("token = ?", token))
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	return firstOrNil[models.User](r.db, id)
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update 更新用户
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// TouchVisit 刷新最后访问时间
func (r *GormUserRepository) TouchVisit(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("last_visit_at", at).Error
}

// List 管理端用户列表，关键词匹配昵称或手机号
func (r *GormUserRepository) List(filter UserListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})
	if filter.UserType != "" {
		query = query.Where("user_type = ?", filter.UserType)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where(caseInsensitiveLike(r.db, "nickname")+" OR phone LIKE ?", like, like)
	}
	return pageQuery[models.User](query, filter.Page, filter.PageSize, "id DESC")
}

// Delete 删除用户及其购物车，历史订单保留
func (r *GormUserRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}
