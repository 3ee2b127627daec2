package repository

import (
	"time"

	"github.com/crsp-mall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	ListByUser(userID uint) ([]models.CartItem, error)
	ListSelectedByUser(userID uint) ([]models.CartItem, error)
	GetByID(id uint) (*models.CartItem, error)
	AddOrMerge(item *models.CartItem, maxQuantity int) (*models.CartItem, error)
	UpdateQuantity(id uint, quantity int) error
	UpdateSelected(id uint, selected bool) error
	UpdateSnapshotPrice(id uint, price models.Money) error
	DeleteByIDAndUser(id, userID uint) (int64, error)
	DeleteByIDsAndUser(ids []uint, userID uint) (int64, error)
	ClearByUser(userID uint) error
	CountByUser(userID uint) (int64, error)
	WithTx(tx *gorm.DB) CartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListByUser 获取用户购物车项（最新加入的在前）
func (r *GormCartRepository) ListByUser(userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Where("user_id = ?", userID).Order("created_at desc, id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListSelectedByUser 获取用户勾选的购物车项
func (r *GormCartRepository) ListSelectedByUser(userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Where("user_id = ? AND selected = ?", userID, true).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID 根据 ID 获取购物车项
func (r *GormCartRepository) GetByID(id uint) (*models.CartItem, error) {
	return firstOrNil[models.CartItem](r.db, id)
}

// GetByUserProductSpec 按 (用户, 商品, 规格) 唯一键查询
func (r *GormCartRepository) GetByUserProductSpec(userID, productID uint, spec string) (*models.CartItem, error) {
	return firstOrNil[models.CartItem](r.db.Where("user_id = ? AND product_id = ? AND spec_name = ?", userID, productID, spec))
}

// AddOrMerge 插入购物车项；(用户, 商品, 规格) 已存在时在同一条语句内累加数量，上限 maxQuantity
func (r *GormCartRepository) AddOrMerge(item *models.CartItem, maxQuantity int) (*models.CartItem, error) {
	merged := "cart_items.quantity + excluded.quantity"
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "spec_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("CASE WHEN "+merged+" > ? THEN ? ELSE "+merged+" END", maxQuantity, maxQuantity),
			"updated_at": time.Now(),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserProductSpec(item.UserID, item.ProductID, item.SpecName)
}

// UpdateQuantity 更新数量
func (r *GormCartRepository) UpdateQuantity(id uint, quantity int) error {
	return r.updateColumns(id, map[string]interface{}{"quantity": quantity})
}

// UpdateSelected 更新勾选状态
func (r *GormCartRepository) UpdateSelected(id uint, selected bool) error {
	return r.updateColumns(id, map[string]interface{}{"selected": selected})
}

// UpdateSnapshotPrice 同步价格快照
func (r *GormCartRepository) UpdateSnapshotPrice(id uint, price models.Money) error {
	return r.updateColumns(id, map[string]interface{}{"product_price": price})
}

func (r *GormCartRepository) updateColumns(id uint, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.Model(&models.CartItem{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteByIDAndUser 删除属于该用户的购物车项
func (r *GormCartRepository) DeleteByIDAndUser(id, userID uint) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// DeleteByIDsAndUser 批量删除属于该用户的购物车项
func (r *GormCartRepository) DeleteByIDsAndUser(ids []uint, userID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Where("id IN ? AND user_id = ?", ids, userID).Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// ClearByUser 清空购物车
func (r *GormCartRepository) ClearByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

// CountByUser 购物车行数
func (r *GormCartRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
