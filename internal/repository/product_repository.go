package repository

import (
	"errors"
	"strings"

	"github.com/crsp-mall/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStockGuardFailed 条件扣减未命中（库存不足或商品不存在）
var ErrStockGuardFailed = errors.New("stock guard failed")

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetByID(id uint) (*models.Product, error)
	GetByIDForUpdate(id uint) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	SetStock(id uint, stock *int) error
	DecrementStock(id uint, quantity int) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProductRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where(caseInsensitiveLike(r.db, "title"), "%"+search+"%")
	}
	return pageQuery[models.Product](query, filter.Page, filter.PageSize, "sort_order DESC, id ASC")
}

// GetByID 根据 ID 获取商品（快照读，不加锁）
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	return firstOrNil[models.Product](r.db, id)
}

// GetByIDForUpdate 加行锁读取商品，必须在事务内调用
func (r *GormProductRepository) GetByIDForUpdate(id uint) (*models.Product, error) {
	return firstOrNil[models.Product](r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// ListByIDs 批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 更新商品（不含库存，库存只能经由 SetStock/DecrementStock 修改）
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Omit("stock").Save(product).Error
}

// SetStock 直接设置库存（nil 表示不限库存）
func (r *GormProductRepository) SetStock(id uint, stock *int) error {
	var value interface{}
	if stock != nil {
		value = *stock
	}
	return r.db.Model(&models.Product{}).Where("id = ?", id).Update("stock", value).Error
}

// DecrementStock 条件扣减有限库存；不限库存或库存不足时返回 ErrStockGuardFailed
func (r *GormProductRepository) DecrementStock(id uint, quantity int) error {
	if id == 0 || quantity <= 0 {
		return errors.New("invalid stock decrement params")
	}
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND stock IS NOT NULL AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStockGuardFailed
	}
	return nil
}
