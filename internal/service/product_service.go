package service

import (
	"strings"

	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// CreateProductInput 创建/更新商品输入
type CreateProductInput struct {
	Title       string
	Description string
	Images      []string
	Spec        string
	Price       decimal.Decimal
	Stock       *int
	IsActive    *bool
	SortOrder   int
}

// ListPublic 获取公开商品列表（仅上架）
func (s *ProductService) ListPublic(search string, page, pageSize int) ([]models.Product, int64, error) {
	products, total, err := s.repo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     strings.TrimSpace(search),
		OnlyActive: true,
	})
	if err != nil {
		return nil, 0, storeFault(err)
	}
	return products, total, nil
}

// GetPublic 获取公开商品详情，已下架按不存在处理
func (s *ProductService) GetPublic(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, storeFault(err)
	}
	if product == nil || !product.IsActive {
		return nil, newBizError(ErrProductNotFound, "商品不存在")
	}
	return product, nil
}

// ListAdmin 获取后台商品列表
func (s *ProductService) ListAdmin(search string, page, pageSize int) ([]models.Product, int64, error) {
	products, total, err := s.repo.List(repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(search),
	})
	if err != nil {
		return nil, 0, storeFault(err)
	}
	return products, total, nil
}

// GetAdmin 获取后台商品详情
func (s *ProductService) GetAdmin(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, storeFault(err)
	}
	if product == nil {
		return nil, newBizError(ErrProductNotFound, "商品不存在")
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input CreateProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	product := &models.Product{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Images:      models.StringArray(input.Images),
		Spec:        strings.TrimSpace(input.Spec),
		Price:       models.NewMoneyFromDecimal(input.Price),
		Stock:       input.Stock,
		IsActive:    isActive,
		SortOrder:   input.SortOrder,
	}
	if err := s.repo.Create(product); err != nil {
		return nil, storeFault(err)
	}
	return product, nil
}

// Update 更新商品基础信息；库存走 SetStock
func (s *ProductService) Update(id uint, input CreateProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	product, err := s.GetAdmin(id)
	if err != nil {
		return nil, err
	}
	product.Title = strings.TrimSpace(input.Title)
	product.Description = input.Description
	product.Images = models.StringArray(input.Images)
	product.Spec = strings.TrimSpace(input.Spec)
	product.Price = models.NewMoneyFromDecimal(input.Price)
	product.SortOrder = input.SortOrder
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if err := s.repo.Update(product); err != nil {
		return nil, storeFault(err)
	}
	return product, nil
}

// SetActive 上下架
func (s *ProductService) SetActive(id uint, active bool) (*models.Product, error) {
	product, err := s.GetAdmin(id)
	if err != nil {
		return nil, err
	}
	product.IsActive = active
	if err := s.repo.Update(product); err != nil {
		return nil, storeFault(err)
	}
	return product, nil
}

// SetStock 在行锁下设置库存，nil 表示不限库存
func (s *ProductService) SetStock(id uint, stock *int, adminID uint) (*models.Product, error) {
	if stock != nil && *stock < 0 {
		return nil, newBizError(ErrValidation, "库存不能为负数")
	}
	var updated *models.Product
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if product == nil {
			return newBizError(ErrProductNotFound, "商品不存在")
		}
		if err := repo.SetStock(product.ID, stock); err != nil {
			return err
		}
		product.Stock = stock
		updated = product
		return nil
	})
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, err
		}
		return nil, storeFault(err)
	}
	logger.Infow("product_stock_set",
		"product_id", updated.ID,
		"stock", updated.CurrentStock(),
		"admin_id", adminID,
	)
	return updated, nil
}

func validateProductInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return newBizError(ErrValidation, "商品标题不能为空")
	}
	if input.Price.IsNegative() {
		return newBizError(ErrValidation, "商品价格不能为负数")
	}
	if input.Stock != nil && *input.Stock < 0 {
		return newBizError(ErrValidation, "库存不能为负数")
	}
	return nil
}
