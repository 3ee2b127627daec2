package service

import (
	"errors"
	"strings"

	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"

	"github.com/shopspring/decimal"
)

// CartSummary 购物车汇总（按快照价计算，仅用于展示）
type CartSummary struct {
	Items            []models.CartItem `json:"items"`
	TotalQuantity    int               `json:"total_quantity"`
	SelectedQuantity int               `json:"selected_quantity"`
	SelectedAmount   models.Money      `json:"selected_amount"`
}

// AddCartItemInput 加入购物车输入
type AddCartItemInput struct {
	UserID    uint
	ProductID uint
	SpecName  string
	Quantity  int
}

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddItem 加入购物车；相同商品与规格合并数量，上限 999
func (s *CartService) AddItem(input AddCartItemInput) (*models.CartItem, error) {
	if input.UserID == 0 {
		return nil, newBizError(ErrUnauthorized, "用户未登录")
	}
	spec := strings.TrimSpace(input.SpecName)
	qty := normalizeAddQuantity(input.Quantity)

	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, storeFault(err)
	}
	if product == nil || !product.IsActive {
		return nil, newBizError(ErrProductUnavailable, "商品已下架")
	}

	item := &models.CartItem{
		UserID:       input.UserID,
		ProductID:    product.ID,
		SpecName:     spec,
		ProductTitle: product.Title,
		ProductImage: product.Images.First(),
		ProductPrice: product.Price,
		Quantity:     qty,
		Selected:     true,
	}
	saved, err := s.cartRepo.AddOrMerge(item, constants.CartQuantityMax)
	if err != nil {
		return nil, storeFault(err)
	}
	if saved == nil {
		return nil, storeFault(errors.New("cart line missing after upsert"))
	}
	return saved, nil
}

// UpdateQuantity 修改数量，范围 1-999
func (s *CartService) UpdateQuantity(lineID, userID uint, quantity int) (*models.CartItem, error) {
	if quantity < constants.CartQuantityMin || quantity > constants.CartQuantityMax {
		return nil, &BizError{Kind: KindValidation, Message: "数量必须在1-999之间", Err: ErrCartQuantityInvalid}
	}
	item, err := s.ownedLine(lineID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.UpdateQuantity(item.ID, quantity); err != nil {
		return nil, storeFault(err)
	}
	item.Quantity = quantity
	return item, nil
}

// UpdateSelected 修改勾选状态
func (s *CartService) UpdateSelected(lineID, userID uint, selected bool) (*models.CartItem, error) {
	item, err := s.ownedLine(lineID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.UpdateSelected(item.ID, selected); err != nil {
		return nil, storeFault(err)
	}
	item.Selected = selected
	return item, nil
}

// RemoveItem 删除属于该用户的购物车项
func (s *CartService) RemoveItem(lineID, userID uint) error {
	affected, err := s.cartRepo.DeleteByIDAndUser(lineID, userID)
	if err != nil {
		return storeFault(err)
	}
	if affected == 0 {
		return newBizError(ErrCartItemNotFound, "购物车商品不存在")
	}
	return nil
}

// Clear 清空购物车
func (s *CartService) Clear(userID uint) error {
	if err := s.cartRepo.ClearByUser(userID); err != nil {
		return storeFault(err)
	}
	return nil
}

// List 购物车列表与汇总
func (s *CartService) List(userID uint) (*CartSummary, error) {
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, storeFault(err)
	}
	summary := &CartSummary{Items: items, SelectedAmount: models.NewMoneyFromDecimal(decimal.Zero)}
	for i := range items {
		summary.TotalQuantity += items[i].Quantity
		if items[i].Selected {
			summary.SelectedQuantity += items[i].Quantity
			summary.SelectedAmount = summary.SelectedAmount.Add(items[i].LineTotal())
		}
	}
	return summary, nil
}

// Count 购物车行数
func (s *CartService) Count(userID uint) (int64, error) {
	count, err := s.cartRepo.CountByUser(userID)
	if err != nil {
		return 0, storeFault(err)
	}
	return count, nil
}

func (s *CartService) ownedLine(lineID, userID uint) (*models.CartItem, error) {
	item, err := s.cartRepo.GetByID(lineID)
	if err != nil {
		return nil, storeFault(err)
	}
	if item == nil || item.UserID != userID {
		return nil, newBizError(ErrCartItemNotFound, "购物车商品不存在")
	}
	return item, nil
}

func normalizeAddQuantity(quantity int) int {
	if quantity < constants.CartQuantityMin {
		return constants.CartQuantityMin
	}
	if quantity > constants.CartQuantityMax {
		return constants.CartQuantityMax
	}
	return quantity
}
