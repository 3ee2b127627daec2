package service

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/queue"
	"github.com/crsp-mall/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var recipientPhonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// DefaultPriceTolerance 价格漂移容差（元）
var DefaultPriceTolerance = decimal.NewFromFloat(0.01)

// OrderTimeoutScheduler 待付款超时取消调度
type OrderTimeoutScheduler interface {
	EnqueueOrderTimeoutCancel(payload queue.OrderTimeoutCancelPayload, delay time.Duration) error
}

// CheckoutInput 结算输入
type CheckoutInput struct {
	UserID           uint
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	Remark           string
}

// PriceChange 单个商品的价格变动
type PriceChange struct {
	CartItemID uint         `json:"cart_item_id"`
	ProductID  uint         `json:"product_id"`
	Title      string       `json:"title"`
	OldPrice   models.Money `json:"old_price"`
	NewPrice   models.Money `json:"new_price"`
}

// CheckoutOptions 结算服务可选配置
type CheckoutOptions struct {
	PriceTolerance       decimal.Decimal
	PendingExpireMinutes int
	Scheduler            OrderTimeoutScheduler
	Observer             Observer
}

// CheckoutService 结算协调：校验购物车、核对价格、锁行扣库存并生成订单
type CheckoutService struct {
	productRepo   repository.ProductRepository
	cartRepo      repository.CartRepository
	orderRepo     repository.OrderRepository
	lifecycle     *OrderLifecycleService
	scheduler     OrderTimeoutScheduler
	observer      Observer
	tolerance     decimal.Decimal
	expireMinutes int
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(productRepo repository.ProductRepository, cartRepo repository.CartRepository, orderRepo repository.OrderRepository, lifecycle *OrderLifecycleService, opts CheckoutOptions) *CheckoutService {
	tolerance := opts.PriceTolerance
	if tolerance.IsNegative() || tolerance.IsZero() {
		tolerance = DefaultPriceTolerance
	}
	return &CheckoutService{
		productRepo:   productRepo,
		cartRepo:      cartRepo,
		orderRepo:     orderRepo,
		lifecycle:     lifecycle,
		scheduler:     opts.Scheduler,
		observer:      observerOrNop(opts.Observer),
		tolerance:     tolerance,
		expireMinutes: opts.PendingExpireMinutes,
	}
}

// checkoutLine 通过校验的购物车行（价格取实时价）
type checkoutLine struct {
	cart      models.CartItem
	product   *models.Product
	unitPrice models.Money
}

// Checkout 将用户勾选的购物车项转为订单
func (s *CheckoutService) Checkout(input CheckoutInput) (*models.Order, error) {
	started := time.Now()
	order, err := s.checkout(input)
	kind := "success"
	if err != nil {
		kind = string(KindOf(err))
	}
	s.observer.CheckoutFinished(kind, time.Since(started))
	return order, err
}

func (s *CheckoutService) checkout(input CheckoutInput) (*models.Order, error) {
	if input.UserID == 0 {
		return nil, newBizError(ErrUnauthorized, "用户未登录")
	}
	name := strings.TrimSpace(input.RecipientName)
	phone := strings.TrimSpace(input.RecipientPhone)
	addr := strings.TrimSpace(input.RecipientAddress)
	if err := validateRecipient(name, phone, addr); err != nil {
		return nil, err
	}

	selected, err := s.cartRepo.ListSelectedByUser(input.UserID)
	if err != nil {
		return nil, storeFault(err)
	}
	if len(selected) == 0 {
		return nil, newBizError(ErrValidation, "请选择要结算的商品")
	}

	lines, err := s.validateLines(selected)
	if err != nil {
		return nil, err
	}
	if changes := s.detectPriceChanges(lines); len(changes) > 0 {
		return nil, s.rejectPriceChanges(input.UserID, changes)
	}

	total := models.NewMoneyFromDecimal(decimal.Zero)
	count := 0
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		lineTotal := line.unitPrice.MulQuantity(line.cart.Quantity)
		total = total.Add(lineTotal)
		count += line.cart.Quantity
		items = append(items, models.OrderItem{
			ProductID:  line.product.ID,
			Title:      line.product.Title,
			Image:      line.cart.ProductImage,
			SpecName:   line.cart.SpecName,
			UnitPrice:  line.unitPrice,
			Quantity:   line.cart.Quantity,
			TotalPrice: lineTotal,
		})
	}

	now := time.Now()
	order := &models.Order{
		OrderNo:         generateOrderNo(),
		UserID:          input.UserID,
		UserName:        name,
		UserPhone:       phone,
		ShippingAddress: addr,
		TotalAmount:     total,
		ProductCount:    count,
		Remark:          strings.TrimSpace(input.Remark),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var drifted []PriceChange
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.lifecycle.CreateInitial(s.orderRepo.WithTx(tx), order, items, UserActor(input.UserID)); err != nil {
			return err
		}
		productRepo := s.productRepo.WithTx(tx)
		for _, demand := range aggregateDemand(lines) {
			moved, err := s.lockedDecrement(productRepo, demand)
			if err != nil {
				return err
			}
			drifted = append(drifted, moved...)
		}
		if len(drifted) > 0 {
			return errPriceMovedUnderLock
		}
		ids := make([]uint, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.cart.ID)
		}
		if _, err := s.cartRepo.WithTx(tx).DeleteByIDsAndUser(ids, input.UserID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errPriceMovedUnderLock) {
			return nil, s.rejectPriceChanges(input.UserID, drifted)
		}
		var biz *BizError
		if errors.As(err, &biz) {
			logger.Infow("checkout_rejected_under_lock",
				"user_id", input.UserID,
				"kind", biz.Kind,
				"message", biz.Message,
			)
			return nil, biz
		}
		logger.Errorw("checkout_store_fault",
			"user_id", input.UserID,
			"order_no", order.OrderNo,
			"error", err,
		)
		return nil, storeFault(err)
	}

	logger.Infow("checkout_succeeded",
		"user_id", input.UserID,
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"total_amount", order.TotalAmount.String(),
		"product_count", order.ProductCount,
	)
	s.scheduleTimeoutCancel(order)
	return order, nil
}

// validateLines 逐行校验商品可售与库存；全部通过前不修改任何数据
func (s *CheckoutService) validateLines(selected []models.CartItem) ([]checkoutLine, error) {
	lines := make([]checkoutLine, 0, len(selected))
	requested := make(map[uint]int, len(selected))
	for _, item := range selected {
		requested[item.ProductID] += item.Quantity
	}
	for _, item := range selected {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			return nil, storeFault(err)
		}
		if product == nil || !product.IsActive {
			return nil, productUnavailableError(item.ProductTitle)
		}
		if !product.InStock() {
			return nil, outOfStockError(item.ProductTitle)
		}
		if !product.HasEnoughStock(requested[item.ProductID]) {
			return nil, insufficientStockError(item.ProductTitle, product.CurrentStock())
		}
		lines = append(lines, checkoutLine{cart: item, product: product, unitPrice: product.Price})
	}
	return lines, nil
}

// detectPriceChanges 比较快照价与实时价，超出容差视为变动
func (s *CheckoutService) detectPriceChanges(lines []checkoutLine) []PriceChange {
	var changes []PriceChange
	for _, line := range lines {
		if line.product.Price.DriftedFrom(line.cart.ProductPrice, s.tolerance) {
			changes = append(changes, PriceChange{
				CartItemID: line.cart.ID,
				ProductID:  line.product.ID,
				Title:      line.cart.ProductTitle,
				OldPrice:   line.cart.ProductPrice,
				NewPrice:   line.product.Price,
			})
		}
	}
	return changes
}

// rejectPriceChanges 同步购物车快照价后返回价格变动错误，重试即可通过
func (s *CheckoutService) rejectPriceChanges(userID uint, changes []PriceChange) error {
	var builder strings.Builder
	builder.WriteString("以下商品价格已变动，请确认后重新提交：")
	for _, change := range changes {
		if err := s.cartRepo.UpdateSnapshotPrice(change.CartItemID, change.NewPrice); err != nil {
			logger.Errorw("checkout_snapshot_resync_failed",
				"user_id", userID,
				"cart_item_id", change.CartItemID,
				"error", err,
			)
			return storeFault(err)
		}
		builder.WriteString(fmt.Sprintf("「%s」 ¥%s → ¥%s；", change.Title, change.OldPrice.String(), change.NewPrice.String()))
	}
	logger.Infow("checkout_price_changed", "user_id", userID, "changed_count", len(changes))
	biz := newBizError(ErrPriceChanged, "%s", builder.String())
	biz.Data = map[string]interface{}{
		"price_changed": true,
		"changes":       changes,
	}
	return biz
}

// errPriceMovedUnderLock 锁内发现价格变化，需要回滚后同步快照
var errPriceMovedUnderLock = errors.New("price moved under lock")

// productDemand 同一商品在本次结算中的总需求
type productDemand struct {
	productID uint
	title     string
	quantity  int
	unitPrice models.Money
	lines     []checkoutLine
}

func aggregateDemand(lines []checkoutLine) []productDemand {
	byID := make(map[uint]*productDemand, len(lines))
	for _, line := range lines {
		demand, ok := byID[line.product.ID]
		if !ok {
			demand = &productDemand{
				productID: line.product.ID,
				title:     line.cart.ProductTitle,
				unitPrice: line.unitPrice,
			}
			byID[line.product.ID] = demand
		}
		demand.quantity += line.cart.Quantity
		demand.lines = append(demand.lines, line)
	}
	result := make([]productDemand, 0, len(byID))
	for _, demand := range byID {
		result = append(result, *demand)
	}
	// 固定加锁顺序，避免多商品结算互相等待
	sort.Slice(result, func(i, j int) bool { return result[i].productID < result[j].productID })
	return result
}

// lockedDecrement 锁定单个商品行，锁内复核后扣减库存
func (s *CheckoutService) lockedDecrement(productRepo repository.ProductRepository, demand productDemand) ([]PriceChange, error) {
	lockStart := time.Now()
	product, err := productRepo.GetByIDForUpdate(demand.productID)
	if err != nil {
		return nil, err
	}
	lockWait := time.Since(lockStart)
	if product == nil || !product.IsActive {
		return nil, productUnavailableError(demand.title)
	}
	if !product.Price.Equal(demand.unitPrice.Decimal) {
		changes := make([]PriceChange, 0, len(demand.lines))
		for _, line := range demand.lines {
			changes = append(changes, PriceChange{
				CartItemID: line.cart.ID,
				ProductID:  product.ID,
				Title:      line.cart.ProductTitle,
				OldPrice:   line.cart.ProductPrice,
				NewPrice:   product.Price,
			})
		}
		return changes, nil
	}
	if product.Stock == nil {
		return nil, nil
	}
	if !product.InStock() {
		return nil, outOfStockError(demand.title)
	}
	if !product.HasEnoughStock(demand.quantity) {
		return nil, insufficientStockError(demand.title, product.CurrentStock())
	}
	if err := productRepo.DecrementStock(product.ID, demand.quantity); err != nil {
		if errors.Is(err, repository.ErrStockGuardFailed) {
			return nil, insufficientStockError(demand.title, product.CurrentStock())
		}
		return nil, err
	}
	s.observer.StockDecremented(product.ID, demand.quantity, lockWait)
	return nil, nil
}

func (s *CheckoutService) scheduleTimeoutCancel(order *models.Order) {
	if s.scheduler == nil || s.expireMinutes <= 0 {
		return
	}
	payload := queue.OrderTimeoutCancelPayload{OrderID: order.ID, OrderNo: order.OrderNo}
	if err := s.scheduler.EnqueueOrderTimeoutCancel(payload, time.Duration(s.expireMinutes)*time.Minute); err != nil {
		logger.Warnw("checkout_enqueue_timeout_cancel_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
	}
}

func validateRecipient(name, phone, addr string) error {
	if name == "" {
		return newBizError(ErrValidation, "请输入收货人姓名")
	}
	if phone == "" || !recipientPhonePattern.MatchString(phone) {
		return newBizError(ErrValidation, "请输入正确的手机号码")
	}
	if addr == "" {
		return newBizError(ErrValidation, "请输入收货地址")
	}
	return nil
}

func insufficientStockError(title string, current int) *BizError {
	biz := newBizError(ErrInsufficientStock, "商品 \"%s\" 库存不足，当前库存: %d", title, current)
	biz.Data = map[string]interface{}{"title": title, "current_stock": current}
	return biz
}

func productUnavailableError(title string) *BizError {
	biz := newBizError(ErrProductUnavailable, "商品 \"%s\" 已下架", title)
	biz.Data = map[string]interface{}{"title": title}
	return biz
}

func outOfStockError(title string) *BizError {
	biz := newBizError(ErrOutOfStock, "商品 \"%s\" 已售罄", title)
	biz.Data = map[string]interface{}{"title": title}
	return biz
}

// generateOrderNo 生成订单号：ORD + 16 位大写十六进制
func generateOrderNo() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return constants.OrderNoPrefix + strings.ToUpper(raw[:16])
}
