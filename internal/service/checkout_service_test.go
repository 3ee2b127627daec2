package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"

	"gorm.io/gorm"
)

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "无线蓝牙耳机", "50.00", intPtr(10))
	user := stack.createUser(t, "buyer")
	line := stack.addToCart(t, user.ID, product.ID, 2)

	order, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(models.MustMoney("100.00").Decimal) {
		t.Fatalf("expected total 100.00, got %s", order.TotalAmount.String())
	}
	if order.ProductCount != 2 {
		t.Fatalf("expected product count 2, got %d", order.ProductCount)
	}
	if !strings.HasPrefix(order.OrderNo, constants.OrderNoPrefix) || len(order.OrderNo) != len(constants.OrderNoPrefix)+16 {
		t.Fatalf("unexpected order no: %s", order.OrderNo)
	}
	if got := stack.stockOf(t, product.ID); got != 8 {
		t.Fatalf("expected stock 8, got %d", got)
	}
	remaining, err := stack.carts.GetByID(line.ID)
	if err != nil {
		t.Fatalf("load cart line failed: %v", err)
	}
	if remaining != nil {
		t.Fatalf("expected consumed cart line removed")
	}

	saved, err := stack.orders.GetByID(order.ID)
	if err != nil || saved == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if len(saved.Items) != 1 || saved.Items[0].Quantity != 2 || !saved.Items[0].UnitPrice.Equal(product.Price.Decimal) {
		t.Fatalf("unexpected order items: %+v", saved.Items)
	}
	logs, err := stack.orders.ListStatusLogs(order.ID)
	if err != nil {
		t.Fatalf("list status logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].ToStatus != constants.OrderStatusPending || logs[0].Actor != constants.ActorUser {
		t.Fatalf("unexpected initial status log: %+v", logs)
	}
	if len(stack.scheduler.payloads) != 1 || stack.scheduler.payloads[0].OrderID != order.ID {
		t.Fatalf("expected timeout cancel scheduled, got %+v", stack.scheduler.payloads)
	}
	if stack.scheduler.delays[0] != 30*time.Minute {
		t.Fatalf("unexpected timeout delay: %s", stack.scheduler.delays[0])
	}
	if len(stack.observer.checkouts) != 1 || stack.observer.checkouts[0] != "success" {
		t.Fatalf("unexpected observer records: %+v", stack.observer.checkouts)
	}
}

func TestCheckoutOnlyConsumesSelectedLines(t *testing.T) {
	stack := newTestStack(t)
	first := stack.createProduct(t, "智能手表", "199.00", intPtr(5))
	second := stack.createProduct(t, "便携充电宝", "49.90", nil)
	user := stack.createUser(t, "buyer")
	stack.addToCart(t, user.ID, first.ID, 1)
	kept := stack.addToCart(t, user.ID, second.ID, 3)
	if _, err := stack.cart.UpdateSelected(kept.ID, user.ID, false); err != nil {
		t.Fatalf("deselect failed: %v", err)
	}

	order, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if order.ProductCount != 1 || !order.TotalAmount.Equal(models.MustMoney("199.00").Decimal) {
		t.Fatalf("unexpected order totals: count=%d total=%s", order.ProductCount, order.TotalAmount.String())
	}
	line, err := stack.carts.GetByID(kept.ID)
	if err != nil || line == nil {
		t.Fatalf("expected unselected line kept, err=%v", err)
	}
}

func TestCheckoutUnlimitedStockIsNotDecremented(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "多功能背包", "79.90", nil)
	user := stack.createUser(t, "buyer")
	stack.addToCart(t, user.ID, product.ID, 4)

	if _, err := stack.checkout.Checkout(validCheckoutInput(user.ID)); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if got := stack.stockOf(t, product.ID); got != -1 {
		t.Fatalf("expected unlimited stock kept, got %d", got)
	}
}

func TestCheckoutValidationErrors(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "无线蓝牙耳机", "50.00", intPtr(10))
	user := stack.createUser(t, "buyer")

	cases := []struct {
		name    string
		mutate  func(in *CheckoutInput)
		message string
	}{
		{name: "missing name", mutate: func(in *CheckoutInput) { in.RecipientName = " " }, message: "请输入收货人姓名"},
		{name: "bad phone", mutate: func(in *CheckoutInput) { in.RecipientPhone = "12345" }, message: "请输入正确的手机号码"},
		{name: "missing address", mutate: func(in *CheckoutInput) { in.RecipientAddress = "" }, message: "请输入收货地址"},
		{name: "empty selection", mutate: func(in *CheckoutInput) {}, message: "请选择要结算的商品"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCheckoutInput(user.ID)
			tc.mutate(&input)
			_, err := stack.checkout.Checkout(input)
			if KindOf(err) != KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if MessageOf(err) != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, MessageOf(err))
			}
		})
	}

	if _, err := stack.checkout.Checkout(CheckoutInput{}); KindOf(err) != KindUnauthorized {
		t.Fatalf("expected unauthorized for anonymous checkout, got %v", err)
	}
	if got := stack.stockOf(t, product.ID); got != 10 {
		t.Fatalf("stock must not change, got %d", got)
	}
}

func TestCheckoutRejectsUnavailableProducts(t *testing.T) {
	stack := newTestStack(t)
	user := stack.createUser(t, "buyer")

	inactive := stack.createProduct(t, "停售商品", "10.00", intPtr(10))
	stack.addToCart(t, user.ID, inactive.ID, 1)
	if err := stack.db.Model(&models.Product{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	_, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if KindOf(err) != KindProductUnavailable || !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected product_unavailable, got %v", err)
	}
	if err := stack.cart.Clear(user.ID); err != nil {
		t.Fatalf("clear cart failed: %v", err)
	}

	soldOut := stack.createProduct(t, "限量纪念徽章", "15.00", intPtr(1))
	stack.addToCart(t, user.ID, soldOut.ID, 1)
	if err := stack.products.SetStock(soldOut.ID, intPtr(0)); err != nil {
		t.Fatalf("set stock failed: %v", err)
	}
	_, err = stack.checkout.Checkout(validCheckoutInput(user.ID))
	if KindOf(err) != KindOutOfStock {
		t.Fatalf("expected out_of_stock, got %v", err)
	}
	if !strings.Contains(MessageOf(err), "限量纪念徽章") {
		t.Fatalf("expected product title in message, got %q", MessageOf(err))
	}
	if stack.countRows(t, &models.Order{}) != 0 {
		t.Fatalf("no order should be created")
	}
}

func TestCheckoutInsufficientStockReportsCurrentStock(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "便携充电宝", "49.90", intPtr(3))
	user := stack.createUser(t, "buyer")
	stack.addToCart(t, user.ID, product.ID, 5)

	_, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if KindOf(err) != KindInsufficientStock {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	if MessageOf(err) != "商品 \"便携充电宝\" 库存不足，当前库存: 3" {
		t.Fatalf("unexpected message: %q", MessageOf(err))
	}
	if DataOf(err)["current_stock"] != 3 {
		t.Fatalf("expected current_stock data, got %+v", DataOf(err))
	}
	if got := stack.stockOf(t, product.ID); got != 3 {
		t.Fatalf("stock must not change, got %d", got)
	}
	if len(stack.observer.checkouts) != 1 || stack.observer.checkouts[0] != string(KindInsufficientStock) {
		t.Fatalf("unexpected observer records: %+v", stack.observer.checkouts)
	}
}

func TestCheckoutPriceDriftResyncsSnapshot(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "智能手表", "199.00", intPtr(5))
	user := stack.createUser(t, "buyer")
	line := stack.addToCart(t, user.ID, product.ID, 1)

	if err := stack.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", "219.00").Error; err != nil {
		t.Fatalf("update price failed: %v", err)
	}

	_, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if KindOf(err) != KindPriceChanged {
		t.Fatalf("expected price_changed, got %v", err)
	}
	if !strings.HasPrefix(MessageOf(err), "以下商品价格已变动，请确认后重新提交：") {
		t.Fatalf("unexpected message: %q", MessageOf(err))
	}
	if !strings.Contains(MessageOf(err), "「智能手表」 ¥199.00 → ¥219.00") {
		t.Fatalf("expected old and new price in message, got %q", MessageOf(err))
	}
	data := DataOf(err)
	if data["price_changed"] != true {
		t.Fatalf("expected price_changed flag, got %+v", data)
	}
	changes, ok := data["changes"].([]PriceChange)
	if !ok || len(changes) != 1 || changes[0].CartItemID != line.ID {
		t.Fatalf("unexpected changes payload: %+v", data["changes"])
	}

	resynced, err := stack.carts.GetByID(line.ID)
	if err != nil || resynced == nil {
		t.Fatalf("load cart line failed: %v", err)
	}
	if !resynced.ProductPrice.Equal(models.MustMoney("219.00").Decimal) {
		t.Fatalf("expected snapshot resynced to 219.00, got %s", resynced.ProductPrice.String())
	}
	if got := stack.stockOf(t, product.ID); got != 5 {
		t.Fatalf("stock must not change on price drift, got %d", got)
	}

	order, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if err != nil {
		t.Fatalf("retry after resync failed: %v", err)
	}
	if !order.TotalAmount.Equal(models.MustMoney("219.00").Decimal) {
		t.Fatalf("expected order at live price, got %s", order.TotalAmount.String())
	}
}

func TestCheckoutPriceWithinToleranceUsesLivePrice(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "无线蓝牙耳机", "50.00", intPtr(5))
	user := stack.createUser(t, "buyer")
	stack.addToCart(t, user.ID, product.ID, 2)

	if err := stack.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", "50.01").Error; err != nil {
		t.Fatalf("update price failed: %v", err)
	}
	order, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !order.TotalAmount.Equal(models.MustMoney("100.02").Decimal) {
		t.Fatalf("expected total at live price 100.02, got %s", order.TotalAmount.String())
	}
}

func TestCheckoutStoreFaultRollsBack(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "无线蓝牙耳机", "50.00", intPtr(10))
	user := stack.createUser(t, "buyer")
	stack.addToCart(t, user.ID, product.ID, 2)

	if err := stack.db.Callback().Delete().Before("gorm:delete").Register("test:fail_cart_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "cart_items" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}); err != nil {
		t.Fatalf("register callback failed: %v", err)
	}

	_, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if KindOf(err) != KindStoreFault || !errors.Is(err, ErrStoreFault) {
		t.Fatalf("expected store_fault, got %v", err)
	}
	if got := stack.stockOf(t, product.ID); got != 10 {
		t.Fatalf("stock must roll back, got %d", got)
	}
	if stack.countRows(t, &models.Order{}) != 0 || stack.countRows(t, &models.OrderItem{}) != 0 || stack.countRows(t, &models.OrderStatusLog{}) != 0 {
		t.Fatalf("order rows must roll back")
	}
	if stack.countRows(t, &models.CartItem{}) != 1 {
		t.Fatalf("cart line must remain")
	}
	if len(stack.scheduler.payloads) != 0 {
		t.Fatalf("no timeout task expected on failure")
	}
}

// staleProductReads 校验阶段返回旧的商品快照，加锁读取仍走真实数据
type staleProductReads struct {
	repository.ProductRepository
	stale map[uint]models.Product
}

func (r *staleProductReads) GetByID(id uint) (*models.Product, error) {
	if product, ok := r.stale[id]; ok {
		copied := product
		return &copied, nil
	}
	return r.ProductRepository.GetByID(id)
}

func staleCheckout(stack *testStack, stale models.Product) *CheckoutService {
	products := &staleProductReads{ProductRepository: stack.products, stale: map[uint]models.Product{stale.ID: stale}}
	return NewCheckoutService(products, stack.carts, stack.orders, stack.lifecycle, CheckoutOptions{
		PendingExpireMinutes: 30,
		Scheduler:            stack.scheduler,
		Observer:             stack.observer,
	})
}

func TestCheckoutPriceMovedUnderLockRollsBackAndResyncs(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "无线蓝牙耳机", "50.00", intPtr(10))
	user := stack.createUser(t, "buyer")
	line := stack.addToCart(t, user.ID, product.ID, 2)
	stale := *product

	if err := stack.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", "60.00").Error; err != nil {
		t.Fatalf("update price failed: %v", err)
	}

	_, err := staleCheckout(stack, stale).Checkout(validCheckoutInput(user.ID))
	if KindOf(err) != KindPriceChanged {
		t.Fatalf("expected price_changed from locked re-check, got %v", err)
	}
	if !strings.Contains(MessageOf(err), "「无线蓝牙耳机」 ¥50.00 → ¥60.00") {
		t.Fatalf("unexpected message: %q", MessageOf(err))
	}
	if stack.countRows(t, &models.Order{}) != 0 || stack.countRows(t, &models.OrderItem{}) != 0 || stack.countRows(t, &models.OrderStatusLog{}) != 0 {
		t.Fatalf("order rows must roll back")
	}
	if got := stack.stockOf(t, product.ID); got != 10 {
		t.Fatalf("stock must roll back, got %d", got)
	}
	resynced, err := stack.carts.GetByID(line.ID)
	if err != nil || resynced == nil {
		t.Fatalf("load cart line failed: %v", err)
	}
	if resynced.ProductPrice.String() != "60.00" {
		t.Fatalf("expected snapshot resynced to 60.00, got %s", resynced.ProductPrice.String())
	}
	if len(stack.scheduler.payloads) != 0 {
		t.Fatalf("no timeout task expected on rejection")
	}

	order, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if err != nil {
		t.Fatalf("retry after resync failed: %v", err)
	}
	if order.TotalAmount.String() != "120.00" {
		t.Fatalf("expected total 120.00, got %s", order.TotalAmount.String())
	}
}

func TestCheckoutLockedRecheckRejectsChangedProduct(t *testing.T) {
	cases := []struct {
		name   string
		update map[string]interface{}
		kind   ErrorKind
	}{
		{"stock drained", map[string]interface{}{"stock": 1}, KindInsufficientStock},
		{"sold out", map[string]interface{}{"stock": 0}, KindOutOfStock},
		{"deactivated", map[string]interface{}{"is_active": false}, KindProductUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stack := newTestStack(t)
			product := stack.createProduct(t, "智能手表", "199.00", intPtr(10))
			user := stack.createUser(t, "buyer")
			stack.addToCart(t, user.ID, product.ID, 2)
			stale := *product

			if err := stack.db.Model(&models.Product{}).Where("id = ?", product.ID).Updates(tc.update).Error; err != nil {
				t.Fatalf("update product failed: %v", err)
			}
			before := stack.stockOf(t, product.ID)

			_, err := staleCheckout(stack, stale).Checkout(validCheckoutInput(user.ID))
			if KindOf(err) != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
			if DataOf(err)["title"] != "智能手表" {
				t.Fatalf("expected product title in data, got %+v", DataOf(err))
			}
			if stack.countRows(t, &models.Order{}) != 0 || stack.countRows(t, &models.OrderStatusLog{}) != 0 {
				t.Fatalf("order rows must roll back")
			}
			if got := stack.stockOf(t, product.ID); got != before {
				t.Fatalf("stock must stay at %d, got %d", before, got)
			}
			if stack.countRows(t, &models.CartItem{}) != 1 {
				t.Fatalf("cart line must remain")
			}
		})
	}
}

func TestCheckoutEnqueueFailureKeepsOrder(t *testing.T) {
	stack := newTestStack(t)
	stack.scheduler.err = errors.New("redis down")
	product := stack.createProduct(t, "无线蓝牙耳机", "50.00", intPtr(10))
	user := stack.createUser(t, "buyer")
	stack.addToCart(t, user.ID, product.ID, 1)

	order, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if err != nil {
		t.Fatalf("checkout should succeed when enqueue fails: %v", err)
	}
	if order.ID == 0 {
		t.Fatalf("expected persisted order")
	}
}

func TestCheckoutMergesDemandAcrossSpecs(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "智能手表", "199.00", intPtr(3))
	user := stack.createUser(t, "buyer")
	if _, err := stack.cart.AddItem(AddCartItemInput{UserID: user.ID, ProductID: product.ID, SpecName: "42mm", Quantity: 2}); err != nil {
		t.Fatalf("add 42mm failed: %v", err)
	}
	if _, err := stack.cart.AddItem(AddCartItemInput{UserID: user.ID, ProductID: product.ID, SpecName: "46mm", Quantity: 2}); err != nil {
		t.Fatalf("add 46mm failed: %v", err)
	}

	_, err := stack.checkout.Checkout(validCheckoutInput(user.ID))
	if KindOf(err) != KindInsufficientStock {
		t.Fatalf("expected combined demand to exceed stock, got %v", err)
	}
	if got := stack.stockOf(t, product.ID); got != 3 {
		t.Fatalf("stock must not change, got %d", got)
	}
}

func TestCheckoutConcurrentBuyersNeverOversell(t *testing.T) {
	stack := newTestStack(t)
	product := stack.createProduct(t, "限量纪念徽章", "15.00", intPtr(5))
	const buyers = 12
	users := make([]*models.User, 0, buyers)
	for i := 0; i < buyers; i++ {
		user := stack.createUser(t, fmt.Sprintf("buyer%d", i))
		stack.addToCart(t, user.ID, product.ID, 1)
		users = append(users, user)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for _, user := range users {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := stack.checkout.Checkout(validCheckoutInput(userID))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			kind := KindOf(err)
			if kind != KindOutOfStock && kind != KindInsufficientStock {
				t.Errorf("unexpected checkout error: %v", err)
			}
		}(user.ID)
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected exactly 5 successful checkouts, got %d", succeeded)
	}
	if got := stack.stockOf(t, product.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
	if stack.countRows(t, &models.Order{}) != 5 {
		t.Fatalf("expected 5 orders")
	}
}

func TestGenerateOrderNoFormat(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		no := generateOrderNo()
		if len(no) != 19 || !strings.HasPrefix(no, "ORD") || strings.ToUpper(no) != no {
			t.Fatalf("unexpected order no: %s", no)
		}
		if _, dup := seen[no]; dup {
			t.Fatalf("duplicate order no: %s", no)
		}
		seen[no] = struct{}{}
	}
}
