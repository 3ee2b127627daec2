package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/queue"
	"github.com/crsp-mall/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testDBSeq int64

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

type testStack struct {
	db        *gorm.DB
	products  *repository.GormProductRepository
	carts     *repository.GormCartRepository
	orders    *repository.GormOrderRepository
	cart      *CartService
	lifecycle *OrderLifecycleService
	checkout  *CheckoutService
	orderSvc  *OrderService
	observer  *recordingObserver
	scheduler *recordingScheduler
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db := openServiceTestDB(t)
	stack := &testStack{
		db:        db,
		products:  repository.NewProductRepository(db),
		carts:     repository.NewCartRepository(db),
		orders:    repository.NewOrderRepository(db),
		observer:  &recordingObserver{},
		scheduler: &recordingScheduler{},
	}
	stack.cart = NewCartService(stack.carts, stack.products)
	stack.lifecycle = NewOrderLifecycleService(stack.orders, nil, stack.observer)
	stack.orderSvc = NewOrderService(stack.orders)
	stack.checkout = NewCheckoutService(stack.products, stack.carts, stack.orders, stack.lifecycle, CheckoutOptions{
		PendingExpireMinutes: 30,
		Scheduler:            stack.scheduler,
		Observer:             stack.observer,
	})
	return stack
}

func (s *testStack) createProduct(t *testing.T, title, price string, stock *int) *models.Product {
	t.Helper()
	product := &models.Product{
		Title:    title,
		Price:    models.MustMoney(price),
		Stock:    stock,
		IsActive: true,
	}
	if err := s.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (s *testStack) createUser(t *testing.T, nickname string) *models.User {
	t.Helper()
	user := &models.User{
		Token:    fmt.Sprintf("token-%s-%d", nickname, time.Now().UnixNano()),
		Nickname: nickname,
		UserType: constants.UserTypeGuest,
		IsActive: true,
	}
	if err := s.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func (s *testStack) addToCart(t *testing.T, userID, productID uint, quantity int) *models.CartItem {
	t.Helper()
	item, err := s.cart.AddItem(AddCartItemInput{UserID: userID, ProductID: productID, Quantity: quantity})
	if err != nil {
		t.Fatalf("add cart item failed: %v", err)
	}
	return item
}

func (s *testStack) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	product, err := s.products.GetByID(productID)
	if err != nil || product == nil {
		t.Fatalf("load product failed: %v", err)
	}
	return product.CurrentStock()
}

func (s *testStack) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := s.db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func validCheckoutInput(userID uint) CheckoutInput {
	return CheckoutInput{
		UserID:           userID,
		RecipientName:    "张三",
		RecipientPhone:   "13800000001",
		RecipientAddress: "北京市朝阳区建国路 1 号",
	}
}

func intPtr(v int) *int {
	return &v
}

type recordingObserver struct {
	mu          sync.Mutex
	checkouts   []string
	decrements  int
	transitions []string
}

func (o *recordingObserver) CheckoutFinished(kind string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checkouts = append(o.checkouts, kind)
}

func (o *recordingObserver) StockDecremented(_ uint, quantity int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decrements += quantity
}

func (o *recordingObserver) OrderTransitioned(actor, from, to string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, actor+":"+from+"->"+to)
}

type recordingScheduler struct {
	mu       sync.Mutex
	payloads []queue.OrderTimeoutCancelPayload
	delays   []time.Duration
	err      error
}

func (s *recordingScheduler) EnqueueOrderTimeoutCancel(payload queue.OrderTimeoutCancelPayload, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	s.delays = append(s.delays, delay)
	return nil
}
