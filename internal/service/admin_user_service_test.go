package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/crsp-mall/internal/cache"
	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminUserTestService(stack *testStack) *AdminUserService {
	return NewAdminUserService(repository.NewUserRepository(stack.db), stack.orders, stack.carts)
}

func TestAdminUserListAndDetail(t *testing.T) {
	stack := newTestStack(t)
	svc := newAdminUserTestService(stack)
	buyer := stack.createUser(t, "buyer")
	stack.createUser(t, "browser")

	kept := placeOrder(t, stack, buyer.ID, 5)
	cancelled := placeOrder(t, stack, buyer.ID, 5)
	_, err := stack.lifecycle.UserCancel(cancelled.ID, buyer.ID)
	require.NoError(t, err)
	extra := stack.createProduct(t, "充电宝", "79.00", intPtr(3))
	stack.addToCart(t, buyer.ID, extra.ID, 2)

	users, total, err := svc.List(repository.UserListFilter{Page: 1, PageSize: 10, Keyword: "BUY"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, buyer.ID, users[0].ID)

	_, total, err = svc.List(repository.UserListFilter{Page: 1, PageSize: 10, UserType: constants.UserTypeRegistered})
	require.NoError(t, err)
	assert.Zero(t, total)

	detail, err := svc.Get(buyer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, detail.OrderCount)
	assert.Equal(t, kept.TotalAmount.String(), detail.TotalSpending.String())
	assert.EqualValues(t, 1, detail.CartItemCount)

	_, err = svc.Get(9999)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAdminUserUpdateDeactivatesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { cache.UseClient(nil, "") })

	stack := newTestStack(t)
	svc := newAdminUserTestService(stack)
	users := NewUserService(repository.NewUserRepository(stack.db), time.Minute)
	ctx := context.Background()

	user, _, err := users.InitGuest(ctx, "")
	require.NoError(t, err)
	id, err := users.ResolveToken(ctx, user.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, id)

	badPhone := "123"
	_, err = svc.Update(ctx, user.ID, AdminUserUpdateInput{Phone: &badPhone})
	assert.Equal(t, KindValidation, KindOf(err))
	badType := "vip"
	_, err = svc.Update(ctx, user.ID, AdminUserUpdateInput{UserType: &badType})
	assert.Equal(t, KindValidation, KindOf(err))

	longName := strings.Repeat("名", 21)
	phone := "13900000000"
	userType := constants.UserTypeRegistered
	inactive := false
	updated, err := svc.Update(ctx, user.ID, AdminUserUpdateInput{
		Nickname: &longName,
		Phone:    &phone,
		UserType: &userType,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, user.Nickname, updated.Nickname)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, constants.UserTypeRegistered, updated.UserType)
	assert.False(t, updated.IsActive)
	assert.Empty(t, mr.Keys())

	id, err = users.ResolveToken(ctx, user.Token)
	require.NoError(t, err)
	assert.Zero(t, id, "deactivated user must not resolve")
}

func TestAdminUserDeleteKeepsOrders(t *testing.T) {
	stack := newTestStack(t)
	svc := newAdminUserTestService(stack)
	user := stack.createUser(t, "buyer")
	order := placeOrder(t, stack, user.ID, 5)
	product := stack.createProduct(t, "充电宝", "79.00", intPtr(3))
	stack.addToCart(t, user.ID, product.ID, 1)

	require.NoError(t, svc.Delete(context.Background(), user.ID, 1))

	assert.Zero(t, stack.countRows(t, &models.User{}))
	assert.Zero(t, stack.countRows(t, &models.CartItem{}))
	saved, err := stack.orders.GetByID(order.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, KindNotFound, KindOf(svc.Delete(context.Background(), user.ID, 1)))
}

func TestChangeAdminPassword(t *testing.T) {
	db := openServiceTestDB(t)
	hash, err := HashPassword("old-pass")
	require.NoError(t, err)
	admin := &models.Admin{Username: "root", PasswordHash: hash}
	require.NoError(t, db.Create(admin).Error)
	svc := NewAuthService(config.JWTConfig{SecretKey: "unit-test-secret-key-with-enough-length"}, repository.NewAdminRepository(db))

	err = svc.ChangePassword(admin.ID, "old-pass", "12345", "12345")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "新密码长度须为6-32个字符", MessageOf(err))

	err = svc.ChangePassword(admin.ID, "old-pass", "new-pass-1", "new-pass-2")
	assert.Equal(t, "两次输入的密码不一致", MessageOf(err))

	err = svc.ChangePassword(admin.ID, "wrong", "new-pass-1", "new-pass-1")
	assert.Equal(t, "原密码错误", MessageOf(err))

	require.NoError(t, svc.ChangePassword(admin.ID, "old-pass", "new-pass-1", "new-pass-1"))
	_, err = svc.Login("root", "old-pass")
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = svc.Login("root", "new-pass-1")
	assert.NoError(t, err)
}
