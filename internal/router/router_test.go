package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type apiResult struct {
	StatusCode int                    `json:"status_code"`
	Msg        string                 `json:"msg"`
	Data       map[string]interface{} `json:"data"`
}

func newTestEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	previous := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = previous
		_ = sqlDB.Close()
	})

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "debug"},
		AdminJWT: config.JWTConfig{SecretKey: "router-test-secret-key-0123456789", ExpireHours: 1},
		User: config.UserConfig{
			TokenCookie:         "user_token",
			TokenHeader:         "X-User-Token",
			TokenCookieMaxAge:   3600,
			TokenCacheTTLSecond: 60,
		},
		Checkout: config.CheckoutConfig{PriceTolerance: "0.01"},
		Order:    config.OrderConfig{PendingExpireMinutes: 30},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	container := provider.NewContainer(cfg)
	return SetupRouter(cfg, container), db
}

func callAPI(t *testing.T, r *gin.Engine, method, path string, body interface{}, headers map[string]string) apiResult {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var result apiResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("%s %s: decode response failed: %v body=%s", method, path, err, w.Body.String())
	}
	return result
}

func mustOK(t *testing.T, result apiResult, step string) map[string]interface{} {
	t.Helper()
	if result.StatusCode != 0 {
		t.Fatalf("%s failed: status_code=%d msg=%s data=%v", step, result.StatusCode, result.Msg, result.Data)
	}
	return result.Data
}

func TestCheckoutAndLifecycleOverHTTP(t *testing.T) {
	r, db := newTestEngine(t)
	stock := 3
	product := &models.Product{Title: "无线蓝牙耳机", Price: models.MustMoney("50.00"), Stock: &stock, IsActive: true}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	data := mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/users/init", nil, nil), "init user")
	token, _ := data["token"].(string)
	if token == "" || data["created"] != true {
		t.Fatalf("unexpected init result: %v", data)
	}
	user := map[string]string{"X-User-Token": token}

	if result := callAPI(t, r, http.MethodGet, "/api/v1/cart", nil, nil); result.StatusCode != 401 {
		t.Fatalf("cart without token should be unauthorized, got %d", result.StatusCode)
	}

	mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": product.ID, "quantity": 2}, user), "add cart item")

	checkoutBody := gin.H{
		"recipient_name":    "张三",
		"recipient_phone":   "13800000001",
		"recipient_address": "北京市朝阳区建国路 1 号",
	}
	if result := callAPI(t, r, http.MethodPost, "/api/v1/checkout", gin.H{"recipient_name": "张三"}, user); result.StatusCode != 400 || result.Data["kind"] != "validation_error" {
		t.Fatalf("expected validation error, got %+v", result)
	}
	data = mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/checkout", checkoutBody, user), "checkout")
	if data["total_amount"] != "100.00" || data["status"] != "pending" {
		t.Fatalf("unexpected checkout result: %v", data)
	}
	orderID := uint(data["order_id"].(float64))

	if result := callAPI(t, r, http.MethodPost, "/api/v1/checkout", checkoutBody, user); result.StatusCode != 400 {
		t.Fatalf("empty cart checkout should be rejected, got %+v", result)
	}

	data = mustOK(t, callAPI(t, r, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", orderID), nil, user), "cancel order")
	if data["status"] != "cancelled" {
		t.Fatalf("expected cancelled, got %v", data)
	}

	mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": product.ID, "quantity": 2}, user), "add cart item again")
	result := callAPI(t, r, http.MethodPost, "/api/v1/checkout", checkoutBody, user)
	if result.StatusCode != 409 || result.Data["kind"] != "insufficient_stock" || result.Data["current_stock"] != float64(1) {
		t.Fatalf("expected insufficient stock after cancel without restock, got %+v", result)
	}

	english := map[string]string{"X-User-Token": token, "Accept-Language": "en-US"}
	result = callAPI(t, r, http.MethodPost, "/api/v1/checkout", checkoutBody, english)
	if result.StatusCode != 409 || result.Msg != `Insufficient stock for "无线蓝牙耳机", current stock: 1` || result.Data["title"] != "无线蓝牙耳机" {
		t.Fatalf("expected localized insufficient stock message, got %+v", result)
	}

	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{"stock": 10, "price": "60.00"}).Error; err != nil {
		t.Fatalf("update product failed: %v", err)
	}
	result = callAPI(t, r, http.MethodPost, "/api/v1/checkout", checkoutBody, english)
	if result.StatusCode != 409 || result.Data["kind"] != "price_changed" || !strings.Contains(result.Msg, `"无线蓝牙耳机" ¥50.00 -> ¥60.00`) {
		t.Fatalf("expected localized price change list, got %+v", result)
	}
	data = mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/checkout", checkoutBody, english), "checkout after price resync")
	if data["total_amount"] != "120.00" {
		t.Fatalf("expected resynced total, got %v", data["total_amount"])
	}
}

func TestAdminUpdatesOrderStatusOverHTTP(t *testing.T) {
	r, db := newTestEngine(t)
	if _, err := models.EnsureDefaultAdmin(db, "root", "s3cret-pass"); err != nil {
		t.Fatalf("init admin failed: %v", err)
	}
	stock := 5
	product := &models.Product{Title: "智能手表", Price: models.MustMoney("199.00"), Stock: &stock, IsActive: true}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	data := mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/users/init", nil, nil), "init user")
	user := map[string]string{"X-User-Token": data["token"].(string)}
	mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": product.ID, "quantity": 1}, user), "add cart item")
	data = mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/checkout", gin.H{
		"recipient_name":    "李四",
		"recipient_phone":   "13800000002",
		"recipient_address": "上海市浦东新区世纪大道 100 号",
	}, user), "checkout")
	orderID := uint(data["order_id"].(float64))

	if result := callAPI(t, r, http.MethodPost, "/api/v1/admin/login", gin.H{"username": "root", "password": "wrong"}, nil); result.StatusCode != 401 {
		t.Fatalf("wrong password should be unauthorized, got %+v", result)
	}
	data = mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/admin/login", gin.H{"username": "root", "password": "s3cret-pass"}, nil), "admin login")
	admin := map[string]string{"Authorization": "Bearer " + data["token"].(string)}

	statusPath := fmt.Sprintf("/api/v1/admin/orders/%d/status", orderID)
	if result := callAPI(t, r, http.MethodPut, statusPath, gin.H{"status": "paid"}, nil); result.StatusCode != 401 {
		t.Fatalf("status update without token should be unauthorized, got %d", result.StatusCode)
	}
	result := callAPI(t, r, http.MethodPut, statusPath, gin.H{"status": "shipped"}, admin)
	if result.StatusCode != 409 || result.Data["kind"] != "invalid_transition" {
		t.Fatalf("pending->shipped should conflict, got %+v", result)
	}
	mustOK(t, callAPI(t, r, http.MethodPut, statusPath, gin.H{"status": "paid"}, admin), "mark paid")

	if result := callAPI(t, r, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", orderID), nil, user); result.StatusCode != 409 {
		t.Fatalf("paid order cancel should conflict, got %+v", result)
	}

	data = mustOK(t, callAPI(t, r, http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d", orderID), nil, admin), "admin get order")
	if data["status_label"] != "已付款" {
		t.Fatalf("expected paid order, got %v", data["status_label"])
	}
	if logs, _ := data["status_logs"].([]interface{}); len(logs) != 2 {
		t.Fatalf("expected 2 status logs, got %v", data["status_logs"])
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	r, _ := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response: %d %s", w.Code, w.Body.String())
	}

	callAPI(t, r, http.MethodGet, "/api/v1/products", nil, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "mall_http_requests_total") {
		t.Fatalf("expected http metrics to be exported, got %d", w.Code)
	}
}

func TestAdminManagesUsersAndPasswordOverHTTP(t *testing.T) {
	r, db := newTestEngine(t)
	if _, err := models.EnsureDefaultAdmin(db, "root", "s3cret-pass"); err != nil {
		t.Fatalf("init admin failed: %v", err)
	}
	data := mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/admin/login", gin.H{"username": "root", "password": "s3cret-pass"}, nil), "admin login")
	admin := map[string]string{"Authorization": "Bearer " + data["token"].(string)}

	data = mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/users/init", nil, nil), "init user")
	token := data["token"].(string)
	userID := uint(data["user"].(map[string]interface{})["id"].(float64))
	userPath := fmt.Sprintf("/api/v1/admin/users/%d", userID)

	if result := callAPI(t, r, http.MethodGet, "/api/v1/admin/users", nil, nil); result.StatusCode != 401 {
		t.Fatalf("user list without token should be unauthorized, got %d", result.StatusCode)
	}
	mustOK(t, callAPI(t, r, http.MethodGet, "/api/v1/admin/users?type=guest", nil, admin), "list users")
	data = mustOK(t, callAPI(t, r, http.MethodGet, userPath, nil, admin), "get user")
	if data["order_count"] != float64(0) || data["total_spending"] != "0.00" {
		t.Fatalf("unexpected user detail: %v", data)
	}

	if result := callAPI(t, r, http.MethodPut, userPath, gin.H{"phone": "123"}, admin); result.StatusCode != 400 {
		t.Fatalf("invalid phone should be rejected, got %+v", result)
	}
	mustOK(t, callAPI(t, r, http.MethodPut, userPath, gin.H{"is_active": false}, admin), "deactivate user")
	if result := callAPI(t, r, http.MethodGet, "/api/v1/cart", nil, map[string]string{"X-User-Token": token}); result.StatusCode != 401 {
		t.Fatalf("deactivated user should be unauthorized, got %d", result.StatusCode)
	}
	mustOK(t, callAPI(t, r, http.MethodDelete, userPath, nil, admin), "delete user")
	if result := callAPI(t, r, http.MethodGet, userPath, nil, admin); result.StatusCode != 404 {
		t.Fatalf("deleted user should be not found, got %d", result.StatusCode)
	}

	passwordBody := gin.H{"old_password": "s3cret-pass", "new_password": "n3w-pass", "confirm_password": "n3w-pass"}
	if result := callAPI(t, r, http.MethodPut, "/api/v1/admin/password", gin.H{"old_password": "bad", "new_password": "n3w-pass", "confirm_password": "n3w-pass"}, admin); result.StatusCode != 400 {
		t.Fatalf("wrong old password should be rejected, got %+v", result)
	}
	mustOK(t, callAPI(t, r, http.MethodPut, "/api/v1/admin/password", passwordBody, admin), "change password")
	if result := callAPI(t, r, http.MethodPost, "/api/v1/admin/login", gin.H{"username": "root", "password": "s3cret-pass"}, nil); result.StatusCode != 401 {
		t.Fatalf("old password should no longer work, got %+v", result)
	}
	mustOK(t, callAPI(t, r, http.MethodPost, "/api/v1/admin/login", gin.H{"username": "root", "password": "n3w-pass"}, nil), "login with new password")
}
