package router

import (
	"fmt"
	"strings"

	"github.com/crsp-mall/internal/cache"
	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/constants"
	adminhandlers "github.com/crsp-mall/internal/http/handlers/admin"
	publichandlers "github.com/crsp-mall/internal/http/handlers/public"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Checkout.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Checkout.RateLimit.MaxRequests,
		BlockSeconds:  cfg.Checkout.RateLimit.BlockSeconds,
		MessageKey:    "error.rate_limited",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Checkout.AdminLoginLimit.WindowSeconds,
		MaxRequests:   cfg.Checkout.AdminLoginLimit.MaxRequests,
		BlockSeconds:  cfg.Checkout.AdminLoginLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if c.Metrics != nil {
		r.Use(c.Metrics.GinMiddleware())
	}

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		apiV1.GET("/products", publicHandler.GetProducts)
		apiV1.GET("/products/:id", publicHandler.GetProduct)
		apiV1.POST("/users/init", publicHandler.InitUser)

		// 用户接口（需要用户令牌）
		user := apiV1.Group("")
		user.Use(UserTokenMiddleware(c.UserService, cfg.User, true))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.PUT("/me", publicHandler.UpdateProfile)

			user.GET("/cart", publicHandler.GetCart)
			user.DELETE("/cart", publicHandler.ClearCart)
			user.POST("/cart/items", publicHandler.AddCartItem)
			user.PATCH("/cart/items/:id", publicHandler.UpdateCartItem)
			user.DELETE("/cart/items/:id", publicHandler.DeleteCartItem)

			user.POST("/checkout", RateLimitMiddleware(redisClient, checkoutRule, KeyByUserID), publicHandler.Checkout)

			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)
			user.POST("/orders/:id/confirm", publicHandler.ConfirmOrder)
		}

		// 管理端接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			authorized := admin.Use(AdminJWTAuthMiddleware(c.AuthService, c.AdminRepo))
			{
				authorized.PUT("/password", adminHandler.ChangePassword)

				authorized.GET("/users", adminHandler.GetAdminUsers)
				authorized.GET("/users/:id", adminHandler.GetAdminUser)
				authorized.PUT("/users/:id", adminHandler.UpdateAdminUser)
				authorized.DELETE("/users/:id", adminHandler.DeleteAdminUser)

				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.GET("/products/:id", adminHandler.GetAdminProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.PUT("/products/:id/stock", adminHandler.SetProductStock)
				authorized.PUT("/products/:id/active", adminHandler.SetProductActive)

				authorized.GET("/orders", adminHandler.AdminListOrders)
				authorized.GET("/orders/:id", adminHandler.AdminGetOrder)
				authorized.PUT("/orders/:id/status", adminHandler.AdminUpdateOrderStatus)
				authorized.DELETE("/orders/:id", adminHandler.AdminDeleteOrder)

				authorized.GET("/authz/transitions", adminHandler.ListTransitionPolicies)
				authorized.POST("/authz/transitions", adminHandler.GrantTransitionPolicy)
				authorized.DELETE("/authz/transitions", adminHandler.RevokeTransitionPolicy)
				authorized.POST("/authz/admins/:id/role", adminHandler.AssignAdminRole)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
			}
		}
	}

	if cfg.Metrics.Enabled && c.Metrics != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(c.Metrics.Handler()))
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
