package provider

import (
	"time"

	"github.com/crsp-mall/internal/authz"
	"github.com/crsp-mall/internal/cache"
	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/metrics"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/queue"
	"github.com/crsp-mall/internal/repository"
	"github.com/crsp-mall/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Recorder

	// Repositories
	AdminRepo   repository.AdminRepository
	UserRepo    repository.UserRepository
	ProductRepo repository.ProductRepository
	CartRepo    repository.CartRepository
	OrderRepo   repository.OrderRepository
	AuditRepo   repository.AuthzAuditLogRepository

	// Services
	AuthzService     *authz.Service
	AuthzAudit       *service.AuthzAuditService
	AuthService      *service.AuthService
	UserService      *service.UserService
	AdminUserService *service.AdminUserService
	ProductService   *service.ProductService
	CartService      *service.CartService
	CheckoutService  *service.CheckoutService
	OrderService     *service.OrderService
	LifecycleService *service.OrderLifecycleService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Metrics:     metrics.NewRecorder(),
	}

	// 1. 初始化 Repositories
	c.initRepositories(models.DB)

	// 2. 初始化 Services
	c.initServices(models.DB)

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.AuditRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinPolicies(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_policies_failed", "error", err)
		panic(err)
	}
	if adminIDs, err := c.AdminRepo.ListIDs(); err != nil {
		logger.Warnw("provider_list_admins_failed", "error", err)
	} else if err := c.AuthzService.BootstrapAdminRoles(adminIDs); err != nil {
		logger.Warnw("provider_bootstrap_admin_roles_failed", "error", err)
	}

	tolerance, err := decimal.NewFromString(c.Config.Checkout.PriceTolerance)
	if err != nil {
		logger.Warnw("provider_price_tolerance_invalid",
			"value", c.Config.Checkout.PriceTolerance,
			"fallback", service.DefaultPriceTolerance.String(),
		)
		tolerance = service.DefaultPriceTolerance
	}

	var scheduler service.OrderTimeoutScheduler
	if c.QueueClient != nil && c.QueueClient.Enabled() {
		scheduler = c.QueueClient
	}

	c.AuthzAudit = service.NewAuthzAuditService(c.AuditRepo)
	c.AuthService = service.NewAuthService(c.Config.AdminJWT, c.AdminRepo)
	c.UserService = service.NewUserService(c.UserRepo, time.Duration(c.Config.User.TokenCacheTTLSecond)*time.Second)
	c.AdminUserService = service.NewAdminUserService(c.UserRepo, c.OrderRepo, c.CartRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo)
	c.LifecycleService = service.NewOrderLifecycleService(c.OrderRepo, c.AuthzService, c.Metrics)
	c.CheckoutService = service.NewCheckoutService(c.ProductRepo, c.CartRepo, c.OrderRepo, c.LifecycleService, service.CheckoutOptions{
		PriceTolerance:       tolerance,
		PendingExpireMinutes: c.Config.Order.PendingExpireMinutes,
		Scheduler:            scheduler,
		Observer:             c.Metrics,
	})
}

// Close 释放外部连接
func (c *Container) Close() {
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
