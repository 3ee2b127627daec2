package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/crsp-mall/internal/app"
	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	envDefaultAdminUsername = "MALL_DEFAULT_ADMIN_USERNAME"
	envDefaultAdminPassword = "MALL_DEFAULT_ADMIN_PASSWORD"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	fmt.Printf("crsp-mall starting (mode=%s)\n", mode)

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if err := checkAdminSecret(cfg); err != nil {
		stdLog.Fatalf("%v", err)
	}
	if err := prepareDatabase(cfg); err != nil {
		stdLog.Fatalf("%v", err)
	}
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// checkAdminSecret release 模式下拒绝弱密钥，其余模式仅告警
func checkAdminSecret(cfg *config.Config) error {
	if !isWeakSecret(cfg.AdminJWT.SecretKey) {
		return nil
	}
	if cfg.Server.Mode == "release" {
		return errors.New("admin_jwt.secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
	}
	logger.Warnw("admin_jwt_secret_weak", "mode", cfg.Server.Mode)
	return nil
}

// prepareDatabase 连接、迁移，并在管理员表为空时创建初始管理员
func prepareDatabase(cfg *config.Config) error {
	if err := models.InitDB(cfg.Database); err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	password := os.Getenv(envDefaultAdminPassword)
	if cfg.Server.Mode == "release" && password == "" {
		logger.Warnw("default_admin_skipped", "reason", envDefaultAdminPassword+" not set")
		return nil
	}
	if _, err := models.EnsureDefaultAdmin(models.DB, os.Getenv(envDefaultAdminUsername), password); err != nil {
		logger.Warnw("default_admin_init_failed", "error", err)
	}
	return nil
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, marker := range []string{"change-me", "change-in-production", "your-secret-key"} {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
