package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/constants"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 3 * time.Second

// Redis 是可选依赖：未启用或连接失败时所有操作退化为空操作
type store struct {
	mu     sync.RWMutex
	client *redis.Client
	prefix string
}

var shared = &store{prefix: constants.RedisPrefixDefault}

// InitRedis 按配置建立连接并探活；探活失败时保持禁用并返回错误
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		UseClient(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: connectTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		UseClient(nil, cfg.Prefix)
		return err
	}
	UseClient(client, cfg.Prefix)
	return nil
}

// UseClient 直接注入客户端，nil 表示关闭缓存
func UseClient(client *redis.Client, prefix string) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = constants.RedisPrefixDefault
	}
	shared.mu.Lock()
	shared.client = client
	shared.prefix = prefix
	shared.mu.Unlock()
}

// Close 关闭连接并禁用缓存
func Close() error {
	shared.mu.Lock()
	client := shared.client
	shared.client = nil
	shared.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Ping 检查连通性，未启用时视为正常
func Ping(ctx context.Context) error {
	client, _ := shared.get()
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// Enabled 缓存是否可用
func Enabled() bool {
	client, _ := shared.get()
	return client != nil
}

// Client 当前客户端，未启用返回 nil
func Client() *redis.Client {
	client, _ := shared.get()
	return client
}

// GetJSON 读取 JSON 缓存，返回是否命中
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	client, prefix := shared.get()
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, joinKey(prefix, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	client, prefix := shared.get()
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, joinKey(prefix, key), payload, ttl).Err()
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	client, prefix := shared.get()
	if client == nil {
		return nil
	}
	return client.Del(ctx, joinKey(prefix, key)).Err()
}

func (s *store) get() (*redis.Client, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client, s.prefix
}

func joinKey(prefix, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return prefix
	}
	return prefix + ":" + key
}
