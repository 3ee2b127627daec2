package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault

	defaultConcurrency = 10
	defaultMaxRetry    = 5
	defaultTaskTimeout = 30 * time.Second
	defaultRetention   = time.Hour
)

// Client 订单延时任务投递端
type Client struct {
	inner     *asynq.Client
	queue     string
	maxRetry  int
	timeout   time.Duration
	retention time.Duration
}

// NewClient 创建队列客户端；未启用时返回可安全调用的空客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	c := &Client{
		queue:     DefaultQueue,
		maxRetry:  defaultMaxRetry,
		timeout:   defaultTaskTimeout,
		retention: defaultRetention,
	}
	if cfg == nil || !cfg.Enabled {
		return c, nil
	}
	if cfg.MaxRetry > 0 {
		c.maxRetry = cfg.MaxRetry
	}
	c.timeout = secondsOr(cfg.TaskTimeout, defaultTaskTimeout)
	c.retention = secondsOr(cfg.Retention, defaultRetention)
	c.inner = asynq.NewClient(redisOpt(cfg))
	return c, nil
}

// Enabled 是否真正投递
func (c *Client) Enabled() bool {
	return c != nil && c.inner != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.inner.Close()
}

// EnqueueOrderTimeoutCancel 在 delay 之后投递超时取消任务。
// 任务 ID 按订单生成，重复投递视为已排期。
func (c *Client) EnqueueOrderTimeoutCancel(payload OrderTimeoutCancelPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderTimeoutCancelTask(payload)
	if err != nil {
		return err
	}
	info, err := c.inner.Enqueue(task, c.timeoutCancelOptions(payload.OrderID, delay)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debugw("queue_timeout_cancel_already_scheduled", "order_id", payload.OrderID)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Debugw("queue_timeout_cancel_scheduled",
		"order_id", payload.OrderID,
		"task_id", info.ID,
		"process_at", info.NextProcessAt,
	)
	return nil
}

func (c *Client) timeoutCancelOptions(orderID uint, delay time.Duration) []asynq.Option {
	if delay < 0 {
		delay = 0
	}
	return []asynq.Option{
		asynq.Queue(c.queue),
		asynq.ProcessIn(delay),
		asynq.TaskID(TimeoutCancelTaskID(orderID)),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(c.timeout),
		asynq.Retention(c.retention),
	}
}

// TimeoutCancelTaskID 单个订单的超时取消任务 ID
func TimeoutCancelTaskID(orderID uint) string {
	return TaskOrderTimeoutCancel + ":" + strconv.FormatUint(uint64(orderID), 10)
}

// BuildServerConfig 生成 worker 端的连接与调度配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{DefaultQueue: 1},
		Logger:      logger.Named("asynq"),
	}
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
		logger.Warnw("queue_task_failed", "type", task.Type(), "error", err)
	})
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
