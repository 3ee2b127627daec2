package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/crsp-mall/internal/http/response"
	"github.com/crsp-mall/internal/i18n"
	"github.com/crsp-mall/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则，BlockSeconds > 0 时超限后额外封禁
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(subject string) string {
	if r.Prefix == "" {
		return subject
	}
	return r.Prefix + ":" + subject
}

// 返回 {当前计数, 剩余秒数}；已封禁时计数固定为上限 + 1
var rateLimitScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[2])
if blocked > 0 then
	return {tonumber(ARGV[2]) + 1, blocked}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
if current > tonumber(ARGV[2]) and tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], "1", "EX", ARGV[3])
	ttl = tonumber(ARGV[3])
end
return {current, ttl}
`)

type rateDecision struct {
	count     int64
	remaining int64
	retry     int
}

func (d rateDecision) limited() bool {
	return d.remaining < 0
}

type rateLimiter struct {
	client *redis.Client
	rule   RateLimitRule
}

func (l rateLimiter) hit(ctx context.Context, subject string) (rateDecision, error) {
	key := l.rule.key(subject)
	values, err := rateLimitScript.Run(ctx, l.client, []string{key, key + ":block"},
		l.rule.WindowSeconds, l.rule.MaxRequests, l.rule.BlockSeconds).Int64Slice()
	if err != nil {
		return rateDecision{}, err
	}
	if len(values) < 2 {
		return rateDecision{}, redis.Nil
	}
	decision := rateDecision{
		count:     values[0],
		remaining: int64(l.rule.MaxRequests) - values[0],
		retry:     int(values[1]),
	}
	if decision.retry < 1 {
		decision.retry = l.rule.WindowSeconds
	}
	if decision.retry < 1 {
		decision.retry = 1
	}
	return decision, nil
}

// RateLimitMiddleware 基于 Redis 的限流中间件；未配置 Redis 或规则时直接放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	limiter := rateLimiter{client: client, rule: rule}
	messageKey := strings.TrimSpace(rule.MessageKey)
	if messageKey == "" {
		messageKey = "error.rate_limited"
	}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}
		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}

		decision, err := limiter.hit(c.Request.Context(), subject)
		if err != nil {
			logger.Warnw("rate_limit_script_failed", "key", rule.key(subject), "error", err)
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.MaxRequests))
		if decision.limited() {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(decision.retry))
			logger.Infow("rate_limit_rejected", "key", rule.key(subject), "count", decision.count, "wait_seconds", decision.retry)
			response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), messageKey, decision.retry))
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.remaining, 10))
		c.Next()
	}
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUserID 已识别用户按用户 ID 限流，否则回退到 IP
func KeyByUserID(c *gin.Context) string {
	if id := c.GetUint(userIDContextKey); id > 0 {
		return "user:" + strconv.FormatUint(uint64(id), 10)
	}
	return c.ClientIP()
}

// KeyByIPAndJSONField 按 JSON 字段（小写）+ IP 限流，读取后恢复请求体
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(peekJSONString(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func peekJSONString(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
