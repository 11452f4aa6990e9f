// internal/api/middleware.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Corphon/FutureGate/internal/services"
)

const (
	requestIDKey      = "request_id"
	sessionIDKey      = "session_id"
	requestIDHeader   = "X-Request-ID"
	SessionCookieName = "futuregate_session"
)

// ZapLogger 记录请求日志并设置请求ID；/health 和 /metrics 不记录
func ZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		}
		if sessionID := c.GetString(sessionIDKey); sessionID != "" {
			fields = append(fields, zap.String("session_id", sessionID))
		}

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors.ByType(gin.ErrorTypeAny) {
				logger.Error("请求出错", append(fields, zap.Error(ginErr.Err))...)
			}
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("服务器错误", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("客户端错误", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}

// SessionMiddleware 从 cookie 找到玩家会话，没有或已过期时创建新会话。
// 每次请求都重新下发 cookie，使其有效期与服务端的空闲过期同步滑动。
func SessionMiddleware(sessions *services.SessionManager, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, _ := c.Cookie(SessionCookieName)
		session, _ := sessions.GetOrCreate(cookie)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, session.ID, int(ttl.Seconds()), "/", "", c.Request.TLS != nil, true)
		c.Set(sessionIDKey, session.ID)
		c.Next()
	}
}

// RateLimiter 固定窗口的按客户端限流
type RateLimiter struct {
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	mu       sync.Mutex
}

type visitor struct {
	remaining int
	reset     time.Time
}

// NewRateLimiter 每个 window 内每个客户端最多 limit 次请求
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}
}

// Allow 检查并消耗一次请求额度，返回剩余额度和重置时间
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[key]
	if !exists || now.After(v.reset) {
		v = &visitor{remaining: rl.limit, reset: now.Add(rl.window)}
		rl.visitors[key] = v
	}
	if v.remaining <= 0 {
		return false, 0, v.reset
	}
	v.remaining--
	return true, v.remaining, v.reset
}

// StartCleanup 定期删除过期的记录，ctx 结束时退出
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(rl.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.mu.Lock()
				now := time.Now()
				for key, v := range rl.visitors {
					if now.After(v.reset) {
						delete(rl.visitors, key)
					}
				}
				rl.mu.Unlock()
			}
		}
	}()
}

// Middleware 按客户端IP限流
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	rh := NewResponseHelper()
	return func(c *gin.Context) {
		ok, remaining, reset := rl.Allow(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		if !ok {
			rh.Error(c, http.StatusTooManyRequests, ErrorRateLimited, "请求过于频繁")
			c.Abort()
			return
		}
		c.Next()
	}
}
