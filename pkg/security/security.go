package security

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	allowHeaders = "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With"
	allowMethods = "POST, OPTIONS, GET, PUT, DELETE, PATCH"
)

// CORS 只放行白名单中的Origin，带Credentials，浏览器预检直接204
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok && origin != "" {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Add("Vary", "Origin")
		}
		header.Set("Access-Control-Allow-Headers", allowHeaders)
		header.Set("Access-Control-Allow-Methods", allowMethods)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Secure 常规安全响应头
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防MIME嗅探、点击劫持、XSS
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}
		c.Next()
	}
}

// ipLimiters 每个客户端IP一个令牌桶，闲置条目定期回收
type ipLimiters struct {
	mu    sync.Mutex
	perIP map[string]*ipEntry
	rate  rate.Limit
	burst int
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.perIP[ip]
	if !ok {
		entry = &ipEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.perIP[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (l *ipLimiters) sweep(expiry time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, entry := range l.perIP {
		if time.Since(entry.lastSeen) > expiry {
			delete(l.perIP, ip)
		}
	}
}

// RateLimiter 按IP限流，窗口内最多maxRequests次请求
func RateLimiter(maxRequests int, window time.Duration) gin.HandlerFunc {
	limiters := &ipLimiters{
		perIP: make(map[string]*ipEntry),
		rate:  rate.Every(window / time.Duration(maxRequests)),
		burst: maxRequests,
	}

	go func() {
		expiry := window * 3
		if expiry < time.Minute {
			expiry = time.Minute
		}
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiters.sweep(expiry)
		}
	}()

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
