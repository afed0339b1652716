package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	entryTTL time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		entryTTL: 10 * time.Minute,
	}
}

func (rl *IPRateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// Purge drops buckets idle for longer than the entry TTL.
func (rl *IPRateLimiter) Purge() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.entryTTL)
	purged := 0
	for ip, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
			purged++
		}
	}
	return purged
}

// Middleware rejects requests beyond the bucket with 429.
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(apierror.CodeRateLimited, "too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}

// ── Constructors ──────────────────────────────────────────────────────────────

// RateLimiter is the general API limiter (RATE_LIMIT_RPS, RATE_LIMIT_BURST).
func RateLimiter(rps float64, burst int) gin.HandlerFunc {
	rl := NewIPRateLimiter(rps, burst)
	go purgeLoop(rl, "api")
	return rl.Middleware()
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	rl := NewIPRateLimiter(20.0/60.0, 20)
	go purgeLoop(rl, "login")
	return rl.Middleware()
}

const purgeInterval = 5 * time.Minute

func purgeLoop(rl *IPRateLimiter, name string) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		if n := rl.Purge(); n > 0 {
			log.Debug().Str("limiter", name).Int("entries_purged", n).Msg("rate limiter purged")
		}
	}
}
