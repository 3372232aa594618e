package middlewares

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-floor/utils"
	"golang.org/x/time/rate"
)

// client is the token bucket of one IP and the last time it asked for a token.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows rate requests per interval per client IP, with bursts
// up to rate.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ips   map[string]*client
	mu    sync.Mutex
}

func NewRateLimiter(requests int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit: rate.Limit(float64(requests) / interval.Seconds()),
		burst: requests,
		ips:   make(map[string]*client),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP(), time.Now()) {
			utils.RespondError(c, http.StatusTooManyRequests, errors.New("too many requests"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.ips[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.ips[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Cleanup forgets clients not seen for idle and returns how many it dropped.
func (rl *RateLimiter) Cleanup(now time.Time, idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return evictIdle(rl.ips, now, idle)
}

// StrictRateLimiter throttles sensitive endpoints such as login with a token
// bucket per client IP.
type StrictRateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters map[string]*client
	mu       sync.Mutex
}

func NewStrictRateLimiter(every time.Duration, burst int) *StrictRateLimiter {
	return &StrictRateLimiter{
		limit:    rate.Every(every),
		burst:    burst,
		limiters: make(map[string]*client),
	}
}

func (s *StrictRateLimiter) allow(ip string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl, ok := s.limiters[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (s *StrictRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.allow(c.ClientIP(), time.Now()) {
			utils.RespondError(c, http.StatusTooManyRequests, errors.New("too many attempts, please wait a moment"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Cleanup forgets clients not seen for idle and returns how many it dropped.
// An evicted client starts again with a full bucket, so idle should be at
// least the time the bucket takes to refill.
func (s *StrictRateLimiter) Cleanup(now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return evictIdle(s.limiters, now, idle)
}

func evictIdle(clients map[string]*client, now time.Time, idle time.Duration) int {
	removed := 0
	for ip, cl := range clients {
		if now.Sub(cl.lastSeen) > idle {
			delete(clients, ip)
			removed++
		}
	}
	return removed
}
