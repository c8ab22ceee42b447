// Package middleware provides HTTP policing in front of the chat core: rate
// limiting per client identity and rejection of abusive payloads.
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Budget is the token-bucket allowance for one route.
type Budget struct {
	Every time.Duration
	Burst int
}

// defaultBudgets throttle by route; the chat route is the expensive one.
var defaultBudgets = map[string]Budget{
	"/api/v1/chat": {Every: time.Second / 2, Burst: 5},
}

// fallbackBudget applies to routes without an explicit entry.
var fallbackBudget = Budget{Every: time.Second / 10, Burst: 20}

// MaxMessageBytes bounds the inbound chat payload size.
const MaxMessageBytes = 4096

// RateLimiter throttles requests per client identity and route.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]*rate.Limiter
	budgets map[string]Budget
}

// NewRateLimiter creates a rate limiter with the default per-route budgets.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits:  make(map[string]*rate.Limiter),
		budgets: defaultBudgets,
	}
}

// Allow checks whether client may hit route now.
func (rl *RateLimiter) Allow(client, route string) bool {
	return rl.getLimiter(client, route).Allow()
}

func (rl *RateLimiter) getLimiter(client, route string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := client + " " + route
	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	budget, ok := rl.budgets[route]
	if !ok {
		budget = fallbackBudget
	}
	limiter := rate.NewLimiter(rate.Every(budget.Every), budget.Burst)
	rl.limits[key] = limiter
	return limiter
}

// Middleware returns the echo middleware enforcing the limiter.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP(), c.Path()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, slow down")
			}
			return next(c)
		}
	}
}

// suspiciousFragments are payload substrings that have no business in a chat
// message and indicate probing.
var suspiciousFragments = []string{
	"<script",
	"javascript:",
	"../",
	"\x00",
}

// PayloadGuard rejects oversized or suspicious request bodies before they
// reach the conversation core.
func PayloadGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.ContentLength > MaxMessageBytes {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "message too large")
			}
			req.Body = http.MaxBytesReader(c.Response(), req.Body, MaxMessageBytes)
			return next(c)
		}
	}
}

// SuspiciousPayload reports whether a message body looks like probing rather
// than conversation.
func SuspiciousPayload(message string) bool {
	lower := strings.ToLower(message)
	for _, fragment := range suspiciousFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
