package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	general  *rate.Limiter
	heavy    *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps two token buckets per client IP. Mutating batch
// endpoints draw from the smaller heavy bucket. A generalRPM of zero or less
// disables limiting.
type RateLimitMiddleware struct {
	generalRPM int
	heavyRPM   int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
	now        func() time.Time
}

func NewRateLimitMiddleware(generalRPM int, heavyRPM int) *RateLimitMiddleware {
	if heavyRPM <= 0 {
		heavyRPM = max(generalRPM/5, 1)
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		heavyRPM:   heavyRPM,
		clients:    map[string]*clientLimiter{},
		now:        time.Now,
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.generalRPM <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		limiter := m.getLimiter(clientKey(r))

		target, rpm := limiter.general, m.generalRPM
		if isHeavy(r) {
			target, rpm = limiter.heavy, m.heavyRPM
		}

		if !target.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(max(60/rpm, 1)))
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isHeavy(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	path := strings.ToLower(r.URL.Path)
	return strings.HasPrefix(path, "/api/v1/operations/") || path == "/api/v1/jobs"
}

func (m *RateLimitMiddleware) getLimiter(key string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if limiter, exists := m.clients[key]; exists {
		limiter.lastSeen = now
		return limiter
	}

	m.gcLocked(now)
	created := &clientLimiter{
		general:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM),
		heavy:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.heavyRPM)), m.heavyRPM),
		lastSeen: now,
	}
	m.clients[key] = created
	return created
}

func (m *RateLimitMiddleware) gcLocked(now time.Time) {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := now.Add(-10 * time.Minute)
	for key, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, key)
		}
	}
}

// clientKey prefers the authenticated user so one user behind many addresses
// shares a bucket.
func clientKey(r *http.Request) string {
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.UserID != "" {
		return "user:" + claims.UserID
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return "ip:" + host
	}
	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "ip:unknown"
	}
	return "ip:" + r.RemoteAddr
}
