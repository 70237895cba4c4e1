package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

// RateLimitConfig configures the per-client token buckets
type RateLimitConfig struct {
	RequestsPerSecond float64       // token refill rate
	BurstSize         int           // bucket capacity
	ClientExpiration  time.Duration // idle buckets older than this are dropped on sweep
	MaxClients        int           // cap on tracked clients; new clients are refused beyond it
}

// DefaultRateLimitConfig suits session opens and reloads: a handful per
// second per client
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 2,
		BurstSize:         10,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        10000,
	}
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter is a token bucket per client. Idle buckets are swept lazily
// when the client table is full, so no background goroutine is needed.
type RateLimiter struct {
	config  RateLimitConfig
	logger  logging.Logger
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*tokenBucket
}

// NewRateLimiter creates a rate limiter; a nil config uses the defaults
func NewRateLimiter(config *RateLimitConfig, logger logging.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RateLimiter{
		config:  *config,
		logger:  logger.With(logging.Component("ratelimit")),
		now:     time.Now,
		clients: make(map[string]*tokenBucket),
	}
}

// Allow takes one token from the client's bucket
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	bucket, ok := rl.clients[clientID]
	if !ok {
		if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
			rl.sweep(now)
			if len(rl.clients) >= rl.config.MaxClients {
				rl.logger.Warn("rate limiter full", logging.Count(len(rl.clients)))
				return false
			}
		}
		bucket = &tokenBucket{tokens: float64(rl.config.BurstSize), lastRefill: now}
		rl.clients[clientID] = bucket
	}

	bucket.tokens += now.Sub(bucket.lastRefill).Seconds() * rl.config.RequestsPerSecond
	if bucket.tokens > float64(rl.config.BurstSize) {
		bucket.tokens = float64(rl.config.BurstSize)
	}
	bucket.lastRefill = now

	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}

// Clients returns the number of tracked clients
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for id, b := range rl.clients {
		if now.Sub(b.lastRefill) > rl.config.ClientExpiration {
			delete(rl.clients, id)
		}
	}
}

// ClientIP identifies a client by the host part of RemoteAddr. Put chi's
// RealIP in front of it when running behind a trusted proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit answers 429 once a client has used up its bucket
func RateLimit(limiter *RateLimiter, clientID func(*http.Request) string) func(http.Handler) http.Handler {
	if clientID == nil {
		clientID = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			id := clientID(r)
			if !limiter.Allow(id) {
				limiter.logger.Debug("rate limited", logging.String("client", id), logging.Path(r.URL.Path))
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.config.RequestsPerSecond, 'f', -1, 64))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
