package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/upb/contact-directory/services"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ThrottleConfig holds configuration for the login throttle
type ThrottleConfig struct {
	// PerMinute is the sustained number of attempts allowed per client
	PerMinute int
	// Burst is the maximum number of attempts allowed at once
	Burst int
	// IdleTTL is how long an unused client entry is kept
	IdleTTL time.Duration
}

// clientLimiter tracks a per-client rate limiter and when it was last seen
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle enforces a per-client token bucket
type Throttle struct {
	cfg    ThrottleConfig
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

// NewThrottle creates a throttle. A non-positive PerMinute disables it.
func NewThrottle(cfg ThrottleConfig, logger *zap.Logger) *Throttle {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &Throttle{
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether key may make another attempt now, and if not how long to wait
func (t *Throttle) Allow(key string) (bool, time.Duration) {
	if t.cfg.PerMinute <= 0 {
		return true, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	cl, ok := t.clients[key]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(t.cfg.PerMinute)/60), t.cfg.Burst),
		}
		t.clients[key] = cl
	}
	cl.lastSeen = now

	reservation := cl.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops idle clients; callers hold mu
func (t *Throttle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.cfg.IdleTTL {
		return
	}
	for key, cl := range t.clients {
		if now.Sub(cl.lastSeen) > t.cfg.IdleTTL {
			delete(t.clients, key)
		}
	}
	t.lastSweep = now
}

// Middleware rejects requests over the limit with 429
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		ok, delay := t.Allow(ip)
		if !ok {
			retryAfter := int(delay.Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			t.logger.Warn("login throttled",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("client_ip", ip),
				zap.Int("retry_after_seconds", retryAfter))
			_ = utils.WriteTooManyRequests(w, services.ErrTooManyAttempts.Message,
				map[string]interface{}{"retry_after_seconds": retryAfter})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the client IP address from the request, stripping the port.
// Only RemoteAddr is used; forwarding headers are client-controlled.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
