package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ize202/slipshark/pkg/config"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// apiKeyFrom returns the authenticated API key for a request, if any.
func apiKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyContextKey).(string)
	return key
}

// requestLogger logs one line per request with status and timing.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

// authenticate checks the API key on every non-public endpoint. With no keys
// configured the service is open; the key still flows through for
// accounting.
func authenticate(apiKeys []string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(apiKeys))
	for _, k := range apiKeys {
		allowed[k] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if len(allowed) > 0 {
				if key == "" {
					writeError(w, http.StatusUnauthorized, "missing API key")
					return
				}
				if !allowed[key] {
					writeError(w, http.StatusUnauthorized, "invalid API key")
					return
				}
			}
			ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

// rateLimiter applies a per-key token bucket. Unauthenticated requests share
// one bucket keyed by the empty string.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cfg      config.RateLimitConfig
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		cfg:      cfg,
	}
}

func (rl *rateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[key]
	if !ok {
		perSecond := rate.Limit(float64(rl.cfg.RequestsPerMinute) / 60.0)
		l = rate.NewLimiter(perSecond, rl.cfg.Burst)
		rl.limiters[key] = l
	}
	return l
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiterFor(apiKeyFrom(r.Context())).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
