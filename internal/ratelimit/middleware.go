package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// New builds a sliding rate limiter backed by Redis. Counters survive a
// process restart, so a crash-looping instance cannot reset its own budget.
func New(rdb *redis.Client, perMinute int64) (*limiter.Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "kasir:ratelimit",
	})
	if err != nil {
		return nil, err
	}
	rate := limiter.Rate{Period: time.Minute, Limit: perMinute}
	return limiter.New(store, rate), nil
}

// Middleware enforces the limit per client key. Limiter errors fail open;
// throttling is protection, not a dependency.
func Middleware(lim *limiter.Limiter, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if lim == nil {
				next.ServeHTTP(w, r)
				return
			}
			lctx, err := lim.Get(r.Context(), clientKey(r))
			if err != nil {
				log.Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			headers := w.Header()
			headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				retryAfter := lctx.Reset - time.Now().Unix()
				if retryAfter < 0 {
					retryAfter = 0
				}
				headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey prefers the authenticated user so a busy shop behind one NAT
// address is not throttled as a single client.
func clientKey(r *http.Request) string {
	if id, ok := common.UserID(r.Context()); ok && id != "" {
		return "user:" + id
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return fwd
	}
	host := r.RemoteAddr
	if colon := strings.LastIndex(host, ":"); colon >= 0 {
		return host[:colon]
	}
	return host
}
