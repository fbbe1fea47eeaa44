package common

import (
	"context"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// CodeIdempotentReplay is returned when an Idempotency-Key is seen twice
// within its retention window.
const CodeIdempotentReplay = "IDEMPOTENT_REPLAY"

// Idem provides an Idempotency-Key middleware backed by Redis. Checkout,
// purchase, return and receipt creation are retried by clients after
// transient failures; the key keeps a retry from double-booking stock or
// ledger deltas.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// Middleware claims the request's Idempotency-Key before passing it on.
// Requests without the header, or deployments without Redis, pass through
// untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Idempotency-Key")
		if raw == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := "idem:" + Sha256Hex(raw)
		fresh, err := i.R.SetNX(r.Context(), key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, CodeTransient, "idempotency store unavailable", nil)
			return
		}
		if !fresh {
			JSONError(w, http.StatusConflict, CodeIdempotentReplay, "duplicate request", nil)
			return
		}
		// refresh the TTL afterwards so the key outlives a panicking handler
		defer func() {
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
