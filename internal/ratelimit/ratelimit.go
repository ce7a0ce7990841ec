// Package ratelimit throttles the model-backed endpoints per client IP with a
// fixed-window counter in Redis. A nil store disables limiting, and Redis
// errors let the request through.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/420btc/KinemaTV/internal/logger"
)

// Store is the counter primitive the limiter needs.
type Store interface {
	// Incr increments key and returns the new value. A key that does not
	// exist yet is created with the given lifetime in the same operation.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// TTL returns the remaining lifetime of key, zero or negative if none.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RedisStore adapts a go-redis client to Store.
type RedisStore struct {
	c *goredis.Client
}

func NewRedisStore(c *goredis.Client) *RedisStore {
	return &RedisStore{c: c}
}

// Incr runs SET NX EX and INCR in one MULTI so a counter never exists
// without an expiry.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *goredis.IntCmd
	_, err := s.c.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.c.TTL(ctx, key).Result()
}

// Limiter allows rate requests per window for each key.
type Limiter struct {
	store      Store
	rate       int
	window     time.Duration
	trustProxy bool
}

// New creates a Limiter. A nil store or a rate below 1 allows everything.
func New(store Store, rate int, window time.Duration) *Limiter {
	return &Limiter{store: store, rate: rate, window: window}
}

// TrustProxyHeaders keys requests on the forwarding headers set by a reverse
// proxy instead of the peer address. Only enable it behind such a proxy.
func (l *Limiter) TrustProxyHeaders(trust bool) *Limiter {
	if l != nil {
		l.trustProxy = trust
	}
	return l
}

func (l *Limiter) enabled() bool {
	return l != nil && l.store != nil && l.rate > 0 && l.window > 0
}

// Allow counts one request for key and reports whether it is within the
// limit, plus the seconds until the window resets when it is not.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int, error) {
	if !l.enabled() {
		return true, 0, nil
	}
	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return true, 0, err
	}
	if count <= int64(l.rate) {
		return true, 0, nil
	}

	windowSecs := int(l.window.Seconds())
	ttl, _ := l.store.TTL(ctx, key)
	retry := int(ttl.Seconds())
	if retry < 1 {
		retry = max(windowSecs, 1)
	}
	return false, retry, nil
}

// Middleware limits requests by client IP under scope. Rejected requests get
// 429 with a Retry-After header.
func (l *Limiter) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("kinema:rate:%s:%s", scope, ClientIP(r, l.trustProxy))
			ok, retry, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.FromContext(r.Context()).WithError(err).Warn("rate limit store unavailable")
			}
			if !ok {
				logger.FromContext(r.Context()).WithFields(logrus.Fields{
					"scope":       scope,
					"retry_after": retry,
				}).Info("rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address requests are keyed on. Without trustProxy it
// is the peer address. With it, the rightmost X-Forwarded-For hop (the one
// the proxy appended) wins, then X-Real-IP; client-supplied entries to the
// left are ignored.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				if hop := strings.TrimSpace(hops[i]); hop != "" {
					return hop
				}
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
