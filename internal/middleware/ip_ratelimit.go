package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zimid/booking-server-go/internal/audit"
	apperrors "github.com/zimid/booking-server-go/internal/errors"
	"github.com/zimid/booking-server-go/internal/httputil"
)

type Limiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Time)
}

// KeyFunc names the caller a request is counted against.
type KeyFunc func(r *http.Request) string

// RejectFunc writes the response for a request over the limit.
type RejectFunc func(w http.ResponseWriter, r *http.Request, retryAfter int)

type IPRateLimitMiddleware struct {
	limiter Limiter
	limit   int
	window  time.Duration
	prefix  string
	key     KeyFunc
	reject  RejectFunc
	now     func() time.Time
}

func NewIPRateLimitMiddleware(limiter Limiter, limit int, window time.Duration, prefix string) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		key:     ClientIP,
		reject:  rejectJSON,
		now:     time.Now,
	}
}

// WithKey replaces the default per-address key.
func (m *IPRateLimitMiddleware) WithKey(key KeyFunc) *IPRateLimitMiddleware {
	m.key = key
	return m
}

// WithReject replaces the default 429 JSON rejection.
func (m *IPRateLimitMiddleware) WithReject(reject RejectFunc) *IPRateLimitMiddleware {
	m.reject = reject
	return m
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("%s:%s", m.prefix, m.key(r))
		allowed, resetAt := m.limiter.CheckLimit(r.Context(), key, m.limit, m.window)

		if !allowed {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				Details: map[string]interface{}{"prefix": m.prefix, "limit": m.limit},
			})
			secondsLeft := int(resetAt.Sub(m.now()).Seconds()) + 1
			if secondsLeft < 1 {
				secondsLeft = 1
			}
			m.reject(w, r, secondsLeft)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func rejectJSON(w http.ResponseWriter, r *http.Request, retryAfter int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	httputil.WriteError(w, apperrors.RateLimitExceeded())
}

// RejectUssd answers over-limit gateway callbacks with a terminal menu reply.
// The gateway only understands 200 responses.
func RejectUssd(w http.ResponseWriter, r *http.Request, retryAfter int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	writeText(w, http.StatusOK, "END Too many requests. Please try again later.")
}

func ClientIP(r *http.Request) string {
	return "ip:" + r.RemoteAddr
}

// UssdCaller keys gateway callbacks by subscriber. All subscribers arrive from
// the aggregator's address, so the address is only a fallback.
func UssdCaller(r *http.Request) string {
	if phone := strings.TrimSpace(r.PostFormValue("phoneNumber")); phone != "" {
		return "msisdn:" + phone
	}
	if id := strings.TrimSpace(r.PostFormValue("sessionId")); id != "" {
		return "session:" + id
	}
	return ClientIP(r)
}
