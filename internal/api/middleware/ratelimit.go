package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/folio/folio/internal/service"
)

// Limiter counts requests against an organization's limits
type Limiter interface {
	CheckAndIncrement(ctx context.Context, orgID uuid.UUID) (*service.RateLimitResult, error)
}

// RateLimitMiddleware provides rate limiting middleware
type RateLimitMiddleware struct {
	limiter Limiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// RateLimit checks and enforces rate limits
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org := GetOrganization(r.Context())
		if org == nil {
			// unauthenticated requests are rejected by Authenticate
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.limiter.CheckAndIncrement(r.Context(), org.ID)
		if err != nil {
			// a Redis outage must not stop issuance
			RequestLogger(r.Context()).Warn().Err(err).Str("organization_id", org.ID.String()).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Daily-Limit", strconv.Itoa(result.DailyLimit))
		w.Header().Set("X-RateLimit-Daily-Used", strconv.Itoa(result.DailyUsed))
		w.Header().Set("X-RateLimit-Monthly-Limit", strconv.Itoa(result.MonthlyLimit))
		w.Header().Set("X-RateLimit-Monthly-Used", strconv.Itoa(result.MonthlyUsed))

		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfterSecs))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
