package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ecoroute/ecoroute/internal/api/models"
)

// RateLimitConfig is a fixed request budget per client IP and window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

func (c RateLimitConfig) String() string {
	return fmt.Sprintf("%d/%s", c.RequestLimit, c.WindowLength)
}

// RateLimits groups the budgets for each endpoint class.
type RateLimits struct {
	// Plan covers trip planning, which may geocode up to two places.
	Plan RateLimitConfig
	// Proxy covers the geocode and weather proxies.
	Proxy RateLimitConfig
	// Assistant covers LLM completions, which are slow and metered.
	Assistant RateLimitConfig
}

// DefaultRateLimits returns 30/min for planning, 100/min for the proxies and
// 10/min for the assistant.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Plan:      RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute},
		Proxy:     RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute},
		Assistant: RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute},
	}
}

// WithDefaults fills every unset budget from DefaultRateLimits.
func (l RateLimits) WithDefaults() RateLimits {
	d := DefaultRateLimits()
	if l.Plan.RequestLimit <= 0 {
		l.Plan = d.Plan
	}
	if l.Proxy.RequestLimit <= 0 {
		l.Proxy = d.Proxy
	}
	if l.Assistant.RequestLimit <= 0 {
		l.Assistant = d.Assistant
	}
	return l
}

// ParseRateLimit reads a budget written as "<requests>/<window>", for
// example "30/1m" or "5/10s". A bare count means per minute.
func ParseRateLimit(s string) (RateLimitConfig, error) {
	count, window, found := strings.Cut(strings.TrimSpace(s), "/")

	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count in rate limit %q", s)
	}

	cfg := RateLimitConfig{RequestLimit: n, WindowLength: time.Minute}
	if found {
		d, err := time.ParseDuration(window)
		if err != nil || d <= 0 {
			return RateLimitConfig{}, fmt.Errorf("invalid window in rate limit %q", s)
		}
		cfg.WindowLength = d
	}
	return cfg, nil
}

// RateLimitByIP limits requests per client IP. Run it after chi's RealIP so
// proxied clients are told apart.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler(cfg.WindowLength)),
	)
}

// rateLimitExceededHandler writes a 429 problem. Retry-After comes from the
// reset time httprate puts on the response, or the full window without one.
func rateLimitExceededHandler(window time.Duration) http.HandlerFunc {
	fallback := int(window.Seconds())
	return func(w http.ResponseWriter, r *http.Request) {
		retryAfter := fallback
		if reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64); err == nil {
			if secs := int(time.Until(time.Unix(reset, 0)).Seconds()); secs > 0 && secs < fallback {
				retryAfter = secs
			}
		}

		problem := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
		problem.Instance = r.URL.Path

		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		problem.Write(w)
	}
}
