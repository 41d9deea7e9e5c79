// Package policy implements the in-memory noise-suppression stores: a
// first-occurrence dedupe window and a fixed-window rate limiter. Both are
// bounded in key count and safe for concurrent use; suppression is
// best-effort under capacity pressure.
package policy

import (
	"time"

	"github.com/opsmux/alertgate/internal/alert"
	"github.com/opsmux/alertgate/internal/metrics"
)

// Engine bundles the two stores and applies them in order: an alert
// suppressed by dedupe never consumes rate-limit quota.
type Engine struct {
	Dedupe    *DedupeStore
	RateLimit *RateLimitStore
}

// NewEngine builds both stores from the configured windows and capacity.
func NewEngine(dedupeWindow time.Duration, rateMax int, rateWindow time.Duration, maxKeys int) *Engine {
	return &Engine{
		Dedupe:    NewDedupeStore(dedupeWindow, maxKeys),
		RateLimit: NewRateLimitStore(rateMax, rateWindow, maxKeys),
	}
}

// Decision is the policy verdict for one alert.
type Decision struct {
	Dedupe    DedupeResult
	RateLimit RateLimitResult
}

// Check runs the alert through dedupe and then, only if it was not deduped,
// through the rate limiter.
func (e *Engine) Check(a *alert.Alert) Decision {
	d := Decision{Dedupe: e.Dedupe.CheckAndRecord(a.DedupeKey())}
	if d.Dedupe.Suppressed {
		metrics.PolicySuppressions.WithLabelValues("deduped").Inc()
		return d
	}
	d.RateLimit = e.RateLimit.CheckAndRecord(a.RateLimitKey())
	if d.RateLimit.Limited {
		metrics.PolicySuppressions.WithLabelValues("rate_limited").Inc()
	}
	metrics.DedupeStoreSize.Set(float64(e.Dedupe.Len()))
	metrics.RateLimitStoreSize.Set(float64(e.RateLimit.Len()))
	return d
}
