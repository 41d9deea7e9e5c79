package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmux/alertgate/internal/alert"
)

func testAlert() *alert.Alert {
	return &alert.Alert{
		Service:     "payments-api",
		Environment: "prod",
		ErrorCode:   "DB_CONN_POOL_EXHAUSTED",
		Summary:     "Database connection pool exhausted",
		Resource:    "pod-1",
	}
}

func TestEngineDedupeBeforeRateLimit(t *testing.T) {
	e := NewEngine(2*time.Minute, 30, time.Minute, 1000)

	first := e.Check(testAlert())
	assert.False(t, first.Dedupe.Suppressed)
	assert.False(t, first.RateLimit.Limited)

	second := e.Check(testAlert())
	require.True(t, second.Dedupe.Suppressed)
	assert.Equal(t, first.Dedupe.Key, second.Dedupe.Key)
}

func TestEngineDedupedAlertConsumesNoQuota(t *testing.T) {
	e := NewEngine(time.Hour, 1, time.Minute, 1000)

	// First submission takes the single rate-limit slot.
	assert.False(t, e.Check(testAlert()).RateLimit.Limited)

	// Repeats of the same fingerprint are deduped and must not touch the
	// rate-limit counter.
	for i := 0; i < 5; i++ {
		d := e.Check(testAlert())
		assert.True(t, d.Dedupe.Suppressed)
	}

	// A different resource dodges dedupe but shares the service|error_code
	// bucket: the slot taken above is still the only one consumed.
	other := testAlert()
	other.Resource = "pod-2"
	d := e.Check(other)
	assert.False(t, d.Dedupe.Suppressed)
	assert.True(t, d.RateLimit.Limited)
	assert.Equal(t, 1, e.RateLimit.Len())
}
