package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWritePrometheus_IncludesCounters(t *testing.T) {
	before := CheckoutCreated.Get()
	CheckoutCreated.Inc()
	assert.Equal(t, before+1, CheckoutCreated.Get())

	ProviderDuration("create_session").UpdateDuration(time.Now().Add(-50 * time.Millisecond))

	var buf bytes.Buffer
	WritePrometheus(&buf)

	out := buf.String()
	assert.Contains(t, out, `paywall_checkout_sessions_total{result="created"}`)
	assert.Contains(t, out, `paywall_verifications_total{result="unlocked"}`)
	assert.Contains(t, out, `paywall_provider_request_duration_seconds_bucket{op="create_session"`)
}

func TestStartPush_EmptyURLIsNoop(t *testing.T) {
	assert.NoError(t, StartPush("", time.Second, ""))
}
