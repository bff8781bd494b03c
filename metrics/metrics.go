package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Checkout outcomes.
var (
	CheckoutCreated       = metrics.NewCounter(`paywall_checkout_sessions_total{result="created"}`)
	CheckoutInvalid       = metrics.NewCounter(`paywall_checkout_sessions_total{result="validation_error"}`)
	CheckoutMisconfigured = metrics.NewCounter(`paywall_checkout_sessions_total{result="config_error"}`)
	CheckoutProviderError = metrics.NewCounter(`paywall_checkout_sessions_total{result="provider_error"}`)
)

// Verification outcomes.
var (
	VerifyUnlocked      = metrics.NewCounter(`paywall_verifications_total{result="unlocked"}`)
	VerifyUnpaid        = metrics.NewCounter(`paywall_verifications_total{result="unpaid"}`)
	VerifyTokenMismatch = metrics.NewCounter(`paywall_verifications_total{result="token_mismatch"}`)
	VerifyInvalid       = metrics.NewCounter(`paywall_verifications_total{result="validation_error"}`)
	VerifyProviderError = metrics.NewCounter(`paywall_verifications_total{result="provider_error"}`)
)

// ProviderDuration tracks Stripe call latency per operation.
func ProviderDuration(op string) *metrics.Histogram {
	return metrics.GetOrCreateHistogram(fmt.Sprintf(`paywall_provider_request_duration_seconds{op=%q}`, op))
}

// WritePrometheus writes all registered metrics in Prometheus text format.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}

// StartPush pushes metrics to a remote collector. Empty url disables pushing.
func StartPush(url string, interval time.Duration, extraLabels string) error {
	if url == "" {
		return nil
	}
	return metrics.InitPush(url, interval, extraLabels, true)
}
