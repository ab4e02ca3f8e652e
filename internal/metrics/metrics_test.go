package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
	})

	before := testutil.ToFloat64(bookingTransitions.WithLabelValues("APPROVED"))
	IncBookingTransition("APPROVED")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingTransitions.WithLabelValues("APPROVED")))

	IncGatewayRejected("validation")
	assert.GreaterOrEqual(t, testutil.ToFloat64(rejectedRequests.WithLabelValues("validation")), float64(1))
}
