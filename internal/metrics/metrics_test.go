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
		IncGRPC("/sunolegal.catalog.v1.CatalogService/ListLawyers", "OK")
	})
}

func TestBookingTransitionLabels(t *testing.T) {
	before := testutil.ToFloat64(bookingTransitions.WithLabelValues("new", "confirmed"))
	IncBookingTransition("", "confirmed")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingTransitions.WithLabelValues("new", "confirmed")))

	before = testutil.ToFloat64(bookingTransitions.WithLabelValues("confirmed", "completed"))
	IncBookingTransition("confirmed", "completed")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingTransitions.WithLabelValues("confirmed", "completed")))
}

func TestChatAndSyncCounters(t *testing.T) {
	before := testutil.ToFloat64(chatMessages.WithLabelValues("fallback"))
	IncChat("fallback")
	assert.Equal(t, before+1, testutil.ToFloat64(chatMessages.WithLabelValues("fallback")))

	before = testutil.ToFloat64(syncTasks.WithLabelValues("completed"))
	IncSync("completed")
	IncSync("completed")
	assert.Equal(t, before+2, testutil.ToFloat64(syncTasks.WithLabelValues("completed")))
}
