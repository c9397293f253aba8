package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Independent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.MessagesSent.Inc()
	a.AppointmentTransitions.WithLabelValues("approved").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.MessagesSent))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.MessagesSent))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.AppointmentTransitions.WithLabelValues("approved")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.QueueUpdates.Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "clinic_booking_queue_updates_total 1")
}
