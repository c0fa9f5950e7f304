package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryExposesCollectors(t *testing.T) {
	r := New()
	r.TransactionsStarted.WithLabelValues("helloCurrentUser").Inc()
	r.TransactionsCompleted.WithLabelValues("helloCurrentUser", "SUCCESS").Inc()
	r.Reconnects.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "hostsdk_transactions_started_total")
	assert.Contains(t, body, "hostsdk_reconnects_total")
}
