package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	r := NewRegistry()

	r.ObserveRequest("GET", "/dashboard", 200, 15*time.Millisecond)
	r.ObserveRequest("GET", "/dashboard", 200, 5*time.Millisecond)
	r.ObserveRequest("POST", "/login", 401, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.RequestsTotal.WithLabelValues("GET", "/dashboard", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RequestsTotal.WithLabelValues("POST", "/login", "401")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.SessionsCreated.Inc()
	r.AuthAttempts.WithLabelValues(OutcomeFailure).Inc()
	r.ExpenseOperations.WithLabelValues(OpCreate).Inc()

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "sessions_created_total 1")
	assert.Contains(t, body, `auth_attempts_total{outcome="failure"} 1`)
	assert.Contains(t, body, `expense_operations_total{operation="create"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.SessionsRevoked.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SessionsRevoked))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsRevoked))
}

func TestGathererCollectsDomainMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveRequest("GET", "/dashboard", 200, 10*time.Millisecond)
	r.ExpenseOperations.WithLabelValues(OpDelete).Inc()

	count, err := testutil.GatherAndCount(r.Gatherer(), "http_request_duration_seconds", "expense_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP expense_operations_total Successful expense mutations by operation
# TYPE expense_operations_total counter
expense_operations_total{operation="delete"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "expense_operations_total"))
}
