package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	h := Observe("/api/test/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/test/{id}", "404"))
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/test/1", nil))
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/test/2", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/test/{id}", "404"))

	require.Equal(t, 2.0, after-before)
	require.Zero(t, testutil.ToFloat64(HTTPRequestsInFlight))
}

func TestHandler(t *testing.T) {
	OperationErrors.WithLabelValues("register", "conflict").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `sxodim_operation_errors_total{kind="conflict",operation="register"}`))
}
