package observability_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics("")
	ed := dotmap.New(dotmap.WithLifecycleHooks(m.Hooks()), dotmap.WithHistoryLimit(2))

	ed.Click(10, 10)
	ed.Click(100, 100) // evicts the empty canvas
	ed.Undo()
	ed.Redo()
	ed.SetMode(domain.ModeConnect)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commits.WithLabelValues(string(domain.ActionPlaceDot))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commits.WithLabelValues(string(domain.ActionDeselect))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Undos))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Redos))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModeChanges.WithLabelValues("connect")))
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := observability.NewMetrics("test")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/sessions/{id}", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_http_requests_total"))
}
