package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/platform/metrics"
	"docverify/pkg/requestcontext"
	tu "docverify/pkg/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	tu.Given(t, "a caller supplied request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rr := tu.DoRequest(h, req)

		tu.Then(t, "it is propagated", func(t *testing.T) {
			assert.Equal(t, "req-123", seen)
		})
		tu.And(t, "echoed in the response", func(t *testing.T) {
			assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))
		})
	})

	tu.Given(t, "no request id", func(t *testing.T) {
		rr := tu.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))

		tu.Then(t, "one is generated", func(t *testing.T) {
			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
		})
	})
}

func TestRequestTime(t *testing.T) {
	var first, second time.Time
	h := RequestTime(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		time.Sleep(2 * time.Millisecond)
		second = requestcontext.Now(r.Context())
	}))
	tu.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, first.IsZero())
	assert.Equal(t, first, second, "every read in a request sees the same time")
}

func TestRecovery(t *testing.T) {
	h := Recovery(discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := tu.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	tu.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
}

func TestLatencyUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Latency(m), Logger(discard()))
	r.Get("/v1/scans/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rr := tu.DoRequest(r, httptest.NewRequest(http.MethodGet, "/v1/scans/abc", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/v1/scans/{id}", "202")))
}
