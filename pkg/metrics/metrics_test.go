package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Readyz(t *testing.T) {
	tests := []struct {
		name       string
		checker    ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{
			name:       "без проверки",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "зависимости доступны",
			checker:    func(context.Context) error { return nil },
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "зависимость недоступна",
			checker:    func(context.Context) error { return errors.New("postgres ping: refused") },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"not_ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.checker != nil {
				opts = append(opts, WithReadinessCheck(tt.checker))
			}
			srv := NewServer(":0", "staff-users", opts...)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	srv := NewServer(":0", "staff-users")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	RecordBusMessage(OutcomePublished, time.Millisecond)

	srv := NewServer(":0", "staff-users")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bus_messages_total")
}

func TestRecordBusMessage(t *testing.T) {
	before := testutil.ToFloat64(BusMessagesTotal.WithLabelValues(OutcomeRetry))

	RecordBusMessage(OutcomeRetry, 10*time.Millisecond)
	RecordBusMessage(OutcomeRetry, 10*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(BusMessagesTotal.WithLabelValues(OutcomeRetry)))
}

func TestRecordPublish(t *testing.T) {
	okBefore := testutil.ToFloat64(BusPublishTotal.WithLabelValues("success"))
	errBefore := testutil.ToFloat64(BusPublishTotal.WithLabelValues("error"))

	RecordPublish(nil)
	RecordPublish(errors.New("timeout"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(BusPublishTotal.WithLabelValues("success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(BusPublishTotal.WithLabelValues("error")))
}

func TestRecordConsumerLag(t *testing.T) {
	RecordConsumerLag(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(BusConsumerLag))

	RecordConsumerLag(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(BusConsumerLag))
}

func TestGinMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(GinMetricsMiddleware("staff-users-test"))
	router.GET("/api/v1/users", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	counter := RequestsTotal.WithLabelValues("staff-users-test", "/api/v1/users", "error")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
