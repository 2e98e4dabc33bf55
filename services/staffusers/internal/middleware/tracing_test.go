package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"example.com/staff-users/pkg/logger"
)

func TestRequestTracing_GeneratesIDs(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)

	RequestTracing()(c)

	traceID := w.Header().Get(HeaderTraceID)
	_, err := uuid.Parse(traceID)
	assert.NoError(t, err, "trace_id должен быть валидным UUID")
	assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))

	assert.Equal(t, traceID, logger.TraceIDFromContext(c.Request.Context()))
	ctxTraceID, exists := c.Get("trace_id")
	assert.True(t, exists)
	assert.Equal(t, traceID, ctxTraceID)
}

func TestRequestTracing_UsesIncomingHeaders(t *testing.T) {
	tests := []struct {
		name        string
		headers     map[string]string
		wantTraceID string
	}{
		{
			name:        "X-Trace-ID",
			headers:     map[string]string{HeaderTraceID: "trace-1", HeaderCorrelationID: "corr-1"},
			wantTraceID: "trace-1",
		},
		{
			name:        "X-Request-ID как алиас",
			headers:     map[string]string{HeaderRequestID: "req-1", HeaderCorrelationID: "corr-1"},
			wantTraceID: "req-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			RequestTracing()(c)

			assert.Equal(t, tt.wantTraceID, w.Header().Get(HeaderTraceID))
			assert.Equal(t, "corr-1", w.Header().Get(HeaderCorrelationID))
			assert.Equal(t, "corr-1", logger.CorrelationIDFromContext(c.Request.Context()))
		})
	}
}
