package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	setGlobal(&Telemetry{provider: tp, tracer: tp.Tracer("test")})
	t.Cleanup(func() { setGlobal(nil) })
	return sr
}

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, tel)
	assert.NoError(t, Shutdown(context.Background()))

	_, err = Init(context.Background(), nil)
	assert.NoError(t, err)
}

func TestStartSpan_Uninitialised(t *testing.T) {
	setGlobal(nil)
	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	assert.Equal(t, "", GetTraceID(ctx))
}

func TestRecordError(t *testing.T) {
	sr := withRecorder(t)

	_, span := StartSpan(context.Background(), "op")
	RecordError(span, errors.New("boom"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracingMiddleware_SetsTraceHeader(t *testing.T) {
	sr := withRecorder(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(TracingMiddleware("storefront"))
	r.GET("/items/:id", func(c *gin.Context) {
		assert.NotEmpty(t, GetTraceID(c.Request.Context()))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /items/:id", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
