package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/carfocus/internal/shared/id"
)

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer := New("test", zaptest.NewLogger(t))
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "root")
	assert.True(t, strings.HasPrefix(root.TraceID.String(), id.TracePrefix+"_"))
	assert.Empty(t, root.ParentID)

	child, ctx := tracer.StartSpan(ctx, "child")
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Equal(t, child.SpanID, GetSpanID(ctx))
}

func TestInjectExtract(t *testing.T) {
	tracer := New("test", zaptest.NewLogger(t))
	defer tracer.Close()

	span, ctx := tracer.StartSpan(context.Background(), "deliver")
	header := make(http.Header)
	Inject(ctx, header)
	assert.Equal(t, span.TraceID.String(), header.Get(TraceHeader))

	remote := Extract(context.Background(), header)
	assert.Equal(t, span.TraceID, GetTraceID(remote))
	assert.Equal(t, span.SpanID, GetSpanID(remote))

	empty := make(http.Header)
	Inject(context.Background(), empty)
	assert.Empty(t, empty)
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("test", zaptest.NewLogger(t))
	defer tracer.Close()

	var seen id.TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/focus", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/focus", nil)
	req.Header.Set(TraceHeader, "trace_upstream")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.TraceID("trace_upstream"), seen)
	assert.Equal(t, "trace_upstream", w.Header().Get(TraceHeader))
	assert.NotEmpty(t, w.Header().Get(SpanHeader))
}

func TestSubmitAfterClose(t *testing.T) {
	tracer := New("test", zaptest.NewLogger(t))
	tracer.Close()
	tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "late")
	span.Finish()
	tracer.Submit(span)
}
