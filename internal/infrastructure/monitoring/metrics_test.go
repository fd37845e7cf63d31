package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFocusMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordFocusRequest(0, "music", "granted", time.Millisecond)
	m.RecordFocusRequest(0, "notification", "failed", time.Millisecond)
	m.RecordFocusChange(1, "LOSS_TRANSIENT", "granted")
	m.RecordFocusChange(1, "GAIN", "failed")
	m.SetFocusState(1, 2, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FocusRequests.WithLabelValues("0", "music", "granted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FocusHolders.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FocusLosers.WithLabelValues("1")))

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.FocusGranted)
	assert.Equal(t, int64(1), snap.FocusFailed)
	assert.Equal(t, int64(1), snap.DispatchFailed)
}

func TestVolumeMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordVolumeChange(0, 2)
	m.SetMasterMuted(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VolumeChanges.WithLabelValues("0", "2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MasterMuted))

	m.SetMasterMuted(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MasterMuted))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/zones/:zone", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/zones/7", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/zones/:zone", "404")))
	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
}
