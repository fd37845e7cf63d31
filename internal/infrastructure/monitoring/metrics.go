package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Focus metrics
	FocusRequests  *prometheus.CounterVec
	FocusAbandons  *prometheus.CounterVec
	FocusChanges   *prometheus.CounterVec
	FocusHolders   *prometheus.GaugeVec
	FocusLosers    *prometheus.GaugeVec
	ZoneTransfers  *prometheus.CounterVec
	EvaluationTime *prometheus.HistogramVec

	// Volume metrics
	VolumeChanges *prometheus.CounterVec
	MasterMuted   prometheus.Gauge

	// Event delivery metrics
	WSConnections   prometheus.Gauge
	WSMessages      *prometheus.CounterVec
	WebhookDelivery *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for the JSON API
type MetricsSnapshot struct {
	TotalRequests  int64 `json:"total_requests"`
	TotalErrors    int64 `json:"total_errors"`
	FocusGranted   int64 `json:"focus_granted"`
	FocusFailed    int64 `json:"focus_failed"`
	DispatchFailed int64 `json:"dispatch_failed"`
}

// NewMetrics creates a new metrics collector registered with reg. A nil reg
// uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{startTime: time.Now()}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carfocus_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carfocus_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	m.FocusRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carfocus_focus_requests_total",
			Help: "Focus requests evaluated, by zone and result",
		},
		[]string{"zone", "context", "result"},
	)
	m.FocusAbandons = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carfocus_focus_abandons_total",
			Help: "Focus abandons, by zone and whether the client was known",
		},
		[]string{"zone", "known"},
	)
	m.FocusChanges = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carfocus_focus_changes_total",
			Help: "Focus change events dispatched to clients",
		},
		[]string{"zone", "event", "delivery"},
	)
	m.FocusHolders = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carfocus_focus_holders",
			Help: "Current focus holders per zone",
		},
		[]string{"zone"},
	)
	m.FocusLosers = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carfocus_focus_losers",
			Help: "Current transient focus losers per zone",
		},
		[]string{"zone"},
	)
	m.ZoneTransfers = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carfocus_zone_transfers_total",
			Help: "UID zone remaps, by outcome",
		},
		[]string{"outcome"},
	)
	m.EvaluationTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carfocus_focus_evaluation_seconds",
			Help:    "Time spent evaluating one focus request",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
		[]string{"zone"},
	)

	m.VolumeChanges = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carfocus_volume_changes_total",
			Help: "Group volume changes",
		},
		[]string{"zone", "group"},
	)
	m.MasterMuted = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "carfocus_master_muted",
			Help: "1 when master mute is on",
		},
	)

	m.WSConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "carfocus_ws_connections",
			Help: "Number of active WebSocket subscribers",
		},
	)
	m.WSMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carfocus_ws_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction", "type"},
	)
	m.WebhookDelivery = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carfocus_webhook_deliveries_total",
			Help: "Webhook focus event deliveries, by outcome",
		},
		[]string{"outcome"},
	)

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "carfocus_uptime_seconds",
			Help: "Broker uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordFocusRequest records the outcome of one focus evaluation
func (m *Metrics) RecordFocusRequest(zoneID int, context, result string, duration time.Duration) {
	zone := strconv.Itoa(zoneID)
	m.FocusRequests.WithLabelValues(zone, context, result).Inc()
	m.EvaluationTime.WithLabelValues(zone).Observe(duration.Seconds())

	m.mu.Lock()
	if result == "granted" {
		m.snapshot.FocusGranted++
	} else {
		m.snapshot.FocusFailed++
	}
	m.mu.Unlock()
}

// RecordFocusAbandon records an abandon
func (m *Metrics) RecordFocusAbandon(zoneID int, known bool) {
	m.FocusAbandons.WithLabelValues(strconv.Itoa(zoneID), strconv.FormatBool(known)).Inc()
}

// RecordFocusChange records one dispatched gain or loss
func (m *Metrics) RecordFocusChange(zoneID int, event, delivery string) {
	m.FocusChanges.WithLabelValues(strconv.Itoa(zoneID), event, delivery).Inc()
	if delivery != "granted" {
		m.mu.Lock()
		m.snapshot.DispatchFailed++
		m.mu.Unlock()
	}
}

// SetFocusState publishes holder and loser counts for a zone
func (m *Metrics) SetFocusState(zoneID, holders, losers int) {
	zone := strconv.Itoa(zoneID)
	m.FocusHolders.WithLabelValues(zone).Set(float64(holders))
	m.FocusLosers.WithLabelValues(zone).Set(float64(losers))
}

// RecordZoneTransfer records a uid remap
func (m *Metrics) RecordZoneTransfer(outcome string) {
	m.ZoneTransfers.WithLabelValues(outcome).Inc()
}

// RecordVolumeChange records a group volume change
func (m *Metrics) RecordVolumeChange(zoneID, groupID int) {
	m.VolumeChanges.WithLabelValues(strconv.Itoa(zoneID), strconv.Itoa(groupID)).Inc()
}

// SetMasterMuted publishes the master mute state
func (m *Metrics) SetMasterMuted(muted bool) {
	if muted {
		m.MasterMuted.Set(1)
		return
	}
	m.MasterMuted.Set(0)
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// RecordWebhookDelivery records a webhook delivery outcome
func (m *Metrics) RecordWebhookDelivery(outcome string) {
	m.WebhookDelivery.WithLabelValues(outcome).Inc()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
