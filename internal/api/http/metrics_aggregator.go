package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/carfocus/internal/domain/caraudio"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/carfocus/internal/providers/webhook"
)

// SubscriberCounter reports open event stream connections
type SubscriberCounter interface {
	Count() int
}

// MetricsAggregator combines request metrics with live focus and delivery
// state for the JSON metrics endpoint.
type MetricsAggregator struct {
	metrics     *monitoring.Metrics
	service     *caraudio.Service
	subscribers SubscriberCounter
	webhooks    *webhook.Notifier
	started     time.Time
}

// NewMetricsAggregator creates an aggregator. subscribers and webhooks may be nil.
func NewMetricsAggregator(
	metrics *monitoring.Metrics,
	service *caraudio.Service,
	subscribers SubscriberCounter,
	webhooks *webhook.Notifier,
) *MetricsAggregator {
	return &MetricsAggregator{
		metrics:     metrics,
		service:     service,
		subscribers: subscribers,
		webhooks:    webhooks,
		started:     time.Now(),
	}
}

// MetricsSnapshot is the body of GET /metrics/json
type MetricsSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Summary   MetricsSummary             `json:"summary"`
	Counters  monitoring.MetricsSnapshot `json:"counters"`
	Focus     []ZoneFocusSummary         `json:"focus,omitempty"`
	Webhooks  map[string]WebhookEndpoint `json:"webhooks,omitempty"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	ErrorRate         float64 `json:"error_rate"`
	ActiveConnections int     `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
	MasterMuted       bool    `json:"master_muted"`
}

// ZoneFocusSummary counts a zone's focus entries
type ZoneFocusSummary struct {
	ZoneID  int `json:"zone_id"`
	Holders int `json:"holders"`
	Losers  int `json:"losers"`
}

// WebhookEndpoint is a registered callback and its circuit state
type WebhookEndpoint struct {
	URL     string `json:"url"`
	Circuit string `json:"circuit"`
}

// GetAggregatedMetrics returns the combined snapshot
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	counters := ma.metrics.Snapshot()

	summary := MetricsSummary{
		TotalRequests: counters.TotalRequests,
		UptimeSeconds: time.Since(ma.started).Seconds(),
		MasterMuted:   ma.service.MasterMute(),
	}
	if counters.TotalRequests > 0 {
		summary.ErrorRate = float64(counters.TotalErrors) / float64(counters.TotalRequests)
	}
	if ma.subscribers != nil {
		summary.ActiveConnections = ma.subscribers.Count()
	}

	snapshot := MetricsSnapshot{
		Timestamp: time.Now(),
		Summary:   summary,
		Counters:  counters,
	}

	// Focus state is absent in legacy mode or with car focus disabled
	if zones, err := ma.service.FocusSnapshot(); err == nil {
		for _, z := range zones {
			snapshot.Focus = append(snapshot.Focus, ZoneFocusSummary{
				ZoneID:  z.ZoneID,
				Holders: len(z.Holders),
				Losers:  len(z.Losers),
			})
		}
	}

	if ma.webhooks != nil {
		endpoints := ma.webhooks.Endpoints()
		snapshot.Webhooks = make(map[string]WebhookEndpoint, len(endpoints))
		for clientID, target := range endpoints {
			snapshot.Webhooks[clientID] = WebhookEndpoint{
				URL:     target,
				Circuit: ma.webhooks.BreakerState(target).String(),
			}
		}
	}

	c.JSON(http.StatusOK, snapshot)
}
