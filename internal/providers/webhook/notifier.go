package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/carfocus/internal/shared/id"
)

var (
	// ErrInvalidURL is returned when registering a non-http(s) callback
	ErrInvalidURL = errors.New("webhook url must be absolute http or https")
	// ErrAlreadyRunning is returned by Run when called twice
	ErrAlreadyRunning = errors.New("webhook notifier already running")
)

const (
	EventFocusChange   = "focus_change"
	EventRequestResult = "request_result"
)

// Event is the JSON body posted to a client's callback
type Event struct {
	ID          id.EventID `json:"id"`
	Type        string     `json:"type"`
	ClientID    string     `json:"client_id"`
	UID         int        `json:"uid"`
	PackageName string     `json:"package_name"`
	Usage       string     `json:"usage"`
	Change      string     `json:"change,omitempty"`
	Result      string     `json:"result,omitempty"`
	Timestamp   int64      `json:"timestamp"`
}

// Config tunes delivery
type Config struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryWait         time.Duration
	RequestsPerSecond float64
	QueueSize         int
	Workers           int
}

// DefaultConfig returns delivery settings suited to a head unit LAN
func DefaultConfig() Config {
	return Config{
		Timeout:           5 * time.Second,
		MaxRetries:        2,
		RetryWait:         200 * time.Millisecond,
		RequestsPerSecond: 50,
		QueueSize:         1024,
		Workers:           4,
	}
}

type delivery struct {
	url   string
	event Event
}

// Notifier posts focus events to per-client callback URLs. It implements
// focus.Dispatcher: dispatch only enqueues, so it is safe under arbitration
// locks. Events queue up until Run starts the workers.
type Notifier struct {
	resty   *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *monitoring.Metrics
	cfg     Config
	queue   chan delivery

	mu        sync.RWMutex
	endpoints map[string]string              // client id -> url; Protected by mu
	breakers  map[string]*resilience.Breaker // url -> breaker; Protected by mu
	running   bool                           // Protected by mu
}

// New creates a notifier. metrics may be nil.
func New(cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Notifier {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = def.RetryWait
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Retries are resty's; only the pooled transport comes from retryablehttp
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(4*cfg.RetryWait).
		SetHeader("User-Agent", "carfocus-webhook/1.0").
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	limit := rate.Inf
	burst := 0
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return &Notifier{
		resty:     restyClient,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger.Named("webhook"),
		metrics:   metrics,
		cfg:       cfg,
		queue:     make(chan delivery, cfg.QueueSize),
		endpoints: make(map[string]string),
		breakers:  make(map[string]*resilience.Breaker),
	}
}

// Register sets the callback URL for clientID, replacing any previous one
func (n *Notifier) Register(clientID, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.endpoints[clientID] = u.String()
	n.logger.Info("Webhook registered", zap.String("client_id", clientID), zap.String("url", u.String()))
	return nil
}

// Unregister drops clientID's callback, reporting whether one existed
func (n *Notifier) Unregister(clientID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.endpoints[clientID]; !ok {
		return false
	}
	delete(n.endpoints, clientID)
	n.logger.Info("Webhook unregistered", zap.String("client_id", clientID))
	return true
}

// Endpoints returns a copy of the client id to URL table
func (n *Notifier) Endpoints() map[string]string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]string, len(n.endpoints))
	for k, v := range n.endpoints {
		out[k] = v
	}
	return out
}

// ClientIDs lists clients with a callback, sorted
func (n *Notifier) ClientIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.endpoints))
	for k := range n.endpoints {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DispatchFocusChange implements focus.Dispatcher. It reports granted when
// the event was queued for a registered client.
func (n *Notifier) DispatchFocusChange(info audio.FocusInfo, change audio.FocusChange) audio.RequestResult {
	ev := newEvent(EventFocusChange, info)
	ev.Change = change.String()
	if n.enqueue(info.ClientID, ev) {
		return audio.RequestGranted
	}
	return audio.RequestFailed
}

// SetFocusRequestResult implements focus.Dispatcher
func (n *Notifier) SetFocusRequestResult(info audio.FocusInfo, result audio.RequestResult) {
	ev := newEvent(EventRequestResult, info)
	ev.Result = result.String()
	n.enqueue(info.ClientID, ev)
}

func newEvent(kind string, info audio.FocusInfo) Event {
	return Event{
		ID:          id.NewEventID(),
		Type:        kind,
		ClientID:    info.ClientID,
		UID:         info.ClientUID,
		PackageName: info.PackageName,
		Usage:       info.Attributes.Usage.String(),
		Timestamp:   time.Now().UnixMilli(),
	}
}

func (n *Notifier) enqueue(clientID string, ev Event) bool {
	n.mu.RLock()
	target, ok := n.endpoints[clientID]
	n.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case n.queue <- delivery{url: target, event: ev}:
		return true
	default:
		n.logger.Warn("Webhook queue full, dropping event",
			zap.String("client_id", clientID),
			zap.String("type", ev.Type),
		)
		n.record("dropped")
		return false
	}
}

// Run delivers queued events until ctx is done. Events still queued when ctx
// ends are dropped.
func (n *Notifier) Run(ctx context.Context) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return ErrAlreadyRunning
	}
	n.running = true
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.running = false
		n.mu.Unlock()
	}()

	n.logger.Info("Webhook notifier started", zap.Int("workers", n.cfg.Workers))
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n.cfg.Workers; i++ {
		g.Go(func() error {
			n.worker(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (n *Notifier) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-n.queue:
			n.deliver(ctx, d)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, d delivery) {
	log := n.logger.With(
		zap.String("event_id", d.event.ID.String()),
		zap.String("client_id", d.event.ClientID),
		zap.String("url", d.url),
	)

	if err := n.limiter.Wait(ctx); err != nil {
		n.record("dropped")
		return
	}

	body, err := sonic.Marshal(d.event)
	if err != nil {
		log.Error("Failed to encode webhook event", zap.Error(err))
		n.record("error")
		return
	}

	err = n.breakerFor(d.url).Do(ctx, func(ctx context.Context) error {
		resp, err := n.resty.R().
			SetContext(ctx).
			SetHeader("X-Carfocus-Event", d.event.Type).
			SetHeader("X-Carfocus-Event-ID", d.event.ID.String()).
			SetBody(body).
			Post(d.url)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("webhook returned %s", resp.Status())
		}
		return nil
	})

	switch {
	case err == nil:
		log.Debug("Webhook delivered", zap.String("type", d.event.Type))
		n.record("ok")
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		log.Warn("Webhook endpoint unavailable, dropping event", zap.Error(err))
		n.record("circuit_open")
	case ctx.Err() != nil:
		n.record("dropped")
	default:
		log.Warn("Webhook delivery failed", zap.Error(err))
		n.record("error")
	}
}

func (n *Notifier) breakerFor(target string) *resilience.Breaker {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.breakers[target]
	if !ok {
		b = resilience.New("webhook:"+target, resilience.Settings{
			MaxRequests: 1,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to resilience.State) {
				n.logger.Info("Webhook circuit state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
		n.breakers[target] = b
	}
	return b
}

// BreakerState reports the circuit state for a callback URL
func (n *Notifier) BreakerState(target string) resilience.State {
	n.mu.RLock()
	b, ok := n.breakers[target]
	n.mu.RUnlock()
	if !ok {
		return resilience.StateClosed
	}
	return b.State()
}

func (n *Notifier) record(outcome string) {
	if n.metrics != nil {
		n.metrics.RecordWebhookDelivery(outcome)
	}
}
