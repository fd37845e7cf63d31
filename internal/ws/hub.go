package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/domain/caraudio"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/monitoring"
)

// Server to client message types
const (
	TypeWelcome        = "welcome"
	TypeFocusChange    = "focus_change"
	TypeRequestResult  = "request_result"
	TypeVolumeChanged  = "group_volume_changed"
	TypeMasterMute     = "master_mute_changed"
	TypePong           = "pong"
	TypeError          = "error"
	defaultSendBacklog = 64
)

// Message is a server to client frame
type Message struct {
	Type        string `json:"type"`
	Subscriber  string `json:"subscriber,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	UID         int    `json:"uid,omitempty"`
	PackageName string `json:"package_name,omitempty"`
	Change      string `json:"change,omitempty"`
	Result      string `json:"result,omitempty"`
	ZoneID      *int   `json:"zone_id,omitempty"`
	GroupID     *int   `json:"group_id,omitempty"`
	Flags       int    `json:"flags,omitempty"`
	Message     string `json:"message,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// subscriber is one open connection. clientID filters focus events; empty
// means the subscriber only receives volume broadcasts.
type subscriber struct {
	id       string
	clientID string
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans focus and volume events out to WebSocket subscribers. It implements
// focus.Dispatcher and caraudio.VolumeListener; neither blocks, a subscriber
// whose backlog is full misses the event.
type Hub struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics
	backlog int

	mu   sync.RWMutex
	subs map[string]*subscriber // Protected by mu
}

var _ caraudio.VolumeListener = (*Hub)(nil)

// NewHub creates an empty hub. metrics may be nil.
func NewHub(logger *zap.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger.Named("ws"),
		metrics: metrics,
		backlog: defaultSendBacklog,
		subs:    make(map[string]*subscriber),
	}
}

func (h *Hub) subscribe(clientID string) *subscriber {
	s := &subscriber{
		id:       uuid.NewString(),
		clientID: clientID,
		send:     make(chan []byte, h.backlog),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Info("Subscriber connected", zap.String("subscriber", s.id), zap.String("client_id", clientID))
	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s.id]
	delete(h.subs, s.id)
	h.mu.Unlock()
	s.close()

	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.logger.Info("Subscriber disconnected", zap.String("subscriber", s.id))
}

// Count returns the number of open subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
	}
}

// DispatchFocusChange implements focus.Dispatcher. Delivery counts as
// granted when at least one subscriber of the client took the event.
func (h *Hub) DispatchFocusChange(info audio.FocusInfo, change audio.FocusChange) audio.RequestResult {
	msg := focusMessage(TypeFocusChange, info)
	msg.Change = change.String()
	if h.publish(msg, info.ClientID) > 0 {
		return audio.RequestGranted
	}
	return audio.RequestFailed
}

// SetFocusRequestResult implements focus.Dispatcher
func (h *Hub) SetFocusRequestResult(info audio.FocusInfo, result audio.RequestResult) {
	msg := focusMessage(TypeRequestResult, info)
	msg.Result = result.String()
	h.publish(msg, info.ClientID)
}

// OnGroupVolumeChanged implements caraudio.VolumeListener
func (h *Hub) OnGroupVolumeChanged(zoneID, groupID int, flags caraudio.VolumeFlags) {
	h.publish(Message{
		Type:      TypeVolumeChanged,
		ZoneID:    &zoneID,
		GroupID:   &groupID,
		Flags:     int(flags),
		Timestamp: time.Now().UnixMilli(),
	}, "")
}

// OnMasterMuteChanged implements caraudio.VolumeListener
func (h *Hub) OnMasterMuteChanged(zoneID int, flags caraudio.VolumeFlags) {
	h.publish(Message{
		Type:      TypeMasterMute,
		ZoneID:    &zoneID,
		Flags:     int(flags),
		Timestamp: time.Now().UnixMilli(),
	}, "")
}

func focusMessage(kind string, info audio.FocusInfo) Message {
	return Message{
		Type:        kind,
		ClientID:    info.ClientID,
		UID:         info.ClientUID,
		PackageName: info.PackageName,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// publish queues msg for subscribers of clientID, or for everyone when
// clientID is empty. It returns how many subscribers accepted it.
func (h *Hub) publish(msg Message, clientID string) int {
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	accepted := 0
	for _, s := range h.subs {
		if clientID != "" && s.clientID != clientID {
			continue
		}
		select {
		case s.send <- data:
			accepted++
		default:
			h.logger.Warn("Subscriber backlog full, dropping message",
				zap.String("subscriber", s.id),
				zap.String("type", msg.Type),
			)
		}
	}
	if accepted > 0 && h.metrics != nil {
		h.metrics.RecordWSMessage("out", msg.Type)
	}
	return accepted
}
