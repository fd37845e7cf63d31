package caraudio

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/domain/focus"
	"github.com/GriffinCanCode/carfocus/internal/domain/zone"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/monitoring"
)

var (
	// ErrDynamicRoutingDisabled is returned for zone operations in legacy mode
	ErrDynamicRoutingDisabled = errors.New("audio dynamic routing not enabled")
	// ErrCarFocusDisabled is returned for focus operations when the service
	// does not own focus arbitration
	ErrCarFocusDisabled = errors.New("car audio focus not enabled")
	// ErrZoneOutOfRange is returned for an unknown zone id
	ErrZoneOutOfRange = errors.New("zone id out of range")
	// ErrNotInitialized is returned before Init or after Release
	ErrNotInitialized = errors.New("car audio service not initialized")
)

// Options configures a Service
type Options struct {
	// DynamicRouting selects zone based routing. When false the service runs
	// in legacy stream type mode.
	DynamicRouting bool
	// CarFocus makes the service arbitrate audio focus
	CarFocus bool
	// ConfigPath is reported in dumps only
	ConfigPath string

	Zones       []*zone.Zone
	Policy      AudioPolicy
	Permissions focus.PermissionChecker
	Dispatcher  focus.Dispatcher
	Logger      *zap.Logger
	Metrics     *monitoring.Metrics
}

// Service hosts the audio zones: it owns the uid to zone map, volume
// groups, master mute and, optionally, the focus arbitrators.
//
// Lock ordering: mu is always taken before any focus zone lock.
type Service struct {
	mu sync.Mutex

	dynamicRouting bool
	carFocus       bool
	configPath     string

	zones       []*zone.Zone // index is zone id
	policy      AudioPolicy
	permissions focus.PermissionChecker
	dispatcher  focus.Dispatcher
	logger      *zap.Logger
	metrics     *monitoring.Metrics

	focus       *focus.Zones   // Protected by mu
	uidToZone   map[int]int    // Protected by mu
	masterMute  bool           // Protected by mu
	streams     []legacyStream // Protected by mu
	initialized bool           // Protected by mu

	listenersMu sync.RWMutex
	listeners   map[VolumeListener]struct{} // Protected by listenersMu
}

// New validates opts and creates an uninitialized service
func New(opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Policy == nil {
		opts.Policy = NewAffinityTable()
	}
	if opts.DynamicRouting {
		if len(opts.Zones) == 0 {
			return nil, focus.ErrNoZones
		}
		for i, z := range opts.Zones {
			if z.ID() != i {
				return nil, fmt.Errorf("zone ids must be contiguous from %d: position %d has id %d", zone.PrimaryZoneID, i, z.ID())
			}
		}
	}

	return &Service{
		dynamicRouting: opts.DynamicRouting,
		carFocus:       opts.CarFocus,
		configPath:     opts.ConfigPath,
		zones:          opts.Zones,
		policy:         opts.Policy,
		permissions:    opts.Permissions,
		dispatcher:     opts.Dispatcher,
		logger:         opts.Logger.Named("caraudio"),
		metrics:        opts.Metrics,
		uidToZone:      make(map[int]int),
		streams:        newLegacyStreams(),
		listeners:      make(map[VolumeListener]struct{}),
	}, nil
}

// Init applies initial volumes and, with car focus enabled, starts focus
// arbitration for every zone.
func (s *Service) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if !s.dynamicRouting {
		s.logger.Info("Audio dynamic routing not enabled, run in legacy mode")
		s.initialized = true
		return nil
	}

	for _, z := range s.zones {
		if err := z.ValidateVolumeGroups(); err != nil {
			return fmt.Errorf("invalid volume groups configuration: %w", err)
		}
		// Push the initial volume to every bus
		if err := z.SynchronizeCurrentGainIndex(); err != nil {
			return err
		}
		s.logger.Debug("Processed audio zone", zap.Stringer("zone", z))
	}

	if s.carFocus {
		handler, err := focus.NewZones(s.zoneIDsLocked(), s, s.permissions, s.logger.Named("focus"))
		if err != nil {
			return err
		}
		if s.metrics != nil {
			handler.WithMetrics(s.metrics)
		}
		handler.SetOwner(s, s.dispatcher)
		s.focus = handler
	}

	s.initialized = true
	s.logger.Info("Car audio service initialized",
		zap.Int("zones", len(s.zones)),
		zap.Bool("car_focus", s.carFocus),
	)
	return nil
}

// Release stops focus arbitration and drops every volume listener
func (s *Service) Release() {
	s.mu.Lock()
	if s.focus != nil {
		s.focus.SetOwner(nil, nil)
		s.focus = nil
	}
	s.initialized = false
	s.mu.Unlock()

	s.listenersMu.Lock()
	s.listeners = make(map[VolumeListener]struct{})
	s.listenersMu.Unlock()
}

// IsDynamicRoutingEnabled reports whether zones are in use
func (s *Service) IsDynamicRoutingEnabled() bool {
	return s.dynamicRouting
}

// ContextForUsage implements focus.ContextResolver
func (s *Service) ContextForUsage(u audio.Usage) audio.Context {
	return audio.ContextForUsage(u)
}

// Zones returns the configured zones in id order
func (s *Service) Zones() []*zone.Zone {
	out := make([]*zone.Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

// RequestFocus arbitrates a focus request in the zone it resolves to
func (s *Service) RequestFocus(info audio.FocusInfo) (audio.RequestResult, error) {
	handler, err := s.focusHandler()
	if err != nil {
		return audio.RequestFailed, err
	}
	return handler.OnFocusRequest(info), nil
}

// AbandonFocus releases a focus request
func (s *Service) AbandonFocus(info audio.FocusInfo) error {
	handler, err := s.focusHandler()
	if err != nil {
		return err
	}
	handler.OnFocusAbandon(info)
	return nil
}

// FocusSnapshot returns the focus state of every zone
func (s *Service) FocusSnapshot() ([]focus.ZoneSnapshot, error) {
	handler, err := s.focusHandler()
	if err != nil {
		return nil, err
	}
	return handler.Snapshot(), nil
}

// focusHandler returns the router without holding mu during arbitration,
// since the router calls back into ZoneIDForUID.
func (s *Service) focusHandler() (*focus.Zones, error) {
	if !s.dynamicRouting {
		return nil, ErrDynamicRoutingDisabled
	}
	if !s.carFocus {
		return nil, ErrCarFocusDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus == nil {
		return nil, ErrNotInitialized
	}
	return s.focus, nil
}

func (s *Service) zoneIDsLocked() []int {
	ids := make([]int, 0, len(s.zones))
	for _, z := range s.zones {
		ids = append(ids, z.ID())
	}
	return ids
}

func (s *Service) checkZoneLocked(zoneID int) error {
	if zoneID < 0 || zoneID >= len(s.zones) {
		return fmt.Errorf("zone %d: %w", zoneID, ErrZoneOutOfRange)
	}
	return nil
}

// Dump writes the service state, zones, uid map and focus state
func (s *Service) Dump(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(w, "*CarAudioService*")
	fmt.Fprintf(w, "\tRun in legacy mode? %t\n", !s.dynamicRouting)
	fmt.Fprintf(w, "\tMaster muted? %t\n", s.masterMute)
	if s.configPath != "" {
		fmt.Fprintf(w, "\tCar audio configuration path: %s\n", s.configPath)
	}
	fmt.Fprintln(w)

	if !s.dynamicRouting {
		for i, st := range s.streams {
			fmt.Fprintf(w, "\tGroup %d -> %s index %d (min %d max %d)\n", i, st.stream, st.index, st.min, st.max)
		}
		return
	}

	for _, z := range s.zones {
		z.Dump(w, "\t")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "\tUID to Zone Mapping:")
	uids := make([]int, 0, len(s.uidToZone))
	for uid := range s.uidToZone {
		uids = append(uids, uid)
	}
	sort.Ints(uids)
	for _, uid := range uids {
		fmt.Fprintf(w, "\t\tUID %d mapped to zone %d\n", uid, s.uidToZone[uid])
	}

	if s.focus != nil {
		fmt.Fprintln(w)
		s.focus.Dump(w, "\t")
	}
}
