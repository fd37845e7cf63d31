package focus

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/monitoring"
)

// Zone arbitrates audio focus for one audio zone.
//
// Repeated requests on the same client id are treated specially: a request for
// the same context replaces the earlier one without a loss event, and a request
// for a different context while the first is still holding or pending is
// rejected, so later gain/loss events are never ambiguous for the client.
type Zone struct {
	mu          sync.Mutex
	id          int
	holders     map[string]*entry // Protected by mu
	losers      map[string]*entry // Protected by mu
	dispatcher  Dispatcher        // Protected by mu
	seq         uint64            // Protected by mu
	resolver    ContextResolver
	permissions PermissionChecker
	logger      *zap.Logger
	metrics     *monitoring.Metrics
}

// NewZone creates an empty arbitrator for zone id
func NewZone(id int, resolver ContextResolver, permissions PermissionChecker, logger *zap.Logger) *Zone {
	if resolver == nil {
		resolver = audio.StaticResolver{}
	}
	if permissions == nil {
		permissions = noDuckingEvents{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Zone{
		id:          id,
		holders:     make(map[string]*entry),
		losers:      make(map[string]*entry),
		dispatcher:  discardDispatcher{},
		resolver:    resolver,
		permissions: permissions,
		logger:      logger.With(zap.Int("zone", id)),
	}
}

// WithMetrics adds metrics tracking to the zone
func (z *Zone) WithMetrics(metrics *monitoring.Metrics) *Zone {
	z.metrics = metrics
	return z
}

// ID returns the zone id
func (z *Zone) ID() int {
	return z.id
}

// SetDispatcher replaces the event sink. A nil dispatcher discards events.
func (z *Zone) SetDispatcher(d Dispatcher) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if d == nil {
		d = discardDispatcher{}
	}
	z.dispatcher = d
}

// OnFocusRequest evaluates a request and posts the result back to the requester
func (z *Zone) OnFocusRequest(info audio.FocusInfo) audio.RequestResult {
	z.mu.Lock()
	defer z.mu.Unlock()

	z.logger.Info("onAudioFocusRequest", zap.String("client_id", info.ClientID))
	result := z.evaluateLocked(info)
	z.dispatcher.SetFocusRequestResult(info, result)
	return result
}

// Evaluate decides a request without posting the result
func (z *Zone) Evaluate(info audio.FocusInfo) audio.RequestResult {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.evaluateLocked(info)
}

// OnFocusAbandon removes the client's request and restores anything it was
// blocking. Unknown clients are ignored.
func (z *Zone) OnFocusAbandon(info audio.FocusInfo) {
	z.mu.Lock()
	defer z.mu.Unlock()

	z.logger.Info("onAudioFocusAbandon", zap.String("client_id", info.ClientID))
	dead := z.removeEntryLocked(info)
	if z.metrics != nil {
		z.metrics.RecordFocusAbandon(z.id, dead != nil)
	}
	if dead != nil {
		z.restoreUnblockedLocked(dead)
	}
	z.publishStateLocked()
}

// HoldersForUID lists the current focus holders owned by uid
func (z *Zone) HoldersForUID(uid int) []audio.FocusInfo {
	z.mu.Lock()
	defer z.mu.Unlock()
	return infosForUID(uid, z.holders)
}

// Holders lists every current holder, most recently granted last
func (z *Zone) Holders() []audio.FocusInfo {
	z.mu.Lock()
	defer z.mu.Unlock()

	entries := sortedEntries(z.holders)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].grantSeq < entries[j].grantSeq
	})
	out := make([]audio.FocusInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.info)
	}
	return out
}

// LosersForUID lists the transient focus losers owned by uid
func (z *Zone) LosersForUID(uid int) []audio.FocusInfo {
	z.mu.Lock()
	defer z.mu.Unlock()
	return infosForUID(uid, z.losers)
}

// RemoveAndTransientlyLoseFocus drops the request and, if it was known, sends
// it LOSS_TRANSIENT whatever its gain type.
func (z *Zone) RemoveAndTransientlyLoseFocus(info audio.FocusInfo) {
	z.mu.Lock()
	defer z.mu.Unlock()

	dead := z.removeEntryLocked(info)
	if dead != nil {
		z.sendFocusLossLocked(dead, audio.FocusLossTransient)
		z.restoreUnblockedLocked(dead)
	}
	z.publishStateLocked()
}

// ReevaluateAndRegain re-runs a previously held request and, when granted,
// immediately dispatches the gain. The dispatch status is returned.
func (z *Zone) ReevaluateAndRegain(info audio.FocusInfo) audio.RequestResult {
	z.mu.Lock()
	defer z.mu.Unlock()

	result := z.evaluateLocked(info)
	if result == audio.RequestGranted {
		return z.dispatchFocusGainedLocked(info)
	}
	return result
}

func (z *Zone) receivesDuckEvents(e *entry) bool {
	if !e.info.Attributes.ReceiveDuckingEvents {
		return false
	}
	return z.permissions.CanReceiveDuckingEvents(e.info.PackageName)
}

// evaluateLocked is the arbitration algorithm. Must hold mu.
func (z *Zone) evaluateLocked(info audio.FocusInfo) audio.RequestResult {
	start := time.Now()
	requested := z.resolver.ContextForUsage(info.Attributes.Usage)
	log := z.logger.With(
		zap.String("client_id", info.ClientID),
		zap.Stringer("gain", info.GainRequest),
		zap.Stringer("context", requested),
	)
	log.Info("Evaluating focus request")

	result := z.arbitrateLocked(info, requested, log)

	if z.metrics != nil {
		z.metrics.RecordFocusRequest(z.id, requested.String(), result.String(), time.Since(start))
	}
	z.publishStateLocked()
	return result
}

func (z *Zone) arbitrateLocked(info audio.FocusInfo, requested audio.Context, log *zap.Logger) audio.RequestResult {
	permanent := info.GainRequest == audio.FocusGain
	allowDucking := info.GainRequest == audio.FocusGainTransientMayDuck

	var replacedCurrent, replacedBlocked *entry

	// Scan holders. Anything that rejects us ends the evaluation; anything we
	// are exclusive against is remembered until we know we will be granted.
	var losing []*entry
	for _, e := range sortedEntries(z.holders) {
		// Notifications are denied while anyone asked for transient exclusivity
		if requested == audio.ContextNotification && e.info.GainRequest == audio.FocusGainTransientExclusive {
			log.Info("Notification rejected by transient exclusive holder", zap.String("holder", e.clientID()))
			return audio.RequestFailed
		}

		if info.ClientID == e.clientID() {
			if e.context == requested {
				log.Info("Replacing accepted request from same client")
				replacedCurrent = e
				continue
			}
			log.Error("Client already holds focus for a different usage",
				zap.Stringer("held_usage", e.info.Attributes.Usage),
				zap.Stringer("requested_usage", info.Attributes.Usage),
			)
			return audio.RequestFailed
		}

		switch InteractionFor(e.context, requested) {
		case InteractionReject:
			return audio.RequestFailed
		case InteractionExclusive:
			losing = append(losing, e)
		case InteractionConcurrent:
			// Holders that pause on duck or want every event must still lose
			if !allowDucking || e.wantsPauseInsteadOfDucking() || z.receivesDuckEvents(e) {
				losing = append(losing, e)
			}
		default:
			log.Error("Bad interaction matrix value - rejecting")
			return audio.RequestFailed
		}
	}

	// Scan pending requests. A waiting entry we conflict with is either one
	// more reason it stays blocked, or a reason to reject us.
	var blocked []*entry
	for _, e := range sortedEntries(z.losers) {
		if requested == audio.ContextNotification && e.info.GainRequest == audio.FocusGainTransientExclusive {
			log.Info("Notification rejected by pending transient exclusive request", zap.String("loser", e.clientID()))
			return audio.RequestFailed
		}

		if info.ClientID == e.clientID() {
			if e.context == requested {
				log.Info("Replacing pending request from same client")
				replacedBlocked = e
				continue
			}
			log.Error("Client already has a pending request for a different usage",
				zap.Stringer("pending_usage", e.info.Attributes.Usage),
				zap.Stringer("requested_usage", info.Attributes.Usage),
			)
			return audio.RequestFailed
		}

		switch InteractionFor(e.context, requested) {
		case InteractionReject:
			return audio.RequestFailed
		case InteractionExclusive:
			blocked = append(blocked, e)
		case InteractionConcurrent:
			if !allowDucking || e.wantsPauseInsteadOfDucking() || z.receivesDuckEvents(e) {
				blocked = append(blocked, e)
			}
		default:
			log.Error("Bad interaction matrix value - rejecting")
			return audio.RequestFailed
		}
	}

	granted := newEntry(info, requested)

	// Entries gone for good; swept from every blocker set at the end
	var permanentlyLost []*entry
	if replacedCurrent != nil {
		delete(z.holders, replacedCurrent.clientID())
		permanentlyLost = append(permanentlyLost, replacedCurrent)
	}
	if replacedBlocked != nil {
		delete(z.losers, replacedBlocked.clientID())
		permanentlyLost = append(permanentlyLost, replacedBlocked)
	}

	for _, e := range blocked {
		if !e.blocked() {
			z.logger.DPanic("Pending focus entry has no blockers", zap.String("client_id", e.clientID()))
		}

		if permanent {
			z.sendFocusLossLocked(e, audio.FocusLoss)
			e.receivedLossTransientCanDuck = false
			delete(z.losers, e.clientID())
			permanentlyLost = append(permanentlyLost, e)
			continue
		}
		if !allowDucking && e.receivedLossTransientCanDuck {
			log.Info("Converting duckable loss to non-duckable", zap.String("loser", e.clientID()))
			z.sendFocusLossLocked(e, audio.FocusLossTransient)
			e.receivedLossTransientCanDuck = false
		}
		e.addBlocker(granted)
	}

	for _, e := range losing {
		if e.blocked() {
			z.logger.DPanic("Focus holder already has blockers", zap.String("client_id", e.clientID()))
		}

		var loss audio.FocusChange
		switch {
		case permanent:
			loss = audio.FocusLoss
		case allowDucking && z.receivesDuckEvents(e):
			loss = audio.FocusLossTransientCanDuck
			e.receivedLossTransientCanDuck = true
		default:
			loss = audio.FocusLossTransient
		}
		z.sendFocusLossLocked(e, loss)

		delete(z.holders, e.clientID())
		if permanent {
			permanentlyLost = append(permanentlyLost, e)
		} else {
			z.losers[e.clientID()] = e
			e.addBlocker(granted)
		}
	}

	// Replacing a transient request with its own may-duck variant can free
	// entries that were only blocked by the old request.
	for _, e := range permanentlyLost {
		log.Debug("Cleaning up entry", zap.String("lost", e.clientID()))
		z.restoreUnblockedLocked(e)
	}

	z.grantLocked(granted)
	log.Info("Focus request granted")
	return audio.RequestGranted
}

// removeEntryLocked pulls the client's entry out of holders or losers
func (z *Zone) removeEntryLocked(info audio.FocusInfo) *entry {
	if e, ok := z.holders[info.ClientID]; ok {
		delete(z.holders, info.ClientID)
		return e
	}
	if e, ok := z.losers[info.ClientID]; ok {
		delete(z.losers, info.ClientID)
		return e
	}
	// Usually a double abandon racing a loss event
	z.logger.Warn("Audio focus abandoned by unrecognized client id", zap.String("client_id", info.ClientID))
	return nil
}

// restoreUnblockedLocked removes dead from every blocker set and re-grants
// any loser left with no blockers.
func (z *Zone) restoreUnblockedLocked(dead *entry) {
	for _, e := range sortedEntries(z.losers) {
		e.removeBlocker(dead)
		if e.blocked() {
			continue
		}
		z.logger.Info("Restoring unblocked entry", zap.String("client_id", e.clientID()))
		delete(z.losers, e.clientID())
		z.grantLocked(e)
		z.dispatchFocusGainedLocked(e.info)
	}
}

func (z *Zone) grantLocked(e *entry) {
	z.seq++
	e.grantSeq = z.seq
	z.holders[e.clientID()] = e
}

func (z *Zone) sendFocusLossLocked(loser *entry, loss audio.FocusChange) {
	z.logger.Info("sendFocusLoss", zap.Stringer("event", loss), zap.String("client_id", loser.clientID()))
	result := z.dispatcher.DispatchFocusChange(loser.info, loss)
	if result != audio.RequestGranted {
		z.logger.Error("Failure to signal loss of audio focus",
			zap.String("client_id", loser.clientID()),
			zap.Stringer("result", result),
		)
	}
	if z.metrics != nil {
		z.metrics.RecordFocusChange(z.id, loss.String(), result.String())
	}
}

func (z *Zone) dispatchFocusGainedLocked(info audio.FocusInfo) audio.RequestResult {
	result := z.dispatcher.DispatchFocusChange(info, info.GainRequest)
	if result != audio.RequestGranted {
		z.logger.Error("Failure to signal gain of audio focus",
			zap.String("client_id", info.ClientID),
			zap.Stringer("result", result),
		)
	}
	if z.metrics != nil {
		z.metrics.RecordFocusChange(z.id, info.GainRequest.String(), result.String())
	}
	return result
}

func (z *Zone) publishStateLocked() {
	if z.metrics != nil {
		z.metrics.SetFocusState(z.id, len(z.holders), len(z.losers))
	}
}

func infosForUID(uid int, m map[string]*entry) []audio.FocusInfo {
	var out []audio.FocusInfo
	for _, e := range sortedEntries(m) {
		if e.info.ClientUID == uid {
			out = append(out, e.info)
		}
	}
	return out
}
