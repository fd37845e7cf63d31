/*
Package resilience provides the circuit breaker guarding outbound focus event
deliveries.

# Usage

	breaker := resilience.New("webhook:https://head-unit.local/focus", resilience.Settings{
		MaxRequests: 2,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	err := breaker.Do(ctx, func(ctx context.Context) error {
		return deliver(ctx, event)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// endpoint is considered down, drop or retry later
	}

# States

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[MaxRequests successes]-> Closed
	                                               |
	                                           [failure]
	                                               v
	                                              Open

Outcomes that arrive after the breaker moved to a new generation are ignored.
*/
package resilience
