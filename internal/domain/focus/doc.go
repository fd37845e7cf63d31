/*
Package focus arbitrates audio focus between clients of a car audio system.

# Model

Every zone keeps two sets keyed by client id:

  - holders: requests currently granted focus
  - losers: requests that lost focus transiently and wait to regain it

A loser carries the set of requests blocking it. It is promoted back to the
holders, with a gain event, the moment that set becomes empty.

# Arbitration

A request is resolved to a context through its usage and checked against
every holder and loser using a fixed 9x9 interaction matrix
(reject / exclusive / concurrent). Any reject fails the request outright and
nothing changes. Otherwise affected holders receive LOSS, LOSS_TRANSIENT or
LOSS_TRANSIENT_CAN_DUCK and the request becomes a holder.

# Zones

Zones wraps one Zone per audio zone. A request is routed by its explicit zone
id when present and in range, otherwise by the zone its uid is mapped to.

# Locking

Zone methods take the zone mutex and dispatch events while holding it, so
Dispatcher implementations must not block or call back into the zone.
*/
package focus
