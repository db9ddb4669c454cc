package raid

import "errors"

var (
	ErrAttendanceRange  = errors.New("attendance count out of range")
	ErrCapacityExceeded = errors.New("group capacity exceeded")
	ErrGroupLimit       = errors.New("session group limit reached")
	ErrInvalidGroup     = errors.New("invalid group index")

	ErrInviteActive  = errors.New("invite already in progress")
	ErrNotInSession  = errors.New("player not in session")
	ErrAlreadyMember = errors.New("player already in session")
	ErrNotQueued     = errors.New("player not in invite queue")
	ErrQueueFull     = errors.New("invite queue full")
	ErrAlreadyQueued = errors.New("player already in invite queue")
	ErrNotMule       = errors.New("player is not a mule")
	ErrNotInPerson   = errors.New("player has no in-person accounts")

	ErrNotConductor = errors.New("player is not the conductor")
	ErrNotAMember   = errors.New("new conductor is not a member")
	ErrNoNextStop   = errors.New("train has no next stop")

	ErrInvalidState    = errors.New("invalid session state")
	ErrUnknownBoss     = errors.New("unknown boss")
	ErrNoBossCandidate = errors.New("no boss candidates for tier")

	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("session already registered")
	ErrUnknownSessionKind = errors.New("unknown session kind")

	ErrNoActionHandler = errors.New("no action handler found")
	ErrActionIgnored   = errors.New("action ignored")

	ErrConfigMissingIdentifier = errors.New("configuration missing identifier")
	ErrConfigMissingConsumer   = errors.New("configuration missing consumer channels")
	ErrProducerMissing         = errors.New("no producer client found")

	ErrSchedulerClosed = errors.New("invite scheduler closed")
)
