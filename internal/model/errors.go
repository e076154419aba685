package model

import "errors"

// Casting and tally errors. Repository and service code wraps storage errors
// with %w and callers match these sentinels with errors.Is.
var (
	// ErrInvalidToken covers an unknown or already-consumed casting token.
	ErrInvalidToken = errors.New("invalid or used casting token")

	// ErrInactiveElection means the token's election is no longer accepting
	// ballots.
	ErrInactiveElection = errors.New("election is not active")

	// ErrMalformedBallot means the submitted ranking is not a permutation of
	// the election's candidate set. The token is left unconsumed.
	ErrMalformedBallot = errors.New("ballot is not a full ranking of the candidates")

	// ErrConcurrentCast means a concurrent request consumed the token first.
	// Retrying is pointless: the token is now spent.
	ErrConcurrentCast = errors.New("token was consumed by a concurrent cast")

	// ErrTallyComputation means the STV engine failed to converge. Fatal for
	// the run; the coordinator still closes out the election.
	ErrTallyComputation = errors.New("tally computation failed")
)
