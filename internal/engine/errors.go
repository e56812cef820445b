package engine

import "errors"

// Fatal per-trade conditions. Each terminates only the owning worker; none
// may take down the dispatcher, the cache, or another worker.
var (
	// ErrEntryRejected: the gateway refused the entry order. No exit legs
	// are ever placed after this.
	ErrEntryRejected = errors.New("entry order rejected")

	// ErrPriceUnresolved: the feed produced no usable price within the
	// resolution window. The trade fails rather than guessing a price.
	ErrPriceUnresolved = errors.New("entry price unresolved")

	// ErrExitLegRejected: one of the two exit legs could not be placed.
	// Reported distinctly because a live unprotected position may exist.
	ErrExitLegRejected = errors.New("exit leg rejected")

	// ErrCancelRejected: cancelling the losing leg after an OCO fill
	// failed. Surfaced loudly, never retried automatically.
	ErrCancelRejected = errors.New("cancel rejected")
)
