package entities

import "errors"

var (
	// ErrInsufficientCapacity means the guarded reserve lost: committing the
	// requested quantity would break sold + reserved <= capacity. Terminal for
	// the attempt; the caller re-queries availability instead of retrying.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	ErrLedgerNotFound = errors.New("inventory ledger not found")

	// ErrLedgerCorrupt is the only fatal error in the core: storage was
	// observed violating sold + reserved <= capacity or a count went negative.
	// It is a data-integrity alarm, never retried.
	ErrLedgerCorrupt = errors.New("inventory ledger invariant violated")

	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExpired  = errors.New("reservation expired")
	ErrAlreadyConsumed     = errors.New("reservation already consumed")

	ErrTicketNotFound   = errors.New("ticket not found")
	ErrTicketNotActive  = errors.New("ticket is not active")
	ErrPaymentProcessed = errors.New("payment event already processed")
	ErrPaymentMismatch  = errors.New("payment does not match reservation")
)
