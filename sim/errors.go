package sim

import "errors"

// Every error returned by the engine wraps one of these, so callers can
// branch with errors.Is.
var (
	// ErrValidation reports a malformed quantity, price, signal or bar.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds reports an execution whose margin would exceed
	// the free margin of the account.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPositionNotFound reports a reference to a position the engine
	// has never seen (or one that was cleared by Reset).
	ErrPositionNotFound = errors.New("position not found")

	// ErrOrderNotFound reports a reference to an unknown order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidState reports an operation on an order or position whose
	// status forbids it, e.g. executing an EXECUTED order or closing a
	// CLOSED position.
	ErrInvalidState = errors.New("invalid state")
)
