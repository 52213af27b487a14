package domain

import "errors"

var (
	// ErrNotFound is returned when a record or quote does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProvider is returned when the scoring provider fails; the previous
	// snapshot stays in effect until the next daily trigger.
	ErrProvider = errors.New("scoring provider error")

	// ErrBrokerage is returned when a gateway call fails.
	ErrBrokerage = errors.New("brokerage gateway error")

	// ErrStorage is returned on ledger I/O failure and is fatal for the
	// current cycle.
	ErrStorage = errors.New("storage error")

	// ErrNotification is returned when a notification cannot be delivered.
	// Best-effort only, callers log and move on.
	ErrNotification = errors.New("notification error")
)
