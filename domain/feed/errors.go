package feed

import "errors"

// Domain errors for feed suppliers.
var (
	// ErrSupplierUnavailable indicates candidates could not be fetched.
	// The agent's turn is skipped; the simulation continues.
	ErrSupplierUnavailable = errors.New("feed supplier unavailable")
)
