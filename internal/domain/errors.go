package domain

import "errors"

var (
	// ErrStoreNotFound is returned when a store id is not in the registry
	ErrStoreNotFound = errors.New("store not found")

	// ErrBuiltinStore is returned when a caller tries to remove a built-in store
	ErrBuiltinStore = errors.New("built-in stores cannot be removed")

	// ErrStoreUnreachable is returned when an adapter cannot reach the source at all
	ErrStoreUnreachable = errors.New("store source unreachable")

	// ErrNoListings is returned when no listings could be extracted from a source
	ErrNoListings = errors.New("no listings could be extracted from this source")

	// ErrOperationInProgress is returned when a mutating operation overlaps another
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrConfirmationRequired is returned when a consensus result needs an explicit confirm
	ErrConfirmationRequired = errors.New("consensus requires confirmation")

	// ErrNoPendingConsensus is returned when confirming an unknown or expired preview
	ErrNoPendingConsensus = errors.New("no pending consensus for that id")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrProductNotFound is returned when a canonical key is not in the catalog
	ErrProductNotFound = errors.New("product not found in catalog")
)
