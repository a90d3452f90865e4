package circuit

import "errors"

// Sentinel errors returned by Circuit mutations.
var (
	ErrInvalidCategory = errors.New("invalid part category")
	ErrPartNotFound    = errors.New("part not found in circuit")
	ErrWireNotFound    = errors.New("wire not found in circuit")
	ErrForeignSocket   = errors.New("socket does not belong to a part of this circuit")
)
