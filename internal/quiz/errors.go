package quiz

import "errors"

var (
	// ErrInsufficientCatalog is returned when the catalog holds fewer
	// questions than a quiz draws
	ErrInsufficientCatalog = errors.New("catalog has too few questions")

	// ErrInvalidState is returned when an operation is applied to a session
	// outside the status it requires
	ErrInvalidState = errors.New("operation not allowed in current session state")

	// ErrInvalidOption is returned for an answer letter outside A-D
	ErrInvalidOption = errors.New("invalid answer option")
)
