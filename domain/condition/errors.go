package condition

import "errors"

var (
	// ErrInvalidDetermination indicates an unparseable determination value.
	ErrInvalidDetermination = errors.New("invalid condition determination")
)
