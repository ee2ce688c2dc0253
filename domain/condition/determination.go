// Package condition provides three-valued condition determinations, immutable
// world state snapshots and the determiners that derive them.
package condition

import (
	"fmt"
	"strings"
)

// Determination is the truth value of a named condition.
// The zero value is Unknown.
type Determination int8

const (
	// Unknown means the condition cannot be decided from current state.
	Unknown Determination = iota
	// True means the condition holds.
	True
	// False means the condition does not hold.
	False
)

// FromBool converts a boolean into a determination.
func FromBool(b bool) Determination {
	if b {
		return True
	}
	return False
}

// String returns the canonical name of the determination.
func (d Determination) String() string {
	switch d {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	default:
		return "UNKNOWN"
	}
}

// IsKnown reports whether the determination is True or False.
func (d Determination) IsKnown() bool {
	return d == True || d == False
}

// Parse converts a string into a determination. It accepts the canonical
// names in any case, plus "yes"/"no" and "1"/"0".
func Parse(s string) (Determination, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return True, nil
	case "false", "no", "0":
		return False, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrInvalidDetermination, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Determination) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Determination) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
