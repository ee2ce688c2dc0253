package planner

import "fmt"

// Planner types accepted by New.
const (
	TypeAStar   = "astar"
	TypeGOAP    = "goap"
	TypeUtility = "utility"
)

// New returns the planner registered under name. An empty name selects A*.
func New(name string) (Planner, error) {
	switch name {
	case "", TypeAStar, TypeGOAP:
		return NewAStar(), nil
	case TypeUtility:
		return NewUtility(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlanner, name)
	}
}
