package hydro

import "errors"

var (
	// ErrGridTooSmall reports a height grid smaller than 2*radius+2 nodes.
	ErrGridTooSmall = errors.New("hydro: grid too small for erosion radius")
	// ErrOutOfRange reports a parameter, rectangle or cell outside its valid range.
	ErrOutOfRange = errors.New("hydro: value out of range")
	// ErrUntrackedWater reports a wet cell that no pool claims. The registry
	// can no longer account for volume once this happens.
	ErrUntrackedWater = errors.New("hydro: wet cell not claimed by any pool")
	// ErrNoConvergence reports a correction loop that exceeded its step guard.
	ErrNoConvergence = errors.New("hydro: pool correction did not converge")
)
