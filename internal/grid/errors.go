package grid

import "errors"

// Grid errors. All of them are local, recoverable misuse conditions: the
// operation that returns one has left the grid unchanged.
var (
	ErrOutOfBounds        = errors.New("region crosses grid edge")
	ErrOccupied           = errors.New("region is occupied")
	ErrEmptyRegion        = errors.New("no item in region")
	ErrRegionMismatch     = errors.New("region does not match a resident item")
	ErrInvalidQuadrant    = errors.New("invalid quadrant")
	ErrNoActiveHover      = errors.New("no active hover")
	ErrHoverAlreadyActive = errors.New("hover already active")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNotStackable       = errors.New("item is not stackable")
	ErrInvalidItem        = errors.New("invalid item descriptor")
	ErrPlanStale          = errors.New("placement plan no longer matches grid")
	ErrNoRecordSource     = errors.New("no record source for split placement")
)
