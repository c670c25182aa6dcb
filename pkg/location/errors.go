package location

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCoordinate matches every *InvalidCoordinateError via errors.Is
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrEmptyRoute        = errors.New("route contains no positions")
	ErrInvalidInterval   = errors.New("tick interval must be positive")
)

// InvalidCoordinateError is returned for latitudes outside [-90, 90],
// longitudes outside [-180, 180] and non-finite values
type InvalidCoordinateError struct {
	Coordinate Coordinate
	// Index of the offending element in a list, -1 for single values
	Index int
}

func (e *InvalidCoordinateError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid coordinate %s at index %d", e.Coordinate, e.Index)
	}

	return fmt.Sprintf("invalid coordinate %s", e.Coordinate)
}

func (e *InvalidCoordinateError) Is(tgt error) bool {
	if tgt == ErrInvalidCoordinate {
		return true
	}

	_, ok := tgt.(*InvalidCoordinateError)
	return ok
}
