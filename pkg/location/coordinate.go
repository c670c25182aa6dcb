// Package location holds the coordinate types shared by the simulator and the
// track file writer together with their range validation.
package location

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Coordinate is a WGS84 position in decimal degrees
type Coordinate struct {
	Latitude  float64 `toml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `toml:"longitude" validate:"gte=-180,lte=180"`
}

// Waypoint is a coordinate with an optional display name
type Waypoint struct {
	Coordinate
	Name string
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%f, %f)", c.Latitude, c.Longitude)
}

// Valid reports whether both components are finite and inside their range
func (c Coordinate) Valid() bool {
	return isFinite(c.Latitude) && isFinite(c.Longitude) &&
		c.Latitude >= MinLatitude && c.Latitude <= MaxLatitude &&
		c.Longitude >= MinLongitude && c.Longitude <= MaxLongitude
}

// Validate returns an *InvalidCoordinateError if the coordinate is out of range.
// Values are never clamped.
func (c Coordinate) Validate() error {
	if c.Valid() {
		return nil
	}

	return &InvalidCoordinateError{Coordinate: c, Index: -1}
}

// ValidateAll checks every coordinate and reports the first offending one
func ValidateAll(cs []Coordinate) error {
	for i, c := range cs {
		if !c.Valid() {
			return &InvalidCoordinateError{Coordinate: c, Index: i}
		}
	}

	return nil
}

// Coordinates strips the names off a waypoint list
func Coordinates(wps []Waypoint) []Coordinate {
	cs := make([]Coordinate, len(wps))
	for i, wp := range wps {
		cs[i] = wp.Coordinate
	}
	return cs
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ParseCoordinate parses "lat,lon" and validates the result
func ParseCoordinate(s string) (Coordinate, error) {
	wp, err := ParseWaypoint(s)
	if err != nil {
		return Coordinate{}, err
	}

	if wp.Name != "" {
		return Coordinate{}, fmt.Errorf("unexpected name in coordinate %q", s)
	}

	return wp.Coordinate, nil
}

// ParseWaypoint parses "lat,lon[,name]" and validates the coordinate.
// The name may itself contain commas.
func ParseWaypoint(s string) (Waypoint, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ",", 3)
	if len(parts) < 2 {
		return Waypoint{}, fmt.Errorf("malformed waypoint %q, expected lat,lon[,name]", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Waypoint{}, fmt.Errorf("latitude could not be interpreted as float64: %w", err)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Waypoint{}, fmt.Errorf("longitude could not be interpreted as float64: %w", err)
	}

	wp := Waypoint{Coordinate: Coordinate{Latitude: lat, Longitude: lon}}
	if len(parts) == 3 {
		wp.Name = strings.TrimSpace(parts[2])
	}

	if err := wp.Validate(); err != nil {
		return Waypoint{}, err
	}

	return wp, nil
}
