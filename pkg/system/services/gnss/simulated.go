package gnss

import (
	"fmt"
	"time"

	"github.com/LeoCommon/locsim/pkg/location"
)

// Query is the read side of the location simulator
type Query interface {
	IsEnabled() bool
	CurrentPosition() (location.Coordinate, bool)
}

type SimulatedParameters struct {
	// Real provides the fix that is passed through while simulation is off
	Real  Service
	Query Query

	// Now defaults to time.Now
	Now func() time.Time
}

type simulatedService struct {
	args *SimulatedParameters
}

func (s *simulatedService) initialize() error {
	if s.args.Real == nil || s.args.Query == nil {
		return fmt.Errorf("simulated backend needs a real service and a query")
	}

	if s.args.Now == nil {
		s.args.Now = time.Now
	}

	return nil
}

// GetData reports the simulated position if simulation is enabled and a
// position exists, the real fix otherwise
func (s *simulatedService) GetData() GPSData {
	fix := s.args.Real.GetData()

	if !s.args.Query.IsEnabled() {
		return fix
	}

	pos, ok := s.args.Query.CurrentPosition()
	if !ok {
		return fix
	}

	data := GPSData{
		Time: float64(s.args.Now().Unix()),
		Lat:  pos.Latitude,
		Lon:  pos.Longitude,
	}

	// Keep the altitude of a valid real fix, the simulator only owns lat/lon
	if fix.Valid() {
		data.AltMSL = fix.AltMSL
	}

	return data
}

func (s *simulatedService) IsGPSTimeValid() bool {
	if s.args.Query.IsEnabled() {
		if _, ok := s.args.Query.CurrentPosition(); ok {
			return true
		}
	}

	return s.args.Real.IsGPSTimeValid()
}

// Shutdown shuts down the wrapped real service, the simulator is owned elsewhere
func (s *simulatedService) Shutdown() error {
	return s.args.Real.Shutdown()
}
