package gnss

import (
	"time"

	"github.com/LeoCommon/locsim/pkg/location"
)

// StubParameters configures the fixed fix reported by the stub backend
type StubParameters struct {
	Position location.Coordinate
	AltMSL   float64
}

var defaultStubParameters = StubParameters{
	Position: location.Coordinate{Latitude: 49.42469, Longitude: 7.75094},
	AltMSL:   100,
}

func (s *gpsStubService) GetData() GPSData {
	data := s.gpsData
	data.Time = float64(time.Now().Unix())
	return data
}

func (s *gpsStubService) initialize() error {
	args := s.args
	if args == nil {
		args = &defaultStubParameters
	}

	if err := args.Position.Validate(); err != nil {
		return err
	}

	s.gpsData.AltMSL = args.AltMSL
	s.gpsData.Lat = args.Position.Latitude
	s.gpsData.Lon = args.Position.Longitude
	s.gpsData.Speed = 0.0

	return nil
}

func (s *gpsStubService) IsGPSTimeValid() bool {
	return true
}

func (s *gpsStubService) Shutdown() error {
	// stub
	return nil
}

type gpsStubService struct {
	args    *StubParameters
	gpsData GPSData
}
