package gnss

import (
	"fmt"
	"math"

	"github.com/LeoCommon/locsim/pkg/location"
	"github.com/LeoCommon/locsim/pkg/log"
	"go.uber.org/zap"
)

type BackendType int32

const (
	// STUB implementation
	STUB BackendType = -1

	// SIMULATED wraps another backend and substitutes the simulated position
	SIMULATED BackendType = 1
)

func (e BackendType) String() string {
	switch e {
	case STUB:
		return "StubImplementation"
	case SIMULATED:
		return "Simulated"
	default:
		return fmt.Sprintf("%d", int(e))
	}
}

// Service interface methods
type Service interface {
	initialize() error
	GetData() GPSData
	Shutdown() error
	IsGPSTimeValid() bool
}

// The GPSData that is needed by the application
type GPSData struct {
	// Time is supposed to come from the GPS, do not set if no valid gps data was received
	Time   float64
	Lat    float64
	Lon    float64
	AltMSL float64
	Speed  float64
}

func (d GPSData) String() string {
	return fmt.Sprintf("GPSData(%d) valid: %v - lat: %f lon: %f alt: %f speed: %f",
		int64(d.Time), d.Valid(), d.Lat, d.Lon, d.AltMSL, d.Speed)
}

// Valid checks if the GPSData is valid, Invalid data has no proper timestamp
func (d GPSData) Valid() bool {
	return IsGPSTimeValid(d.Time)
}

// Coordinate returns the position part of the fix
func (d GPSData) Coordinate() location.Coordinate {
	return location.Coordinate{Latitude: d.Lat, Longitude: d.Lon}
}

func IsGPSTimeValid(timestamp float64) bool {
	return timestamp != 0 && !math.IsNaN(timestamp)
}

// NewService creates and initializes a backend.
// STUB takes an optional *StubParameters, SIMULATED requires *SimulatedParameters.
func NewService(backend BackendType, arguments interface{}) (Service, error) {
	var service Service

	switch backend {
	case STUB:
		args, _ := arguments.(*StubParameters)
		service = &gpsStubService{args: args}
	case SIMULATED:
		args, ok := arguments.(*SimulatedParameters)
		if !ok || args == nil {
			return nil, fmt.Errorf("unsupported simulated backend parameter type")
		}
		service = &simulatedService{args: args}
	default:
		return nil, fmt.Errorf("unknown gnss backend %s", backend)
	}

	// Initialize service
	if err := service.initialize(); err != nil {
		return nil, err
	}

	log.Info("GPS Backend selected:", zap.String("name", backend.String()))

	return service, nil
}
