package gnss

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/LeoCommon/locsim/pkg/location"
	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuery struct {
	mu       sync.Mutex
	enabled  bool
	position *location.Coordinate
}

func (q *fakeQuery) IsEnabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

func (q *fakeQuery) CurrentPosition() (location.Coordinate, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.position == nil {
		return location.Coordinate{}, false
	}
	return *q.position, true
}

type invalidService struct {
	shutdown bool
}

func (s *invalidService) initialize() error { return nil }
func (s *invalidService) GetData() GPSData  { return GPSData{Time: math.NaN(), Lat: 1, Lon: 1, AltMSL: 500} }
func (s *invalidService) IsGPSTimeValid() bool {
	return false
}
func (s *invalidService) Shutdown() error {
	s.shutdown = true
	return nil
}

func TestStubService(t *testing.T) {
	log.Init(true)

	svc, err := NewService(STUB, nil)
	require.NoError(t, err)

	data := svc.GetData()
	assert.True(t, data.Valid())
	assert.True(t, svc.IsGPSTimeValid())
	assert.Equal(t, defaultStubParameters.Position, data.Coordinate())
	assert.Equal(t, 100.0, data.AltMSL)
	assert.NoError(t, svc.Shutdown())

	svc, err = NewService(STUB, &StubParameters{Position: location.Coordinate{Latitude: -1, Longitude: -2}, AltMSL: 3})
	require.NoError(t, err)
	assert.Equal(t, location.Coordinate{Latitude: -1, Longitude: -2}, svc.GetData().Coordinate())

	_, err = NewService(STUB, &StubParameters{Position: location.Coordinate{Latitude: 91}})
	assert.ErrorIs(t, err, location.ErrInvalidCoordinate)
}

func TestNewServiceArguments(t *testing.T) {
	_, err := NewService(SIMULATED, nil)
	assert.Error(t, err)

	_, err = NewService(SIMULATED, &SimulatedParameters{})
	assert.Error(t, err)

	_, err = NewService(BackendType(42), nil)
	assert.Error(t, err)

	assert.Equal(t, "StubImplementation", STUB.String())
	assert.Equal(t, "Simulated", SIMULATED.String())
	assert.Equal(t, "42", BackendType(42).String())
}

func TestSimulatedSubstitution(t *testing.T) {
	log.Init(true)

	realSvc, err := NewService(STUB, nil)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	q := &fakeQuery{}
	svc, err := NewService(SIMULATED, &SimulatedParameters{
		Real:  realSvc,
		Query: q,
		Now:   func() time.Time { return now },
	})
	require.NoError(t, err)

	// Disabled and no position: pass through
	assert.Equal(t, defaultStubParameters.Position, svc.GetData().Coordinate())

	// Enabled without a position: pass through
	q.enabled = true
	assert.Equal(t, defaultStubParameters.Position, svc.GetData().Coordinate())

	// Enabled with a position: substitute
	q.position = &location.Coordinate{Latitude: 10, Longitude: 20}
	data := svc.GetData()
	assert.Equal(t, location.Coordinate{Latitude: 10, Longitude: 20}, data.Coordinate())
	assert.Equal(t, float64(now.Unix()), data.Time)
	assert.Equal(t, 100.0, data.AltMSL)
	assert.True(t, svc.IsGPSTimeValid())

	// Disabled with a position: pass through again
	q.enabled = false
	assert.Equal(t, defaultStubParameters.Position, svc.GetData().Coordinate())
}

func TestSimulatedOverInvalidFix(t *testing.T) {
	invalid := &invalidService{}
	q := &fakeQuery{}

	svc, err := NewService(SIMULATED, &SimulatedParameters{Real: invalid, Query: q})
	require.NoError(t, err)

	assert.False(t, svc.GetData().Valid())
	assert.False(t, svc.IsGPSTimeValid())

	q.enabled = true
	q.position = &location.Coordinate{Latitude: 5, Longitude: 6}

	data := svc.GetData()
	assert.True(t, data.Valid())
	assert.Zero(t, data.AltMSL)
	assert.True(t, svc.IsGPSTimeValid())

	require.NoError(t, svc.Shutdown())
	assert.True(t, invalid.shutdown)
}
