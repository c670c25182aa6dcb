package emitter

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LeoCommon/locsim/pkg/location"
	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/LeoCommon/locsim/pkg/system/services/gnss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	err error
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func stub(t *testing.T, c location.Coordinate) gnss.Service {
	t.Helper()
	svc, err := gnss.NewService(gnss.STUB, &gnss.StubParameters{Position: c, AltMSL: 12})
	require.NoError(t, err)
	return svc
}

func TestEmit(t *testing.T) {
	log.Init(true)

	var out lockedBuffer
	e := New(stub(t, location.Coordinate{Latitude: 48.1173, Longitude: 11.516666666}), &out, 0)
	assert.Equal(t, DefaultRate, e.rate)

	require.NoError(t, e.Emit())

	lines := strings.Split(strings.TrimSuffix(out.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "$GPGGA,"))
	assert.Contains(t, lines[0], ",4807.0380,N,01131.0000,E,1,08,")
	assert.True(t, strings.HasPrefix(lines[1], "$GPRMC,"))
	assert.Contains(t, lines[1], ",A,4807.0380,N,")
}

func TestToFixInvalid(t *testing.T) {
	f := toFix(gnss.GPSData{Time: math.NaN(), Lat: 10, Lon: 10, Speed: math.NaN()})
	assert.False(t, f.Valid)
	assert.Zero(t, f.Latitude)
	assert.Zero(t, f.Speed)
	assert.Zero(t, f.Satellites)

	f = toFix(gnss.GPSData{Time: 1700000000.25, Lat: 10, Lon: 10})
	assert.True(t, f.Valid)
	assert.Equal(t, int64(1700000000), f.Time.Unix())
	assert.Equal(t, 250*time.Millisecond, time.Duration(f.Time.Nanosecond()))
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	log.Init(true)

	var out lockedBuffer
	e := New(stub(t, location.Coordinate{Latitude: 1, Longitude: 2}), &out, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return strings.Count(out.String(), "$GPGGA") >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emitter did not terminate")
	}
}

func TestRunSurvivesWriteErrors(t *testing.T) {
	defer goleak.VerifyNone(t)
	log.Init(true)

	out := &lockedBuffer{err: errors.New("device gone")}
	e := New(stub(t, location.Coordinate{}), out, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	out.mu.Lock()
	out.err = nil
	out.mu.Unlock()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "$GPRMC")
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestOpenSerialMissingDevice(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log.Replace(zap.New(core))
	defer log.Replace(zap.NewNop())

	port, err := OpenSerial(filepath.Join(t.TempDir(), "ttyNOPE"), 0)
	assert.Error(t, err)
	assert.Nil(t, port)
	assert.Zero(t, logs.Len())
}
