package emitter

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/LeoCommon/locsim/pkg/nmea"
	"github.com/LeoCommon/locsim/pkg/system/services/gnss"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	DefaultRate     = time.Second
	DefaultBaudRate = 9600

	// Reported satellite count for valid fixes
	simulatedSatellites = 8
)

// Emitter periodically writes the fix of a gnss service as NMEA sentences
type Emitter struct {
	src  gnss.Service
	w    io.Writer
	rate time.Duration
}

func New(src gnss.Service, w io.Writer, rate time.Duration) *Emitter {
	if rate <= 0 {
		rate = DefaultRate
	}

	return &Emitter{src: src, w: w, rate: rate}
}

// OpenSerial opens the serial device the sentences are written to
func OpenSerial(device string, baudRate int) (serial.Port, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	return serial.Open(device, &serial.Mode{BaudRate: baudRate})
}

func toFix(d gnss.GPSData) nmea.Fix {
	f := nmea.Fix{
		Latitude:  d.Lat,
		Longitude: d.Lon,
		AltMSL:    d.AltMSL,
		Speed:     d.Speed,
		Valid:     d.Valid(),
	}

	if f.Valid {
		sec, frac := math.Modf(d.Time)
		f.Time = time.Unix(int64(sec), int64(frac*1e9))
		f.Satellites = simulatedSatellites
	} else {
		f.Time = time.Now()
		f.Latitude, f.Longitude, f.AltMSL = 0, 0, 0
	}

	if math.IsNaN(f.Speed) {
		f.Speed = 0
	}

	return f
}

// Emit writes one GGA and one RMC sentence for the current fix
func (e *Emitter) Emit() error {
	f := toFix(e.src.GetData())

	if _, err := io.WriteString(e.w, nmea.GGA(f)+nmea.RMC(f)); err != nil {
		return err
	}

	return nil
}

// Run emits immediately and then once per rate until ctx is done.
// Write errors are logged, the loop keeps going.
func (e *Emitter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.rate)
	defer ticker.Stop()

	log.Info("nmea emitter started", zap.Duration("rate", e.rate))

	failures := 0
	for {
		if err := e.Emit(); err != nil {
			failures++
			// Only log the first failure of a streak to avoid flooding
			if failures == 1 {
				log.Error("could not write nmea sentences", zap.Error(err))
			}
		} else if failures > 0 {
			log.Info("nmea output recovered", zap.Int("failedWrites", failures))
			failures = 0
		}

		select {
		case <-ctx.Done():
			log.Debug("nmea emitter terminated")
			return
		case <-ticker.C:
		}
	}
}
