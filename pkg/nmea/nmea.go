// Package nmea formats NMEA 0183 sentences for a position fix
package nmea

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	talkerGPS = "GP"

	// knots per meter per second
	msToKnots = 1.943844
)

// Fix is the input for sentence generation
type Fix struct {
	Time      time.Time
	Latitude  float64
	Longitude float64
	AltMSL    float64
	// Speed over ground in m/s
	Speed float64
	// Valid is false if the receiver has no fix
	Valid      bool
	Satellites int
}

// Checksum is the XOR of all bytes between '$' and '*'
func Checksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}

func sentence(fields ...string) string {
	body := strings.Join(fields, ",")
	return fmt.Sprintf("$%s*%02X\r\n", body, Checksum(body))
}

// degMin converts decimal degrees into the ddmm.mmmm form, width is the number
// of degree digits (2 for latitude, 3 for longitude)
func degMin(v float64, width int) string {
	v = math.Abs(v)
	deg := math.Floor(v)
	minutes := (v - deg) * 60

	// Rounding 59.99999 up must carry into the degrees
	if math.Round(minutes*10000)/10000 >= 60 {
		deg++
		minutes = 0
	}

	return fmt.Sprintf("%0*d%07.4f", width, int(deg), minutes)
}

func latitude(v float64) (string, string) {
	hemi := "N"
	if v < 0 {
		hemi = "S"
	}
	return degMin(v, 2), hemi
}

func longitude(v float64) (string, string) {
	hemi := "E"
	if v < 0 {
		hemi = "W"
	}
	return degMin(v, 3), hemi
}

func hhmmss(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%02d%02d%02d.%02d", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/10_000_000)
}

// GGA builds a fix data sentence
func GGA(f Fix) string {
	lat, ns := latitude(f.Latitude)
	lon, ew := longitude(f.Longitude)

	quality := "0"
	if f.Valid {
		quality = "1"
	}

	return sentence(
		talkerGPS+"GGA",
		hhmmss(f.Time),
		lat, ns,
		lon, ew,
		quality,
		fmt.Sprintf("%02d", f.Satellites),
		"1.0",
		fmt.Sprintf("%.1f", f.AltMSL), "M",
		"0.0", "M",
		"", "",
	)
}

// RMC builds a recommended minimum sentence
func RMC(f Fix) string {
	lat, ns := latitude(f.Latitude)
	lon, ew := longitude(f.Longitude)

	status := "V"
	if f.Valid {
		status = "A"
	}

	return sentence(
		talkerGPS+"RMC",
		hhmmss(f.Time),
		status,
		lat, ns,
		lon, ew,
		fmt.Sprintf("%.1f", f.Speed*msToKnots),
		"0.0",
		f.Time.UTC().Format("020106"),
		"", "",
	)
}
