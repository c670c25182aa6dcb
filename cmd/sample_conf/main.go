package main

import (
	"flag"

	"github.com/LeoCommon/locsim/internal/config"
	"github.com/LeoCommon/locsim/pkg/file"
	"github.com/LeoCommon/locsim/pkg/location"
	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// sampleConfig returns the defaults with every optional section filled in,
// so that "omitempty" does not hide them in the exported file
func sampleConfig() *config.MainConfig {
	cf := config.Default()

	cf.Simulation.Position = &location.Coordinate{Latitude: 49.42469, Longitude: 7.75094}
	cf.Output.SerialDevice = "/dev/ttyUSB0"
	cf.Metrics.Listen = "127.0.0.1:9100"

	return cf
}

// Sample config export function
func main() {
	out := flag.String("out", "./config/config.toml", "where the sample config is written to")
	flag.Parse()

	data, err := toml.Marshal(sampleConfig())
	if err != nil {
		panic(err)
	}

	if err := file.WriteTo(*out, string(data)); err != nil {
		log.Error("Failed to write config file", zap.Error(err))
		panic(err)
	}
}
