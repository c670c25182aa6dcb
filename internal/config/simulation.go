package config

import (
	"errors"

	"github.com/LeoCommon/locsim/pkg/location"
)

type SimulationConfig struct {
	Enabled bool `toml:"enabled" comment:"replace the real position with the simulated one"`
	// Position is used when no route file is configured
	Position  *location.Coordinate `toml:"position,omitempty" validate:"omitempty"`
	RouteFile string               `toml:"route_file,omitempty" comment:"gpx file that is played back in a loop"`
	Interval  TOMLDuration         `toml:"interval,omitempty" comment:"time between two route positions" validate:"gt=0"`
}

type SimulationConfigManager struct {
	BaseConfigManager[SimulationConfig]
}

// Verify verifies the "hard" conditions that the rest of the code relies on
func (s *SimulationConfigManager) Verify() error {
	if err := s.verifyTags(); err != nil {
		return err
	}

	c := s.C()
	if c.Enabled && c.Position == nil && c.RouteFile == "" {
		return errors.New("simulation enabled without position or route_file")
	}

	return nil
}

// SetPosition stores a single point and clears the route file
func (s *SimulationConfigManager) SetPosition(c location.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.Set(func(conf *SimulationConfig) {
		conf.Position = &c
		conf.RouteFile = ""
	})
	return nil
}

func NewSimulationConfigManager(config *SimulationConfig, mgr *Manager) *SimulationConfigManager {
	s := SimulationConfigManager{}
	s.conf = config
	s.mgr = mgr

	return &s
}
