package config

import "errors"

type OutputConfig struct {
	Disabled     bool         `toml:"disabled" comment:"disable the nmea serial output"`
	SerialDevice string       `toml:"serial_device,omitempty"`
	BaudRate     int          `toml:"baud_rate,omitempty" validate:"gt=0"`
	Rate         TOMLDuration `toml:"rate,omitempty" comment:"time between two nmea fixes" validate:"gt=0"`
}

type OutputConfigManager struct {
	BaseConfigManager[OutputConfig]
}

// Verify verifies the "hard" conditions that the rest of the code relies on
func (o *OutputConfigManager) Verify() error {
	if err := o.verifyTags(); err != nil {
		return err
	}

	c := o.C()
	if !c.Disabled && c.SerialDevice == "" {
		return errors.New("nmea output enabled without serial_device")
	}

	return nil
}

func NewOutputConfigManager(config *OutputConfig, mgr *Manager) *OutputConfigManager {
	o := OutputConfigManager{}
	o.conf = config
	o.mgr = mgr

	return &o
}
