package config

import (
	"fmt"
	"net"
)

type MetricsConfig struct {
	Listen string `toml:"listen,omitempty" comment:"host:port of the prometheus endpoint, empty disables it"`
}

type MetricsConfigManager struct {
	BaseConfigManager[MetricsConfig]
}

func (m *MetricsConfigManager) Verify() error {
	listen := m.C().Listen
	if listen == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(listen); err != nil {
		return fmt.Errorf("invalid metrics listen address: %w", err)
	}

	return nil
}

func NewMetricsConfigManager(config *MetricsConfig, mgr *Manager) *MetricsConfigManager {
	m := MetricsConfigManager{}
	m.conf = config
	m.mgr = mgr

	return &m
}
