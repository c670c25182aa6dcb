package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

const (
	ProductName             = "locsim"
	UserdataDirectoryPrefix = "/data/"
	ConfigFolder            = "config/"

	ConfigPathPrefix = ConfigFolder + ProductName + "/"
	ConfigFile       = "config.toml"

	DefaultConfigPath = UserdataDirectoryPrefix + ConfigPathPrefix + ConfigFile

	DefaultRouteInterval = time.Second
	DefaultOutputRate    = time.Second
	DefaultBaudRate      = 9600

	DefaultDebugModeValue = false
)

var validate = validator.New()

type CLIFlags struct {
	ConfigPath string
	Debug      bool
}

type MainConfig struct {
	Client     ClientConfig     `toml:"client"`
	Simulation SimulationConfig `toml:"simulation"`
	Output     OutputConfig     `toml:"output"`
	Metrics    MetricsConfig    `toml:"metrics,omitempty"`
}

type ConfigManager interface {
	lock()
	unlock()
	Verify() error
}

type ConfigManagerKey string

const (
	CMClient     ConfigManagerKey = "client"
	CMSimulation ConfigManagerKey = "simulation"
	CMOutput     ConfigManagerKey = "output"
	CMMetrics    ConfigManagerKey = "metrics"
)

type ConfigManagerStore map[ConfigManagerKey]ConfigManager

type Manager struct {
	mu sync.RWMutex

	// The actual config, never share this with other code
	config *MainConfig

	// The config manager store (pointers)
	store ConfigManagerStore

	// The config path
	path string
}

func (m *Manager) Client() *ClientConfigManager {
	return getManager[*ClientConfigManager](m, CMClient)
}

func (m *Manager) Simulation() *SimulationConfigManager {
	return getManager[*SimulationConfigManager](m, CMSimulation)
}

func (m *Manager) Output() *OutputConfigManager {
	return getManager[*OutputConfigManager](m, CMOutput)
}

func (m *Manager) Metrics() *MetricsConfigManager {
	return getManager[*MetricsConfigManager](m, CMMetrics)
}

func getManager[T ConfigManager](m *Manager, key ConfigManagerKey) T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[key].(T)
	if !ok {
		log.Panic("implementation mistake, config section manager missing", zap.String("section", string(key)))
	}
	return cm
}

// Path returns the path the config was loaded from
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Load reads the config at path on top of the defaults. A missing or broken
// file is only an error if acceptEmptyConfig is false, verification errors
// are always returned.
func (m *Manager) Load(path string, acceptEmptyConfig bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conf := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err = toml.Unmarshal(data, conf); err != nil {
			err = fmt.Errorf("unmarshal %s: %w", path, err)
			conf = Default()
		}
	}

	if err != nil {
		if !acceptEmptyConfig {
			return err
		}
		log.Warn("config not usable, continuing with defaults", zap.Error(err))
	}

	// Each config section manager gets his own locking primitive
	store := ConfigManagerStore{
		CMClient:     NewClientConfigManager(&conf.Client, m),
		CMSimulation: NewSimulationConfigManager(&conf.Simulation, m),
		CMOutput:     NewOutputConfigManager(&conf.Output, m),
		CMMetrics:    NewMetricsConfigManager(&conf.Metrics, m),
	}

	// Verify all configs contain the mandatory values, a broken file keeps the previous config active
	for key, value := range store {
		if err := value.Verify(); err != nil {
			return fmt.Errorf("config section %s: %w", key, err)
		}
	}

	m.config = conf
	m.store = store
	m.path = path

	// Debug log output
	log.Debug("active config", zap.Any("config", m.config), zap.String("path", m.path))

	return nil
}

// Save locks all configs and writes it to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return errors.New("config was never loaded, no path to save to")
	}

	// Lock all config managers
	for _, value := range m.store {
		value.lock()
	}

	// Unlock the config managers when we are done
	defer func() {
		for _, value := range m.store {
			value.unlock()
		}
	}()

	// Marshal the config, does not use getters, so no locking => safe
	configData, err := toml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(m.path, configData, 0644)
}

// Default returns a config with all defaults applied
func Default() *MainConfig {
	return &MainConfig{
		Simulation: SimulationConfig{
			Interval: TOMLDuration(DefaultRouteInterval),
		},
		Output: OutputConfig{
			Disabled: true,
			BaudRate: DefaultBaudRate,
			Rate:     TOMLDuration(DefaultOutputRate),
		},
	}
}

func NewManager() *Manager {
	return &Manager{
		mu:     sync.RWMutex{},
		store:  make(ConfigManagerStore),
		config: Default(),
	}
}

func ParseCLIFlags() CLIFlags {
	flags := CLIFlags{}

	flag.StringVar(&flags.ConfigPath, "config", DefaultConfigPath, "relative or absolute path to the config file")
	flag.BoolVar(&flags.Debug, "debug", DefaultDebugModeValue, "true if the debug logging should be enabled")

	flag.Parse()

	return flags
}

type TOMLDuration time.Duration

func (d *TOMLDuration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = TOMLDuration(x)
	return nil
}

func (c TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(c).String()), nil
}

func (c TOMLDuration) Value() time.Duration {
	return time.Duration(c)
}
