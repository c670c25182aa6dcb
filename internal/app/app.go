package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/LeoCommon/locsim/internal/config"
	"github.com/LeoCommon/locsim/internal/emitter"
	"github.com/LeoCommon/locsim/pkg/gpx"
	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/LeoCommon/locsim/pkg/simulation"
	"github.com/LeoCommon/locsim/pkg/system/services/gnss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App global app struct that contains all services
type App struct {
	// A global wait group, all go routines that should
	// terminate when the application ends should be registered here
	WG sync.WaitGroup

	ReloadSignal chan os.Signal
	ExitSignal   chan os.Signal

	Conf *config.Manager

	Registry *prometheus.Registry
	Engine   *simulation.Engine

	// GNSSService reports the simulated fix while simulation is enabled and
	// the fix of the wrapped real service otherwise
	GNSSService gnss.Service
	Emitter     *emitter.Emitter

	serialPort  io.Closer
	TestRunning bool
}

func (a *App) Shutdown() {
	if a.Engine != nil {
		a.Engine.Close()
	}

	if a.GNSSService != nil {
		_ = a.GNSSService.Shutdown()
	}

	if a.serialPort != nil {
		if err := a.serialPort.Close(); err != nil {
			log.Warn("could not close serial port", zap.Error(err))
		}
	}

	if a.ExitSignal != nil {
		signal.Stop(a.ExitSignal)
	}

	if a.ReloadSignal != nil {
		signal.Stop(a.ReloadSignal)
	}
}

func (a *App) loadConfiguration(configPath string, acceptEmptyConfig bool) error {
	// Create the new config manager and load the configuration
	a.Conf = config.NewManager()
	if err := a.Conf.Load(configPath, acceptEmptyConfig); err != nil {
		log.Error("an error occurred while trying to load the config file, trying default path", zap.String("path", configPath), zap.Error(err))
		if configPath == config.DefaultConfigPath {
			return err
		}

		a.Conf = config.NewManager()
		if err = a.Conf.Load(config.DefaultConfigPath, acceptEmptyConfig); err != nil {
			return err
		}
	}

	return nil
}

func setupMetrics(app *App) error {
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := simulation.NewMetrics(app.Registry)
	if err != nil {
		return err
	}

	app.Engine = simulation.New(simulation.WithMetrics(metrics))
	return nil
}

func startGPSService(app *App) error {
	// There is no receiver to pass through, the stub stands in for the real fix
	realService, err := gnss.NewService(gnss.STUB, nil)
	if err != nil {
		return err
	}

	app.GNSSService, err = gnss.NewService(gnss.SIMULATED, &gnss.SimulatedParameters{
		Real:  realService,
		Query: app.Engine,
	})
	if err != nil {
		return err
	}

	log.Info("Location received", zap.String("data", app.GNSSService.GetData().String()))
	return nil
}

func setupEmitter(app *App) error {
	out := app.Conf.Output().C()
	if out.Disabled {
		log.Info("nmea output disabled")
		return nil
	}

	port, err := emitter.OpenSerial(out.SerialDevice, out.BaudRate)
	if err != nil {
		return fmt.Errorf("serial device %s: %w", out.SerialDevice, err)
	}

	app.serialPort = port
	app.Emitter = emitter.New(app.GNSSService, port, out.Rate.Value())
	return nil
}

// ApplySimulation maps the simulation section of the config onto the engine.
// A route file takes precedence over a single position.
func (a *App) ApplySimulation() error {
	return a.applySimulation(a.Conf.Simulation().C())
}

// applySimulation leaves the engine untouched if the route can not be loaded
func (a *App) applySimulation(sim config.SimulationConfig) error {
	switch {
	case sim.RouteFile != "":
		doc, err := gpx.ReadFile(sim.RouteFile)
		if err != nil {
			return fmt.Errorf("route file %s: %w", sim.RouteFile, err)
		}

		points, err := doc.Points()
		if err != nil {
			return fmt.Errorf("route file %s: %w", sim.RouteFile, err)
		}

		if _, err := a.Engine.StartRoute(points, sim.Interval.Value()); err != nil {
			return err
		}
	case sim.Position != nil:
		if err := a.Engine.SetPosition(*sim.Position); err != nil {
			return err
		}
	default:
		a.Engine.Stop()
	}

	a.Engine.SetEnabled(sim.Enabled)

	state := a.Engine.State()
	log.Info("simulation applied", zap.Bool("enabled", state.Enabled), zap.String("mode", state.Mode.String()),
		zap.String("route", state.RouteID), zap.Int("positions", state.RouteLength))
	return nil
}

// Reload re-reads the config file and applies the simulation section again.
// The new config only replaces the active one once it was applied, a failed
// reload keeps both the previous config and the running simulation.
func (a *App) Reload() error {
	conf := config.NewManager()
	if err := conf.Load(a.Conf.Path(), false); err != nil {
		return err
	}

	if err := a.applySimulation(conf.Simulation().C()); err != nil {
		return err
	}

	a.Conf = conf
	return nil
}

// StartEmitter runs the nmea emitter until ctx is done, no-op if output is disabled
func (a *App) StartEmitter(ctx context.Context) {
	if a.Emitter == nil {
		return
	}

	a.WG.Add(1)
	go func() {
		defer a.WG.Done()
		a.Emitter.Run(ctx)
	}()
}

// MetricsHandler serves the app registry
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry})
}

// Setup parses the command line and builds the app
func Setup(instrumentation bool) (*App, error) {
	// Skip cli flag parsing on testing
	var flags config.CLIFlags
	if !instrumentation {
		flags = config.ParseCLIFlags()
	} else {
		flags = config.CLIFlags{Debug: true, ConfigPath: config.DefaultConfigPath}
	}

	return SetupWithFlags(flags, instrumentation)
}

// SetupWithFlags builds the app from already parsed flags. With instrumentation
// set a missing config is accepted and the serial output is never opened.
func SetupWithFlags(flags config.CLIFlags, instrumentation bool) (*App, error) {
	app := &App{TestRunning: instrumentation}

	// Register a quit signal
	app.ExitSignal = make(chan os.Signal, 1)
	signal.Notify(app.ExitSignal, os.Interrupt, syscall.SIGTERM)

	// Register the reload signal
	app.ReloadSignal = make(chan os.Signal, 1)
	signal.Notify(app.ReloadSignal, syscall.SIGUSR1)

	// Initialize logger
	log.Init(flags.Debug)

	log.Info("locsim starting")

	if err := app.loadConfiguration(flags.ConfigPath, instrumentation); err != nil {
		app.Shutdown()
		return nil, err
	}

	// The config can turn on debug logging as well
	if !flags.Debug && app.Conf.Client().C().Debug {
		log.Init(true)
		log.Debug("debug logging enabled by config")
	}

	if err := setupMetrics(app); err != nil {
		app.Shutdown()
		log.Error("Could not register metrics", zap.Error(err))
		return nil, err
	}

	if err := startGPSService(app); err != nil {
		app.Shutdown()
		log.Error("Could not initialize gnss services", zap.Error(err))
		return nil, err
	}

	if !instrumentation {
		if err := setupEmitter(app); err != nil {
			app.Shutdown()
			log.Error("Could not set up nmea output", zap.Error(err))
			return nil, err
		}
	}

	if err := app.ApplySimulation(); err != nil {
		// A broken route should not take the process down, it can be fixed and reloaded
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("simulation route missing, staying idle", zap.Error(err))
		} else {
			log.Error("Could not apply simulation config", zap.Error(err))
		}
	}

	return app, nil
}
