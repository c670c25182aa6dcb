package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/LeoCommon/locsim/internal/app"
	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/LeoCommon/locsim/pkg/systemd"
	"go.uber.org/zap"
)

const metricsShutdownTimeout = 5 * time.Second

// notify forwards msg to systemd, running outside of a notify unit is fine
func notify(msg string) {
	if err := systemd.Notify(msg); err != nil && !errors.Is(err, systemd.ErrNoNotifySocket) {
		log.Warn("systemd notification failed", zap.String("msg", msg), zap.Error(err))
	}
}

// status reports the simulation mode to systemd
func status(a *app.App) {
	state := a.Engine.State()
	if err := systemd.Status(fmt.Sprintf("simulation enabled: %v, mode: %s", state.Enabled, state.Mode)); err != nil &&
		!errors.Is(err, systemd.ErrNoNotifySocket) {
		log.Debug("systemd status failed", zap.Error(err))
	}
}

// serveMetrics exposes the app registry until the server is shut down
func serveMetrics(a *app.App, listen string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.MetricsHandler())

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.WG.Add(1)
	go func() {
		defer a.WG.Done()

		log.Info("serving metrics", zap.String("listen", listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics endpoint failed", zap.Error(err))
		}
	}()

	return srv
}

func main() {
	a, err := app.Setup(false)
	if err != nil || a == nil {
		fmt.Printf("Initialization failed, error: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.StartEmitter(ctx)

	var metricsServer *http.Server
	if listen := a.Conf.Metrics().C().Listen; listen != "" {
		metricsServer = serveMetrics(a, listen)
	}

	// A nil channel never fires, so without a watchdog that case is inert
	var watchdog <-chan time.Time
	if interval, ok := systemd.WatchdogInterval(); ok {
		watchdogTicker := time.NewTicker(interval)
		defer watchdogTicker.Stop()
		watchdog = watchdogTicker.C
	}

	notify(systemd.NotifyReady)
	status(a)

	a.WG.Add(1)
	go func() {
		defer a.WG.Done()

		for {
			select {
			case <-watchdog:
				if err := systemd.EntertainWatchdog(); err != nil {
					log.Warn("could not entertain watchdog", zap.Error(err))
				}

			case <-a.ReloadSignal:
				log.Info("reload signal received")
				notify(systemd.NotifyReloading)

				if err := a.Reload(); err != nil {
					// The previous simulation stays active
					log.Error("reload failed", zap.Error(err))
				}

				notify(systemd.NotifyReady)
				status(a)

			case <-a.ExitSignal:
				log.Info("exit signal received - shutting down tasks and routines")
				notify(systemd.NotifyStopping)

				cancel()

				if metricsServer != nil {
					sctx, scancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
					if err := metricsServer.Shutdown(sctx); err != nil {
						log.Warn("metrics endpoint shutdown", zap.Error(err))
					}
					scancel()
				}
				return
			}
		}
	}()

	// Wait until everything terminates
	a.WG.Wait()

	log.Info("pending tasks and routines terminated")

	a.Shutdown()

	log.Info("location simulator stopped")
	log.Sync()
}
