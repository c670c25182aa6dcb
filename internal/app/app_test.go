package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeoCommon/locsim/internal/config"
	"github.com/LeoCommon/locsim/pkg/gpx"
	"github.com/LeoCommon/locsim/pkg/location"
	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/LeoCommon/locsim/pkg/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func setupApp(t *testing.T, configPath string) *App {
	t.Helper()
	app, err := SetupWithFlags(config.CLIFlags{ConfigPath: configPath}, true)
	require.NoError(t, err)
	t.Cleanup(app.Shutdown)
	return app
}

func TestSetupWithoutConfig(t *testing.T) {
	app := setupApp(t, filepath.Join(t.TempDir(), "missing.toml"))

	assert.True(t, app.TestRunning)
	assert.Nil(t, app.Emitter)

	state := app.Engine.State()
	assert.False(t, state.Enabled)
	assert.Equal(t, simulation.Idle, state.Mode)

	// Without simulation the stub fix passes through
	data := app.GNSSService.GetData()
	assert.True(t, data.Valid())
}

func TestSetupSinglePoint(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[simulation]
enabled = true

[simulation.position]
latitude = 52.52
longitude = 13.405
`)

	app := setupApp(t, path)

	state := app.Engine.State()
	assert.True(t, state.Enabled)
	assert.Equal(t, simulation.SinglePoint, state.Mode)

	data := app.GNSSService.GetData()
	assert.Equal(t, 52.52, data.Lat)
	assert.Equal(t, 13.405, data.Lon)
}

func TestSetupRouteFile(t *testing.T) {
	dir := t.TempDir()

	doc, err := gpx.RenderRoute([]location.Waypoint{
		{Coordinate: location.Coordinate{Latitude: 1.0, Longitude: 2.0}, Name: "start"},
		{Coordinate: location.Coordinate{Latitude: 3.0, Longitude: 4.0}},
	})
	require.NoError(t, err)

	routePath := filepath.Join(dir, "route.gpx")
	require.NoError(t, gpx.WriteFile(routePath, doc))

	path := writeConfig(t, dir, `
[simulation]
enabled = true
route_file = "`+routePath+`"
interval = "1h"
`)

	app := setupApp(t, path)

	state := app.Engine.State()
	assert.True(t, state.Enabled)
	assert.Equal(t, simulation.RoutePlayback, state.Mode)
	assert.Equal(t, 2, state.RouteLength)
	assert.Equal(t, time.Hour, state.Interval)
	assert.NotEmpty(t, state.RouteID)

	pos, ok := app.Engine.CurrentPosition()
	require.True(t, ok)
	assert.Equal(t, location.Coordinate{Latitude: 1.0, Longitude: 2.0}, pos)
}

func writeRoute(t *testing.T, dir string) string {
	t.Helper()

	doc, err := gpx.RenderRoute([]location.Waypoint{
		{Coordinate: location.Coordinate{Latitude: 1.0, Longitude: 2.0}},
		{Coordinate: location.Coordinate{Latitude: 3.0, Longitude: 4.0}},
	})
	require.NoError(t, err)

	routePath := filepath.Join(dir, "route.gpx")
	require.NoError(t, gpx.WriteFile(routePath, doc))
	return routePath
}

func TestSetupRouteWhileDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[simulation]
enabled = false
route_file = "`+writeRoute(t, dir)+`"
interval = "1h"
`)

	app := setupApp(t, path)

	state := app.Engine.State()
	assert.False(t, state.Enabled)
	assert.Equal(t, simulation.RoutePlayback, state.Mode)
	assert.Equal(t, 2, state.RouteLength)

	// Real fix passes through until the simulation is enabled
	assert.NotEqual(t, 1.0, app.GNSSService.GetData().Lat)

	app.Engine.SetEnabled(true)
	assert.Equal(t, 1.0, app.GNSSService.GetData().Lat)
}

func TestDebugFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[client]
debug = true
`)

	setupApp(t, path)
	assert.True(t, log.DebugEnabled())

	setupApp(t, filepath.Join(dir, "missing.toml"))
	assert.False(t, log.DebugEnabled())
}

func TestSetupMissingRouteStaysIdle(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[simulation]
enabled = true
route_file = "`+filepath.Join(dir, "nope.gpx")+`"
`)

	app := setupApp(t, path)

	assert.Equal(t, simulation.Idle, app.Engine.State().Mode)
	assert.ErrorIs(t, app.ApplySimulation(), os.ErrNotExist)
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[simulation]
enabled = false
`)

	app := setupApp(t, path)
	assert.False(t, app.Engine.IsEnabled())

	writeConfig(t, dir, `
[simulation]
enabled = true

[simulation.position]
latitude = -33.8688
longitude = 151.2093
`)

	require.NoError(t, app.Reload())

	state := app.Engine.State()
	assert.True(t, state.Enabled)
	assert.Equal(t, simulation.SinglePoint, state.Mode)
	require.NotNil(t, state.Position)
	assert.Equal(t, -33.8688, state.Position.Latitude)
}

func TestFailedReloadKeepsConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[simulation]
enabled = true

[simulation.position]
latitude = 10.0
longitude = 20.0
`)

	app := setupApp(t, path)
	require.Equal(t, simulation.SinglePoint, app.Engine.State().Mode)

	writeConfig(t, dir, `
[simulation]
enabled = true
route_file = "`+filepath.Join(dir, "nope.gpx")+`"
`)

	assert.ErrorIs(t, app.Reload(), os.ErrNotExist)

	sim := app.Conf.Simulation().C()
	assert.Empty(t, sim.RouteFile)
	require.NotNil(t, sim.Position)
	assert.Equal(t, 10.0, sim.Position.Latitude)

	state := app.Engine.State()
	assert.Equal(t, simulation.SinglePoint, state.Mode)
	require.NotNil(t, state.Position)
	assert.Equal(t, location.Coordinate{Latitude: 10.0, Longitude: 20.0}, *state.Position)

	// Fixing the file makes the next reload succeed
	writeConfig(t, dir, `
[simulation]
enabled = true
route_file = "`+writeRoute(t, dir)+`"
interval = "1h"
`)

	require.NoError(t, app.Reload())
	assert.Equal(t, simulation.RoutePlayback, app.Engine.State().Mode)
	assert.Equal(t, writeRoute(t, dir), app.Conf.Simulation().C().RouteFile)
}

func TestMetricsHandler(t *testing.T) {
	app := setupApp(t, filepath.Join(t.TempDir(), "missing.toml"))

	require.NoError(t, app.Engine.SetPositionLatLon(10, 20))

	rec := httptest.NewRecorder()
	app.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "locsim_positions_set_total 1")
}

func TestStartEmitterWithoutOutput(t *testing.T) {
	app := setupApp(t, filepath.Join(t.TempDir(), "missing.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	app.StartEmitter(ctx)
	cancel()

	app.WG.Wait()
}
