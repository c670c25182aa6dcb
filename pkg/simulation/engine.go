// Package simulation owns the simulated position of the process.
//
// An Engine is either idle, pinned to a single point or playing back a route.
// Route playback publishes the first position immediately and then advances
// one position per tick, wrapping around to the first position after the
// last one. All state is guarded by a single mutex that is also held for the
// whole of every tick.
package simulation

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/LeoCommon/locsim/pkg/location"
	"github.com/LeoCommon/locsim/pkg/log"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEngineClosed = errors.New("simulation engine was closed")

type Mode int

const (
	Idle Mode = iota
	SinglePoint
	RoutePlayback
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case SinglePoint:
		return "single-point"
	case RoutePlayback:
		return "route-playback"
	default:
		return fmt.Sprintf("%d", int(m))
	}
}

// State is a consistent snapshot of the engine
type State struct {
	Enabled  bool
	Mode     Mode
	Position *location.Coordinate

	// Route fields are only set in RoutePlayback mode
	RouteID     string
	RouteLength int
	Cursor      int
	Interval    time.Duration
}

type route struct {
	id        string
	positions []location.Coordinate
	cursor    int
	interval  time.Duration

	ticker Ticker
	quit   chan struct{}
	done   chan struct{}
}

// wait blocks until the playback goroutine of r returned
func (r *route) wait() {
	if r == nil {
		return
	}
	<-r.done
}

type Engine struct {
	mu sync.Mutex

	clock   Clock
	metrics *Metrics

	enabled  bool
	mode     Mode
	position *location.Coordinate
	route    *route
	closed   bool
}

type Option func(*Engine)

// WithClock replaces the wall clock, tests use this to drive ticks by hand
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an idle, disabled engine. Create one per process and hand it to
// everything that needs to read or control the simulated position.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock: RealClock{},
		mode:  Idle,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.metrics.setEnabled(false)
	return e
}

// SetEnabled toggles whether the simulated position overrides the real fix.
// Switching from enabled to disabled stops a running route playback, the
// position is kept. A route started while disabled survives SetEnabled(false).
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	var old *route
	if !enabled && e.enabled && e.route != nil {
		old = e.stopLocked()
	}

	changed := e.enabled != enabled
	e.enabled = enabled
	e.metrics.setEnabled(enabled)
	e.mu.Unlock()

	old.wait()

	if old != nil {
		log.Info("route playback stopped", zap.String("route", old.id), zap.String("reason", "disabled"))
	}

	if changed {
		log.Info("location simulation toggled", zap.Bool("enabled", enabled))
	}
}

// IsEnabled reports whether the simulated position should be used
func (e *Engine) IsEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// SetPosition pins the simulated position to c and cancels route playback.
// The enabled flag is left untouched.
func (e *Engine) SetPosition(c location.Coordinate) error {
	if err := c.Validate(); err != nil {
		e.metrics.incRejected(RejectInvalidCoordinate)
		return err
	}

	e.mu.Lock()
	old := e.detachLocked()
	e.position = &c
	e.mode = SinglePoint
	e.mu.Unlock()

	old.wait()

	e.metrics.incPositionsSet()
	log.Info("simulated position set", zap.Float64("lat", c.Latitude), zap.Float64("lon", c.Longitude))
	return nil
}

// SetPositionLatLon is a shorthand for SetPosition
func (e *Engine) SetPositionLatLon(lat, lon float64) error {
	return e.SetPosition(location.Coordinate{Latitude: lat, Longitude: lon})
}

// StartRoute replaces any running playback with positions, publishing
// positions[0] right away and the next position every interval. After the
// last position playback continues with the first one.
// The whole input is validated before any state changes. The returned id
// identifies the playback in State and in log output.
func (e *Engine) StartRoute(positions []location.Coordinate, interval time.Duration) (string, error) {
	if len(positions) == 0 {
		e.metrics.incRejected(RejectEmptyRoute)
		return "", location.ErrEmptyRoute
	}

	if interval <= 0 {
		e.metrics.incRejected(RejectInvalidInterval)
		return "", location.ErrInvalidInterval
	}

	if err := location.ValidateAll(positions); err != nil {
		e.metrics.incRejected(RejectInvalidCoordinate)
		return "", err
	}

	r := &route{
		id:        uuid.NewString(),
		positions: slices.Clone(positions),
		interval:  interval,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrEngineClosed
	}

	old := e.detachLocked()

	first := r.positions[0]
	e.position = &first
	e.mode = RoutePlayback
	e.route = r

	r.ticker = e.clock.NewTicker(interval)
	go e.play(r)
	e.mu.Unlock()

	old.wait()

	e.metrics.incRoutesStarted()
	log.Info("route playback started", zap.String("route", r.id),
		zap.Int("positions", len(r.positions)), zap.Duration("interval", interval))

	return r.id, nil
}

// Stop cancels route playback. The last published position stays current.
// No tick of the cancelled playback publishes after Stop returns.
// Calling Stop while idle is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	old := e.stopLocked()
	e.mu.Unlock()

	old.wait()

	if old != nil {
		log.Info("route playback stopped", zap.String("route", old.id))
	}
}

// Close stops playback and rejects further routes
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	old := e.stopLocked()
	e.mu.Unlock()

	old.wait()
}

// CurrentPosition returns the latest simulated position in any mode, ok is
// false if no position was ever set
func (e *Engine) CurrentPosition() (location.Coordinate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.position == nil {
		return location.Coordinate{}, false
	}
	return *e.position, true
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := State{
		Enabled: e.enabled,
		Mode:    e.mode,
	}

	if e.position != nil {
		pos := *e.position
		s.Position = &pos
	}

	if r := e.route; r != nil {
		s.RouteID = r.id
		s.RouteLength = len(r.positions)
		s.Cursor = r.cursor
		s.Interval = r.interval
	}

	return s
}

// stopLocked detaches the route and falls back to idle, e.mu must be held
func (e *Engine) stopLocked() *route {
	old := e.detachLocked()
	e.mode = Idle
	return old
}

// detachLocked unhooks the running route from the engine. Once this returns
// the route's ticks are discarded, the caller waits for the goroutine after
// releasing e.mu.
func (e *Engine) detachLocked() *route {
	r := e.route
	if r == nil {
		return nil
	}

	e.route = nil
	r.ticker.Stop()
	close(r.quit)
	return r
}

func (e *Engine) play(r *route) {
	defer close(r.done)

	for {
		select {
		case <-r.quit:
			return
		case <-r.ticker.C():
			if !e.tick(r) {
				return
			}
		}
	}
}

// tick advances r by one position, it returns false if r was detached
func (e *Engine) tick(r *route) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.route != r {
		return false
	}

	r.cursor = (r.cursor + 1) % len(r.positions)
	pos := r.positions[r.cursor]
	e.position = &pos

	e.metrics.incTicks()
	log.Debug("route tick", zap.String("route", r.id), zap.Int("cursor", r.cursor),
		zap.Float64("lat", pos.Latitude), zap.Float64("lon", pos.Longitude))
	return true
}
