package simulation

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	RejectInvalidCoordinate = "invalid_coordinate"
	RejectEmptyRoute        = "empty_route"
	RejectInvalidInterval   = "invalid_interval"
)

// Metrics exposes the engine state to prometheus, a nil *Metrics is a no-op
type Metrics struct {
	Ticks         prometheus.Counter
	RoutesStarted prometheus.Counter
	PositionsSet  prometheus.Counter
	Rejected      *prometheus.CounterVec
	Enabled       prometheus.Gauge
}

// NewMetrics registers the simulation metrics against reg, collectors that are
// already registered are reused
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{}
	var err error

	m.Ticks, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locsim_route_ticks_total",
		Help: "Number of route playback ticks that published a position.",
	}), "locsim_route_ticks_total")
	if err != nil {
		return nil, err
	}

	m.RoutesStarted, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locsim_routes_started_total",
		Help: "Number of route playbacks started.",
	}), "locsim_routes_started_total")
	if err != nil {
		return nil, err
	}

	m.PositionsSet, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locsim_positions_set_total",
		Help: "Number of single point positions applied.",
	}), "locsim_positions_set_total")
	if err != nil {
		return nil, err
	}

	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locsim_rejected_requests_total",
		Help: "Control requests rejected by validation, by reason.",
	}, []string{"reason"})
	if err := reg.Register(rejected); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("collector locsim_rejected_requests_total already registered with incompatible type")
		}
		rejected = existing
	}
	m.Rejected = rejected

	enabled := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "locsim_simulation_enabled",
		Help: "1 if the simulated position overrides the real fix.",
	})
	if err := reg.Register(enabled); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(prometheus.Gauge)
		if !ok {
			return nil, fmt.Errorf("collector locsim_simulation_enabled already registered with incompatible type")
		}
		enabled = existing
	}
	m.Enabled = enabled

	return m, nil
}

func (m *Metrics) incTicks() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

func (m *Metrics) incRoutesStarted() {
	if m == nil {
		return
	}
	m.RoutesStarted.Inc()
}

func (m *Metrics) incPositionsSet() {
	if m == nil {
		return
	}
	m.PositionsSet.Inc()
}

func (m *Metrics) incRejected(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) setEnabled(enabled bool) {
	if m == nil {
		return
	}
	if enabled {
		m.Enabled.Set(1)
	} else {
		m.Enabled.Set(0)
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
