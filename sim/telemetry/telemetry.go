// Package telemetry exports simulation progress as Prometheus metrics.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/harvest-sim/sim"
)

// Collector implements sim.StepObserver and keeps one metric set per registry.
type Collector struct {
	Registry *prometheus.Registry

	requests    prometheus.Counter
	rejections  *prometheus.CounterVec
	accepted    *prometheus.CounterVec
	reward      prometheus.Counter
	battery     prometheus.Gauge
	reservation prometheus.Gauge
	clock       prometheus.Gauge
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_requests_total",
			Help: "Requests decided by the policy.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_rejections_total",
			Help: "Rejected requests by rejection cause.",
		}, []string{"cause"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_accepted_total",
			Help: "Accepted requests by frequency tier (1-based).",
		}, []string{"tier"}),
		reward: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_reward_total",
			Help: "Cumulative positive reward of decided requests.",
		}),
		battery: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_battery_charge",
			Help: "Battery charge at the latest decision point.",
		}),
		reservation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_energy_reservation",
			Help: "Energy reserved for running tasks at the latest decision point.",
		}),
		clock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvest_sim_clock_hours",
			Help: "Simulated clock at the latest decision point.",
		}),
	}
	c.Registry.MustRegister(c.requests, c.rejections, c.accepted, c.reward, c.battery, c.reservation, c.clock)
	return c
}

// ObserveStep implements sim.StepObserver.
func (c *Collector) ObserveStep(out sim.StepOutcome) {
	c.requests.Inc()
	if out.Action == sim.ActionReject {
		c.rejections.WithLabelValues(out.Cause.String()).Inc()
	} else {
		c.accepted.WithLabelValues(strconv.Itoa(out.Action)).Inc()
	}
	// counters panic on negative increments; a negative tradeoff reward is skipped
	if out.Reward > 0 {
		c.reward.Add(out.Reward)
	}
	if out.State != nil {
		c.battery.Set(out.State.Battery)
		c.reservation.Set(out.State.Reservation)
		c.clock.Set(out.State.Clock)
	}
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in a background goroutine.
func (c *Collector) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	go func() {
		logrus.Infof("serving metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logrus.Errorf("metrics server: %v", err)
		}
	}()
}
