// Package metrics exposes Prometheus collectors for trajectory runs and range searches.
package metrics

import (
	"time"

	"github.com/dozerworks/hopper"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the collectors of a service. Use NewCollectors and Register them once.
type Collectors struct {
	Simulations    *prometheus.CounterVec
	SimulationStep prometheus.Histogram
	Searches       *prometheus.CounterVec
	SearchPasses   prometheus.Histogram
	SearchDuration prometheus.Histogram
}

// NewCollectors returns unregistered collectors.
func NewCollectors() *Collectors {
	return &Collectors{
		Simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hopper_simulations_total",
				Help: "Number of trajectory runs by outcome",
			},
			[]string{"outcome"},
		),
		SimulationStep: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hopper_simulation_steps",
			Help:    "Number of integration steps of a trajectory run",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		Searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hopper_searches_total",
				Help: "Number of range searches by verdict",
			},
			[]string{"verdict"},
		),
		SearchPasses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hopper_search_passes",
			Help:    "Number of refinement passes of a range search",
			Buckets: prometheus.LinearBuckets(0, 5, 9),
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hopper_search_duration_seconds",
			Help:    "Wall time of a range search",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers all collectors, panicking on duplicates like prometheus.MustRegister.
func (c *Collectors) Register(reg prometheus.Registerer) {
	reg.MustRegister(c.Simulations, c.SimulationStep, c.Searches, c.SearchPasses, c.SearchDuration)
}

// ObserveRun records a run. Errored runs are counted as "diverged" or "invalid".
func (c *Collectors) ObserveRun(o hopper.Outcome, err error) {
	if err != nil {
		c.Simulations.WithLabelValues(errLabel(err)).Inc()
		return
	}
	c.Simulations.WithLabelValues(outcomeLabel(o)).Inc()
	c.SimulationStep.Observe(float64(o.Steps))
}

// ObserveSearch records a search which took d.
func (c *Collectors) ObserveSearch(r hopper.Range, d time.Duration, err error) {
	c.SearchDuration.Observe(d.Seconds())
	if err != nil {
		c.Searches.WithLabelValues(errLabel(err)).Inc()
		return
	}
	c.Searches.WithLabelValues(verdictLabel(r.Verdict)).Inc()
	c.SearchPasses.Observe(float64(len(r.Passes)))
}
