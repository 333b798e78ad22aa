package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlannerCollector exposes optimizer and waste-planner Prometheus metrics.
type PlannerCollector struct {
	gatherer prometheus.Gatherer

	PlacementDuration      prometheus.Histogram
	RearrangementsTotal    prometheus.Counter
	PlacementFailuresTotal prometheus.Counter
	ReturnPlanSelected     prometheus.Gauge
}

// NewPlannerCollector registers planner metrics against the provided registerer.
func NewPlannerCollector(reg prometheus.Registerer) (*PlannerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	placementHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_placement_duration_seconds",
		Help:    "Duration of batch placement runs, including rearrangement search.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})
	placementHistogram, err := registerHistogram(reg, placementHistogram, "planner_placement_duration_seconds")
	if err != nil {
		return nil, err
	}

	rearrangements := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_rearrangements_total",
		Help: "Cumulative number of items relocated to make room for higher-priority cargo.",
	})
	rearrangements, err = registerCounter(reg, rearrangements, "planner_rearrangements_total")
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_placement_failures_total",
		Help: "Cumulative number of items the optimizer could not place.",
	})
	failures, err = registerCounter(reg, failures, "planner_placement_failures_total")
	if err != nil {
		return nil, err
	}

	selected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_return_plan_selected_items",
		Help: "Number of waste items selected by the most recent return plan.",
	})
	selected, err = registerGauge(reg, selected, "planner_return_plan_selected_items")
	if err != nil {
		return nil, err
	}

	return &PlannerCollector{
		gatherer:               gatherer,
		PlacementDuration:      placementHistogram,
		RearrangementsTotal:    rearrangements,
		PlacementFailuresTotal: failures,
		ReturnPlanSelected:     selected,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PlannerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObservePlacement records one batch placement run.
func (c *PlannerCollector) ObservePlacement(d time.Duration, rearranged, failed int) {
	if c == nil {
		return
	}
	if c.PlacementDuration != nil {
		c.PlacementDuration.Observe(d.Seconds())
	}
	if c.RearrangementsTotal != nil && rearranged > 0 {
		c.RearrangementsTotal.Add(float64(rearranged))
	}
	if c.PlacementFailuresTotal != nil && failed > 0 {
		c.PlacementFailuresTotal.Add(float64(failed))
	}
}

// SetReturnPlanSelected updates the return-plan selection gauge.
func (c *PlannerCollector) SetReturnPlanSelected(count int) {
	if c == nil || c.ReturnPlanSelected == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	c.ReturnPlanSelected.Set(float64(count))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
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
