package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// CargoCollector bundles Prometheus metrics for the cargo API and inventory
// and provides helpers to wire them into gRPC servers and HTTP handlers.
type CargoCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	InventoryItems      prometheus.Gauge
	InventoryPlaced     prometheus.Gauge
	InventoryWaste      prometheus.Gauge
	InventoryContainers prometheus.Gauge
	MissionDay          prometheus.Gauge
	ActivityEntries     *prometheus.CounterVec
}

// NewCargoCollector registers cargo Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCargoCollector(reg prometheus.Registerer) (*CargoCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cargo_requests_total",
		Help: "Total number of handled cargo RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"})
	requests, err := registerCounterVec(reg, requests, "cargo_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cargo_request_duration_seconds",
		Help:    "Cargo RPC latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"})
	durations, err = registerHistogramVec(reg, durations, "cargo_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	items, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_items",
		Help: "Current number of items in the inventory.",
	}), "inventory_items")
	if err != nil {
		return nil, err
	}
	placed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_items_placed",
		Help: "Current number of items stowed in a container.",
	}), "inventory_items_placed")
	if err != nil {
		return nil, err
	}
	waste, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_items_waste",
		Help: "Current number of items flagged as waste.",
	}), "inventory_items_waste")
	if err != nil {
		return nil, err
	}
	containers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_containers",
		Help: "Current number of registered containers.",
	}), "inventory_containers")
	if err != nil {
		return nil, err
	}
	day, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mission_day",
		Help: "Whole days elapsed since the mission start date.",
	}), "mission_day")
	if err != nil {
		return nil, err
	}

	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_entries_total",
		Help: "Activity log entries written, labeled by action type.",
	}, []string{"action"})
	entries, err = registerCounterVec(reg, entries, "activity_entries_total")
	if err != nil {
		return nil, err
	}

	return &CargoCollector{
		gatherer:            gatherer,
		RPCRequests:         requests,
		RPCDurations:        durations,
		InventoryItems:      items,
		InventoryPlaced:     placed,
		InventoryWaste:      waste,
		InventoryContainers: containers,
		MissionDay:          day,
		ActivityEntries:     entries,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *CargoCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *CargoCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetInventoryCounts satisfies the CargoMetricsRecorder interface so the
// CargoState can drive gauge values directly from its commits.
func (c *CargoCollector) SetInventoryCounts(items, placed, waste, containers int) {
	if c == nil {
		return
	}
	if c.InventoryItems != nil {
		c.InventoryItems.Set(float64(items))
	}
	if c.InventoryPlaced != nil {
		c.InventoryPlaced.Set(float64(placed))
	}
	if c.InventoryWaste != nil {
		c.InventoryWaste.Set(float64(waste))
	}
	if c.InventoryContainers != nil {
		c.InventoryContainers.Set(float64(containers))
	}
}

// SetMissionDay updates the mission day gauge.
func (c *CargoCollector) SetMissionDay(day int) {
	if c == nil || c.MissionDay == nil {
		return
	}
	c.MissionDay.Set(float64(day))
}

// RecordActivity adds n entries for action.
func (c *CargoCollector) RecordActivity(action string, n int) {
	if c == nil || c.ActivityEntries == nil || n <= 0 {
		return
	}
	c.ActivityEntries.WithLabelValues(action).Add(float64(n))
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
