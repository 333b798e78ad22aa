package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/internal/activity/sqlite"
	"github.com/signalsfoundry/stowage/internal/api"
	"github.com/signalsfoundry/stowage/internal/config"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/internal/observability"
	"github.com/signalsfoundry/stowage/internal/sim/state"
	"github.com/signalsfoundry/stowage/kb"
	"github.com/signalsfoundry/stowage/timectrl"
)

// autopilotUser is recorded on activity entries written by the day ticker.
const autopilotUser = "autopilot"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the cargo gRPC server listens on (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides config)")
	manifestPath := flag.String("manifest", "", "JSON manifest imported at startup (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargo-server: %v\n", err)
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *manifestPath != "" {
		cfg.Manifest.Path = *manifestPath
	}

	log := logging.New(cfg.LoggerConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, nil); err != nil {
		log.Error(context.Background(), "cargo server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the cargo API until ctx is cancelled. A nil lis listens on
// cfg.Server.GRPCAddr.
func run(ctx context.Context, cfg *config.Config, log logging.Logger, lis net.Listener) error {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Noop()
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := observability.NewCargoCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	planner, err := observability.NewPlannerCollector(reg)
	if err != nil {
		return fmt.Errorf("init planner metrics: %w", err)
	}

	store, closeStore, err := openActivityStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	start, err := cfg.MissionStart(time.Now())
	if err != nil {
		return err
	}
	st := state.NewCargoState(
		kb.NewKnowledgeBase(),
		timectrl.NewMissionClock(start),
		log,
		state.WithMetricsRecorder(collector),
		state.WithPlannerMetrics(planner),
		state.WithActivityStore(store),
		state.WithNearExpiryDays(cfg.Mission.NearExpiryDays),
	)

	if err := importManifest(ctx, st, cfg.Manifest.Path, log); err != nil {
		return err
	}

	if lis == nil {
		lis, err = net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
		}
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			api.RequestIDUnaryServerInterceptor(log),
			api.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	api.RegisterCargoServiceServer(server, api.NewCargoService(st, log))

	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, collector, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	autopilotDone := runAutopilot(runCtx, st, cfg.Mission.AutoAdvance, log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()
	log.Info(ctx, "starting cargo gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Date("mission_start", start),
		logging.String("activity_backend", cfg.ActivityLog.Backend),
	)

	var result error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down cargo server")
		server.GracefulStop()
		<-serveErr
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			result = fmt.Errorf("grpc serve: %w", err)
		}
	}

	cancel()
	<-autopilotDone

	if metricsSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return result
}

func openActivityStore(cfg *config.Config, log logging.Logger) (activity.Store, func(), error) {
	if cfg.ActivityLog.Backend != config.BackendSQLite {
		return activity.NewMemoryStore(), func() {}, nil
	}
	store, err := sqlite.Open(cfg.ActivityLog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open activity log: %w", err)
	}
	log.Info(context.Background(), "activity log opened", logging.String("path", store.Path()))
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn(context.Background(), "close activity log", logging.Err(err))
		}
	}, nil
}

func importManifest(ctx context.Context, st *state.CargoState, path string, log logging.Logger) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	m, err := core.LoadManifest(f)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", path, err)
	}
	res := st.ImportManifest(ctx, m, "manifest")
	for _, rec := range res.Errors {
		log.Warn(ctx, "skipping manifest record", logging.String("record", rec.Record), logging.Err(rec.Err))
	}
	log.Info(ctx, "imported manifest",
		logging.String("path", path),
		logging.Int("containers", res.ContainersImported),
		logging.Int("items", res.ItemsImported),
		logging.Int("rejected", len(res.Errors)),
	)
	return nil
}

// runAutopilot advances the mission one day per interval. A zero interval
// returns an already-closed channel.
func runAutopilot(ctx context.Context, st *state.CargoState, every time.Duration, log logging.Logger) <-chan struct{} {
	advance := func(ctx context.Context) error {
		res, err := st.SimulateDays(ctx, state.SimulateRequest{Days: 1, UserID: autopilotUser})
		if err != nil {
			return err
		}
		log.Debug(ctx, "autopilot advanced mission day",
			logging.Date("date", res.NewDate),
			logging.Int("expired", len(res.Expired)),
		)
		return nil
	}
	if every > 0 {
		log.Info(ctx, "autopilot enabled", logging.Duration("interval", every))
	}
	return timectrl.RunEvery(ctx, every, advance, func(err error) {
		log.Warn(ctx, "autopilot tick failed", logging.Err(err))
	})
}

func serveMetrics(addr string, collector *observability.CargoCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
