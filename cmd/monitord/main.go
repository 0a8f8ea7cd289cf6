package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AntMonss/claude-monitor/internal/aggregate"
	"github.com/AntMonss/claude-monitor/internal/api"
	"github.com/AntMonss/claude-monitor/internal/collector"
	"github.com/AntMonss/claude-monitor/internal/config"
	"github.com/AntMonss/claude-monitor/internal/diagnose"
	"github.com/AntMonss/claude-monitor/internal/events"
	"github.com/AntMonss/claude-monitor/internal/ingest"
	"github.com/AntMonss/claude-monitor/internal/logstore"
	"github.com/AntMonss/claude-monitor/internal/mode"
	"github.com/AntMonss/claude-monitor/internal/monitor"
	"github.com/AntMonss/claude-monitor/internal/rotation"
	"github.com/AntMonss/claude-monitor/internal/watchstate"
)

const version = "0.3.0"

func main() {
	// A .env next to the binary overrides nothing already exported.
	godotenv.Load()

	cfg := config.FromEnv()

	dataDir := flag.String("data-dir", cfg.DataDir, "Directory for log files and watch state")
	apiAddr := flag.String("api-addr", cfg.APIAddr, "Query/control API listen address")
	ingestAddr := flag.String("ingest-addr", cfg.IngestAddr, "OTLP push-telemetry listen address")
	noIngest := flag.Bool("no-ingest", false, "Disable the push-telemetry listener (passive mode only)")
	otelExporter := flag.String("otel-exporter", "none", "Self-telemetry exporter: none, stdout, otlp-grpc, otlp-http")
	otelEndpoint := flag.String("otel-endpoint", "", "OTLP endpoint for self-telemetry export")
	devMode := flag.Bool("dev", false, "Development mode: fast intervals, stdout self-telemetry")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("claude-monitor %s\n", version)
		return
	}

	cfg.DataDir = *dataDir
	cfg.APIAddr = *apiAddr
	cfg.IngestAddr = *ingestAddr
	cfg = cfg.WithDefaults()

	if *devMode {
		cfg.SystemInterval = 1 * time.Second
		cfg.ProcessInterval = 1 * time.Second
		cfg.LatencyInterval = 5 * time.Second
		cfg.LocalInterval = 5 * time.Second
		cfg.RotationInterval = 30 * time.Second
		*otelExporter = string(monitor.ExporterStdout)
		fmt.Println("Development mode: fast intervals, stdout self-telemetry")
	}

	events.SetGlobalEventLogger(events.NewEventLogger())

	ctx := context.Background()

	selfTelemetry := monitor.ExporterType(*otelExporter) != monitor.ExporterNone
	metrics, err := monitor.NewMetrics(ctx, &monitor.MetricsConfig{
		Enabled:        selfTelemetry,
		ServiceName:    "claude-monitor",
		ServiceVersion: version,
		ExporterType:   monitor.ExporterType(*otelExporter),
		OTLPEndpoint:   *otelEndpoint,
		OTLPInsecure:   true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing metrics: %v\n", err)
		os.Exit(1)
	}
	monitor.SetGlobalMetrics(metrics)

	tracer, err := monitor.NewTracer(ctx, &monitor.TracerConfig{
		Enabled:        selfTelemetry,
		ServiceName:    "claude-monitor",
		ServiceVersion: version,
		ExporterType:   monitor.ExporterType(*otelExporter),
		OTLPEndpoint:   *otelEndpoint,
		OTLPInsecure:   true,
		SampleRate:     1.0,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing tracer: %v\n", err)
		os.Exit(1)
	}
	monitor.SetGlobalTracer(tracer)

	store, err := logstore.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening data directory: %v\n", err)
		os.Exit(1)
	}

	watch := watchstate.NewFile(filepath.Join(cfg.DataDir, config.WatchStateFile))

	supervisor := collector.NewSupervisor()
	runners := []*collector.Runner{
		collector.NewRunner(collector.NewSystemSampler(config.SystemLog, cfg.WatcherKeywords), cfg.SystemInterval, store, watch),
		collector.NewRunner(collector.NewProcessSampler(config.ProcessLog, cfg.TopProcessCount, cfg.WatcherKeywords), cfg.ProcessInterval, store, watch),
		collector.NewRunner(collector.NewLatencySampler(config.NetworkLog, cfg.LatencyEndpoints), cfg.LatencyInterval, store, watch),
		collector.NewRunner(collector.NewClaudeLocalSampler(config.ClaudeLocalLog, cfg.ClaudeDir, cfg.MaxSessionsPerTick), cfg.LocalInterval, store, watch),
		collector.NewRunner(collector.NewCodexLocalSampler(config.CodexLocalLog, cfg.CodexDir, cfg.MaxSessionsPerTick), cfg.LocalInterval, store, watch),
	}
	for _, r := range runners {
		if err := supervisor.Register(r); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering collector: %v\n", err)
			os.Exit(1)
		}
	}

	// A dead ingest listener only means no push telemetry; the local
	// scrapers keep working, so this failure is not fatal.
	var ingestServer *ingest.Server
	if !*noIngest {
		ingestServer = ingest.NewServer(cfg.IngestAddr, store)
		if err := ingestServer.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: push-telemetry listener failed to start: %v\n", err)
			ingestServer = nil
		} else {
			fmt.Printf("Push-telemetry listener on %s\n", ingestServer.URL())
		}
	}

	detector := mode.NewDetector(
		fmt.Sprintf("http://%s/health", cfg.IngestAddr),
		store, cfg.ProbeTimeout, cfg.TelemetryWindow,
	)
	aggregator := aggregate.New(store, detector, cfg)
	diagnoser := diagnose.NewRunner(cfg.DiagnoseCommand, cfg.DiagnoseTimeout)

	rotator := rotation.NewDaemon(store, cfg.RotationInterval, cfg.RotationMaxLines)
	rotator.Start()

	apiServer := api.NewServer(cfg.APIAddr, aggregator, detector, watch, supervisor, diagnoser)
	if err := apiServer.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting API server: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Monitor API listening on %s\n", apiServer.URL())

	state, err := watch.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading watch state: %v\n", err)
		os.Exit(1)
	}
	if state.Enabled {
		if err := supervisor.StartAll(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting collectors: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Collectors running: %v\n", supervisor.Running())
	} else {
		fmt.Println("Watching disabled; collectors idle until enabled via POST /api/watch")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	supervisor.Shutdown()
	rotator.Stop()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error during API shutdown: %v\n", err)
	}
	if ingestServer != nil {
		if err := ingestServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during ingest shutdown: %v\n", err)
		}
	}
	metrics.Shutdown(shutdownCtx)
	tracer.Shutdown(shutdownCtx)
	fmt.Println("Monitor stopped")
}
