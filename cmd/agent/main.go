// Package main is the entry point for the Pinty host agent.
// It loads configuration, wires the samplers, run-state marker and reporter
// into the report loop, and runs as either a Windows service or a
// foreground process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pinty-monitor/agent/internal/collector"
	"github.com/pinty-monitor/agent/internal/config"
	"github.com/pinty-monitor/agent/internal/models"
	"github.com/pinty-monitor/agent/internal/scheduler"
	"github.com/pinty-monitor/agent/internal/sender"
	"github.com/pinty-monitor/agent/internal/service"
	"github.com/pinty-monitor/agent/internal/setup"
	"github.com/pinty-monitor/agent/internal/state"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath   = flag.String("config", "", "Path to configuration file (default: auto-discover)")
	showVersion  = flag.Bool("version", false, "Show version and exit")
	runSetup     = flag.Bool("setup", false, "Install the agent as a service and exit")
	runUninstall = flag.Bool("uninstall", false, "Remove the service installed by --setup and exit")
	setupMode    = flag.String("mode", "", "Install mode for --setup and --uninstall: system or user")
	flagURL      = flag.String("url", "", "Report endpoint URL")
	flagID       = flag.String("server-id", "", "Server identifier")
	flagSecret   = flag.String("secret", "", "Shared secret")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("pinty-agent %s\n", version)
		os.Exit(0)
	}

	if *runSetup {
		err := setup.Run(version, setup.Options{
			Mode:     *setupMode,
			URL:      *flagURL,
			ServerID: *flagID,
			Secret:   *flagSecret,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *runUninstall {
		if err := setup.Uninstall(*setupMode); err != nil {
			fmt.Fprintf(os.Stderr, "Uninstall failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cli := config.CLIOverrides{URL: *flagURL, ServerID: *flagID, Secret: *flagSecret}
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadLayered(cli, embeddedConfig, *configPath)
	} else {
		cfg, err = config.LoadLayered(cli, embeddedConfig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Pinty Agent",
		zap.String("version", version),
		zap.String("server", cfg.Server.URL))

	if service.IsWindowsService() {
		logger.Info("Running as Windows service")
		svc := service.New(logger, func(ctx context.Context) {
			runAgent(ctx, cfg, logger)
		})
		if err := svc.Run(); err != nil {
			logger.Fatal("Service failed", zap.Error(err))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Received signal, shutting down")
	}()

	runAgent(ctx, cfg, logger)
	logger.Info("Agent stopped")
}

// runAgent builds all components and runs the report loop.
// It blocks until the context is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	caps, err := collector.ResolveCapabilities(ctx, cfg.Collection.Source)
	if err != nil {
		logger.Error("Failed to resolve collection sources", zap.Error(err))
		return
	}
	logger.Info("Collection sources resolved",
		zap.String("mode", cfg.Collection.Source),
		zap.Bool("library", caps.Library))

	opts := collector.Options{
		Capabilities: caps,
		Window:       cfg.Collection.Window.Duration,
		Logger:       logger,
	}

	scope, err := state.ParseScope(cfg.State.Scope)
	if err != nil {
		logger.Error("Invalid marker scope", zap.Error(err))
		return
	}
	marker := state.NewMarker(cfg.State.MarkerDir, scope, cfg.State.MarkerTTL.Duration, logger)
	defer marker.Close()

	sched := scheduler.New(
		collector.NewSampler(opts),
		collector.NewInventory(opts),
		marker,
		sender.New(cfg.Server, logger),
		scheduler.Options{
			Identity:     models.Identity{ServerID: cfg.Server.ServerID, Secret: cfg.Server.Secret},
			Interval:     cfg.Collection.Interval.Duration,
			ResendStatic: cfg.Collection.ResendStatic,
		},
		logger,
	)

	logger.Info("Agent running",
		zap.Duration("interval", cfg.Collection.Interval.Duration),
		zap.String("marker", marker.Path()))
	sched.Start(ctx)
}

// initLogger creates a zap logger writing human-readable output to stderr
// and JSON lines to the configured log file.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr),
			level,
		),
	}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(file),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}
