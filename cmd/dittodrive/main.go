package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/config"
)

const usage = `DittoDrive - personal cloud drive engine

Usage:
  dittodrive <command> [flags]

Commands:
  init    Write a default configuration file
  start   Run the daemon (metrics endpoint and orphan collection)
  gc      Run one orphan collection pass and exit
  check   Load and validate the configuration

Run 'dittodrive <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit(os.Args[2:])
	case "start":
		err = cmdStart(os.Args[2:])
	case "gc":
		err = cmdGC(os.Args[2:])
	case "check":
		err = cmdCheck(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to write (default: $XDG_CONFIG_HOME/dittodrive/config.yaml)")
	force := fs.Bool("force", false, "Overwrite an existing file")
	_ = fs.Parse(args)

	if *configPath != "" {
		if err := config.InitConfigToPath(*configPath, *force); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", *configPath)
		return nil
	}

	path, err := config.InitConfig(*force)
	if err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	fmt.Printf("Configuration OK: metadata=%s content=%s search=%s gc=%v\n",
		cfg.Metadata.Type, cfg.Content.Type, cfg.Search.Mode, cfg.GC.Enabled)
	return nil
}

// loadAndConfigure loads the configuration and applies its logging section.
func loadAndConfigure(configPath, logLevel string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}
	return cfg, nil
}

func cmdGC(args []string) error {
	fs := flag.NewFlagSet("gc", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dryRun := fs.Bool("dry-run", false, "Report orphans without removing them")
	logLevel := fs.String("log-level", "", "Override the configured log level")
	_ = fs.Parse(args)

	cfg, err := loadAndConfigure(*configPath, *logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if *dryRun {
		cfg.GC.DryRun = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := config.InitializeRuntime(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	stats, err := rt.Collector.RunNow(ctx)
	if err != nil {
		return fmt.Errorf("orphan collection failed: %w", err)
	}

	fmt.Println(stats.Summary())
	return nil
}

func cmdStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	logLevel := fs.String("log-level", "", "Override the configured log level")
	_ = fs.Parse(args)

	cfg, err := loadAndConfigure(*configPath, *logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fmt.Println("DittoDrive - Personal Cloud Drive Engine")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Metadata store: %s", cfg.Metadata.Type)
	logger.Info("Content store: %s", cfg.Content.Type)
	logger.Info("Search mode: %s, max depth: %d", cfg.Search.Mode, cfg.Hierarchy.MaxDepth)
	logger.Info("Cascade concurrency: %d, rate limit: %d ops/s",
		cfg.Cascade.Concurrency, cfg.Cascade.RateLimit.OpsPerSecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := config.InitializeMetrics(cfg)

	rt, err := config.InitializeRuntime(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Failed to close stores: %v", err)
		}
	}()

	rt.Collector.Start()

	serverDone := make(chan error, 1)
	if m.Server != nil {
		go func() {
			serverDone <- m.Server.Start(ctx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("DittoDrive is running. Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverDone:
		if err != nil {
			runErr = err
			logger.Error("Metrics server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := rt.Collector.Stop(shutdownCtx); err != nil {
		logger.Warn("Orphan collector did not stop cleanly: %v", err)
	}

	cancel()
	if m.Server != nil {
		if err := m.Server.Stop(shutdownCtx); err != nil {
			logger.Warn("Metrics server did not stop cleanly: %v", err)
		}
	}

	logger.Info("DittoDrive stopped")
	return runErr
}
