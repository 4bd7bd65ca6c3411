// Package main is the entry point for the authorization gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uipbdi/authgw/internal/config"
	"github.com/uipbdi/authgw/internal/dispatch"
	"github.com/uipbdi/authgw/internal/filter"
	"github.com/uipbdi/authgw/internal/gateway"
	"github.com/uipbdi/authgw/internal/health"
	"github.com/uipbdi/authgw/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const shutdownTimeout = 15 * time.Second

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)

	run(cfg, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("AUTHGW_CONFIG_PATH", "configs/authgw.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("AUTHGW_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("AUTHGW_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("authgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting authgw",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	return cfg
}

// run wires the dispatcher, filter metrics, and both listeners, then blocks
// until a termination signal arrives.
func run(cfg *config.Config, logger observability.Logger) {
	upstream, err := url.Parse(cfg.Server.Upstream)
	if err != nil {
		logger.Fatal("invalid upstream URL", observability.Error(err))
	}

	target := dispatch.NewTargetEndpoint(cfg.InstanceID)
	if cfg.Authz.AddressOverride != "" {
		target = target.WithAddress(cfg.Authz.AddressOverride)
	}
	logger.Info("authorization target resolved",
		observability.String("cluster", target.Cluster()),
		observability.String("address", target.Address()),
	)

	dispatcherOpts := []dispatch.DispatcherOption{
		dispatch.WithDispatcherLogger(logger),
	}
	if cfg.Authz.CircuitBreaker.Enabled {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithBreaker(dispatch.BreakerSettings{
			MinRequests:  cfg.Authz.CircuitBreaker.MinRequests,
			FailureRatio: cfg.Authz.CircuitBreaker.FailureRatio,
			OpenTimeout:  cfg.Authz.CircuitBreaker.OpenTimeout,
		}))
	}

	dispatcher, err := dispatch.New(target, cfg.Authz.Timeout, dispatcherOpts...)
	if err != nil {
		logger.Fatal("failed to create dispatcher", observability.Error(err))
	}
	defer func() { _ = dispatcher.Close() }()

	filterMetrics := filter.NewMetrics("authgw")
	filterMetrics.Init()

	handler := gateway.NewHandler(upstream, dispatcher,
		gateway.WithHandlerLogger(logger),
		gateway.WithHandlerMetrics(filterMetrics),
	)

	server := gateway.NewServer(cfg.Server, handler, logger)

	checker := health.NewChecker(version)
	checker.RegisterCheck("self", func() health.Check {
		return health.Check{Status: health.StatusHealthy}
	})
	opsServer := gateway.NewOpsServer(cfg.Ops, checker)

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()
	go func() {
		logger.Info("ops listener starting",
			observability.String("address", opsServer.Addr),
		)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down",
			observability.String("signal", sig.String()),
		)
	case err := <-errCh:
		if err != nil {
			logger.Error("listener failed", observability.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("inline listener shutdown failed", observability.Error(err))
	}
	if err := opsServer.Shutdown(ctx); err != nil {
		logger.Error("ops listener shutdown failed", observability.Error(err))
	}

	logger.Info("authgw stopped")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
