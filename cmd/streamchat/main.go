package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StreamChat/internal/config"
	"StreamChat/internal/endpoint"
	"StreamChat/internal/history"
	"StreamChat/internal/server"
	"StreamChat/internal/telemetry"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to TOML config file")
	var flagEndpointURL, flagEndpoint, flagListen, flagDB, flagTelemetry string
	flag.StringVar(&flagEndpointURL, "endpoint-url", "", "Base URL of the model-serving host")
	flag.StringVar(&flagEndpoint, "endpoint", "", "Serving endpoint name")
	flag.StringVar(&flagListen, "listen", "", "Listen address for the web UI")
	flag.StringVar(&flagDB, "db", "", "SQLite path for chat history (empty string keeps the config value)")
	flag.StringVar(&flagTelemetry, "telemetry-url", "", "Websocket URL of the usage telemetry bus")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if flagEndpointURL != "" {
		cfg.EndpointURL = flagEndpointURL
	}
	if flagEndpoint != "" {
		cfg.EndpointName = flagEndpoint
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagTelemetry != "" {
		cfg.TelemetryURL = flagTelemetry
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := telemetry.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	client := endpoint.NewClient(cfg.EndpointURL, cfg.EndpointName, logger, tracer, meter)

	// The app runs without persistence when the database is unavailable.
	var store *history.Store
	if cfg.DBPath != "" {
		store, err = history.Open(cfg.DBPath, cfg.EndpointName, logger)
		if err != nil {
			logger.Warn("database initialization failed, continuing without persistence", "error", err)
			fmt.Fprintf(os.Stderr, "Warning: database initialization failed: %v. Continuing without persistence.\n", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	bus := telemetry.NewBus(cfg.TelemetryURL, logger)
	defer bus.Close()

	srv := server.New(cfg, client, store, bus, logger)
	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting web UI", "listen", cfg.Listen, "endpoint", cfg.EndpointName)
	fmt.Printf("StreamChat listening on %s (endpoint: %s)\n", cfg.Listen, cfg.EndpointName)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
