// Command bacnet-device runs a BACnet device hosting commandable value
// objects.
//
// The device serves the wire protocol over TCP, optionally exposes an HTTP
// API, and can be driven from an interactive console.
//
// Usage:
//
//	bacnet-device [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-address string     Wire protocol listen address (default ":47808")
//	-http string        HTTP API listen address, "off" to disable (default ":8080")
//	-instance uint      Device instance number
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-interactive        Start the interactive console
//	-version            Show version information
//
// Every configuration field can also be set from BACNET_* environment
// variables, e.g. BACNET_DEVICE_NAME. Flags take precedence over both.
//
// Examples:
//
//	# Start with defaults
//	bacnet-device
//
//	# Start from a config file with debug logging
//	bacnet-device -config /etc/bacnet/device.yaml -log-level debug
//
//	# Start with the console and no HTTP API
//	bacnet-device -interactive -http off
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bacnet-stack/bacnet-go/cmd/bacnet-device/api"
	"github.com/bacnet-stack/bacnet-go/cmd/bacnet-device/interactive"
	"github.com/bacnet-stack/bacnet-go/pkg/config"
	"github.com/bacnet-stack/bacnet-go/pkg/log"
	"github.com/bacnet-stack/bacnet-go/pkg/persistence"
	"github.com/bacnet-stack/bacnet-go/pkg/service"
	"github.com/bacnet-stack/bacnet-go/pkg/transport"
)

// Version information - set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "dev"
	GitCommit = "unknown"
)

var (
	configFile      = flag.String("config", "", "Configuration file path (YAML)")
	address         = flag.String("address", "", "Wire protocol listen address")
	httpAddress     = flag.String("http", "", "HTTP API listen address, \"off\" to disable")
	instance        = flag.Uint("instance", 0, "Device instance number")
	logLevel        = flag.String("log-level", "", "Log level: debug, info, warn, error")
	interactiveMode = flag.Bool("interactive", false, "Start the interactive console")
	showVersion     = flag.Bool("version", false, "Show version information")
)

// shutdownTimeout bounds the HTTP server shutdown.
const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Printf("bacnet-device %s (built %s, commit %s)\n", Version, BuildDate, GitCommit)
		return 0
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	d, err := cfg.NewDevice()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create device: %v\n", err)
		return 1
	}
	svc := service.NewDeviceService(d, cfg.ServiceConfig())

	// The console owns the terminal, so logs go through it when it runs.
	var console *interactive.Console
	logOut := io.Writer(os.Stderr)
	if *interactiveMode {
		if console, err = interactive.New(svc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		logOut = console.Stderr()
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	svc.SetLogger(logger)

	protocolLogger, closeProtocol, err := newProtocolLogger(cfg, logger)
	if err != nil {
		logger.Error("failed to open protocol log", "path", cfg.Log.ProtocolFile, "error", err)
		return 1
	}
	defer closeProtocol()
	svc.SetProtocolLogger(protocolLogger)

	if cfg.Storage.StateFile != "" {
		svc.SetStateStore(persistence.NewDeviceStateStore(cfg.Storage.StateFile))
		if err := svc.LoadState(); err != nil {
			logger.Error("failed to load state", "path", cfg.Storage.StateFile, "error", err)
			return 1
		}
	}
	if cfg.Storage.HistoryDB != "" {
		history, err := persistence.OpenHistory(cfg.Storage.HistoryDB)
		if err != nil {
			logger.Error("failed to open history", "path", cfg.Storage.HistoryDB, "error", err)
			return 1
		}
		defer history.Close()
		svc.SetHistoryStore(history)
	}

	logger.Info("BACnet device starting",
		"version", Version,
		"device", d.ID(),
		"name", d.Name(),
		"objects", d.ObjectCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := svc.Serve(ctx, transport.ServerConfig{
		Address:        cfg.Server.Address,
		MaxMessageSize: cfg.Server.MaxMessageSize,
	})
	if err != nil {
		logger.Error("failed to start server", "address", cfg.Server.Address, "error", err)
		return 1
	}
	defer server.Stop()
	logger.Info("listening", "address", server.Addr().String())

	go svc.Run(ctx)

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddress,
			Handler:           api.New(svc, logger, Version).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP API listening", "address", cfg.Server.HTTPAddress)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed", "error", err)
				cancel()
			}
		}()
	}

	svc.OnEvent(func(ev service.Event) { handleEvent(logger, ev) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if console != nil {
		console.Run(ctx, cancel)
	}
	<-ctx.Done()

	logger.Info("shutting down")
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown", "error", err)
		}
		shutdownCancel()
	}
	if err := svc.SaveState(); err != nil {
		logger.Error("failed to save state", "error", err)
		return 1
	}
	return 0
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "address":
			cfg.Server.Address = *address
		case "http":
			cfg.Server.HTTPAddress = *httpAddress
			if *httpAddress == "off" {
				cfg.Server.HTTPAddress = ""
			}
		case "instance":
			cfg.Device.Instance = uint32(*instance)
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newProtocolLogger sends protocol events to the debug log and, when
// configured, to a CBOR capture file.
func newProtocolLogger(cfg *config.Config, logger *slog.Logger) (log.Logger, func(), error) {
	adapter := log.NewSlogAdapter(logger)
	if cfg.Log.ProtocolFile == "" {
		return adapter, func() {}, nil
	}
	file, err := log.NewFileLogger(cfg.Log.ProtocolFile)
	if err != nil {
		return nil, nil, err
	}
	return log.NewMultiLogger(adapter, file), func() { file.Close() }, nil
}

func handleEvent(logger *slog.Logger, ev service.Event) {
	switch ev.Type {
	case service.EventConnected, service.EventDisconnected:
		logger.Info(ev.Type.String(), "conn", ev.ConnID)
	case service.EventObjectCreated, service.EventObjectDeleted:
		logger.Info(ev.Type.String(), "object", ev.Object, "conn", ev.ConnID)
	case service.EventPropertyWritten:
		logger.Debug(ev.Type.String(), "object", ev.Object, "property", ev.Property, "conn", ev.ConnID)
	case service.EventCommunicationChanged:
		logger.Warn(ev.Type.String(), "state", ev.State)
	}
}
