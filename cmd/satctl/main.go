// Command satctl runs the satellite session service against a simulated
// modem.
//
// It wires the arbiter, the coexistence monitor and the datagram delivery
// manager exactly as a platform integration would, but drives them from a
// modem simulator so the whole flow can be exercised on a workstation.
//
// Usage:
//
//	satctl [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-log-level string   Log level: debug, info, warn, error (overrides config)
//	-event-log string   Event log file (overrides config)
//	-log-file string    Rotated text log file instead of stderr (overrides config)
//	-store string       Store backend: sqlite, json, memory (overrides config)
//	-store-path string  Store path (overrides config)
//	-interactive        Enable interactive command mode
//
// Examples:
//
//	# Run with defaults and a shell
//	satctl -interactive
//
//	# Keep datagrams in a JSON file and trace every event
//	satctl -store json -store-path /tmp/satlink.json -event-log /tmp/events.slog -interactive
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/satlink-project/satlink-go/cmd/satctl/interactive"
	"github.com/satlink-project/satlink-go/pkg/arbiter"
	"github.com/satlink-project/satlink-go/pkg/config"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/service"
)

// Flags holds the command-line flags.
type Flags struct {
	ConfigFile  string
	LogLevel    string
	EventLog    string
	LogFile     string
	Store       string
	StorePath   string
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.StringVar(&flags.EventLog, "event-log", "", "Event log file (overrides config)")
	flag.StringVar(&flags.LogFile, "log-file", "", "Rotated text log file instead of stderr (overrides config)")
	flag.StringVar(&flags.Store, "store", "", "Store backend: sqlite, json, memory (overrides config)")
	flag.StringVar(&flags.StorePath, "store-path", "", "Store path (overrides config)")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.Log.Level)

	base := io.Writer(os.Stderr)
	if cfg.Log.File != "" {
		rotator := newRotator(cfg.Log)
		defer rotator.Close()
		base = rotator
	}
	out := &logOutput{w: base}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	logger.Info("Satlink session service",
		"store", cfg.Store.Backend,
		"path", cfg.Store.Path,
		"required_radios", cfg.Coexistence.RequiredRadios)

	events, closeEvents, err := openEventLog(cfg.Log.EventFile, logger, level)
	if err != nil {
		logger.Error("Failed to open event log", "error", err)
		os.Exit(1)
	}
	defer closeEvents()

	sim := modem.NewSimulator(modem.SimulatorConfig{
		ResponseDelay: cfg.Modem.ResponseDelay.Std(),
		Logger:        logger.With("component", "modem"),
	})
	preconditions := arbiter.NewStaticPreconditions()

	svc, err := service.NewFromConfig(cfg, sim, service.Options{
		Preconditions: preconditions,
		Logger:        logger,
		EventLogger:   events,
	})
	if err != nil {
		logger.Error("Failed to create service", "error", err)
		os.Exit(1)
	}

	svc.OnSessionChange(func(from, to arbiter.Phase) {
		logger.Info("Session phase changed", "from", from, "to", to)
	})

	if err := svc.Start(); err != nil {
		logger.Error("Failed to start service", "error", err)
		os.Exit(1)
	}
	logger.Info("Service started", "state", svc.State(), "session_id", svc.Status().EventSessionID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run interactive mode or wait for signal
	if flags.Interactive {
		sh, err := interactive.New(svc, sim, preconditions)
		if err != nil {
			logger.Error("Failed to create interactive shell", "error", err)
			os.Exit(1)
		}
		// Route log output through readline to keep the prompt intact
		if cfg.Log.File == "" {
			out.set(sh.Stdout())
		}
		go sh.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal", "signal", sig)
	case <-ctx.Done():
		// Context was cancelled (e.g., by interactive quit command)
	}

	logger.Info("Shutting down...")
	cancel()

	out.set(base)
	if err := svc.Stop(); err != nil {
		logger.Error("Error stopping service", "error", err)
	}
	logger.Info("Goodbye!")
}

// loadConfig reads the config file (or the defaults) and applies flag
// overrides.
func loadConfig(f Flags) (config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		loaded, err := config.Load(f.ConfigFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.EventLog != "" {
		cfg.Log.EventFile = f.EventLog
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.Store != "" {
		cfg.Store.Backend = f.Store
	}
	if f.StorePath != "" {
		cfg.Store.Path = f.StorePath
	}
	return cfg, cfg.Validate()
}

// openEventLog builds the event trace: the CBOR file when configured, plus
// the slog adapter at debug level.
func openEventLog(path string, logger *slog.Logger, level slog.Level) (eventlog.Logger, func(), error) {
	var loggers []eventlog.Logger
	closeFn := func() {}

	if path != "" {
		fl, err := eventlog.NewFileLogger(path)
		if err != nil {
			return nil, closeFn, err
		}
		loggers = append(loggers, fl)
		closeFn = func() { _ = fl.Close() }
		logger.Info("Event log enabled", "path", path)
	}
	if level <= slog.LevelDebug {
		loggers = append(loggers, eventlog.NewSlogAdapter(logger.With("trace", true)))
	}

	switch len(loggers) {
	case 0:
		return nil, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return eventlog.NewMultiLogger(loggers...), closeFn, nil
	}
}

// newRotator returns a size-rotated log file writer.
func newRotator(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// logOutput is a writer whose destination can be switched while handlers
// hold it.
type logOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *logOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

func (o *logOutput) set(w io.Writer) {
	o.mu.Lock()
	o.w = w
	o.mu.Unlock()
}
