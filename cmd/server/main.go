package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/carfocus/internal/infrastructure/config"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/logging"
	"github.com/GriffinCanCode/carfocus/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment; flags override
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Server host")
	flag.StringVar(&cfg.Audio.ZoneConfigPath, "zones", cfg.Audio.ZoneConfigPath, "Zone configuration file (.toml, .yaml)")
	flag.BoolVar(&cfg.Audio.DynamicRouting, "dynamic-routing", cfg.Audio.DynamicRouting, "Route audio by zone instead of legacy stream types")
	flag.BoolVar(&cfg.Audio.CarFocus, "car-focus", cfg.Audio.CarFocus, "Arbitrate audio focus per zone")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.StringVar(&cfg.Lock.Path, "lock", cfg.Lock.Path, "Single instance lock file")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	// One broker per head unit
	lock := flock.New(cfg.Lock.Path)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance holds %s", cfg.Lock.Path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("Failed to release lock", zap.Error(err))
		}
	}()

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Shut down gracefully")
	return nil
}
