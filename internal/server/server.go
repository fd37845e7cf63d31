package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/carfocus/internal/api/http"
	"github.com/GriffinCanCode/carfocus/internal/api/middleware"
	"github.com/GriffinCanCode/carfocus/internal/domain/caraudio"
	"github.com/GriffinCanCode/carfocus/internal/domain/focus"
	"github.com/GriffinCanCode/carfocus/internal/domain/zone"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/config"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/logging"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/carfocus/internal/providers/permissions"
	"github.com/GriffinCanCode/carfocus/internal/providers/webhook"
	"github.com/GriffinCanCode/carfocus/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	service  *caraudio.Service
	hub      *ws.Hub
	notifier *webhook.Notifier
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance. The caller owns logger.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing car audio focus broker",
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("dynamic_routing", cfg.Audio.DynamicRouting),
		zap.Bool("car_focus", cfg.Audio.CarFocus),
	)

	// Metrics get their own registry so servers can coexist in tests
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	tracer := tracing.New("carfocus", logger.Logger)

	var zones []*zone.Zone
	if cfg.Audio.DynamicRouting {
		var err error
		zones, err = loadZones(cfg.Audio.ZoneConfigPath)
		if err != nil {
			tracer.Close()
			return nil, err
		}
		logger.Info("Audio zones loaded",
			zap.Int("zones", len(zones)),
			zap.String("path", cfg.Audio.ZoneConfigPath),
		)
	}

	perms := permissions.NewProvider(cfg.Audio.DuckingPackages, logger.Logger)
	hub := ws.NewHub(logger.Logger, metrics)

	dispatcher := focus.MultiDispatcher{hub}
	var notifier *webhook.Notifier
	if cfg.Webhook.Enabled {
		notifier = webhook.New(webhook.Config{
			Timeout:           cfg.Webhook.Timeout,
			MaxRetries:        cfg.Webhook.MaxRetries,
			RetryWait:         webhook.DefaultConfig().RetryWait,
			RequestsPerSecond: cfg.Webhook.RequestsPerSecond,
			QueueSize:         cfg.Webhook.QueueSize,
			Workers:           cfg.Webhook.Workers,
		}, logger.Logger, metrics)
		dispatcher = append(dispatcher, notifier)
	}

	service, err := caraudio.New(caraudio.Options{
		DynamicRouting: cfg.Audio.DynamicRouting,
		CarFocus:       cfg.Audio.CarFocus,
		ConfigPath:     cfg.Audio.ZoneConfigPath,
		Zones:          zones,
		Permissions:    perms,
		Dispatcher:     dispatcher,
		Logger:         logger.Logger,
		Metrics:        metrics,
	})
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to create car audio service: %w", err)
	}
	if err := service.Init(); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to initialize car audio service: %w", err)
	}
	service.RegisterVolumeListener(hub)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Register routes
	api.NewHandlers(service, perms, notifier, logger.Logger).Register(router)

	// WebSocket
	router.GET("/ws", hub.HandleConnection)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	router.GET("/metrics/json", api.NewMetricsAggregator(metrics, service, hub, notifier).GetAggregatedMetrics)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		service:  service,
		hub:      hub,
		notifier: notifier,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

func loadZones(path string) ([]*zone.Zone, error) {
	if path == "" {
		zones, err := zone.Build(zone.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to build default zones: %w", err)
		}
		return zones, nil
	}
	zones, err := zone.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load zone configuration %s: %w", path, err)
	}
	return zones, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Service returns the car audio service
func (s *Server) Service() *caraudio.Service {
	return s.service
}

// Run serves HTTP and delivers webhooks until ctx is cancelled, then shuts
// down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if s.notifier != nil {
		g.Go(func() error {
			return s.notifier.Run(ctx)
		})
	}

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")
		// Close streams first; Shutdown does not wait for hijacked connections
		s.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the service and background workers
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.hub.Close()
	s.service.Release()
	s.tracer.Close()

	// Flush buffered entries; the caller still owns the logger
	if err := s.logger.Sync(); err != nil {
		s.logger.Debug("Logger sync failed", zap.Error(err))
	}
	return nil
}
