package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/config"
	"github.com/shorouk/radiology/internal/domain/account"
	"github.com/shorouk/radiology/internal/domain/assessment"
	"github.com/shorouk/radiology/internal/domain/dashboard"
	"github.com/shorouk/radiology/internal/domain/nursing"
	"github.com/shorouk/radiology/internal/domain/patient"
	"github.com/shorouk/radiology/internal/domain/radiology"
	"github.com/shorouk/radiology/internal/domain/signature"
	"github.com/shorouk/radiology/internal/domain/user"
	"github.com/shorouk/radiology/internal/domain/visit"
	"github.com/shorouk/radiology/internal/platform/auth"
	"github.com/shorouk/radiology/internal/platform/cache"
	"github.com/shorouk/radiology/internal/platform/db"
	"github.com/shorouk/radiology/internal/platform/hipaa"
	"github.com/shorouk/radiology/internal/platform/logging"
	"github.com/shorouk/radiology/internal/platform/metrics"
	"github.com/shorouk/radiology/internal/platform/middleware"
	"github.com/shorouk/radiology/internal/platform/websocket"
)

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logger
	logger, logCloser := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Dev:        cfg.IsDev(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Sessions and token revocation live in Redis when it is configured so
	// they survive restarts and are shared between instances.
	var (
		sessionStore auth.SessionStore
		revoked      auth.RevocationStore
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect to redis")
			return err
		}
		defer rdb.Close()
		sessionStore = auth.NewRedisSessionStore(rdb)
		revoked = auth.NewRedisRevocationStore(rdb)
		logger.Info().Msg("using redis for sessions and token revocation")
	} else {
		mem := auth.NewMemoryRevocationStore()
		defer mem.Close()
		sessionStore = auth.NewMemorySessionStore()
		revoked = mem
		logger.Warn().Msg("REDIS_URL not set; sessions and revoked tokens are kept in memory")
	}

	key, err := cfg.EncryptionKey()
	if err != nil {
		return err
	}
	cipher, err := hipaa.NewFieldCipher(key)
	if err != nil {
		return err
	}
	if key == nil {
		logger.Warn().Msg("HIPAA_ENCRYPTION_KEY not set; signatures are stored unencrypted")
	}

	m := metrics.New(prometheus.NewRegistry())
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	sessions := auth.NewSessionManager(sessionStore, cfg.SessionSecret, cfg.SessionTTL, cfg.TLSEnabled || cfg.IsProduction())
	tx := db.NewTxManager(pool)

	// WebSocket registry
	hub := websocket.NewHub(websocket.DefaultConfig(), tokens, pool.Ping, m, logger)
	go hub.Run(ctx)

	// Services
	patientSvc := patient.NewService(patient.NewRepoPG(pool), cfg.PhoneRegion)
	signatureSvc := signature.NewService(signature.NewRepoPG(pool), cipher)
	userSvc := user.NewService(user.NewRepoPG(pool), signatureSvc, tx, logger)
	visitSvc := visit.NewService(visit.NewRepoPG(pool), patientSvc, tx)
	nursingSvc := nursing.NewService(nursing.NewRepoPG(pool), visitSvc, signatureSvc, tx, hub, m, logger)
	radiologySvc := radiology.NewService(radiology.NewRepoPG(pool), visitSvc, patientSvc, signatureSvc, tx, hub, m, logger)
	assessmentSvc := assessment.NewService(assessment.NewRepoPG(pool), visitSvc, tx)
	dashboardSvc := dashboard.NewService(dashboard.NewRepoPG(pool), visitSvc, userSvc, patientSvc, assessmentSvc)
	accountSvc := account.NewService(userSvc, tokens, revoked, m, logger)
	sessions.SetPrincipalLoader(userSvc.SessionPrincipal)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(logger, cfg.IsDev())

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics(m))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.FormBodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		Skipper:           probeSkipper,
	}))

	// Public endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, cfg.IsDev()))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e)

	// The browser adapter authenticates by session cookie, the API adapter
	// by bearer token. Both mount the same domain handlers.
	requireToken := auth.JWTMiddleware(auth.JWTConfig{Tokens: tokens, Revoked: revoked})
	web := e.Group("", sessions.Middleware(), middleware.Audit(logger))
	api := e.Group("/api/v1", requireToken, middleware.Audit(logger))

	patientHandler := patient.NewHandler(patientSvc)
	mount([]routeRegistrar{
		dashboard.NewHandler(dashboardSvc),
		patientHandler,
		user.NewHandler(userSvc),
		visit.NewHandler(visitSvc),
		nursing.NewHandler(nursingSvc),
		radiology.NewHandler(radiologySvc),
		signature.NewHandler(signatureSvc),
		assessment.NewHandler(assessmentSvc),
	}, web, api)
	web.GET("/api/patients/search", patientHandler.Search,
		auth.RequireRole(auth.RoleAdmin, auth.RoleNurse, auth.RolePhysician))

	account.NewSessionHandler(accountSvc, sessions).RegisterRoutes(e, web)
	account.NewTokenHandler(accountSvc).RegisterRoutes(e.Group("/api/auth"), requireToken)

	return serve(ctx, e, cfg, logger)
}

// serve runs e until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, e *echo.Echo, cfg *config.Config, logger zerolog.Logger) error {
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.IdleTimeout = 120 * time.Second

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
