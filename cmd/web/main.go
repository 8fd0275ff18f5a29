package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rushweb/internal/auth"
	"rushweb/internal/config"
	"rushweb/internal/datefmt"
	"rushweb/internal/httpmiddleware"
	"rushweb/internal/logging"
	"rushweb/internal/notify"
	"rushweb/internal/rushclient"
	"rushweb/internal/store"
	"rushweb/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("production").Fatal("config load failed", zap.Error(err))
	}
	logger := logging.New(cfg.Env)
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := rushclient.New(cfg.BackendURL, cfg.BackendTimeout, logger.Named("backend"))

	checks := []web.Check{{Name: "backend", Ping: backend.Health}}

	var notifyStore notify.Store
	if cfg.NotifyBackend == "redis" {
		redisClient, err := store.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		notifyStore = notify.NewRedis(redisClient.Client, "rushweb:toasts", 10*time.Minute)
		checks = append(checks, web.Check{Name: "redis", Ping: redisClient.Ping})
	} else {
		memory := notify.NewInMemory(16, 10*time.Minute)
		go memory.Run(ctx, time.Minute)
		notifyStore = memory
	}

	sessionLogger := logger.Named("auth")
	sessions := auth.NewRegistry(cfg.SessionIdleTTL, func(token string) *auth.Session {
		s := auth.NewSession(backend, auth.NewMemoryTokenStore(token), auth.SessionOptions{
			Debounce: cfg.AuthDebounce,
			Logger:   sessionLogger,
		})
		s.Subscribe(func(state auth.State) {
			sessionLogger.Debug("auth state changed",
				zap.Bool("authenticated", state.Authenticated),
				zap.String("role", string(state.Role)),
				zap.String("user", state.UserID),
			)
		})
		return s
	})
	go sessions.Run(ctx, time.Minute)

	// Sign-in buckets are small; forget idle ones alongside the sessions.
	limiter := httpmiddleware.NewLimiter(10, 5)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Forget(10 * time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	handler, err := web.New(web.Options{
		Backend:  backend,
		Sessions: sessions,
		Cookie:   auth.DefaultCookie(cfg.CookieDomain, !cfg.IsLocal()),
		Notifier: notify.New(notifyStore, cfg.NotifyThrottle),
		Dates:    datefmt.New(cfg.Location()),
		Logger:   logger.Named("web"),
		PageSize: cfg.PageSize,
		State: web.RedirectState{
			Key:    cfg.StateSigningKey,
			Issuer: cfg.StateIssuer,
			TTL:    cfg.StateTTL,
		},
		Firebase: web.Firebase{
			APIKey:     cfg.FirebaseAPIKey,
			AuthDomain: cfg.FirebaseAuthDomain,
		},
		SignInLimiter: limiter,
	})
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger.Named("http"), "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS(cfg.AllowedOrigins))
	r.Use(httpmiddleware.SecurityHeaders(cfg.IsProduction()))

	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.GET("/healthz", web.Healthz(checks...))
	handler.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}
