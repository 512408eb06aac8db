package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/perimeter/pkg/auth"
	"github.com/platinummonkey/perimeter/pkg/config"
	"github.com/platinummonkey/perimeter/pkg/directory"
	"github.com/platinummonkey/perimeter/pkg/httputil"
	"github.com/platinummonkey/perimeter/pkg/middleware"
	"github.com/platinummonkey/perimeter/pkg/observability"
	"github.com/platinummonkey/perimeter/pkg/session"
	"github.com/platinummonkey/perimeter/pkg/sso"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("perimeter: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// remote directory client and authorization gate
	client := directory.NewRESTClient(directory.RESTClientConfig{
		BaseURL:             cfg.Directory.BaseURL,
		ApplicationName:     cfg.Directory.ApplicationName,
		ApplicationPassword: cfg.Directory.ApplicationPassword,
		Timeout:             cfg.Directory.Timeout,
	})
	gateway := directory.NewGateway(client, directory.GatewayConfig{
		GroupName:    cfg.Directory.GroupName,
		NestedGroups: cfg.Directory.NestedGroups,
		PageSize:     cfg.Directory.PageSize,
	}, log, metrics)

	coordinator := auth.NewCoordinator(gateway, log, metrics)
	resolver := auth.NewUserResolver(client, gateway, log)

	// local session store
	store, err := newSessionStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("session store initialization failed")
	}

	manager := sso.NewSessionManager(client, gateway, sso.CookieConfig{
		Name:   cfg.Directory.SSOCookieName,
		Path:   cfg.Server.BasePath,
		Secure: cfg.Directory.SSOCookieSecure,
	}, log, metrics)

	watchdog := middleware.NewWatchdog(manager, store, middleware.WatchdogConfig{
		SessionCookieName:    cfg.Session.CookieName,
		RememberMeCookieName: cfg.Session.RememberMeCookieName,
		BasePath:             cfg.Server.BasePath,
	}, log, metrics)

	// periodic purge of expired local sessions
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every "+cfg.Session.SweepInterval.String(), func() {
		purged, err := store.PurgeExpired(context.Background())
		if err != nil {
			log.WithError(err).Warn("session sweep failed")
			return
		}
		if purged > 0 {
			log.WithField("purged", purged).Debug("expired sessions swept")
		}
	}); err != nil {
		log.WithError(err).Fatal("session sweeper setup failed")
	}
	sweeper.Start()
	defer sweeper.Stop()

	health := observability.NewHealthChecker(map[string]observability.Pinger{
		"directory": observability.PingerFunc(func(ctx context.Context) error {
			_, err := client.GetGroup(ctx, cfg.Directory.GroupName)
			return err
		}),
		"sessions": observability.PingerFunc(store.Ping),
	})

	app := &application{
		coordinator: coordinator,
		manager:     manager,
		resolver:    resolver,
		store:       store,
		cfg:         cfg,
		log:         log,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)
	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	router.HandleFunc("/login", app.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/logout", app.handleLogout).Methods(http.MethodPost)
	router.HandleFunc("/whoami", app.handleWhoAmI).Methods(http.MethodGet)
	router.HandleFunc("/principal", app.handlePrincipal).Methods(http.MethodGet)

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(log),
		httputil.RecoveryMiddleware(log),
		watchdog.Handler,
	)(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("perimeter listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

// newSessionStore builds the configured session store backend
func newSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			return nil, err
		}
		if cfg.Session.RedisPassword != "" {
			opts.Password = cfg.Session.RedisPassword
		}
		if cfg.Session.RedisDB != 0 {
			opts.DB = cfg.Session.RedisDB
		}
		return session.NewRedisStore(redis.NewClient(opts), cfg.Session.TTL), nil
	default:
		return session.NewMemoryStore(cfg.Session.MemorySize, cfg.Session.TTL), nil
	}
}
