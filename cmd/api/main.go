package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/audit"
	"github.com/noah-isme/backend-kasir/internal/auth"
	"github.com/noah-isme/backend-kasir/internal/bill"
	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/config"
	"github.com/noah-isme/backend-kasir/internal/db"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/health"
	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/lock"
	"github.com/noah-isme/backend-kasir/internal/notify"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/party"
	"github.com/noah-isme/backend-kasir/internal/purchase"
	"github.com/noah-isme/backend-kasir/internal/ratelimit"
	"github.com/noah-isme/backend-kasir/internal/report"
	"github.com/noah-isme/backend-kasir/internal/resilience"
	"github.com/noah-isme/backend-kasir/internal/returns"
	"github.com/noah-isme/backend-kasir/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "kasir")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "kasir-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if envBool("DB_MIGRATE_ON_START", true) {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "kasir-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	notifyStore := &notify.PGStore{Pool: pool}
	bus := &events.Bus{
		Store: &events.PGStore{Pool: pool},
		Scheduler: &notify.Scheduler{
			Store:   notifyStore,
			Tasks:   taskClient,
			Queue:   cfg.WorkerQueueName,
			Enabled: cfg.WebhookEnabled,
			Log:     logger,
		},
		Notifiers: []events.Notifier{
			&notify.TaskNotifier{Tasks: taskClient, Queue: cfg.WorkerQueueName, Log: logger},
		},
	}

	catalogSvc := &catalog.Service{
		Store:             &catalog.PGStore{Pool: pool},
		Cache:             catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Bus:               bus,
		Log:               logger,
		LowStockThreshold: decimal.NewFromInt(cfg.LowStockThreshold),
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	billSvc := &bill.Service{
		Store:   &bill.PGStore{Pool: pool, BillPrefix: cfg.BillPrefix},
		Bus:     bus,
		Catalog: catalogSvc,
		Log:     logger,
	}
	billHandler := &bill.Handler{Svc: billSvc}

	purchaseSvc := &purchase.Service{
		Store: &purchase.PGStore{Pool: pool, VoucherPrefix: cfg.VoucherPrefix},
		Bus:   bus,
		Log:   logger,
	}
	purchaseHandler := &purchase.Handler{Svc: purchaseSvc}

	returnsSvc := &returns.Service{
		Store:   &returns.PGStore{Pool: pool, ReturnPrefix: cfg.ReturnPrefix},
		Locker:  lock.Locker{R: redisClient},
		Bus:     bus,
		Log:     logger,
		LockTTL: cfg.ReturnLockTTL,
	}
	returnsHandler := &returns.Handler{Svc: returnsSvc}

	ledgerSvc := &ledger.Service{
		Store: &ledger.PGStore{Pool: pool, ReceiptPrefix: cfg.ReceiptPrefix},
		Bus:   bus,
		Log:   logger,
	}
	ledgerHandler := &ledger.Handler{Svc: ledgerSvc}

	partyStore := &party.PGStore{Pool: pool}
	customerHandler := &party.Handler{Store: partyStore, Type: ledger.PartyCustomer}
	vendorHandler := &party.Handler{Store: partyStore, Type: ledger.PartyVendor}

	reportSvc := &report.Service{
		Q:   &report.PGQuerier{Pool: pool},
		R:   redisClient,
		TTL: cfg.ReportCacheTTL,
	}
	reportHandler := &report.Handler{Svc: reportSvc}

	auditSvc := audit.Service{
		Store:   &audit.PGStore{Pool: pool},
		Enabled: envBool("AUDIT_ENABLED", true),
	}
	auditHandler := &audit.Handler{Svc: auditSvc}

	authStore := &auth.PGStore{Pool: pool}
	authSvc, err := auth.NewService(auth.Config{
		Store:      authStore,
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{
		Service:           authSvc,
		RefreshCookieName: cfg.RefreshCookieName,
		CookieDomain:      cfg.RefreshCookieDomain,
		CookieSecure:      cfg.RefreshCookieSecure,
		CookieSameSite:    cfg.RefreshCookieSameSite,
	}
	authMw := auth.Middleware{Service: authSvc}

	notifyHandler := &notify.Handler{Store: notifyStore}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	limiter, err := ratelimit.New(redisClient, cfg.RateLimitPerMinute)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(ratelimit.Middleware(limiter, logger))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:   health.Probes{Pool: pool, Redis: redisClient},
		DBTimeout: cfg.DBTimeout,
	}
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	auditMw := audit.HTTPRecorder(auditSvc, logger)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			// The refresh token rides a cookie, so state-changing cookie
			// endpoints get CSRF protection.
			a.With(security.CSRF{Header: "X-CSRF-Token"}.Middleware).Post("/refresh", authHandler.Refresh)
			a.Post("/register", authHandler.Register)
			a.Post("/login", authHandler.Login)
			a.Post("/logout", authHandler.Logout)
			a.With(authMw.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Group(func(protected chi.Router) {
			protected.Use(authMw.RequireAuth)
			protected.Use(auditMw)

			protected.Route("/products", catalogHandler.Routes)
			protected.Route("/customers", customerHandler.Routes)
			protected.Route("/vendors", vendorHandler.Routes)

			protected.Route("/bills", func(b chi.Router) {
				billHandler.Routes(b)
				b.With(idem.Middleware).Post("/checkout", billHandler.Checkout)
			})
			protected.Route("/purchases", func(p chi.Router) {
				purchaseHandler.Routes(p)
				p.With(idem.Middleware).Post("/", purchaseHandler.Create)
			})
			protected.Route("/returns", func(ret chi.Router) {
				returnsHandler.Routes(ret)
				ret.Group(func(g chi.Router) {
					g.Use(idem.Middleware)
					g.Post("/sales", returnsHandler.CreateSales)
					g.Post("/purchase", returnsHandler.CreatePurchase)
				})
			})
			// Idem only engages when the Idempotency-Key header is present,
			// so wrapping the subtree guards POST /receipts without touching reads.
			protected.Route("/ledger", func(l chi.Router) {
				l.Use(idem.Middleware)
				ledgerHandler.Routes(l)
			})
			protected.Route("/reports", reportHandler.Routes)

			protected.Route("/admin", func(admin chi.Router) {
				admin.Use(requireRole(authStore, auth.RoleAdmin))
				admin.Route("/webhooks", notifyHandler.Routes)
				admin.Route("/audit-logs", auditHandler.Routes)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// requireRole gates admin-only surfaces. The role comes from the user row,
// not the token, so a demotion takes effect on the next request.
func requireRole(store auth.Store, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := common.UserID(r.Context())
			if !ok {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
				return
			}
			user, err := store.GetUserByID(r.Context(), id)
			if err != nil || user.Role != role {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}
