package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"receptionist/pkg/config"
	"receptionist/pkg/contracts"
	"receptionist/pkg/middleware"
	"syscall"

	"github.com/julienschmidt/httprouter"
)

const (
	rateLimitPrefix   = "receptionist:ratelimit"
	idempotencyPrefix = "receptionist:idempotency"
)

type Application struct {
	cfg              *config.Config
	server           *http.Server
	handler          http.Handler
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      middleware.RateLimiter
	onShutdown       []func()
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// OnShutdown registers fn to run after the server stops accepting requests.
func (a *Application) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

func (a *Application) SetApp(handlers ...contracts.Handler) {
	healthHandler := a.buildHealthHandler()
	appHandler := a.buildAppHandler(handlers)

	mux := http.NewServeMux()
	mux.Handle("/health", healthHandler)
	mux.Handle("/ready", healthHandler)
	mux.Handle("/", appHandler)
	a.handler = mux

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler returns the fully wrapped HTTP handler. SetApp must run first.
func (a *Application) Handler() http.Handler {
	return a.handler
}

func (a *Application) backends() map[string]Pinger {
	backends := make(map[string]Pinger)
	if mongoClient := a.cfg.Client.Mongo; mongoClient != nil {
		backends["mongo"] = PingFunc(func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		})
	}
	if redisClient := a.cfg.Client.Redis; redisClient != nil {
		backends["redis"] = PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	return backends
}

func (a *Application) buildHealthHandler() http.Handler {
	healthRouter := httprouter.New()
	NewHealthHandler(a.backends(), a.cfg.Log).RegisterRoutes(healthRouter)

	var handler http.Handler = healthRouter
	handler = middleware.RequestLogging(a.cfg.Log)(handler)
	handler = middleware.Recovery(a.cfg.Log)(handler)
	return handler
}

func (a *Application) buildAppHandler(handlers []contracts.Handler) http.Handler {
	appRouter := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(appRouter)
	}

	if redisClient := a.cfg.Client.Redis; redisClient != nil {
		a.rateLimiter = middleware.NewRedisRateLimiter(redisClient, rateLimitPrefix, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(redisClient, idempotencyPrefix, a.cfg.IdempotencyTTL)
		a.cfg.Log.Info("Rate limiting and idempotency backed by Redis")
	} else {
		a.rateLimiter = middleware.NewInMemoryRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
		a.cfg.Log.Info("Rate limiting and idempotency backed by process memory")
	}

	var handler http.Handler = appRouter
	handler = middleware.Idempotency(a.idempotencyStore, middleware.DefaultIdempotencyHeader, a.cfg.Log)(handler)
	handler = middleware.RequestTimeout(a.cfg.RequestTimeout)(handler)
	handler = middleware.RateLimit(a.rateLimiter, middleware.RequesterKeyExtractor, a.cfg.Log)(handler)
	handler = middleware.ContentTypeValidation(a.cfg.Log)(handler)
	handler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(handler)
	handler = middleware.RequestLogging(a.cfg.Log)(handler)
	handler = middleware.Recovery(a.cfg.Log)(handler)
	return handler
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.rateLimiter.Stop()
	for _, fn := range a.onShutdown {
		fn()
	}
	a.cfg.GracefulShutdown()

	a.cfg.Log.Info("Server stopped gracefully")
}
