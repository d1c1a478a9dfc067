// Package app arma las dependencias compartidas por el servidor y la consola.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"admin-panel/internal/config"
	"admin-panel/internal/db"
	"admin-panel/internal/metrics"
	"admin-panel/internal/remote"
	"admin-panel/internal/repository"
	"admin-panel/internal/service"
)

// Options ajusta como se crean los desafios OTP.
type Options struct {
	// AutoTick deja que cada desafio maneje su propia cuenta regresiva.
	AutoTick bool
}

// App agrupa las piezas vivas del proceso.
type App struct {
	Logger   *zap.Logger
	Config   *config.Config
	Session  *service.SessionContext
	Guard    *service.RouteGuard
	Limiter  service.AttemptLimiter
	Registry *prometheus.Registry

	closers []func()
}

// New abre el backend de sesion, el cliente remoto y arma SessionContext y RouteGuard.
// La sesion queda en carga hasta que alguien llame a Session.Init.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Logger: logger, Config: cfg, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(a.Registry)

	redisClient := a.connectRedis(ctx)

	backend, err := a.openBackend(ctx, redisClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	var codec repository.IdentityCodec = repository.JSONCodec{}
	if cfg.SessionSigningKey != "" {
		codec = service.NewJWTCodec(cfg.SessionSigningKey, cfg.SessionTTL)
	} else {
		logger.Warn("session signing key not configured, storing plain json")
	}
	store := repository.NewSessionStore(logger, backend, codec, cfg.SessionKey)

	a.Session = service.NewSessionContext(logger, store, recorder)
	otp := remote.NewHTTPClient(cfg.RemoteBaseURL, cfg.RemoteTimeout, logger)
	factory := service.NewChallengeFactory(
		service.ChallengeDeps{Logger: logger, OTP: otp, Session: a.Session, Metrics: recorder},
		service.ChallengeConfig{ResendWindow: cfg.ResendWindowSeconds, AutoTick: opts.AutoTick},
	)
	a.Guard = service.NewRouteGuard(logger, a.Session, factory)
	a.closers = append(a.closers, a.Guard.Close)

	if redisClient != nil {
		a.Limiter = service.NewRedisAttemptLimiter(redisClient, cfg.SessionRedisPrefix+"attempts:", cfg.AttemptLimitWindow, cfg.AttemptLimitMax)
	} else {
		a.Limiter = service.NewMemoryAttemptLimiter(cfg.AttemptLimitWindow, cfg.AttemptLimitMax)
	}
	return a, nil
}

// Close libera recursos en orden inverso al de apertura.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) connectRedis(ctx context.Context) *redis.Client {
	cfg := a.Config
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		a.Logger.Warn("redis ping failed", zap.Error(err))
		if cfg.SessionBackend != config.BackendRedis {
			_ = client.Close()
			return nil
		}
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return client
}

func (a *App) openBackend(ctx context.Context, redisClient *redis.Client) (repository.BlobBackend, error) {
	cfg := a.Config
	switch cfg.SessionBackend {
	case config.BackendSQLite:
		backend, err := repository.OpenSQLiteBackend(cfg.SessionSQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = backend.Close() })
		a.Logger.Info("session backend ready", zap.String("backend", "sqlite"), zap.String("path", cfg.SessionSQLitePath))
		return backend, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		backend := repository.NewPgSessionBackend(pool, cfg.DeviceKey())
		if err := backend.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.Logger.Info("session backend ready", zap.String("backend", "postgres"))
		return backend, nil

	case config.BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis backend requires REDIS_ADDR")
		}
		a.Logger.Info("session backend ready", zap.String("backend", "redis"))
		return repository.NewRedisSessionBackend(redisClient, cfg.SessionRedisPrefix, cfg.SessionTTL), nil

	case config.BackendMemory:
		a.Logger.Warn("session backend is in-memory, sessions will not survive restarts")
		return repository.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
}
