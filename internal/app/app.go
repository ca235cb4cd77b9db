// Package app wires configuration, storage, locking, metrics and the
// lifecycle orchestrator for the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/config"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/db"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/lock"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/metrics"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/repository"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/service"
)

type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Schema  *repository.Schema
	Locker  lock.Locker
	Metrics *metrics.Metrics

	Servers  *repository.ServerConfigRepository
	Services *repository.ServiceDataRepository
	CallLog  *repository.CallLogRepository

	Provisioner *service.Provisioner

	redis *redis.Client
}

// New opens the database and, when REDIS_ADDR is set, Redis. A nil
// registry disables metrics.
func New(ctx context.Context, cfg *config.Config, reg *prometheus.Registry) (*App, error) {
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{Config: cfg, DB: gdb}

	// 1. Per-key locks: Redis when several instances share the database
	if cfg.Redis.Addr != "" {
		rdb, err := lock.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = rdb
		locker, err := lock.NewRedisLocker(rdb, cfg.Redis.LockTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Locker = locker
	} else {
		a.Locker = lock.NewMemoryLocker()
	}

	// 2. Repositories
	a.Schema = repository.NewSchema(gdb)
	a.Servers = repository.NewServerConfigRepository(gdb, a.Schema, a.Locker)
	a.Services = repository.NewServiceDataRepository(gdb, a.Schema, a.Locker)
	a.CallLog = repository.NewCallLogRepository(gdb, a.Schema)

	// 3. Orchestrator
	opts := []service.Option{service.WithDefaultTimeout(cfg.Panel.DefaultTimeout)}
	if reg != nil {
		a.Metrics = metrics.New(reg)
		opts = append(opts, service.WithRecorder(a.Metrics), service.WithLifecycleRecorder(a.Metrics))
	}
	a.Provisioner = service.NewProvisioner(a.Servers, a.Services, a.CallLog, opts...)

	log.Info().
		Str("component", "app").
		Str("db_driver", cfg.Database.Driver).
		Bool("redis_locks", a.redis != nil).
		Bool("metrics", a.Metrics != nil).
		Msg("provisioner initialized")

	return a, nil
}

func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	db.Close(a.DB)
}
