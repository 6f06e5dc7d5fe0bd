// Package app opens a grantline workspace: configuration, logger, database
// and engine, wired the same way for the CLI and the API server.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"grantline/internal/calendar"
	"grantline/internal/config"
	"grantline/internal/db"
	"grantline/internal/engine"
	"grantline/internal/logging"
	"grantline/internal/metrics"
	"grantline/internal/migrate"
	"grantline/internal/synclock"
)

type Options struct {
	Workspace string
	// LogLevel overrides the configured level when set.
	LogLevel string
	// Today pins the clock to a calendar date, for planning and for tests.
	Today string
	// Metrics enables the Prometheus collectors.
	Metrics bool
}

type Workspace struct {
	Dir    string
	Config *config.Config
	DB     *sql.DB
	Engine engine.Engine
	Logger *zap.Logger

	redis *redis.Client
}

// Open loads grantline.yml (defaults when absent), migrates the database and
// builds the engine.
func Open(ctx context.Context, opts Options) (*Workspace, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if opts.LogLevel != "" {
		logCfg.Level = opts.LogLevel
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", db.Path(opts.Workspace), err)
	}
	eng, err := engine.New(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	eng.Logger = logger
	if opts.Today != "" {
		now, err := FixedClock(opts.Today, cfg.Location())
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		eng.Now = now
	}
	if opts.Metrics {
		eng.Metrics = metrics.New()
	}
	ws := &Workspace{Dir: opts.Workspace, Config: cfg, DB: conn, Logger: logger}
	switch cfg.Sync.Lock {
	case config.LockNone:
		eng.Lock = synclock.Noop{}
	case config.LockRedis:
		ws.redis = redis.NewClient(&redis.Options{Addr: cfg.Sync.RedisAddr})
		if err := ws.redis.Ping(ctx).Err(); err != nil {
			_ = ws.Close()
			return nil, fmt.Errorf("sync lock redis %s: %w", cfg.Sync.RedisAddr, err)
		}
		lockOpts := []synclock.Option{}
		if cfg.Sync.LockTTL > 0 {
			lockOpts = append(lockOpts, synclock.WithTTL(cfg.Sync.LockTTL))
		}
		eng.Lock = synclock.NewRedis(ws.redis, cfg.Sync.LockKey, lockOpts...)
	}
	ws.Engine = eng
	logger.Debug("workspace opened",
		zap.String("db", db.Path(opts.Workspace)),
		zap.String("sync_lock", cfg.Sync.Lock),
		zap.String("timezone", cfg.Location().String()))
	return ws, nil
}

func (w *Workspace) Close() error {
	if w.redis != nil {
		_ = w.redis.Close()
	}
	_ = w.Logger.Sync()
	return w.DB.Close()
}

// FixedClock returns a clock frozen at noon of the given date in loc.
func FixedClock(date string, loc *time.Location) (func() time.Time, error) {
	d, err := calendar.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("--today: %w", err)
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
	return func() time.Time { return t }, nil
}
