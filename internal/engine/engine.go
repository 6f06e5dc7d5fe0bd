package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"grantline/internal/calendar"
	"grantline/internal/config"
	"grantline/internal/deadline"
	"grantline/internal/domain"
	"grantline/internal/events"
	"grantline/internal/logging"
	"grantline/internal/metrics"
	"grantline/internal/repo"
	"grantline/internal/synclock"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Calendar *calendar.Calendar
	Now      func() time.Time
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Lock     synclock.Locker
}

// New wires an engine over an open, migrated database. The clock reports
// wall time in the institution's time zone so "today" matches the office.
func New(db *sql.DB, cfg *config.Config) (Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return Engine{}, fmt.Errorf("holiday calendar: %w", err)
	}
	loc := cfg.Location()
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Calendar: cal,
		Now:      func() time.Time { return time.Now().In(loc) },
		Logger:   logging.Nop(),
		Lock:     synclock.NewLocal(),
	}, nil
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() *zap.Logger {
	return logging.OrNop(e.Logger)
}

// Planner returns a planner sharing the engine's calendar and clock.
func (e Engine) Planner() deadline.Planner {
	cal := e.Calendar
	if cal == nil {
		cal = calendar.Default()
	}
	return deadline.NewPlanner(cal, e.now)
}

func (e Engine) eventWriter() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func (e Engine) appendEvent(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload events.EventPayload) error {
	if err := e.eventWriter().Append(ctx, tx, evtType, entityKind, entityID, actorID, payload); err != nil {
		return fmt.Errorf("append %s event: %w", evtType, err)
	}
	return nil
}

func grantFieldsLog(g domain.Grant) []zap.Field {
	fields := []zap.Field{zap.String("grant_id", g.ID), zap.String("status", g.Status)}
	if g.Deadline != nil {
		fields = append(fields, zap.String("deadline", *g.Deadline))
	}
	return fields
}
