package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"grantline/internal/calendar"
	"grantline/internal/domain"
	"grantline/internal/events"
	"grantline/internal/repo"
	"grantline/internal/synclock"
)

// SyncResult reports what one sync changed.
type SyncResult struct {
	Today   string   `json:"today" format:"date"`
	Created []string `json:"created"`
	Retired []string `json:"retired"`
	Kept    int      `json:"kept"`
}

// SyncMilestoneTasks reconciles milestone tasks against the grants. Reads and
// writes share one transaction that holds the SQLite write lock from its
// first statement, so no other writer interleaves. Running it twice without
// changes in between creates and retires nothing.
func (e Engine) SyncMilestoneTasks(ctx context.Context, actorID string) (SyncResult, error) {
	start := time.Now()
	res, err := e.syncMilestoneTasks(ctx, actorID)
	e.Metrics.ObserveSync(len(res.Created), len(res.Retired), time.Since(start), err)
	if err != nil {
		e.log().Error("milestone sync failed", zap.Error(err))
		return SyncResult{}, err
	}
	if len(res.Created) > 0 || len(res.Retired) > 0 {
		e.log().Info("milestone sync",
			zap.Int("created", len(res.Created)),
			zap.Int("retired", len(res.Retired)),
			zap.Int("kept", res.Kept),
			zap.String("today", res.Today))
	}
	return res, nil
}

func (e Engine) syncMilestoneTasks(ctx context.Context, actorID string) (SyncResult, error) {
	lock := e.Lock
	if lock == nil {
		lock = synclock.Noop{}
	}
	release, err := lock.Acquire(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			e.log().Warn("release sync lock", zap.Error(err))
		}
	}()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return SyncResult{}, err
	}
	defer tx.Rollback()

	grants, err := e.Repo.ListGrantsTx(ctx, tx, repo.GrantFilters{})
	if err != nil {
		return SyncResult{}, err
	}
	tasks, err := e.Repo.ListTasksTx(ctx, tx, repo.TaskFilters{})
	if err != nil {
		return SyncResult{}, err
	}
	e.warnUnplannable(grants)

	planner := e.Planner().Frozen()
	plan := planner.Reconcile(grants, tasks)
	res := SyncResult{
		Today:   calendar.FormatDate(planner.Today()),
		Created: []string{},
		Retired: []string{},
		Kept:    len(plan.Keep),
	}
	if plan.Empty() {
		return res, nil
	}

	byID := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	now := e.stamp()
	for _, t := range plan.Create {
		t.CreatedAt, t.UpdatedAt = now, now
		if err := e.Repo.UpsertTaskTx(ctx, tx, t); err != nil {
			return SyncResult{}, err
		}
		if err := e.appendEvent(ctx, tx, events.MilestoneTaskCreated, "task", t.ID, actorID, events.EventPayload{
			"grant_id":      t.GrantID,
			"milestone_key": t.MilestoneKey,
			"due_date":      t.DueDate,
			"priority":      t.Priority,
		}); err != nil {
			return SyncResult{}, err
		}
		res.Created = append(res.Created, t.ID)
	}
	for _, id := range plan.Retire {
		if err := e.Repo.DeleteTaskTx(ctx, tx, id); err != nil {
			return SyncResult{}, err
		}
		old := byID[id]
		if err := e.appendEvent(ctx, tx, events.MilestoneTaskRetired, "task", id, actorID, events.EventPayload{
			"grant_id":      old.GrantID,
			"milestone_key": old.MilestoneKey,
			"status":        old.Status,
		}); err != nil {
			return SyncResult{}, err
		}
		res.Retired = append(res.Retired, id)
	}
	if err := e.appendEvent(ctx, tx, events.SyncCompleted, "sync", "", actorID, events.EventPayload{
		"today":   res.Today,
		"created": len(res.Created),
		"retired": len(res.Retired),
		"kept":    res.Kept,
	}); err != nil {
		return SyncResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return SyncResult{}, err
	}
	return res, nil
}

// warnUnplannable logs active grants whose stored deadline cannot be parsed;
// sync and alerts skip them silently otherwise.
func (e Engine) warnUnplannable(grants []domain.Grant) {
	for _, g := range grants {
		if !g.Active() || g.Deadline == nil {
			continue
		}
		if _, err := calendar.ParseDate(*g.Deadline); err != nil {
			e.log().Warn("skipping grant with invalid deadline", zap.String("grant_id", g.ID), zap.String("deadline", *g.Deadline))
		}
	}
}
