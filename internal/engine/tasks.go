package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grantline/internal/domain"
	"grantline/internal/events"
	"grantline/internal/repo"
)

// derivedPrefix is reserved for milestone task ids.
const derivedPrefix = "ms-"

type taskFields struct {
	ID       string  `json:"id" validate:"required,max=160,ident"`
	Title    string  `json:"title" validate:"notblank,max=400"`
	DueDate  *string `json:"due_date" validate:"omitempty,isodate"`
	Status   string  `json:"status" validate:"oneof=pending in_progress completed"`
	Priority string  `json:"priority" validate:"oneof=low medium high"`
	Assignee string  `json:"assignee" validate:"max=120"`
}

func checkTask(t domain.Task) error {
	return check(taskFields{ID: t.ID, Title: t.Title, DueDate: t.DueDate, Status: t.Status, Priority: t.Priority, Assignee: t.Assignee})
}

// TaskCreateOptions are parameters for creating a user task. Milestone tasks
// are only ever created by sync.
type TaskCreateOptions struct {
	ID          string
	Title       string
	Description string
	GrantID     string
	DueDate     *string
	Status      string
	Priority    string
	Assignee    string
	ActorID     string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if strings.HasPrefix(id, derivedPrefix) {
		return domain.Task{}, invalidField("id", fmt.Sprintf("id prefix %q is reserved for milestone tasks", derivedPrefix))
	}
	due, err := normalizeDate("due_date", opts.DueDate)
	if err != nil {
		return domain.Task{}, err
	}
	status := opts.Status
	if status == "" {
		status = domain.TaskPending
	}
	priority := opts.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	now := e.stamp()
	t := domain.Task{
		ID:          id,
		Title:       strings.TrimSpace(opts.Title),
		Description: opts.Description,
		DueDate:     due,
		Status:      status,
		Priority:    priority,
		Assignee:    strings.TrimSpace(opts.Assignee),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if opts.GrantID != "" {
		grantID := opts.GrantID
		t.GrantID = &grantID
	}
	if err := checkTask(t); err != nil {
		return domain.Task{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if t.GrantID != nil {
		if _, err := e.Repo.GetGrantTx(ctx, tx, *t.GrantID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Task{}, invalidField("grant_id", fmt.Sprintf("grant %s not found", *t.GrantID))
			}
			return domain.Task{}, err
		}
	}
	if _, err := e.Repo.GetTaskTx(ctx, tx, t.ID); err == nil {
		return domain.Task{}, invalidField("id", fmt.Sprintf("task %s already exists", t.ID))
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Task{}, err
	}
	if err := e.Repo.UpsertTaskTx(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.appendEvent(ctx, tx, events.TaskCreated, "task", t.ID, opts.ActorID, events.EventPayload{
		"title":    t.Title,
		"grant_id": t.GrantID,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskUpdateOptions encapsulates allowed updates. Nil leaves a field
// unchanged; an empty DueDate clears it. Edits to milestone tasks are kept by
// every later sync.
type TaskUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	DueDate     *string
	Status      *string
	Priority    *string
	Assignee    *string
	ActorID     string
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Task{}, err
	}
	changed := events.EventPayload{}
	if opts.Title != nil {
		t.Title = strings.TrimSpace(*opts.Title)
		changed["title"] = t.Title
	}
	if opts.Description != nil {
		t.Description = *opts.Description
		changed["description"] = true
	}
	if opts.DueDate != nil {
		d, err := normalizeDate("due_date", opts.DueDate)
		if err != nil {
			return domain.Task{}, err
		}
		t.DueDate = d
		changed["due_date"] = d
	}
	if opts.Status != nil {
		changed["status_from"] = t.Status
		t.Status = *opts.Status
		changed["status"] = t.Status
	}
	if opts.Priority != nil {
		t.Priority = *opts.Priority
		changed["priority"] = t.Priority
	}
	if opts.Assignee != nil {
		t.Assignee = strings.TrimSpace(*opts.Assignee)
		changed["assignee"] = t.Assignee
	}
	if len(changed) == 0 {
		return t, nil
	}
	if err := checkTask(t); err != nil {
		return domain.Task{}, err
	}
	t.UpdatedAt = e.stamp()
	if err := e.Repo.UpsertTaskTx(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if t.Derived() {
		changed["milestone_key"] = *t.MilestoneKey
	}
	if err := e.appendEvent(ctx, tx, events.TaskUpdated, "task", t.ID, opts.ActorID, changed); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task. A deleted milestone task whose grant is still
// eligible comes back on the next sync.
func (e Engine) DeleteTask(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteTaskTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, events.TaskDeleted, "task", id, actorID, events.EventPayload{
		"title":    t.Title,
		"derived":  t.Derived(),
		"grant_id": t.GrantID,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if t.Derived() {
		e.log().Debug("milestone task deleted by user", zap.String("task_id", id))
	}
	return nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, id)
}

// ListTasks returns tasks matching f. With sync set, milestone tasks are
// reconciled first, the way the task view refreshes on every load.
func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters, sync bool, actorID string) ([]domain.Task, error) {
	if sync {
		if _, err := e.SyncMilestoneTasks(ctx, actorID); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListTasks(ctx, f)
}
