package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"grantline/internal/calendar"
	"grantline/internal/deadline"
	"grantline/internal/domain"
	"grantline/internal/engine"
	"grantline/internal/repo"
)

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerGrants(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-grant",
		Method:        http.MethodPost,
		Path:          "/grants",
		Summary:       "Create grant",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateGrantRequest `json:"body"`
	}) (*struct {
		Body domain.Grant `json:"body"`
	}, error) {
		g, err := e.CreateGrant(ctx, engine.GrantCreateOptions{
			ID:       orEmpty(input.Body.ID),
			Title:    input.Body.Title,
			Sponsor:  orEmpty(input.Body.Sponsor),
			Deadline: input.Body.Deadline,
			Status:   orEmpty(input.Body.Status),
			PI:       input.Body.PI,
			Notes:    orEmpty(input.Body.Notes),
			ActorID:  actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Grant `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-grants",
		Method:      http.MethodGet,
		Path:        "/grants",
		Summary:     "List grants by deadline",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"not_started,in_progress,submitted,awarded,not_funded,withdrawn"`
		Active bool   `query:"active"`
	}) (*struct {
		Body grantList `json:"body"`
	}, error) {
		items, err := e.ListGrants(ctx, repo.GrantFilters{Status: input.Status, ActiveOnly: input.Active})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body grantList `json:"body"`
		}{Body: grantList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-grant",
		Method:      http.MethodGet,
		Path:        "/grants/{id}",
		Summary:     "Get grant",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Grant `json:"body"`
	}, error) {
		g, err := e.GetGrant(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Grant `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-grant",
		Method:      http.MethodPatch,
		Path:        "/grants/{id}",
		Summary:     "Update grant",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body UpdateGrantRequest `json:"body"`
	}) (*struct {
		Body domain.Grant `json:"body"`
	}, error) {
		bodyMap := rawBodyMap(ctx)
		opts := engine.GrantUpdateOptions{
			ID:      input.ID,
			Title:   input.Body.Title,
			Sponsor: input.Body.Sponsor,
			Status:  input.Body.Status,
			Notes:   input.Body.Notes,
			ActorID: actorIDFromContext(ctx),
		}
		if raw, ok := bodyMap["deadline"]; ok {
			cleared := ""
			opts.Deadline = &cleared
			if !isNullRaw(raw) {
				opts.Deadline = input.Body.Deadline
			}
		}
		if raw, ok := bodyMap["pi"]; ok {
			pi := input.Body.PI
			if isNullRaw(raw) || pi == nil {
				pi = []string{}
			}
			opts.PI = &pi
		}
		g, err := e.UpdateGrant(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Grant `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-grant",
		Method:        http.MethodDelete,
		Path:          "/grants/{id}",
		Summary:       "Delete grant",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteGrant(ctx, input.ID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "grant-timeline",
		Method:      http.MethodGet,
		Path:        "/grants/{id}/timeline",
		Summary:     "Milestone checklist of a grant",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body engine.GrantTimeline `json:"body"`
	}, error) {
		tl, err := e.Timeline(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.GrantTimeline `json:"body"`
		}{Body: tl}, nil
	})
}

func registerPlanning(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "derive-milestones",
		Method:      http.MethodGet,
		Path:        "/milestones",
		Summary:     "Derive milestones for a sponsor deadline",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Deadline string `query:"deadline" required:"true" format:"date"`
	}) (*struct {
		Body MilestonesResponse `json:"body"`
	}, error) {
		entries, err := e.Milestones(input.Deadline)
		if err != nil {
			return nil, handleError(err)
		}
		day, _ := calendar.ParseDate(input.Deadline)
		return &struct {
			Body MilestonesResponse `json:"body"`
		}{Body: MilestonesResponse{
			Deadline: calendar.FormatDate(day),
			Today:    calendar.FormatDate(e.Planner().Today()),
			Entries:  entries,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-alerts",
		Method:      http.MethodGet,
		Path:        "/alerts",
		Summary:     "Grants whose next milestone needs attention",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body alertList `json:"body"`
	}, error) {
		alerts, err := e.Alerts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if alerts == nil {
			alerts = []deadline.Alert{}
		}
		return &struct {
			Body alertList `json:"body"`
		}{Body: alertList{Items: alerts}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-holidays",
		Method:      http.MethodGet,
		Path:        "/holidays",
		Summary:     "Institutional holidays skipped by business-day arithmetic",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body holidayList `json:"body"`
	}, error) {
		return &struct {
			Body holidayList `json:"body"`
		}{Body: holidayList{Items: e.Holidays()}}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ID:          orEmpty(input.Body.ID),
			Title:       input.Body.Title,
			Description: orEmpty(input.Body.Description),
			GrantID:     orEmpty(input.Body.GrantID),
			DueDate:     input.Body.DueDate,
			Status:      orEmpty(input.Body.Status),
			Priority:    orEmpty(input.Body.Priority),
			Assignee:    orEmpty(input.Body.Assignee),
			ActorID:     actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks by due date",
		Description: "With sync=true milestone tasks are reconciled against the grants before listing.",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		GrantID  string `query:"grant_id"`
		Status   string `query:"status" enum:"pending,in_progress,completed"`
		Assignee string `query:"assignee"`
		Derived  string `query:"derived" enum:"true,false"`
		Limit    int    `query:"limit"`
		Sync     bool   `query:"sync"`
	}) (*struct {
		Body taskList `json:"body"`
	}, error) {
		f := repo.TaskFilters{
			GrantID:  input.GrantID,
			Status:   input.Status,
			Assignee: input.Assignee,
			Limit:    input.Limit,
		}
		if input.Derived != "" {
			derived, err := strconv.ParseBool(input.Derived)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid derived", map[string]any{"derived": input.Derived})
			}
			f.Derived = &derived
		}
		items, err := e.ListTasks(ctx, f, input.Sync, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body taskList `json:"body"`
		}{Body: taskList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Description: "Edits to milestone tasks are kept by later syncs.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		opts := engine.TaskUpdateOptions{
			ID:          input.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			Assignee:    input.Body.Assignee,
			ActorID:     actorIDFromContext(ctx),
		}
		if raw, ok := rawBodyMap(ctx)["due_date"]; ok {
			cleared := ""
			opts.DueDate = &cleared
			if !isNullRaw(raw) {
				opts.DueDate = input.Body.DueDate
			}
		}
		t, err := e.UpdateTask(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.ID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSync(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "sync-milestone-tasks",
		Method:      http.MethodPost,
		Path:        "/sync",
		Summary:     "Reconcile milestone tasks against grants",
		Errors:      []int{http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.SyncResult `json:"body"`
	}, error) {
		res, err := e.SyncMilestoneTasks(ctx, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.SyncResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"grant,task,sync"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.ListEvents(ctx, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Cursor:     cursorID,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []domain.Event{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
			items = items[:limit]
		}
		resp.Items = append(resp.Items, items...)
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}
