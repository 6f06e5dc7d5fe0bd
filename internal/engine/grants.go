package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"grantline/internal/domain"
	"grantline/internal/events"
	"grantline/internal/repo"
)

// grantFields is the validated shape of a grant after defaults and updates
// have been applied.
type grantFields struct {
	ID       string   `json:"id" validate:"required,max=64,ident"`
	Title    string   `json:"title" validate:"notblank,max=300"`
	Sponsor  string   `json:"sponsor" validate:"max=200"`
	Deadline *string  `json:"deadline" validate:"omitempty,isodate"`
	Status   string   `json:"status" validate:"oneof=not_started in_progress submitted awarded not_funded withdrawn"`
	PI       []string `json:"pi" validate:"max=20,dive,notblank,max=120"`
}

func checkGrant(g domain.Grant) error {
	return check(grantFields{ID: g.ID, Title: g.Title, Sponsor: g.Sponsor, Deadline: g.Deadline, Status: g.Status, PI: g.PI})
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// GrantCreateOptions are parameters for creating a grant.
type GrantCreateOptions struct {
	ID       string
	Title    string
	Sponsor  string
	Deadline *string
	Status   string
	PI       []string
	Notes    string
	ActorID  string
}

func (e Engine) CreateGrant(ctx context.Context, opts GrantCreateOptions) (domain.Grant, error) {
	deadlineDate, err := normalizeDate("deadline", opts.Deadline)
	if err != nil {
		return domain.Grant{}, err
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = uuid.NewString()
	}
	status := opts.Status
	if status == "" {
		status = domain.GrantNotStarted
	}
	now := e.stamp()
	g := domain.Grant{
		ID:        id,
		Title:     strings.TrimSpace(opts.Title),
		Sponsor:   strings.TrimSpace(opts.Sponsor),
		Deadline:  deadlineDate,
		Status:    status,
		PI:        trimAll(opts.PI),
		Notes:     opts.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := checkGrant(g); err != nil {
		return domain.Grant{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grant{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetGrantTx(ctx, tx, g.ID); err == nil {
		return domain.Grant{}, invalidField("id", fmt.Sprintf("grant %s already exists", g.ID))
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Grant{}, err
	}
	if err := e.Repo.UpsertGrantTx(ctx, tx, g); err != nil {
		return domain.Grant{}, err
	}
	if err := e.appendEvent(ctx, tx, events.GrantCreated, "grant", g.ID, opts.ActorID, events.EventPayload{
		"title":    g.Title,
		"status":   g.Status,
		"deadline": g.Deadline,
	}); err != nil {
		return domain.Grant{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grant{}, err
	}
	e.log().Info("grant created", grantFieldsLog(g)...)
	return g, nil
}

// GrantUpdateOptions encapsulates allowed updates. Nil leaves a field
// unchanged; an empty Deadline clears it.
type GrantUpdateOptions struct {
	ID       string
	Title    *string
	Sponsor  *string
	Deadline *string
	Status   *string
	PI       *[]string
	Notes    *string
	ActorID  string
}

func (e Engine) UpdateGrant(ctx context.Context, opts GrantUpdateOptions) (domain.Grant, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grant{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGrantTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Grant{}, err
	}
	changed := events.EventPayload{}
	if opts.Title != nil {
		g.Title = strings.TrimSpace(*opts.Title)
		changed["title"] = g.Title
	}
	if opts.Sponsor != nil {
		g.Sponsor = strings.TrimSpace(*opts.Sponsor)
		changed["sponsor"] = g.Sponsor
	}
	if opts.Deadline != nil {
		d, err := normalizeDate("deadline", opts.Deadline)
		if err != nil {
			return domain.Grant{}, err
		}
		g.Deadline = d
		changed["deadline"] = d
	}
	if opts.Status != nil {
		changed["status_from"] = g.Status
		g.Status = *opts.Status
		changed["status"] = g.Status
	}
	if opts.PI != nil {
		g.PI = trimAll(*opts.PI)
		changed["pi"] = g.PI
	}
	if opts.Notes != nil {
		g.Notes = *opts.Notes
		changed["notes"] = true
	}
	if len(changed) == 0 {
		return g, nil
	}
	if err := checkGrant(g); err != nil {
		return domain.Grant{}, err
	}
	g.UpdatedAt = e.stamp()
	if err := e.Repo.UpsertGrantTx(ctx, tx, g); err != nil {
		return domain.Grant{}, err
	}
	if err := e.appendEvent(ctx, tx, events.GrantUpdated, "grant", g.ID, opts.ActorID, changed); err != nil {
		return domain.Grant{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grant{}, err
	}
	e.log().Info("grant updated", grantFieldsLog(g)...)
	return g, nil
}

// DeleteGrant removes the grant. Its milestone tasks stay until the next sync
// retires them.
func (e Engine) DeleteGrant(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGrantTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteGrantTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, events.GrantDeleted, "grant", id, actorID, events.EventPayload{"title": g.Title}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.log().Info("grant deleted", grantFieldsLog(g)...)
	return nil
}

func (e Engine) GetGrant(ctx context.Context, id string) (domain.Grant, error) {
	return e.Repo.GetGrant(ctx, id)
}

func (e Engine) ListGrants(ctx context.Context, f repo.GrantFilters) ([]domain.Grant, error) {
	return e.Repo.ListGrants(ctx, f)
}
