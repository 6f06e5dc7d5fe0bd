package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"grantline/internal/domain"
)

type GrantFilters struct {
	Status     string
	ActiveOnly bool
}

const grantColumns = `id,title,sponsor,deadline,status,notes,created_at,updated_at`

func scanGrant(scan func(dest ...any) error) (domain.Grant, error) {
	var g domain.Grant
	var sponsor, deadline, notes sql.NullString
	if err := scan(&g.ID, &g.Title, &sponsor, &deadline, &g.Status, &notes, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return g, err
	}
	g.Sponsor = sponsor.String
	g.Notes = notes.String
	g.Deadline = stringPtr(deadline)
	g.PI = []string{}
	return g, nil
}

func (r Repo) ListGrants(ctx context.Context, f GrantFilters) ([]domain.Grant, error) {
	return listGrants(ctx, r.DB, f)
}

func (r Repo) ListGrantsTx(ctx context.Context, tx *sql.Tx, f GrantFilters) ([]domain.Grant, error) {
	return listGrants(ctx, tx, f)
}

// listGrants orders by deadline, undated grants last, then creation order.
func listGrants(ctx context.Context, q querier, f GrantFilters) ([]domain.Grant, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.ActiveOnly {
		clauses = append(clauses, "status IN (?,?)")
		args = append(args, domain.GrantNotStarted, domain.GrantInProgress)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := fmt.Sprintf(`SELECT %s FROM grants %s ORDER BY deadline IS NULL, deadline, created_at, id`, grantColumns, where)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Grant{}
	index := map[string]int{}
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, err
		}
		index[g.ID] = len(res)
		res = append(res, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return res, nil
	}
	pis, err := q.QueryContext(ctx, `SELECT grant_id,name FROM grant_pis ORDER BY grant_id, position`)
	if err != nil {
		return nil, err
	}
	defer pis.Close()
	for pis.Next() {
		var grantID, name string
		if err := pis.Scan(&grantID, &name); err != nil {
			return nil, err
		}
		if i, ok := index[grantID]; ok {
			res[i].PI = append(res[i].PI, name)
		}
	}
	return res, pis.Err()
}

func (r Repo) GetGrant(ctx context.Context, id string) (domain.Grant, error) {
	return getGrant(ctx, r.DB, id)
}

func (r Repo) GetGrantTx(ctx context.Context, tx *sql.Tx, id string) (domain.Grant, error) {
	return getGrant(ctx, tx, id)
}

func getGrant(ctx context.Context, q querier, id string) (domain.Grant, error) {
	g, err := scanGrant(q.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM grants WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	rows, err := q.QueryContext(ctx, `SELECT name FROM grant_pis WHERE grant_id=? ORDER BY position`, id)
	if err != nil {
		return g, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return g, err
		}
		g.PI = append(g.PI, name)
	}
	return g, rows.Err()
}

func (r Repo) UpsertGrant(ctx context.Context, g domain.Grant) error {
	return upsertGrant(ctx, r.DB, g)
}

func (r Repo) UpsertGrantTx(ctx context.Context, tx *sql.Tx, g domain.Grant) error {
	return upsertGrant(ctx, tx, g)
}

// upsertGrant writes the grant row and replaces its PI list. Callers outside
// a transaction may observe the PI list mid-replacement.
func upsertGrant(ctx context.Context, q querier, g domain.Grant) error {
	_, err := q.ExecContext(ctx, `INSERT INTO grants(id,title,sponsor,deadline,status,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET title=excluded.title, sponsor=excluded.sponsor, deadline=excluded.deadline,
status=excluded.status, notes=excluded.notes, updated_at=excluded.updated_at`,
		g.ID, g.Title, nullable(g.Sponsor), nullableStringPtr(g.Deadline), g.Status, nullable(g.Notes), g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM grant_pis WHERE grant_id=?`, g.ID); err != nil {
		return fmt.Errorf("clear grant pis: %w", err)
	}
	for i, name := range g.PI {
		if _, err := q.ExecContext(ctx, `INSERT INTO grant_pis(grant_id,position,name) VALUES (?,?,?)`, g.ID, i, name); err != nil {
			return fmt.Errorf("insert grant pi: %w", err)
		}
	}
	return nil
}

func (r Repo) DeleteGrant(ctx context.Context, id string) error {
	return deleteGrant(ctx, r.DB, id)
}

func (r Repo) DeleteGrantTx(ctx context.Context, tx *sql.Tx, id string) error {
	return deleteGrant(ctx, tx, id)
}

func deleteGrant(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM grants WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
