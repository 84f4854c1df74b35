// Package sqlite stores follow-up actions in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

const (
	dateLayout  = "2006-01-02"
	stampLayout = time.RFC3339Nano
	columns     = `id, entity, parent_name, action_requested_on, action_owner, comment, total, created_at, updated_at`
)

// Store implements actions.Store on database/sql.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ actions.Store = (*Store)(nil)

// New wraps an opened and migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// List returns a division's actions ordered by request date, newest first.
func (s *Store) List(ctx context.Context, division collections.Division) ([]actions.Action, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM actions_data
		WHERE entity = ?
		ORDER BY action_requested_on DESC, id DESC`, division.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: list actions: %w", err)
	}
	defer rows.Close()

	var out []actions.Action
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get loads an action by id.
func (s *Store) Get(ctx context.Context, id int64) (actions.Action, error) {
	return one(s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM actions_data WHERE id = ?`, id))
}

// Create inserts an action.
func (s *Store) Create(ctx context.Context, in actions.CreateInput) (actions.Action, error) {
	stamp := s.now().UTC().Format(stampLayout)
	res, err := s.db.ExecContext(ctx, `INSERT INTO actions_data
		(entity, parent_name, action_requested_on, action_owner, comment, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Division.String(), in.ParentName, in.RequestedOn.Format(dateLayout),
		in.Owner, in.Comment, in.Total.String(), stamp, stamp)
	if err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: insert action: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: insert action id: %w", err)
	}
	return s.Get(ctx, id)
}

// UpdateComment sets the comment of an action.
func (s *Store) UpdateComment(ctx context.Context, id int64, comment string) (actions.Action, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE actions_data SET comment = ?, updated_at = ? WHERE id = ?`,
		comment, s.now().UTC().Format(stampLayout), id)
	if err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: update action: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return actions.Action{}, actions.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes an action and returns it.
func (s *Store) Delete(ctx context.Context, id int64) (actions.Action, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := one(tx.QueryRowContext(ctx, `SELECT `+columns+` FROM actions_data WHERE id = ?`, id))
	if err != nil {
		return actions.Action{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM actions_data WHERE id = ?`, id); err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: delete action: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: commit: %w", err)
	}
	return existing, nil
}

// CountByMonth counts actions requested within [from, to).
func (s *Store) CountByMonth(ctx context.Context, division collections.Division, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions_data
		WHERE entity = ? AND action_requested_on >= ? AND action_requested_on < ?`,
		division.String(), from.Format(dateLayout), to.Format(dateLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count actions: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func one(row scanner) (actions.Action, error) {
	a, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return actions.Action{}, actions.ErrNotFound
	}
	return a, err
}

func scan(row scanner) (actions.Action, error) {
	var (
		a                                            actions.Action
		division, requested, total, created, updated string
	)
	if err := row.Scan(&a.ID, &division, &a.ParentName, &requested, &a.Owner, &a.Comment, &total, &created, &updated); err != nil {
		return actions.Action{}, err
	}
	a.Division = collections.Division(division)
	var err error
	if a.RequestedOn, err = time.Parse(dateLayout, requested); err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: action %d requested on: %w", a.ID, err)
	}
	if a.Total, err = decimal.NewFromString(total); err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: action %d total: %w", a.ID, err)
	}
	if a.CreatedAt, err = time.Parse(stampLayout, created); err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: action %d created at: %w", a.ID, err)
	}
	if a.UpdatedAt, err = time.Parse(stampLayout, updated); err != nil {
		return actions.Action{}, fmt.Errorf("sqlite: action %d updated at: %w", a.ID, err)
	}
	return a, nil
}
