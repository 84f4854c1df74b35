package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

// Querier is satisfied by pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository stores actions in Postgres.
type Repository struct {
	q Querier
}

var _ Store = (*Repository)(nil)

// NewRepository constructs a repository backed by pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

const actionColumns = `id, entity, parent_name, action_requested_on, action_owner, comment, total, created_at, updated_at`

// List returns a division's actions ordered by request date, newest first.
func (r *Repository) List(ctx context.Context, division collections.Division) ([]Action, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+actionColumns+`
		FROM sorted_actions_data
		WHERE entity = $1
		ORDER BY action_requested_on DESC, id DESC`, division.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get loads an action by id.
func (r *Repository) Get(ctx context.Context, id int64) (Action, error) {
	row := r.q.QueryRow(ctx, `SELECT `+actionColumns+` FROM actions_data WHERE id = $1`, id)
	return oneAction(row)
}

// Create inserts an action.
func (r *Repository) Create(ctx context.Context, in CreateInput) (Action, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO actions_data (entity, parent_name, action_requested_on, action_owner, comment, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, NOW(), NOW())
		RETURNING `+actionColumns,
		in.Division.String(),
		in.ParentName,
		pgtype.Date{Time: in.RequestedOn, Valid: true},
		in.Owner,
		in.Comment,
		in.Total.String(),
	)
	return oneAction(row)
}

// UpdateComment sets the comment of an action.
func (r *Repository) UpdateComment(ctx context.Context, id int64, comment string) (Action, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE actions_data
		SET comment = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+actionColumns, id, comment)
	return oneAction(row)
}

// Delete removes an action and returns it.
func (r *Repository) Delete(ctx context.Context, id int64) (Action, error) {
	row := r.q.QueryRow(ctx, `DELETE FROM actions_data WHERE id = $1 RETURNING `+actionColumns, id)
	return oneAction(row)
}

// CountByMonth counts actions requested within [from, to).
func (r *Repository) CountByMonth(ctx context.Context, division collections.Division, from, to time.Time) (int, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM actions_data
		WHERE entity = $1 AND action_requested_on >= $2 AND action_requested_on < $3`,
		division.String(),
		pgtype.Date{Time: from, Valid: true},
		pgtype.Date{Time: to, Valid: true},
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func oneAction(row pgx.Row) (Action, error) {
	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Action{}, ErrNotFound
	}
	return a, err
}

func scanAction(row pgx.Row) (Action, error) {
	var (
		a           Action
		division    string
		requestedOn pgtype.Date
		total       pgtype.Numeric
	)
	if err := row.Scan(&a.ID, &division, &a.ParentName, &requestedOn, &a.Owner, &a.Comment, &total, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Action{}, err
	}
	a.Division = collections.Division(division)
	a.RequestedOn = requestedOn.Time
	d, err := numericToDecimal(total)
	if err != nil {
		return Action{}, fmt.Errorf("actions: total of %d: %w", a.ID, err)
	}
	a.Total = d
	return a, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, errors.New("not a finite number")
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
