package actions

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

var (
	// ErrNotFound indicates the action does not exist.
	ErrNotFound = errors.New("actions: not found")
	// ErrValidation wraps every input validation failure.
	ErrValidation = errors.New("actions: validation failed")
)

// Action is a follow-up task recorded against a customer account.
type Action struct {
	ID          int64                `json:"id"`
	Division    collections.Division `json:"division"`
	ParentName  string               `json:"parentName"`
	RequestedOn time.Time            `json:"requestedOn"`
	Owner       string               `json:"owner"`
	Comment     string               `json:"comment"`
	Total       decimal.Decimal      `json:"total"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// CreateInput carries the fields accepted when recording an action.
type CreateInput struct {
	Division    collections.Division `json:"division" validate:"required,oneof=PPA MCS EPM"`
	ParentName  string               `json:"parentName" validate:"required,max=200"`
	RequestedOn time.Time            `json:"requestedOn" validate:"required"`
	Owner       string               `json:"owner" validate:"required,max=200"`
	Comment     string               `json:"comment" validate:"max=2000"`
	Total       decimal.Decimal      `json:"total" validate:"gt=0"`
}

// Normalize trims text fields and truncates the request date to a day.
func (in CreateInput) Normalize() CreateInput {
	in.Division = collections.Division(strings.ToUpper(strings.TrimSpace(string(in.Division))))
	in.ParentName = strings.TrimSpace(in.ParentName)
	in.Owner = strings.TrimSpace(in.Owner)
	in.Comment = strings.TrimSpace(in.Comment)
	if !in.RequestedOn.IsZero() {
		y, m, d := in.RequestedOn.Date()
		in.RequestedOn = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return in
}

// ValidationError lists field level problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "actions: validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// FieldErrors returns the field messages keyed by JSON name.
func (e *ValidationError) FieldErrors() map[string]string { return e.Fields }

// Store persists actions.
type Store interface {
	List(ctx context.Context, division collections.Division) ([]Action, error)
	Get(ctx context.Context, id int64) (Action, error)
	Create(ctx context.Context, in CreateInput) (Action, error)
	UpdateComment(ctx context.Context, id int64, comment string) (Action, error)
	Delete(ctx context.Context, id int64) (Action, error)
	CountByMonth(ctx context.Context, division collections.Division, from, to time.Time) (int, error)
}
