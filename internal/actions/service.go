// Package actions manages follow-up actions and announces every change.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

// Publisher receives a change after every successful mutation.
type Publisher interface {
	Publish(ctx context.Context, c changes.Change) error
}

// Service validates input, persists through a Store and publishes changes.
type Service struct {
	store     Store
	publisher Publisher
	validate  *validator.Validate
	logger    *slog.Logger
}

var _ collections.ActionCounter = (*Service)(nil)

// NewService constructs the actions service. publisher may be nil.
func NewService(store Store, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		validate:  newValidator(),
		logger:    logger,
	}
}

// List returns a division's actions, newest request first.
func (s *Service) List(ctx context.Context, division collections.Division) ([]Action, error) {
	items, err := s.store.List(ctx, division)
	if err != nil {
		return nil, fmt.Errorf("actions: list: %w", err)
	}
	if items == nil {
		items = []Action{}
	}
	return items, nil
}

// Get returns a single action.
func (s *Service) Get(ctx context.Context, id int64) (Action, error) {
	return s.store.Get(ctx, id)
}

// Create validates and records a new action.
func (s *Service) Create(ctx context.Context, in CreateInput) (Action, error) {
	in = in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return Action{}, validationError(err)
	}
	created, err := s.store.Create(ctx, in)
	if err != nil {
		return Action{}, fmt.Errorf("actions: create: %w", err)
	}
	s.announce(ctx, changes.OpInsert, created)
	return created, nil
}

// UpdateComment replaces the comment of an action. Other fields are immutable.
func (s *Service) UpdateComment(ctx context.Context, id int64, comment string) (Action, error) {
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return Action{}, &ValidationError{Fields: map[string]string{
			"comment": fmt.Sprintf("must be at most %d characters", MaxCommentLength),
		}}
	}
	updated, err := s.store.UpdateComment(ctx, id, comment)
	if err != nil {
		return Action{}, err
	}
	s.announce(ctx, changes.OpUpdate, updated)
	return updated, nil
}

// Delete removes an action and returns the deleted record.
func (s *Service) Delete(ctx context.Context, id int64) (Action, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return Action{}, err
	}
	s.announce(ctx, changes.OpDelete, deleted)
	return deleted, nil
}

// CountPending counts a division's actions requested during month.
func (s *Service) CountPending(ctx context.Context, division collections.Division, month string) (int, error) {
	from, to, err := collections.MonthRange(month)
	if err != nil {
		return 0, err
	}
	n, err := s.store.CountByMonth(ctx, division, from, to)
	if err != nil {
		return 0, fmt.Errorf("actions: count: %w", err)
	}
	return n, nil
}

func (s *Service) announce(ctx context.Context, op changes.Op, a Action) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, changes.Change{
		Table:    changes.ActionsTable,
		Op:       op,
		Division: a.Division,
		RecordID: a.ID,
	})
	if err != nil {
		s.logger.Warn("publish action change",
			slog.String("op", string(op)),
			slog.Int64("action_id", a.ID),
			slog.Any("error", err))
	}
}
