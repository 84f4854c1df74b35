// Package pglisten turns Postgres NOTIFY events on the actions table into
// hub deliveries, so edits made outside the service still reach subscribers.
package pglisten

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

// Channel is the notification channel the actions trigger writes to.
const Channel = "actions_changes"

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Listener holds a dedicated connection listening on Channel.
type Listener struct {
	dsn    string
	hub    *changes.Hub
	logger *slog.Logger
}

// New constructs a Listener for dsn.
func New(dsn string, hub *changes.Hub, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{dsn: dsn, hub: hub, logger: logger}
}

// Run listens until ctx is cancelled, reconnecting with backoff when the
// connection drops.
func (l *Listener) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("pglisten: connection lost", slog.Any("error", err), slog.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("pglisten: connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("pglisten: listen: %w", err)
	}
	l.logger.Info("pglisten: listening", slog.String("channel", Channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("pglisten: wait: %w", err)
		}
		c, err := ParsePayload(n.Payload)
		if err != nil {
			l.logger.Warn("pglisten: decode payload", slog.String("payload", n.Payload), slog.Any("error", err))
			continue
		}
		l.hub.Deliver(c)
	}
}

type payload struct {
	Table    string `json:"table"`
	Op       string `json:"op"`
	Division string `json:"division"`
	RecordID int64  `json:"recordId"`
	At       string `json:"at"`
}

// ParsePayload decodes the JSON written by the notify trigger.
func ParsePayload(raw string) (changes.Change, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return changes.Change{}, err
	}
	division, err := collections.ParseDivision(p.Division)
	if err != nil {
		return changes.Change{}, err
	}
	op := changes.Op(strings.ToLower(p.Op))
	switch op {
	case changes.OpInsert, changes.OpUpdate, changes.OpDelete:
	default:
		return changes.Change{}, errors.New("unknown op " + p.Op)
	}
	c := changes.Change{
		Table:    p.Table,
		Op:       op,
		Division: division,
		RecordID: p.RecordID,
		Origin:   "postgres",
		At:       time.Now().UTC(),
	}
	if c.Table == "" {
		c.Table = changes.ActionsTable
	}
	if at, err := time.Parse(time.RFC3339Nano, p.At); err == nil {
		c.At = at.UTC()
	}
	return c, nil
}
