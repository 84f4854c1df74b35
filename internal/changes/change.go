// Package changes fans out notifications about modified follow-up actions to
// in-process subscribers and to external relays.
package changes

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

// Op is the kind of mutation that produced a change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ActionsTable is the table name carried by action changes.
const ActionsTable = "actions_data"

// Change describes a single row mutation.
type Change struct {
	ID       uuid.UUID            `json:"id"`
	Table    string               `json:"table"`
	Op       Op                   `json:"op"`
	Division collections.Division `json:"division"`
	RecordID int64                `json:"recordId"`
	Origin   string               `json:"origin,omitempty"`
	At       time.Time            `json:"at"`
}

// Filter selects the changes a subscriber is interested in.
type Filter func(Change) bool

// All accepts every change.
func All(Change) bool { return true }

// ForDivision accepts changes for a single division.
func ForDivision(d collections.Division) Filter {
	return func(c Change) bool { return c.Division == d }
}
