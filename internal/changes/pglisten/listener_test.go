package pglisten

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

func TestParsePayload(t *testing.T) {
	c, err := ParsePayload(`{"table":"actions_data","op":"update","division":"MCS","recordId":12,"at":"2024-05-02T10:11:12.123456+00:00"}`)
	require.NoError(t, err)
	assert.Equal(t, changes.OpUpdate, c.Op)
	assert.Equal(t, collections.DivisionMCS, c.Division)
	assert.Equal(t, int64(12), c.RecordID)
	assert.Equal(t, "postgres", c.Origin)
	assert.Equal(t, time.Date(2024, 5, 2, 10, 11, 12, 123456000, time.UTC), c.At)
}

func TestParsePayloadDefaultsTable(t *testing.T) {
	c, err := ParsePayload(`{"op":"DELETE","division":"ppa","recordId":1}`)
	require.NoError(t, err)
	assert.Equal(t, changes.ActionsTable, c.Table)
	assert.Equal(t, changes.OpDelete, c.Op)
	assert.False(t, c.At.IsZero())
}

func TestParsePayloadRejectsBadInput(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"op":"insert","division":"XYZ","recordId":1}`,
		`{"op":"truncate","division":"PPA","recordId":1}`,
	} {
		_, err := ParsePayload(raw)
		assert.Error(t, err, raw)
	}
}
