package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/collections"
	platformsqlite "github.com/odyssey-erp/arcollect/internal/platform/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := platformsqlite.Open(context.Background(), filepath.Join(t.TempDir(), "data", "actions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := New(db)
	store.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return store
}

func input(division collections.Division, parent string, requested time.Time, total string) actions.CreateInput {
	return actions.CreateInput{
		Division:    division,
		ParentName:  parent,
		RequestedOn: requested,
		Owner:       "Dana",
		Comment:     "call back",
		Total:       decimal.RequireFromString(total),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, input(collections.DivisionPPA, "Acme Holdings", day(2024, 5, 3), "1250.75"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, collections.DivisionPPA, created.Division)
	assert.Equal(t, day(2024, 5, 3), created.RequestedOn)
	assert.Equal(t, "1250.75", created.Total.String())
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), created.CreatedAt)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestStoreListOrdersByRequestDateThenID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older, err := store.Create(ctx, input(collections.DivisionMCS, "Old", day(2024, 1, 10), "10"))
	require.NoError(t, err)
	first, err := store.Create(ctx, input(collections.DivisionMCS, "Same day A", day(2024, 3, 1), "10"))
	require.NoError(t, err)
	second, err := store.Create(ctx, input(collections.DivisionMCS, "Same day B", day(2024, 3, 1), "10"))
	require.NoError(t, err)
	_, err = store.Create(ctx, input(collections.DivisionEPM, "Other division", day(2024, 4, 1), "10"))
	require.NoError(t, err)

	list, err := store.List(ctx, collections.DivisionMCS)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{second.ID, first.ID, older.ID}, []int64{list[0].ID, list[1].ID, list[2].ID})
}

func TestStoreUpdateCommentOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created, err := store.Create(ctx, input(collections.DivisionPPA, "Acme", day(2024, 5, 3), "99"))
	require.NoError(t, err)

	store.now = func() time.Time { return time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC) }
	updated, err := store.UpdateComment(ctx, created.ID, "promised payment Friday")
	require.NoError(t, err)
	assert.Equal(t, "promised payment Friday", updated.Comment)
	assert.Equal(t, created.ParentName, updated.ParentName)
	assert.True(t, created.Total.Equal(updated.Total))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = store.UpdateComment(ctx, 9999, "x")
	assert.ErrorIs(t, err, actions.ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created, err := store.Create(ctx, input(collections.DivisionEPM, "Acme", day(2024, 5, 3), "5"))
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, actions.ErrNotFound)
	_, err = store.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, actions.ErrNotFound)
}

func TestStoreCountByMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, d := range []time.Time{day(2024, 4, 30), day(2024, 5, 1), day(2024, 5, 31), day(2024, 6, 1)} {
		_, err := store.Create(ctx, input(collections.DivisionPPA, "Acme", d, "1"))
		require.NoError(t, err)
	}
	n, err := store.CountByMonth(ctx, collections.DivisionPPA, day(2024, 5, 1), day(2024, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.CountByMonth(ctx, collections.DivisionMCS, day(2024, 5, 1), day(2024, 6, 1))
	require.NoError(t, err)
	assert.Zero(t, n)
}
