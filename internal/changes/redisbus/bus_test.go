package redisbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

func newNode(t *testing.T, ctx context.Context, addr, origin string) (*changes.Hub, chan changes.Change) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	hub := changes.NewHub(nil, changes.WithOrigin(origin))
	bus := New(client, hub, nil)
	hub.AddRelay(bus)
	require.NoError(t, bus.Start(ctx))

	got := make(chan changes.Change, 4)
	t.Cleanup(hub.Subscribe(changes.All, func(c changes.Change) { got <- c }))
	return hub, got
}

func next(t *testing.T, ch <-chan changes.Change) changes.Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return changes.Change{}
	}
}

func TestBusDeliversAcrossInstancesOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA, gotA := newNode(t, ctx, mr.Addr(), "node-a")
	_, gotB := newNode(t, ctx, mr.Addr(), "node-b")

	require.NoError(t, hubA.Publish(ctx, changes.Change{Op: changes.OpInsert, Division: collections.DivisionEPM, RecordID: 42}))

	remote := next(t, gotB)
	assert.Equal(t, "node-a", remote.Origin)
	assert.Equal(t, int64(42), remote.RecordID)
	assert.Equal(t, collections.DivisionEPM, remote.Division)

	local := next(t, gotA)
	assert.Equal(t, remote.ID, local.ID)
	select {
	case dup := <-gotA:
		t.Fatalf("origin received its own change twice: %+v", dup)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusForwardFailsWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	bus := New(client, changes.NewHub(nil), nil)
	mr.Close()

	err := bus.Forward(context.Background(), changes.Change{RecordID: 1})
	assert.Error(t, err)
}
