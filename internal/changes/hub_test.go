package changes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

const waitFor = time.Second

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func assertSilent(t *testing.T, ch <-chan Change) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

type recordingRelay struct {
	got chan Change
	err error
}

func (r *recordingRelay) Forward(ctx context.Context, c Change) error {
	r.got <- c
	return r.err
}

func TestHubPublishStampsAndDelivers(t *testing.T) {
	hub := NewHub(nil, WithOrigin("node-a"))
	got := make(chan Change, 1)
	unsubscribe := hub.Subscribe(All, func(c Change) { got <- c })
	defer unsubscribe()

	require.NoError(t, hub.Publish(context.Background(), Change{Op: OpInsert, Division: collections.DivisionPPA, RecordID: 7}))

	c := receive(t, got)
	assert.Equal(t, "node-a", c.Origin)
	assert.Equal(t, ActionsTable, c.Table)
	assert.NotEqual(t, [16]byte{}, [16]byte(c.ID))
	assert.False(t, c.At.IsZero())
	assert.Equal(t, int64(7), c.RecordID)
}

func TestHubFilterByDivision(t *testing.T) {
	hub := NewHub(nil)
	got := make(chan Change, 4)
	defer hub.Subscribe(ForDivision(collections.DivisionMCS), func(c Change) { got <- c })()

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, Change{Op: OpInsert, Division: collections.DivisionPPA}))
	require.NoError(t, hub.Publish(ctx, Change{Op: OpUpdate, Division: collections.DivisionMCS}))

	c := receive(t, got)
	assert.Equal(t, collections.DivisionMCS, c.Division)
	assertSilent(t, got)
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	got := make(chan Change, 1)
	unsubscribe := hub.Subscribe(nil, func(c Change) { got <- c })
	require.Equal(t, 1, hub.Subscribers())

	unsubscribe()
	unsubscribe()
	assert.Zero(t, hub.Subscribers())

	require.NoError(t, hub.Publish(context.Background(), Change{Op: OpDelete}))
	assertSilent(t, got)
}

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub(nil)
	got := make(chan Change, 10)
	defer hub.Subscribe(All, func(c Change) { got <- c })()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, hub.Publish(context.Background(), Change{RecordID: i}))
	}
	for i := int64(1); i <= 5; i++ {
		assert.Equal(t, i, receive(t, got).RecordID)
	}
}

func TestHubDropsOldestWhenQueueFull(t *testing.T) {
	drops := 0
	hub := NewHub(nil, WithQueueSize(1), WithDropHook(func() { drops++ }))
	started := make(chan Change, 1)
	release := make(chan struct{})
	got := make(chan Change, 4)
	defer hub.Subscribe(All, func(c Change) {
		if c.RecordID == 1 {
			started <- c
			<-release
		}
		got <- c
	})()

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, Change{RecordID: 1}))
	receive(t, started)

	require.NoError(t, hub.Publish(ctx, Change{RecordID: 2}))
	require.NoError(t, hub.Publish(ctx, Change{RecordID: 3}))
	assert.Equal(t, int64(1), hub.Dropped())
	assert.Equal(t, 1, drops)

	close(release)
	assert.Equal(t, int64(1), receive(t, got).RecordID)
	assert.Equal(t, int64(3), receive(t, got).RecordID)
	assertSilent(t, got)
}

func TestHubForwardsToRelays(t *testing.T) {
	hub := NewHub(nil)
	ok := &recordingRelay{got: make(chan Change, 1)}
	failing := &recordingRelay{got: make(chan Change, 1), err: errors.New("broker down")}
	hub.AddRelay(ok)
	hub.AddRelay(failing)

	local := make(chan Change, 1)
	defer hub.Subscribe(All, func(c Change) { local <- c })()

	err := hub.Publish(context.Background(), Change{RecordID: 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	assert.Equal(t, int64(9), receive(t, ok.got).RecordID)
	assert.Equal(t, int64(9), receive(t, failing.got).RecordID)
	assert.Equal(t, int64(9), receive(t, local).RecordID)
}

func TestHubDeliverDoesNotForward(t *testing.T) {
	hub := NewHub(nil)
	relay := &recordingRelay{got: make(chan Change, 1)}
	hub.AddRelay(relay)

	hub.Deliver(Change{RecordID: 3})
	assertSilent(t, relay.got)
}

func TestHubCloseStopsSubscribers(t *testing.T) {
	hub := NewHub(nil)
	unsubscribe := hub.Subscribe(All, func(Change) {})
	hub.Close()
	assert.Zero(t, hub.Subscribers())
	unsubscribe()

	noop := hub.Subscribe(All, func(Change) {})
	noop()
	assert.Zero(t, hub.Subscribers())
}

func TestRelayFuncForwards(t *testing.T) {
	hub := NewHub(nil)
	var ops []Op
	hub.AddRelay(RelayFunc(func(ctx context.Context, c Change) error {
		ops = append(ops, c.Op)
		return nil
	}))
	require.NoError(t, hub.Publish(context.Background(), Change{Op: OpDelete}))
	assert.Equal(t, []Op{OpDelete}, ops)
}
