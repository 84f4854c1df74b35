package changes

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultQueueSize bounds the backlog of each subscriber.
const DefaultQueueSize = 64

// Relay forwards locally published changes to another transport.
type Relay interface {
	Forward(ctx context.Context, c Change) error
}

// RelayFunc adapts a function to Relay.
type RelayFunc func(ctx context.Context, c Change) error

// Forward implements Relay.
func (f RelayFunc) Forward(ctx context.Context, c Change) error { return f(ctx, c) }

// Hub delivers changes to subscribers. Each subscriber receives changes in
// publish order on its own goroutine, so a slow subscriber never blocks the
// publisher. When a subscriber's queue is full the oldest pending change is
// dropped.
type Hub struct {
	logger    *slog.Logger
	origin    string
	queueSize int
	onDrop    func()

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	relays []Relay
	closed bool

	dropped atomic.Int64
}

// Option configures a Hub.
type Option func(*Hub)

// WithQueueSize overrides DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithOrigin sets the instance identifier stamped on published changes.
func WithOrigin(origin string) Option {
	return func(h *Hub) {
		if origin != "" {
			h.origin = origin
		}
	}
}

// WithDropHook registers fn to be called for every dropped change.
func WithDropHook(fn func()) Option {
	return func(h *Hub) { h.onDrop = fn }
}

// NewHub constructs a Hub with a random origin.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:    logger,
		origin:    uuid.NewString(),
		queueSize: DefaultQueueSize,
		subs:      make(map[uint64]*subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Origin identifies this process on shared transports.
func (h *Hub) Origin() string { return h.origin }

// AddRelay registers a relay that receives every published change.
func (h *Hub) AddRelay(r Relay) {
	if r == nil {
		return
	}
	h.mu.Lock()
	h.relays = append(h.relays, r)
	h.mu.Unlock()
}

// Subscribe registers onChange for changes matching filter. A nil filter
// matches everything. The returned function unsubscribes and may be called
// more than once.
func (h *Hub) Subscribe(filter Filter, onChange func(Change)) func() {
	if filter == nil {
		filter = All
	}
	sub := &subscriber{
		filter: filter,
		fn:     onChange,
		queue:  make(chan Change, h.queueSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go sub.run()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		sub.stop()
	}
}

// Publish stamps c, delivers it locally and forwards it to every relay. Relay
// failures are joined into the returned error; local delivery always happens.
func (h *Hub) Publish(ctx context.Context, c Change) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Origin == "" {
		c.Origin = h.origin
	}
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	if c.Table == "" {
		c.Table = ActionsTable
	}

	h.Deliver(c)

	h.mu.Lock()
	relays := make([]Relay, len(h.relays))
	copy(relays, h.relays)
	h.mu.Unlock()

	var errs []error
	for _, r := range relays {
		if err := r.Forward(ctx, c); err != nil {
			h.logger.Warn("forward change", slog.String("change_id", c.ID.String()), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deliver hands c to matching local subscribers without forwarding it.
// Transports call it for changes received from other processes.
func (h *Hub) Deliver(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if !sub.filter(c) {
			continue
		}
		if !sub.offer(c) {
			h.dropped.Add(1)
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Dropped reports how many changes were discarded from full queues.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Subscribers reports the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close removes every subscriber. Subsequent subscriptions are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*subscriber)
	h.closed = true
	h.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}

type subscriber struct {
	filter Filter
	fn     func(Change)
	queue  chan Change
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case c := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(c)
		}
	}
}

// offer enqueues c, evicting the oldest entry when full. It reports false when
// an entry was evicted. Callers hold the hub lock.
func (s *subscriber) offer(c Change) bool {
	select {
	case s.queue <- c:
		return true
	default:
	}
	select {
	case <-s.queue:
	default:
	}
	select {
	case s.queue <- c:
	default:
	}
	return false
}
