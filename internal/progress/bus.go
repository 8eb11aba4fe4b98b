// Package progress fans operation events out to subscribers.
//
// Every subscriber owns an unbounded FIFO mailbox drained by its own
// goroutine, so publishing never blocks on a slow consumer and events from
// one publisher reach each subscriber in publish order.
package progress

import (
	"log/slog"
	"sync"

	"github.com/yarokim83/filemanager/optypes"
)

// Bus is a publish/subscribe channel for progress events.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	logger *slog.Logger
}

// New creates a bus. A nil logger discards diagnostics.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. buffer sizes the delivery channel;
// the mailbox behind it is unbounded either way. Subscribing to a closed bus
// returns a subscription whose channel is already closed.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	s := &Subscription{
		bus:    b,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
		out:    make(chan optypes.ProgressEvent, buffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.stopped = true
		s.once.Do(func() { close(s.done) })
		close(s.out)
		return s
	}
	b.nextID++
	s.id = b.nextID
	b.subs[s.id] = s
	count := len(b.subs)
	b.mu.Unlock()

	go s.run()
	b.logger.Debug("progress subscriber added", slog.Int("subscribers", count))
	return s
}

// Publish delivers ev to every current subscriber.
func (b *Bus) Publish(ev optypes.ProgressEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.deliver(ev)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unsubscribes everyone. Events already published are still delivered
// before each channel closes; later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()

	for _, s := range subs {
		s.stop(true)
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	bus *Bus
	id  uint64

	mu      sync.Mutex
	queue   []optypes.ProgressEvent
	stopped bool

	signal   chan struct{}
	done     chan struct{}
	quit     chan struct{}
	out      chan optypes.ProgressEvent
	once     sync.Once
	quitOnce sync.Once
}

// Events returns the delivery channel. It is closed by Unsubscribe, which
// drops undelivered events, or after the bus closes and the mailbox drains.
func (s *Subscription) Events() <-chan optypes.ProgressEvent {
	return s.out
}

// Unsubscribe detaches the subscriber. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.bus != nil && s.id != 0 {
		s.bus.remove(s.id)
	}
	s.stop(false)
}

// stop refuses further deliveries. With drain set the mailbox is flushed to
// the channel first; otherwise pending events are dropped.
func (s *Subscription) stop(drain bool) {
	s.mu.Lock()
	s.stopped = true
	if !drain {
		s.queue = nil
	}
	s.mu.Unlock()

	s.once.Do(func() { close(s.done) })
	if !drain {
		s.quitOnce.Do(func() { close(s.quit) })
	}
}

func (s *Subscription) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0
}

func (s *Subscription) deliver(ev optypes.ProgressEvent) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.signal:
				continue
			case <-s.done:
				if s.pending() {
					continue
				}
				return
			}
		}
		ev := s.queue[0]
		s.queue[0] = optypes.ProgressEvent{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.quit:
			return
		}
	}
}
