package queue

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/admin-console/internal/core/domain"
)

// Notifier fans identity changes out to subscribers. Each subscriber owns a
// worker goroutine and an unbounded queue, so delivery to one subscriber is
// serial and in publish order, and Publish never blocks on a slow callback.
// A callback may call back into the provider (for example to sign out): the
// resulting notification is queued behind the current one.
type Notifier struct {
	mu      sync.Mutex
	current *domain.Identity
	subs    map[uint64]*subscriber
	nextID  uint64
	closed  bool
	log     zerolog.Logger
}

// NewNotifier returns a notifier whose current identity is nil.
func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{
		subs: make(map[uint64]*subscriber),
		log:  log,
	}
}

// Current returns the last published identity.
func (n *Notifier) Current() *domain.Identity {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current.Clone()
}

// Subscribe queues the current identity for fn, then every later Publish.
// The returned func is idempotent and safe to call from inside fn.
func (n *Notifier) Subscribe(fn func(*domain.Identity)) (unsubscribe func()) {
	s := &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  n.log,
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return func() {}
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = s
	s.push(n.current.Clone())
	n.mu.Unlock()

	go s.run()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
		s.stop()
	}
}

// Publish records identity as current and queues it for every subscriber.
func (n *Notifier) Publish(identity *domain.Identity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.current = identity.Clone()
	for _, s := range n.subs {
		s.push(identity.Clone())
	}
}

// Close stops every subscriber. Pending notifications are dropped.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	subs := n.subs
	n.subs = make(map[uint64]*subscriber)
	n.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

type subscriber struct {
	fn   func(*domain.Identity)
	log  zerolog.Logger
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	queue []*domain.Identity
}

func (s *subscriber) push(identity *domain.Identity) {
	s.mu.Lock()
	s.queue = append(s.queue, identity)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pop() (*domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	next := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return next, true
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			next, ok := s.pop()
			if !ok {
				break
			}
			select {
			case <-s.done:
				return
			default:
			}
			s.deliver(next)
		}
	}
}

func (s *subscriber) deliver(identity *domain.Identity) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("identity subscriber panicked")
		}
	}()
	s.fn(identity)
}
