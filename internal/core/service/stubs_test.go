package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub user store
// ---------------------------------------------------------------------------

type stubUserStore struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	order   []string
	nextID  int
	findErr error // if set, Find returns this error
	listErr error
	updErr  error

	finds   int
	lists   int
	gets    int
	updates []domain.UserUpdate
	updated chan string // receives the id after every successful Update, if set
}

func newStubUserStore(users ...*domain.User) *stubUserStore {
	s := &stubUserStore{byID: make(map[string]*domain.User)}
	for _, u := range users {
		if _, err := s.Insert(context.Background(), u); err != nil {
			panic(err)
		}
	}
	return s
}

func (s *stubUserStore) Find(_ context.Context, field domain.UserField, value string) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.findErr != nil {
		return nil, s.findErr
	}
	if field != domain.FieldEmail {
		return nil, fmt.Errorf("unsupported field %q", field)
	}
	var out []*domain.User
	for _, id := range s.order {
		if u := s.byID[id]; u.Email == value {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (s *stubUserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *stubUserStore) Insert(_ context.Context, user *domain.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("u%d", s.nextID)
	c := user.Clone()
	c.ID = id
	s.byID[id] = c
	s.order = append(s.order, id)
	return id, nil
}

func (s *stubUserStore) Update(_ context.Context, id string, update domain.UserUpdate) error {
	s.mu.Lock()
	if s.updErr != nil {
		s.mu.Unlock()
		return s.updErr
	}
	u, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	s.byID[id] = update.Apply(u)
	s.updates = append(s.updates, update)
	ch := s.updated
	s.mu.Unlock()

	if ch != nil {
		ch <- id
	}
	return nil
}

func (s *stubUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return nil
	}
	delete(s.byID, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *stubUserStore) List(context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*domain.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out, nil
}

func (s *stubUserStore) get(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id].Clone()
}

func (s *stubUserStore) counts() (finds, lists, gets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds, s.lists, s.gets
}

// ---------------------------------------------------------------------------
// Stub identity provider
// ---------------------------------------------------------------------------

// stubProvider delivers notifications synchronously on the emitting
// goroutine. Emissions raised from inside a callback are queued and delivered
// after it returns, so callbacks are never re-entered.
type stubProvider struct {
	mu          sync.Mutex
	current     *domain.Identity
	subs        map[int]func(*domain.Identity)
	nextSub     int
	queue       []*domain.Identity
	dispatching bool

	signInResult *domain.Identity
	signInErr    error
	signOutErr   error
	signOuts     int
}

func newStubProvider(current *domain.Identity) *stubProvider {
	return &stubProvider{current: current, subs: make(map[int]func(*domain.Identity))}
}

func (p *stubProvider) SignIn(_ context.Context, _ ports.SignInRequest) (*domain.Identity, error) {
	p.mu.Lock()
	res, err := p.signInResult, p.signInErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p.emit(res)
	return res.Clone(), nil
}

func (p *stubProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.signOuts++
	err := p.signOutErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(nil)
	return nil
}

func (p *stubProvider) Subscribe(fn func(*domain.Identity)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	current := p.current.Clone()
	nested := p.dispatching
	p.dispatching = true
	p.mu.Unlock()

	fn(current)
	if !nested {
		p.drain()
	}

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *stubProvider) emit(identity *domain.Identity) {
	p.mu.Lock()
	p.current = identity.Clone()
	p.queue = append(p.queue, identity.Clone())
	if p.dispatching {
		p.mu.Unlock()
		return
	}
	p.dispatching = true
	p.mu.Unlock()
	p.drain()
}

// drain delivers queued notifications; the caller must have set dispatching.
func (p *stubProvider) drain() {
	p.mu.Lock()
	for len(p.queue) > 0 {
		next := p.queue[0]
		p.queue = p.queue[1:]
		subs := make([]func(*domain.Identity), 0, len(p.subs))
		for _, fn := range p.subs {
			subs = append(subs, fn)
		}
		p.mu.Unlock()
		for _, fn := range subs {
			fn(next.Clone())
		}
		p.mu.Lock()
	}
	p.dispatching = false
	p.mu.Unlock()
}

func (p *stubProvider) signOutCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOuts
}

// ---------------------------------------------------------------------------
// Recording observer and failing generation
// ---------------------------------------------------------------------------

type recordingObserver struct {
	mu        sync.Mutex
	outcomes  []string
	failures  []string
	lookups   []string
	mutations []string
}

func (o *recordingObserver) Outcome(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) Failure(op string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, op)
}

func (o *recordingObserver) CacheLookup(resource, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups = append(o.lookups, resource+":"+result)
}

func (o *recordingObserver) Mutation(op, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mutations = append(o.mutations, op+":"+result)
}

func (o *recordingObserver) has(list func(*recordingObserver) []string, want string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, v := range list(o) {
		if v == want {
			return true
		}
	}
	return false
}

var errGenerationDown = errors.New("generation backend down")

type failingGeneration struct{}

func (failingGeneration) Current(context.Context) (uint64, error) { return 0, errGenerationDown }
func (failingGeneration) Bump(context.Context) (uint64, error)    { return 0, errGenerationDown }

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedUser(email string, role domain.Role, createdAt time.Time) *domain.User {
	return &domain.User{
		Email:     email,
		Role:      role,
		CreatedAt: createdAt,
		CreatedBy: domain.SystemActor,
	}
}

func googleIdentity(email, name, photo string) *domain.Identity {
	return &domain.Identity{
		Provider:    "google",
		ProviderID:  "sub-" + email,
		Email:       email,
		DisplayName: name,
		PhotoURL:    photo,
	}
}
