package handler

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/admin-console/internal/core/domain"
	"github.com/99minutos/admin-console/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Session stubs
// ---------------------------------------------------------------------------

type stubSessions struct {
	session  domain.Session
	loginFn  func(ctx context.Context, req ports.SignInRequest) (*domain.Identity, error)
	logoutFn func(ctx context.Context) error
	lastReq  ports.SignInRequest
}

func (s *stubSessions) Session() domain.Session { return s.session }

func (s *stubSessions) LoginWithGoogle(ctx context.Context, req ports.SignInRequest) (*domain.Identity, error) {
	s.lastReq = req
	return s.loginFn(ctx, req)
}

func (s *stubSessions) Logout(ctx context.Context) error {
	if s.logoutFn == nil {
		return nil
	}
	return s.logoutFn(ctx)
}

func (s *stubSessions) CreateUser(context.Context, domain.NewUserInput) (*domain.User, error) {
	panic("not used by handlers")
}

// stubWatcher holds a versioned session like the real cell: publish bumps the
// version and wakes waiters.
type stubWatcher struct {
	mu      sync.Mutex
	session domain.Session
	version uint64
	changed chan struct{}
}

func newStubWatcher(s domain.Session) *stubWatcher {
	return &stubWatcher{session: s, changed: make(chan struct{})}
}

func (w *stubWatcher) publish(s domain.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session = s
	w.version++
	close(w.changed)
	w.changed = make(chan struct{})
}

func (w *stubWatcher) Session() domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

func (w *stubWatcher) Version() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

func (w *stubWatcher) Await(ctx context.Context, cond func(domain.Session) bool) (domain.Session, error) {
	return w.wait(ctx, func(s domain.Session, _ uint64) bool { return cond(s) })
}

func (w *stubWatcher) AwaitAfter(ctx context.Context, since uint64, cond func(domain.Session) bool) (domain.Session, error) {
	return w.wait(ctx, func(s domain.Session, v uint64) bool { return v > since && cond(s) })
}

func (w *stubWatcher) wait(ctx context.Context, accept func(domain.Session, uint64) bool) (domain.Session, error) {
	for {
		w.mu.Lock()
		s, v, changed := w.session, w.version, w.changed
		w.mu.Unlock()
		if accept(s, v) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-changed:
		}
	}
}

type stubStates struct {
	saved map[string]string
	ttl   time.Duration
}

func newStubStates() *stubStates { return &stubStates{saved: map[string]string{}} }

func (s *stubStates) Save(_ context.Context, state, verifier string, ttl time.Duration) error {
	s.saved[state] = verifier
	s.ttl = ttl
	return nil
}

func (s *stubStates) Take(_ context.Context, state string) (string, error) {
	v, ok := s.saved[state]
	if !ok {
		return "", domain.ErrInvalidState
	}
	delete(s.saved, state)
	return v, nil
}

type stubRedirect struct{}

func (stubRedirect) AuthCodeURL(state, verifier string) string {
	return "https://accounts.example.com/auth?state=" + state
}

// ---------------------------------------------------------------------------
// Registry stub
// ---------------------------------------------------------------------------

type stubRegistry struct {
	list      ports.UserList
	listErr   error
	byID      map[string]*domain.User
	getErr    error
	saveFn    func(ctx context.Context, in domain.NewUserInput) (*domain.User, error)
	updateFn  func(ctx context.Context, id, role string) error
	deleteFn  func(ctx context.Context, id string) error
	stale     bool
	listCalls int
	detached  bool
	blockList bool // ListAsync never delivers
}

func (r *stubRegistry) List(context.Context) (ports.UserList, error) {
	r.listCalls++
	return r.list, r.listErr
}

func (r *stubRegistry) GetByID(_ context.Context, id string) (*domain.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.byID[id].Clone(), nil
}

func (r *stubRegistry) Save(ctx context.Context, in domain.NewUserInput) (*domain.User, error) {
	return r.saveFn(ctx, in)
}

func (r *stubRegistry) UpdateRole(ctx context.Context, id, role string) error {
	return r.updateFn(ctx, id, role)
}

func (r *stubRegistry) Delete(ctx context.Context, id string) error {
	if r.deleteFn == nil {
		return nil
	}
	return r.deleteFn(ctx, id)
}

func (r *stubRegistry) Generation(context.Context) (uint64, error) { return r.list.Generation, nil }

func (r *stubRegistry) Stale(context.Context, uint64) bool { return r.stale }

func (r *stubRegistry) ListAsync(ctx context.Context, deliver func(ports.UserList, error)) func() {
	if r.blockList {
		return func() { r.detached = true }
	}
	l, err := r.List(ctx)
	deliver(l, err)
	return func() { r.detached = true }
}

func (r *stubRegistry) GetByIDAsync(ctx context.Context, id string, deliver func(*domain.User, error)) func() {
	u, err := r.GetByID(ctx, id)
	deliver(u, err)
	return func() {}
}

var (
	testTime  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	adminUser = &domain.User{ID: "u1", Email: "boss@example.com", Role: domain.RoleAdmin, CreatedAt: testTime, CreatedBy: domain.SystemActor}
	plainUser = &domain.User{ID: "u2", Email: "ana@example.com", Role: domain.RoleUser, CreatedAt: testTime, CreatedBy: "boss@example.com"}
)
