package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process store used by tests and development boots
// without Redis. A single mutex serializes the check-then-touch sequence.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	now         func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryIdleTimeout overrides the default idle timeout.
func WithMemoryIdleTimeout(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithMemoryClock overrides the time source (useful for tests).
func WithMemoryClock(fn func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions:    make(map[string]*Session),
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, user Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.sessions[id] = &Session{ID: id, User: user, LastActivity: s.now()}
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	return s.check(id, false)
}

func (s *MemoryStore) Touch(_ context.Context, id string) (Session, error) {
	return s.check(id, true)
}

func (s *MemoryStore) check(id string, refresh bool) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	now := s.now()
	// Expiry must be decided before any refresh is applied.
	if now.Sub(sess.LastActivity) > s.idleTimeout {
		delete(s.sessions, id)
		return Session{}, ErrExpired
	}
	if refresh && now.After(sess.LastActivity) {
		sess.LastActivity = now
	}
	return *sess, nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) SwitchOrganization(_ context.Context, id, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.User.CurrentOrganizationID = orgID
	return nil
}
