package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/tokenauth/password"
	"github.com/google/uuid"
)

// dummyPassword is hashed once per store so that authenticating an unknown
// e-mail costs the same hash verification as a wrong password.
const dummyPassword = "tokenauth-timing-equalizer"

type record struct {
	user         User
	passwordHash string
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock sets the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv4 user id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *MemoryStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// MemoryStore is a volatile, process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]*record
	byID    map[string]*record

	hasher    password.Hasher
	dummyHash string
	now       func() time.Time
	newID     func() string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store hashing with hasher.
func NewMemoryStore(hasher password.Hasher, opts ...Option) (*MemoryStore, error) {
	if hasher == nil {
		return nil, errors.New("credential: password hasher required")
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("credential: prepare dummy hash: %w", err)
	}

	s := &MemoryStore{
		byEmail:   make(map[string]*record),
		byID:      make(map[string]*record),
		hasher:    hasher,
		dummyHash: dummy,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Register hashes plaintext and stores a new user under email.
//
// Hashing runs outside the lock; the uniqueness check is repeated under the
// write lock so two concurrent registrations of one e-mail yield one winner.
func (s *MemoryStore) Register(ctx context.Context, email, plaintext string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	_, taken := s.byEmail[email]
	s.mu.RUnlock()
	if taken {
		return User{}, ErrConflict
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return User{}, err
	}

	rec := &record{
		user: User{
			ID:        s.newID(),
			Email:     email,
			CreatedAt: s.now(),
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return User{}, ErrConflict
	}
	if _, taken := s.byID[rec.user.ID]; taken {
		return User{}, fmt.Errorf("credential: duplicate user id %q", rec.user.ID)
	}
	s.byEmail[email] = rec
	s.byID[rec.user.ID] = rec

	return rec.user, nil
}

// Authenticate returns the user for email if plaintext matches its hash.
func (s *MemoryStore) Authenticate(ctx context.Context, email, plaintext string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	rec, ok := s.byEmail[email]
	s.mu.RUnlock()

	hash := s.dummyHash
	if ok {
		hash = rec.passwordHash
	}

	match, err := s.hasher.Verify(plaintext, hash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return User{}, ErrUnauthorized
		}
		return User{}, fmt.Errorf("credential: verify password: %w", err)
	}
	if !ok || !match {
		return User{}, ErrUnauthorized
	}

	return rec.user, nil
}

// FindByID returns the user with id, or ErrNotFound.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return rec.user, nil
}

// FindByEmail returns the user registered under email, or ErrNotFound.
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return rec.user, nil
}

// userCount reports the number of registered users.
func (s *MemoryStore) userCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
