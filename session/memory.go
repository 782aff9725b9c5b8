package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/tokenauth/internal"
)

type memoryEntry struct {
	userID    string
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore is a volatile Store guarded by a single mutex.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[[32]byte]memoryEntry
	byUser   map[string]map[[32]byte]struct{}
	opts     options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		sessions: make(map[[32]byte]memoryEntry),
		byUser:   make(map[string]map[[32]byte]struct{}),
		opts:     o,
	}
}

// Issue creates a session for userID that expires after ttl.
func (s *MemoryStore) Issue(ctx context.Context, userID string, ttl time.Duration) (Session, error) {
	if err := checkIssueArgs(userID, ttl); err != nil {
		return Session{}, err
	}
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.issueLocked(userID, ttl)
}

// Validate returns the live session for token. An expired record is
// deleted and reported as ErrExpired.
func (s *MemoryStore) Validate(ctx context.Context, token string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, _, err := s.lookupLocked(token)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    entry.userID,
		CreatedAt: entry.createdAt,
		ExpiresAt: entry.expiresAt,
	}, nil
}

// Rotate replaces oldToken with a new session for the same owner under the
// store lock. On any error the old session is left as it was, unless it
// had already expired.
func (s *MemoryStore) Rotate(ctx context.Context, oldToken string, ttl time.Duration) (Session, error) {
	if ttl <= 0 {
		return Session{}, errNonPositiveTTL
	}
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, key, err := s.lookupLocked(oldToken)
	if err != nil {
		return Session{}, err
	}

	// The old record survives any failure to mint its replacement.
	token, newKey, err := s.newTokenLocked()
	if err != nil {
		return Session{}, err
	}
	s.deleteLocked(key, entry.userID)

	return s.insertLocked(token, newKey, entry.userID, ttl), nil
}

// Revoke deletes token. Unknown tokens are not an error.
func (s *MemoryStore) Revoke(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := internal.HashToken(token)
	if entry, ok := s.sessions[key]; ok {
		s.deleteLocked(key, entry.userID)
	}
	return nil
}

// RevokeAll deletes every session of userID and returns how many there
// were.
func (s *MemoryStore) RevokeAll(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.byUser[userID]
	for key := range keys {
		delete(s.sessions, key)
	}
	delete(s.byUser, userID)

	return len(keys), nil
}

// ActiveCount returns the number of unexpired sessions of userID, evicting
// expired ones on the way.
func (s *MemoryStore) ActiveCount(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	active := 0
	for key := range s.byUser[userID] {
		if s.sessions[key].expiresAt.Before(now) {
			s.deleteLocked(key, userID)
			continue
		}
		active++
	}
	return active, nil
}

// lookupLocked resolves token, evicting it if expired.
func (s *MemoryStore) lookupLocked(token string) (memoryEntry, [32]byte, error) {
	key := internal.HashToken(token)
	entry, ok := s.sessions[key]
	if !ok {
		return memoryEntry{}, key, ErrInvalid
	}
	if entry.expiresAt.Before(s.opts.now()) {
		s.deleteLocked(key, entry.userID)
		return memoryEntry{}, key, ErrExpired
	}
	return entry, key, nil
}

func (s *MemoryStore) issueLocked(userID string, ttl time.Duration) (Session, error) {
	token, key, err := s.newTokenLocked()
	if err != nil {
		return Session{}, err
	}
	return s.insertLocked(token, key, userID, ttl), nil
}

// newTokenLocked draws tokens until one is not already stored.
func (s *MemoryStore) newTokenLocked() (string, [32]byte, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		token, err := s.opts.newToken()
		if err != nil {
			return "", [32]byte{}, fmt.Errorf("session: generate token: %w", err)
		}
		key := internal.HashToken(token)
		if _, exists := s.sessions[key]; !exists {
			return token, key, nil
		}
	}
	return "", [32]byte{}, ErrTokenCollision
}

func (s *MemoryStore) insertLocked(token string, key [32]byte, userID string, ttl time.Duration) Session {
	now := s.opts.now()
	entry := memoryEntry{
		userID:    userID,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	s.sessions[key] = entry

	index, ok := s.byUser[userID]
	if !ok {
		index = make(map[[32]byte]struct{})
		s.byUser[userID] = index
	}
	index[key] = struct{}{}

	return Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: entry.createdAt,
		ExpiresAt: entry.expiresAt,
	}
}

func (s *MemoryStore) deleteLocked(key [32]byte, userID string) {
	delete(s.sessions, key)
	if index, ok := s.byUser[userID]; ok {
		delete(index, key)
		if len(index) == 0 {
			delete(s.byUser, userID)
		}
	}
}
