package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *MemoryStore {
	t.Helper()
	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)

	store, err := NewMemoryStore(hasher, opts...)
	require.NoError(t, err)
	return store
}

type countingHasher struct {
	verifies atomic.Int64
}

func (h *countingHasher) Hash(pw string) (string, error) { return "plain:" + pw, nil }

func (h *countingHasher) Verify(pw, encoded string) (bool, error) {
	h.verifies.Add(1)
	return encoded == "plain:"+pw, nil
}

func TestRegisterAndLookup(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(t,
		WithClock(func() time.Time { return createdAt }),
		WithIDGenerator(func() string { return "user-1" }),
	)
	ctx := context.Background()

	user, err := store.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "user-1", Email: "alice@example.com", CreatedAt: createdAt}, user)

	byID, err := store.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, user, byID)

	byEmail, err := store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user, byEmail)
	assert.Equal(t, 1, store.userCount())
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	for _, pw := range []string{"password123", "different-password", "another-one"} {
		_, err := store.Register(ctx, "alice@example.com", pw)
		require.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, store.userCount())
}

func TestEmailIsCaseSensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	_, err = store.Register(ctx, "Alice@example.com", "password123")
	require.NoError(t, err)

	_, err = store.Authenticate(ctx, "ALICE@example.com", "password123")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	registered, err := store.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	user, err := store.Authenticate(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered, user)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, wrongPassword := store.Authenticate(ctx, "alice@example.com", "password124")
	_, unknownEmail := store.Authenticate(ctx, "bob@example.com", "password123")

	require.ErrorIs(t, wrongPassword, ErrUnauthorized)
	require.ErrorIs(t, unknownEmail, ErrUnauthorized)
	assert.Equal(t, wrongPassword, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthenticateUnknownEmailStillVerifiesHash(t *testing.T) {
	hasher := &countingHasher{}
	store, err := NewMemoryStore(hasher)
	require.NoError(t, err)

	_, err = store.Authenticate(context.Background(), "nobody@example.com", "password123")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int64(1), hasher.verifies.Load())
}

func TestAuthenticateOverlongPasswordIsUnauthorized(t *testing.T) {
	hasher, err := password.NewBcrypt(4)
	require.NoError(t, err)
	store, err := NewMemoryStore(hasher)
	require.NoError(t, err)

	_, err = store.Authenticate(context.Background(), "alice@example.com", string(make([]byte, 100)))
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestFindByIDMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Register(context.Background(), "alice@example.com", "short")
	require.ErrorIs(t, err, password.ErrPasswordTooShort)
	assert.Equal(t, 0, store.userCount())
}

func TestConcurrentRegisterSingleWinner(t *testing.T) {
	store, err := NewMemoryStore(&countingHasher{})
	require.NoError(t, err)

	const n = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int64
		conflicts atomic.Int64
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Register(context.Background(), "race@example.com", "password123")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected register error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load())
	assert.Equal(t, int64(n-1), conflicts.Load())
}

func TestCanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Register(ctx, "alice@example.com", "password123")
	require.ErrorIs(t, err, context.Canceled)
}
