package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rensmac/taskboard/internal/domain"
	"github.com/rensmac/taskboard/internal/security"
)

type fakeUserLookup struct {
	users map[int64]*domain.User
	err   error
}

func (f *fakeUserLookup) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func newTestVerifier(t *testing.T, users *fakeUserLookup) (*TokenVerifier, *security.JWTManager) {
	t.Helper()
	jwtManager := security.NewJWTManager("test-secret-key-with-32-chars!!", 15*time.Minute, 24*time.Hour)
	return NewTokenVerifier(jwtManager, users), jwtManager
}

func TestTokenVerifier_Verify(t *testing.T) {
	active := &domain.User{ID: 1, Email: "a@example.com", IsActive: true}
	inactive := &domain.User{ID: 2, Email: "b@example.com", IsActive: false}
	lookup := &fakeUserLookup{users: map[int64]*domain.User{1: active, 2: inactive}}
	verifier, jwtManager := newTestVerifier(t, lookup)

	token, err := jwtManager.GenerateAccessToken(1, "a@example.com")
	assert.NoError(t, err)

	ctx := context.Background()

	t.Run("raw token", func(t *testing.T) {
		user, err := verifier.Verify(ctx, token)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("jwt scheme", func(t *testing.T) {
		user, err := verifier.Verify(ctx, "JWT "+token)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("bearer scheme", func(t *testing.T) {
		user, err := verifier.Verify(ctx, "Bearer "+token)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("empty after scheme", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "Bearer ")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactiveToken, err := jwtManager.GenerateAccessToken(2, "b@example.com")
		assert.NoError(t, err)
		_, err = verifier.Verify(ctx, inactiveToken)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unknown user", func(t *testing.T) {
		unknownToken, err := jwtManager.GenerateAccessToken(99, "ghost@example.com")
		assert.NoError(t, err)
		_, err = verifier.Verify(ctx, unknownToken)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestTokenVerifier_ExpiredToken(t *testing.T) {
	lookup := &fakeUserLookup{users: map[int64]*domain.User{}}
	verifier, _ := newTestVerifier(t, lookup)

	expiredManager := security.NewJWTManager("test-secret-key-with-32-chars!!", -1*time.Minute, 24*time.Hour)
	token, err := expiredManager.GenerateAccessToken(1, "a@example.com")
	assert.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenVerifier_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	lookup := &fakeUserLookup{err: storeErr}
	verifier, jwtManager := newTestVerifier(t, lookup)

	token, err := jwtManager.GenerateAccessToken(1, "a@example.com")
	assert.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}
