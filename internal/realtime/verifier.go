package realtime

import (
	"context"
	"errors"
	"strings"

	"github.com/rensmac/taskboard/internal/domain"
	"github.com/rensmac/taskboard/internal/security"
)

// ErrUnauthenticated is returned by identity verification for any missing,
// malformed, expired or unresolvable credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// IdentityVerifier turns a bearer credential into a verified user identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*domain.User, error)
}

// AccessChecker decides whether a user may join a room: organization
// membership and task existence, both required.
type AccessChecker interface {
	VerifyAccess(ctx context.Context, userID int64, room domain.RoomKey) (bool, error)
}

// CommentCreator persists a comment and hands the resulting event to the
// fan-out dispatcher.
type CommentCreator interface {
	Create(ctx context.Context, content string, author *domain.User, room domain.RoomKey) (*domain.CommentEvent, error)
}

// UserLookup resolves a user ID to an identity record.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// TokenVerifier verifies JWT credentials and resolves their subject to an
// active user. Credentials may carry a "JWT" or "Bearer" scheme tag, which
// is stripped. Verification failures are reported as ErrUnauthenticated and
// never include the credential or its decoded contents.
type TokenVerifier struct {
	jwt   *security.JWTManager
	users UserLookup
}

// NewTokenVerifier creates a new token verifier
func NewTokenVerifier(jwt *security.JWTManager, users UserLookup) *TokenVerifier {
	return &TokenVerifier{jwt: jwt, users: users}
}

// Verify implements IdentityVerifier.
func (v *TokenVerifier) Verify(ctx context.Context, credential string) (*domain.User, error) {
	token := strings.TrimSpace(credential)
	if parts := strings.SplitN(token, " ", 2); len(parts) == 2 {
		scheme := strings.ToLower(parts[0])
		if scheme == "jwt" || scheme == "bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := v.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUnauthenticated
	}

	return user, nil
}
