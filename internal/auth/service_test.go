package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/povault/povault/internal/shared"
)

type memoryAuthRepo struct {
	users map[string]*User
}

func (r *memoryAuthRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func seedUser(t *testing.T, email, password string, active bool) *memoryAuthRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &memoryAuthRepo{users: map[string]*User{
		email: {ID: 1, Email: email, PasswordHash: string(hash), IsActive: active},
	}}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(seedUser(t, "ops@example.com", "correct horse", true))

	user, err := svc.Authenticate(context.Background(), "ops@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(context.Background(), "ops@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	svc := NewService(seedUser(t, "ops@example.com", "correct horse", false))

	_, err := svc.Authenticate(context.Background(), "ops@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
