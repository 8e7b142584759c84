package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localserve/marketplace-backend/internal/auth"
)

type fakeUserRepo struct {
	byEmail map[string]*User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*User{}}
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, u *User) error {
	if _, exists := r.byEmail[u.Email]; exists {
		return ErrEmailAlreadyUsed
	}
	r.nextID++
	u.ID = string(rune('a' + r.nextID))
	u.CreatedAt = time.Now()
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	for _, u := range r.byEmail {
		if u.ID == id {
			u.LastLoginAt = &t
			return nil
		}
	}
	return ErrNotFound
}

// Low bcrypt cost keeps the tests fast.
func newTestUserService() (Service, *fakeUserRepo) {
	repo := newFakeUserRepo()
	return NewService(repo, auth.NewBcryptPasswordHasherWithCost(4)), repo
}

func TestRegister(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Asha@Example.COM ", "correct horse", "Asha")
	require.NoError(t, err)

	assert.Equal(t, "asha@example.com", u.Email)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "correct horse", u.PasswordHash)
	require.NotNil(t, u.DisplayName)
	assert.Equal(t, "Asha", *u.DisplayName)
	assert.True(t, u.IsActive)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "   ", "longenough", "")
	assert.Error(t, err)

	_, err = svc.Register(ctx, "short@example.com", "short", "")
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "asha@example.com", "correct horse", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ASHA@example.com", "another pass", "")
	assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
}

func TestLogin(t *testing.T) {
	svc, repo := newTestUserService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "asha@example.com", "correct horse", "")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "asha@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	stored := repo.byEmail["asha@example.com"]
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginFailures(t *testing.T) {
	svc, repo := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "asha@example.com", "correct horse", "")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "asha@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	repo.byEmail["asha@example.com"].IsActive = false
	_, err = svc.Login(ctx, "asha@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInactiveUser)
}
