package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/utils"
)

func newAuth(t *testing.T) (*AuthService, *repository.MemoryUserStore, *utils.TokenIssuer) {
	t.Helper()
	store := repository.NewMemoryUserStore()
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	return NewAuthService(store, utils.NewPasswordHasher(4), issuer), store, issuer
}

func TestSignup_Success(t *testing.T) {
	svc, store, _ := newAuth(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{Username: " alice ", Password: "secret", Email: "a@x.io"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NotEqual(t, "secret", u.PasswordHash)
	assert.False(t, u.CreatedAt.IsZero())

	stored, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)

	other, err := svc.Signup(ctx, SignupInput{Username: "bob", Password: "secret"})
	require.NoError(t, err)
	assert.NotEqual(t, u.ID, other.ID)
}

func TestSignup_PaddedUsernameCollides(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupInput{Username: "  alice\t", Password: "secret"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = svc.Signup(ctx, SignupInput{Username: "Alice", Password: "secret"})
	assert.NoError(t, err, "usernames are case sensitive")
}

func TestSignup_DuplicateUsername(t *testing.T) {
	svc, store, _ := newAuth(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupInput{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	ok, _ := store.ExistsByUsername(ctx, "alice")
	assert.True(t, ok)
	_, err = store.GetByID(ctx, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound, "duplicate must not create a record")
}

// racingStore reports the username free and then fails the insert, as a
// concurrent signup would.
type racingStore struct {
	*repository.MemoryUserStore
	createErr error
}

func (r racingStore) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (r racingStore) Create(context.Context, *model.User) error              { return r.createErr }

func TestSignup_InsertRace(t *testing.T) {
	hasher := utils.NewPasswordHasher(4)
	issuer := utils.NewTokenIssuer("s", time.Hour)

	svc := NewAuthService(racingStore{repository.NewMemoryUserStore(), repository.ErrDuplicateUsername}, hasher, issuer)
	_, err := svc.Signup(context.Background(), SignupInput{Username: "alice", Password: "pw12"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	svc = NewAuthService(racingStore{repository.NewMemoryUserStore(), repository.ErrDuplicateEmail}, hasher, issuer)
	_, err = svc.Signup(context.Background(), SignupInput{Username: "alice", Password: "pw12", Email: "a@x.io"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")

	boom := errors.New("boom")
	svc = NewAuthService(racingStore{repository.NewMemoryUserStore(), boom}, hasher, issuer)
	_, err = svc.Signup(context.Background(), SignupInput{Username: "alice", Password: "pw12"})
	assert.ErrorIs(t, err, boom)
}

func TestSignup_Validation(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Username: "  ", Password: ""})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "username")
	assert.Contains(t, ve.Fields, "password")

	_, err = svc.Signup(ctx, SignupInput{Username: strings.Repeat("u", 51), Password: "pw12"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "username")

	_, err = svc.Signup(ctx, SignupInput{Username: "long", Password: strings.Repeat("p", 73)})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "password")
}

func TestLogin(t *testing.T) {
	svc, _, issuer := newAuth(t)
	ctx := context.Background()
	u, err := svc.Signup(ctx, SignupInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	tok, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	id, err := issuer.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	tok, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, tok.Token)

	tok, err = svc.Login(ctx, "ghost", "secret")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, tok.Token)

	_, err = svc.Login(ctx, "", "")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestMe(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()
	u, err := svc.Signup(ctx, SignupInput{Username: "alice", Password: "secret", Email: "a@x.io"})
	require.NoError(t, err)

	got, err := svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", got.Email)

	_, err = svc.Me(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
