package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echomed/echobank-backend/internal/config"
	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
)

type fakeUserStore struct {
	users  map[int]*model.User
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int]*model.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeUserStore) Update(ctx context.Context, u *model.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserStore) Deactivate(ctx context.Context, id int) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = false
	return nil
}

func (f *fakeUserStore) HardDelete(ctx context.Context, id int) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) TouchLastLogin(ctx context.Context, id int) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

type fakeTokenStore struct {
	tokens     map[string]*model.RegistrationToken
	consumeErr error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*model.RegistrationToken)}
}

func (f *fakeTokenStore) Create(ctx context.Context, t *model.RegistrationToken) error {
	t.ID = len(f.tokens) + 1
	t.CreatedAt = time.Now()
	cp := *t
	f.tokens[t.Token] = &cp
	return nil
}

func (f *fakeTokenStore) Consume(ctx context.Context, token string, userID int, now time.Time) (*model.RegistrationToken, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	t, ok := f.tokens[token]
	if !ok || !t.Usable(now) {
		return nil, repository.ErrNotFound
	}
	t.UsedBy = &userID
	t.UsedAt = &now
	cp := *t
	return &cp, nil
}

func (f *fakeTokenStore) PeekRole(ctx context.Context, token string, now time.Time) (model.TokenRole, error) {
	t, ok := f.tokens[token]
	if !ok || !t.Usable(now) {
		return "", repository.ErrNotFound
	}
	return t.Role, nil
}

func (f *fakeTokenStore) List(ctx context.Context, limit, offset int) ([]model.RegistrationToken, error) {
	var out []model.RegistrationToken
	for _, t := range f.tokens {
		out = append(out, *t)
	}
	return out, nil
}

func testAuthService() *AuthService {
	return NewAuthService(&config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
	})
}

func newUserService(users *fakeUserStore, tokens *fakeTokenStore) *UserService {
	return NewUserService(users, tokens, testAuthService(), zerolog.Nop())
}

func seedUser(t *testing.T, users *fakeUserStore, svc *UserService, username, password string, active bool) *model.User {
	t.Helper()
	hash, err := svc.auth.HashPassword(password)
	require.NoError(t, err)
	u := &model.User{Username: username, Email: username + "@example.com", PasswordHash: hash, IsActive: active}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestLogin_Success(t *testing.T) {
	users := newFakeUserStore()
	svc := newUserService(users, newFakeTokenStore())
	seedUser(t, users, svc, "sonographer", "correct horse", true)

	u, token, err := svc.Login(context.Background(), "sonographer", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "sonographer", u.Username)
	assert.NotNil(t, users.users[u.ID].LastLoginAt)

	claims, err := svc.auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Contains(t, claims.Capabilities, model.CapQuestionsWrite)
	assert.NotContains(t, claims.Capabilities, model.CapQuestionsReview)
}

func TestLogin_WrongPassword(t *testing.T) {
	users := newFakeUserStore()
	svc := newUserService(users, newFakeTokenStore())
	seedUser(t, users, svc, "sonographer", "correct horse", true)

	_, _, err := svc.Login(context.Background(), "sonographer", "wrong horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUserSameError(t *testing.T) {
	svc := newUserService(newFakeUserStore(), newFakeTokenStore())

	_, _, err := svc.Login(context.Background(), "nobody", "whatever1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveAccount(t *testing.T) {
	users := newFakeUserStore()
	svc := newUserService(users, newFakeTokenStore())
	seedUser(t, users, svc, "benched", "correct horse", false)

	_, _, err := svc.Login(context.Background(), "benched", "correct horse")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func registerReq(token string) *model.RegisterRequest {
	return &model.RegisterRequest{
		Token:    token,
		Username: "newreviewer",
		Email:    "newreviewer@example.com",
		Password: "long enough",
	}
}

func TestRegister_ReviewerToken(t *testing.T) {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc := newUserService(users, tokens)

	minted, err := svc.CreateToken(context.Background(), model.TokenRoleReviewer, time.Hour, 1)
	require.NoError(t, err)

	u, err := svc.Register(context.Background(), registerReq(minted.Token))
	require.NoError(t, err)
	assert.True(t, u.IsReviewer)
	assert.False(t, u.IsContributor)
	assert.True(t, u.IsActive)
	assert.Equal(t, u.ID, *tokens.tokens[minted.Token].UsedBy)
}

func TestRegister_TokenSingleUse(t *testing.T) {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc := newUserService(users, tokens)

	minted, err := svc.CreateToken(context.Background(), model.TokenRoleUploader, time.Hour, 1)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerReq(minted.Token))
	require.NoError(t, err)

	second := registerReq(minted.Token)
	second.Username = "another"
	second.Email = "another@example.com"
	_, err = svc.Register(context.Background(), second)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRegister_ExpiredToken(t *testing.T) {
	tokens := newFakeTokenStore()
	svc := newUserService(newFakeUserStore(), tokens)

	minted, err := svc.CreateToken(context.Background(), model.TokenRoleContributor, -time.Minute, 1)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerReq(minted.Token))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc := newUserService(users, tokens)
	seedUser(t, users, svc, "newreviewer", "correct horse", true)

	minted, err := svc.CreateToken(context.Background(), model.TokenRoleUploader, time.Hour, 1)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerReq(minted.Token))
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_ConsumeRaceDeactivates(t *testing.T) {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc := newUserService(users, tokens)

	minted, err := svc.CreateToken(context.Background(), model.TokenRoleUploader, time.Hour, 1)
	require.NoError(t, err)

	// The token passes the peek but is gone by consume time.
	tokens.consumeErr = repository.ErrNotFound

	_, err = svc.Register(context.Background(), registerReq(minted.Token))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	u, err := users.GetByUsername(context.Background(), "newreviewer")
	require.NoError(t, err)
	assert.False(t, u.IsActive, "account created before the lost consume must be deactivated")
}

func TestCreateToken_SecretAndExpiry(t *testing.T) {
	svc := newUserService(newFakeUserStore(), newFakeTokenStore())

	before := time.Now()
	minted, err := svc.CreateToken(context.Background(), model.TokenRoleReviewer, 72*time.Hour, 9)
	require.NoError(t, err)

	assert.Len(t, minted.Token, 32)
	assert.Equal(t, model.TokenRoleReviewer, minted.Role)
	assert.Equal(t, 9, *minted.CreatedBy)
	assert.WithinDuration(t, before.Add(72*time.Hour), minted.ExpiresAt, 5*time.Second)
}

func TestUserUpdate_AppliesFlags(t *testing.T) {
	users := newFakeUserStore()
	svc := newUserService(users, newFakeTokenStore())
	u := seedUser(t, users, svc, "edited", "correct horse", true)

	updated, err := svc.Update(context.Background(), u.ID, &model.UpdateUserRequest{
		Email:         "edited@example.com",
		IsReviewer:    true,
		IsContributor: true,
		ExamCategory:  "TEE",
		ExamType:      "Advanced",
		IsActive:      true,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsReviewer)
	assert.True(t, updated.IsContributor)
	assert.Contains(t, updated.Capabilities(), model.CapQuestionsReview)
	assert.Contains(t, updated.Capabilities(), model.CapImagesWrite)
}
