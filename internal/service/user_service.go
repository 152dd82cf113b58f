package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/response"
)

// Registration errors.
var (
	ErrTokenInvalid  = errors.New("registration token is invalid or expired")
	ErrUsernameTaken = errors.New("username or email already in use")
)

// UserStore is the slice of the user repository the service uses.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, int, error)
	Update(ctx context.Context, u *model.User) error
	Deactivate(ctx context.Context, id int) error
	HardDelete(ctx context.Context, id int) error
	TouchLastLogin(ctx context.Context, id int) error
}

// TokenStore is the slice of the token repository the service uses.
type TokenStore interface {
	Create(ctx context.Context, t *model.RegistrationToken) error
	Consume(ctx context.Context, token string, userID int, now time.Time) (*model.RegistrationToken, error)
	PeekRole(ctx context.Context, token string, now time.Time) (model.TokenRole, error)
	List(ctx context.Context, limit, offset int) ([]model.RegistrationToken, error)
}

// UserService covers login, token-gated self-registration and admin
// account management.
type UserService struct {
	users  UserStore
	tokens TokenStore
	auth   *AuthService
	log    zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, tokens TokenStore, auth *AuthService, log zerolog.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, auth: auth, log: log}
}

// Login verifies credentials and returns the user plus a signed JWT.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := s.auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, "", ErrAccountInactive
	}

	token, err := s.auth.GenerateToken(u)
	if err != nil {
		return nil, "", err
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		s.log.Warn().Err(err).Int("user_id", u.ID).Msg("Last login update failed")
	}
	return u, token, nil
}

// Register creates an account from a single-use registration token. The
// token's role presets the account flags. The token is checked before the
// account insert and consumed after it; a lost consume race deactivates
// the account again.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	now := time.Now()
	role, err := s.tokens.PeekRole(ctx, req.Token, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	applyTokenRole(u, role)

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	if _, err := s.tokens.Consume(ctx, req.Token, u.ID, now); err != nil {
		if derr := s.users.Deactivate(ctx, u.ID); derr != nil {
			s.log.Error().Err(derr).Int("user_id", u.ID).Msg("Rollback deactivate failed")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return u, nil
}

func applyTokenRole(u *model.User, role model.TokenRole) {
	switch role {
	case model.TokenRoleReviewer:
		u.IsReviewer = true
	case model.TokenRoleContributor:
		u.IsContributor = true
	}
	// Uploader tokens grant only the baseline write capabilities.
}

// newTokenSecret returns 32 hex chars of crypto randomness.
func newTokenSecret() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// CreateToken mints a registration token for the given role.
func (s *UserService) CreateToken(ctx context.Context, role model.TokenRole, ttl time.Duration, createdBy int) (*model.RegistrationToken, error) {
	t := &model.RegistrationToken{
		Token:     newTokenSecret(),
		Role:      role,
		ExpiresAt: time.Now().Add(ttl),
		CreatedBy: &createdBy,
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTokens returns minted tokens, newest first.
func (s *UserService) ListTokens(ctx context.Context, page, perPage int) ([]model.RegistrationToken, error) {
	limit, offset, _ := paginate(page, perPage)
	return s.tokens.List(ctx, limit, offset)
}

// Create makes an account directly with explicit role flags.
func (s *UserService) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		IsAdmin:       req.IsAdmin,
		IsReviewer:    req.IsReviewer,
		IsContributor: req.IsContributor,
		ExamCategory:  req.ExamCategory,
		ExamType:      req.ExamType,
		IsActive:      true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Get returns one account by id.
func (s *UserService) Get(ctx context.Context, id int) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns accounts with pagination.
func (s *UserService) List(ctx context.Context, page, perPage int) ([]model.User, *response.Pagination, error) {
	limit, offset, p := paginate(page, perPage)
	users, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	p.Fill(total)
	return users, p, nil
}

// Update applies the admin-editable fields to an account.
func (s *UserService) Update(ctx context.Context, id int, req *model.UpdateUserRequest) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Email = req.Email
	u.IsAdmin = req.IsAdmin
	u.IsReviewer = req.IsReviewer
	u.IsContributor = req.IsContributor
	u.ExamCategory = req.ExamCategory
	u.ExamType = req.ExamType
	u.IsActive = req.IsActive
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Deactivate soft-disables an account without destroying its history.
func (s *UserService) Deactivate(ctx context.Context, id int) error {
	return s.users.Deactivate(ctx, id)
}

// HardDelete removes the account row entirely.
func (s *UserService) HardDelete(ctx context.Context, id int) error {
	return s.users.HardDelete(ctx, id)
}
