package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/echomed/echobank-backend/internal/database"
	"github.com/echomed/echobank-backend/internal/model"
)

// TokenRepository handles registration token data access.
type TokenRepository struct {
	db *database.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a new registration token.
func (r *TokenRepository) Create(ctx context.Context, t *model.RegistrationToken) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO registration_tokens (token, role, expires_at, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		[]any{t.Token, t.Role, t.ExpiresAt, t.CreatedBy},
		&t.ID, &t.CreatedAt,
	)
	return translate(err)
}

// Consume marks the token used by userID in a single statement; the WHERE
// clause enforces single use and expiry atomically. Returns the consumed
// token or ErrNotFound when it is unknown, expired or already used.
func (r *TokenRepository) Consume(ctx context.Context, token string, userID int, now time.Time) (*model.RegistrationToken, error) {
	var t model.RegistrationToken
	err := r.db.QueryRow(ctx,
		`UPDATE registration_tokens
		 SET used_by = $1, used_at = $2
		 WHERE token = $3 AND used_by IS NULL AND expires_at > $2
		 RETURNING id, token, role, expires_at, used_by, used_at, created_by, created_at`,
		[]any{userID, now, token},
		&t.ID, &t.Token, &t.Role, &t.ExpiresAt, &t.UsedBy, &t.UsedAt, &t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// PeekRole returns the preset role of a still-usable token without
// consuming it.
func (r *TokenRepository) PeekRole(ctx context.Context, token string, now time.Time) (model.TokenRole, error) {
	var role model.TokenRole
	err := r.db.QueryRow(ctx,
		`SELECT role FROM registration_tokens
		 WHERE token = $1 AND used_by IS NULL AND expires_at > $2`,
		[]any{token, now}, &role,
	)
	if err != nil {
		return "", translate(err)
	}
	return role, nil
}

// List retrieves tokens newest first.
func (r *TokenRepository) List(ctx context.Context, limit, offset int) ([]model.RegistrationToken, error) {
	var tokens []model.RegistrationToken
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var t model.RegistrationToken
			if err := rows.Scan(&t.ID, &t.Token, &t.Role, &t.ExpiresAt,
				&t.UsedBy, &t.UsedAt, &t.CreatedBy, &t.CreatedAt); err != nil {
				return err
			}
			tokens = append(tokens, t)
		}
		return nil
	}, `SELECT id, token, role, expires_at, used_by, used_at, created_by, created_at
		FROM registration_tokens ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	return tokens, nil
}

// DeleteExpired removes unused tokens past their expiry. Returns the
// number swept.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	affected, err := r.db.Exec(ctx,
		`DELETE FROM registration_tokens WHERE used_by IS NULL AND expires_at <= $1`, now)
	return affected, translate(err)
}
