package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/echomed/echobank-backend/internal/database"
	"github.com/echomed/echobank-backend/internal/model"
)

const userColumns = `id, username, email, password_hash, is_admin, is_reviewer,
	is_contributor, contribution_count, exam_category, exam_type, is_active,
	created_at, last_login_at`

// UserRepository handles account data access.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(rows pgx.Rows, u *model.User) error {
	return rows.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsReviewer,
		&u.IsContributor, &u.ContributionCount, &u.ExamCategory, &u.ExamType, &u.IsActive,
		&u.CreatedAt, &u.LastLoginAt,
	)
}

// Create inserts a new user. Username and email collisions surface as
// ErrConflict.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, is_admin, is_reviewer,
			is_contributor, exam_category, exam_type, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		[]any{
			u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.IsReviewer,
			u.IsContributor, u.ExamCategory, u.ExamType, u.IsActive,
		},
		&u.ID, &u.CreatedAt,
	)
	return translate(err)
}

func (r *UserRepository) getWhere(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	found := false
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		if !rows.Next() {
			return nil
		}
		found = true
		return scanUser(rows, &u)
	}, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		return nil, translate(err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &u, nil
}

// GetByID retrieves a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

// GetByUsername retrieves a user by unique username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getWhere(ctx, `username = $1`, username)
}

// List retrieves all users, newest first.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`, nil, &total); err != nil {
		return nil, 0, translate(err)
	}

	var users []model.User
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var u model.User
			if err := scanUser(rows, &u); err != nil {
				return err
			}
			users = append(users, u)
		}
		return nil
	}, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, translate(err)
	}
	return users, total, nil
}

// Update rewrites the admin-editable fields.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE users SET email = $1, is_admin = $2, is_reviewer = $3,
			is_contributor = $4, exam_category = $5, exam_type = $6, is_active = $7
		 WHERE id = $8`,
		u.Email, u.IsAdmin, u.IsReviewer, u.IsContributor,
		u.ExamCategory, u.ExamType, u.IsActive, u.ID,
	)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a user.
func (r *UserRepository) Deactivate(ctx context.Context, id int) error {
	affected, err := r.db.Exec(ctx, `UPDATE users SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the user row. Admin-only flows.
func (r *UserRepository) HardDelete(ctx context.Context, id int) error {
	affected, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin stamps the login time.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	return translate(err)
}

// IncrementContribution bumps the contributor quota counter and returns
// the new value.
func (r *UserRepository) IncrementContribution(ctx context.Context, id int, by int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`UPDATE users SET contribution_count = contribution_count + $1
		 WHERE id = $2 RETURNING contribution_count`,
		[]any{by, id}, &count,
	)
	return count, translate(err)
}
