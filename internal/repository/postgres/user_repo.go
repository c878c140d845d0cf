package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, is_admin, is_super_admin, is_active,
	current_organization_id, created_at, updated_at`

// Create creates a new user. Unique violations read as taken username/email.
func (r *UserRepository) Create(user *domain.User) (*domain.User, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_admin, is_super_admin, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		uuid.New(), user.Username, user.Email, user.PasswordHash,
		user.IsAdmin, user.IsSuperAdmin, user.IsActive,
	)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return nil, domain.ErrEmailTaken
			}
			return nil, domain.ErrUsernameTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uuid.UUID) (*domain.User, error) {
	ctx := context.Background()
	return r.getBy(ctx, "id = $1", id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(username string) (*domain.User, error) {
	ctx := context.Background()
	return r.getBy(ctx, "username = $1", username)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*domain.User, error) {
	ctx := context.Background()
	return r.getBy(ctx, "lower(email) = lower($1)", email)
}

// Update updates a user's account fields
func (r *UserRepository) Update(user *domain.User) (*domain.User, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, is_admin = $5, is_active = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID, user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.IsActive,
	)
	updated, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return updated, nil
}

// SetCurrentOrganization moves the user's active context; nil returns to the
// personal space
func (r *UserRepository) SetCurrentOrganization(userID uuid.UUID, orgID *uuid.UUID) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx,
		"UPDATE users SET current_organization_id = $2, updated_at = now() WHERE id = $1",
		userID, uuidPtrToPg(orgID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete hard-deletes a user; admins are protected
func (r *UserRepository) Delete(id uuid.UUID) error {
	ctx := context.Background()

	user, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if user.IsAdmin || user.IsSuperAdmin {
		return domain.ErrAdminNotDeletable
	}

	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, condition string, arg any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+condition, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var currentOrgID pgtype.UUID
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsSuperAdmin,
		&u.IsActive, &currentOrgID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	u.CurrentOrganizationID = pgUUIDToPtr(currentOrgID)
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return &u, nil
}
