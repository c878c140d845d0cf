package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// OrganizationRepository implements domain.OrganizationRepository using PostgreSQL
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

const organizationColumns = `id, name, slug, owner_id, is_active, created_at, updated_at`
const memberColumns = `id, organization_id, user_id, role, is_active, created_at`

// Create creates an organization together with its owner membership
func (r *OrganizationRepository) Create(org *domain.Organization, ownerMember *domain.OrgMember) (*domain.Organization, error) {
	ctx := context.Background()

	var created *domain.Organization
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO organizations (id, name, slug, owner_id, is_active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+organizationColumns,
			uuid.New(), org.Name, org.Slug, org.OwnerID, org.IsActive,
		)
		var err error
		created, err = scanOrganization(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrOrganizationNameTaken
			}
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO org_members (id, organization_id, user_id, role, is_active)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), created.ID, ownerMember.UserID, string(ownerMember.Role), ownerMember.IsActive,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(id uuid.UUID) (*domain.Organization, error) {
	ctx := context.Background()

	org, err := scanOrganization(r.pool.QueryRow(ctx,
		"SELECT "+organizationColumns+" FROM organizations WHERE id = $1", id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, err
	}
	return org, nil
}

// GetBySlug retrieves an organization by slug
func (r *OrganizationRepository) GetBySlug(slug string) (*domain.Organization, error) {
	ctx := context.Background()

	org, err := scanOrganization(r.pool.QueryRow(ctx,
		"SELECT "+organizationColumns+" FROM organizations WHERE slug = $1", slug))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, err
	}
	return org, nil
}

// Update updates an organization's name and slug
func (r *OrganizationRepository) Update(org *domain.Organization) (*domain.Organization, error) {
	ctx := context.Background()

	updated, err := scanOrganization(r.pool.QueryRow(ctx, `
		UPDATE organizations SET name = $2, slug = $3, is_active = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+organizationColumns,
		org.ID, org.Name, org.Slug, org.IsActive,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes an organization, its memberships and clears stale
// current-organization pointers
func (r *OrganizationRepository) Delete(id uuid.UUID) error {
	ctx := context.Background()

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"UPDATE users SET current_organization_id = NULL WHERE current_organization_id = $1", id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM org_members WHERE organization_id = $1", id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "DELETE FROM organizations WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrOrganizationNotFound
		}
		return nil
	})
}

// GetMember retrieves a membership row
func (r *OrganizationRepository) GetMember(orgID, userID uuid.UUID) (*domain.OrgMember, error) {
	ctx := context.Background()

	member, err := scanMember(r.pool.QueryRow(ctx,
		"SELECT "+memberColumns+" FROM org_members WHERE organization_id = $1 AND user_id = $2 AND is_active = true",
		orgID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// ListMembers retrieves an organization's members
func (r *OrganizationRepository) ListMembers(orgID uuid.UUID) ([]*domain.OrgMember, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		"SELECT "+memberColumns+" FROM org_members WHERE organization_id = $1 AND is_active = true ORDER BY created_at",
		orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.OrgMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

// AddMember adds a user to an organization
func (r *OrganizationRepository) AddMember(member *domain.OrgMember) (*domain.OrgMember, error) {
	ctx := context.Background()

	added, err := scanMember(r.pool.QueryRow(ctx, `
		INSERT INTO org_members (id, organization_id, user_id, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+memberColumns,
		uuid.New(), member.OrganizationID, member.UserID, string(member.Role), member.IsActive,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrMemberAlreadyExists
		}
		return nil, err
	}
	return added, nil
}

// UpdateMemberRole changes a member's role
func (r *OrganizationRepository) UpdateMemberRole(orgID, userID uuid.UUID, role domain.OrgRole) (*domain.OrgMember, error) {
	ctx := context.Background()

	member, err := scanMember(r.pool.QueryRow(ctx, `
		UPDATE org_members SET role = $3
		WHERE organization_id = $1 AND user_id = $2
		RETURNING `+memberColumns,
		orgID, userID, string(role),
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// RemoveMember removes a membership row
func (r *OrganizationRepository) RemoveMember(orgID, userID uuid.UUID) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM org_members WHERE organization_id = $1 AND user_id = $2", orgID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

// ListByUser retrieves the organizations a user belongs to
func (r *OrganizationRepository) ListByUser(userID uuid.UUID) ([]*domain.Organization, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.name, o.slug, o.owner_id, o.is_active, o.created_at, o.updated_at
		FROM organizations o
		JOIN org_members m ON m.organization_id = o.id
		WHERE m.user_id = $1 AND m.is_active = true AND o.is_active = true
		ORDER BY o.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var o domain.Organization
	var createdAt, updatedAt pgtype.Timestamptz

	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	o.CreatedAt = createdAt.Time
	o.UpdatedAt = updatedAt.Time
	return &o, nil
}

func scanMember(row pgx.Row) (*domain.OrgMember, error) {
	var m domain.OrgMember
	var role string
	var createdAt pgtype.Timestamptz

	if err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &role, &m.IsActive, &createdAt); err != nil {
		return nil, err
	}
	m.Role = domain.OrgRole(role)
	m.CreatedAt = createdAt.Time
	return &m, nil
}
