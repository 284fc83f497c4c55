// Package repositories provides data access for tenant metadata and the
// similarity store. All methods expect a tenant-scoped (or explicitly
// unscoped) connection in the context, set via database.SetTenantScope.
package repositories

import (
	"context"
	"fmt"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// TenantRepository provides data access for tenant registration.
type TenantRepository interface {
	Create(ctx context.Context, bizid string) error
	Delete(ctx context.Context, bizid string) error
	Exists(ctx context.Context, bizid string) (bool, error)
	List(ctx context.Context) ([]models.Tenant, error)
}

type tenantRepository struct{}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository() TenantRepository {
	return &tenantRepository{}
}

var _ TenantRepository = (*tenantRepository)(nil)

func (r *tenantRepository) Create(ctx context.Context, bizid string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`INSERT INTO tenants (bizid) VALUES ($1) ON CONFLICT (bizid) DO NOTHING`, bizid)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *tenantRepository) Delete(ctx context.Context, bizid string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	// Tenant data in dependent tables cascades via foreign keys.
	tag, err := scope.Conn.Exec(ctx, `DELETE FROM tenants WHERE bizid = $1`, bizid)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTenantNotFound
	}
	return nil
}

func (r *tenantRepository) Exists(ctx context.Context, bizid string) (bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return false, fmt.Errorf("no tenant scope in context")
	}

	var exists bool
	err := scope.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE bizid = $1)`, bizid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tenant: %w", err)
	}
	return exists, nil
}

func (r *tenantRepository) List(ctx context.Context) ([]models.Tenant, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT bizid, created_at FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]models.Tenant, 0)
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.Bizid, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}
	return tenants, nil
}
