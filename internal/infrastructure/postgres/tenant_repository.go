package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// Asegura que TenantRepo implementa repository.TenantRepository.
var _ repository.TenantRepository = (*TenantRepo)(nil)

// TenantRepo implementación del puerto TenantRepository sobre PostgreSQL.
type TenantRepo struct {
	pool *pgxpool.Pool
}

// NewTenantRepository construye el adaptador de persistencia para emisores.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

// Create persiste un nuevo emisor.
func (r *TenantRepo) Create(ctx context.Context, tenant *entity.Tenant) error {
	const q = `
		INSERT INTO tenants
			(ruc, razon_social, nombre_comercial, address, ubigeo, phone, email, status,
			 sol_user, sol_pass_sealed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.pool.Exec(ctx, q,
		tenant.RUC, tenant.RazonSocial, tenant.NombreComercial, tenant.Address,
		tenant.Ubigeo, tenant.Phone, tenant.Email, tenant.Status,
		nullIfEmpty(tenant.SOLUser), tenant.SOLPassSealed,
		tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe un emisor con RUC %s", domain.ErrDuplicate, tenant.RUC)
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetByRUC obtiene un emisor por su RUC.
func (r *TenantRepo) GetByRUC(ctx context.Context, ruc string) (*entity.Tenant, error) {
	const q = `
		SELECT ruc, razon_social, nombre_comercial, address, ubigeo, phone, email, status,
		       COALESCE(sol_user, ''), sol_pass_sealed, created_at, updated_at
		FROM tenants WHERE ruc = $1`
	var t entity.Tenant
	err := r.pool.QueryRow(ctx, q, ruc).Scan(
		&t.RUC, &t.RazonSocial, &t.NombreComercial, &t.Address, &t.Ubigeo,
		&t.Phone, &t.Email, &t.Status, &t.SOLUser, &t.SOLPassSealed,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: emisor %s", domain.ErrNotFound, ruc)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// Update actualiza un emisor existente.
func (r *TenantRepo) Update(ctx context.Context, tenant *entity.Tenant) error {
	const q = `
		UPDATE tenants
		SET razon_social = $2, nombre_comercial = $3, address = $4, ubigeo = $5,
		    phone = $6, email = $7, status = $8, sol_user = $9, sol_pass_sealed = $10,
		    updated_at = now()
		WHERE ruc = $1`
	cmd, err := r.pool.Exec(ctx, q,
		tenant.RUC, tenant.RazonSocial, tenant.NombreComercial, tenant.Address,
		tenant.Ubigeo, tenant.Phone, tenant.Email, tenant.Status,
		nullIfEmpty(tenant.SOLUser), tenant.SOLPassSealed,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: emisor %s", domain.ErrNotFound, tenant.RUC)
	}
	return nil
}

// List devuelve emisores con paginación.
func (r *TenantRepo) List(ctx context.Context, limit, offset int) ([]*entity.Tenant, error) {
	const q = `
		SELECT ruc, razon_social, nombre_comercial, address, ubigeo, phone, email, status,
		       COALESCE(sol_user, ''), sol_pass_sealed, created_at, updated_at
		FROM tenants ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var list []*entity.Tenant
	for rows.Next() {
		var t entity.Tenant
		if err := rows.Scan(&t.RUC, &t.RazonSocial, &t.NombreComercial, &t.Address, &t.Ubigeo,
			&t.Phone, &t.Email, &t.Status, &t.SOLUser, &t.SOLPassSealed,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
