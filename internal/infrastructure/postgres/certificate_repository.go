package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.CertificateRepository = (*CertificateRepo)(nil)

// CertificateRepo implementación del puerto CertificateRepository sobre PostgreSQL.
type CertificateRepo struct {
	pool *pgxpool.Pool
}

// NewCertificateRepository construye el adaptador de persistencia para certificados.
func NewCertificateRepository(pool *pgxpool.Pool) *CertificateRepo {
	return &CertificateRepo{pool: pool}
}

// Save guarda el certificado del emisor. El upsert sobre tenant_ruc garantiza
// un único certificado vigente por emisor: cargar uno nuevo pisa el anterior.
func (r *CertificateRepo) Save(ctx context.Context, cert *entity.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO certificates
			(id, tenant_ruc, subject_ruc, subject_cn, serial_number, not_before, not_after,
			 pkcs12, passphrase_sealed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (tenant_ruc)
		DO UPDATE SET id = EXCLUDED.id, subject_ruc = EXCLUDED.subject_ruc,
		    subject_cn = EXCLUDED.subject_cn, serial_number = EXCLUDED.serial_number,
		    not_before = EXCLUDED.not_before, not_after = EXCLUDED.not_after,
		    pkcs12 = EXCLUDED.pkcs12, passphrase_sealed = EXCLUDED.passphrase_sealed,
		    updated_at = now()`
	_, err := r.pool.Exec(ctx, q,
		cert.ID, cert.TenantRUC, cert.SubjectRUC, cert.SubjectCN, cert.SerialNumber,
		cert.NotBefore, cert.NotAfter, cert.PKCS12, cert.PassphraseSealed,
	)
	if err != nil {
		return fmt.Errorf("save certificate: %w", err)
	}
	return nil
}

// GetByTenant devuelve el certificado del emisor.
func (r *CertificateRepo) GetByTenant(ctx context.Context, tenantRUC string) (*entity.Certificate, error) {
	const q = `
		SELECT id, tenant_ruc, subject_ruc, subject_cn, serial_number, not_before, not_after,
		       pkcs12, passphrase_sealed, created_at, updated_at
		FROM certificates WHERE tenant_ruc = $1`
	var c entity.Certificate
	err := r.pool.QueryRow(ctx, q, tenantRUC).Scan(
		&c.ID, &c.TenantRUC, &c.SubjectRUC, &c.SubjectCN, &c.SerialNumber,
		&c.NotBefore, &c.NotAfter, &c.PKCS12, &c.PassphraseSealed,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: certificado del emisor %s", domain.ErrNotFound, tenantRUC)
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &c, nil
}
