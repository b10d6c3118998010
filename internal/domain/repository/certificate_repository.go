package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CertificateRepository define el puerto de persistencia para certificados de firma.
type CertificateRepository interface {
	// Save guarda el certificado del emisor. Un emisor tiene a lo sumo un
	// certificado vigente: guardar uno nuevo reemplaza al anterior.
	Save(ctx context.Context, cert *entity.Certificate) error

	// GetByTenant devuelve el certificado del emisor, o ErrNotFound si nunca
	// cargó uno. La vigencia y titularidad se verifican en el firmador, no aquí.
	GetByTenant(ctx context.Context, tenantRUC string) (*entity.Certificate, error)
}
