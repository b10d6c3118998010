package billing

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// DocumentSigner firma el XML de un comprobante con el certificado vigente del
// emisor. Falla cerrado: sin certificado, vencido o de titular distinto no se
// firma nada y se devuelve domain.CertificateError con el motivo.
type DocumentSigner interface {
	SignForTenant(ctx context.Context, tenant *entity.Tenant, xmlBytes []byte) ([]byte, error)
}
