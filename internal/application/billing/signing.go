package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/Facturacion-api/pkg/security"
	pkgsunat "github.com/jhoicas/Facturacion-api/pkg/sunat"
)

// SigningService resuelve el certificado del emisor y firma el comprobante.
// Los cuatro motivos de rechazo (sin certificado, vencido, titular distinto,
// entrada malformada) salen como domain.CertificateError; nunca se firma con
// un certificado en mal estado.
type SigningService struct {
	certRepo repository.CertificateRepository
	sealer   *security.Sealer
	signer   pkgsunat.Signer
	now      func() time.Time
}

// NewSigningService construye el servicio de firma por emisor.
func NewSigningService(certRepo repository.CertificateRepository, sealer *security.Sealer, s pkgsunat.Signer) *SigningService {
	return &SigningService{certRepo: certRepo, sealer: sealer, signer: s, now: time.Now}
}

// SignForTenant firma xmlBytes con el certificado del emisor. Verifica
// existencia, vigencia y titularidad antes de abrir el PKCS#12.
func (s *SigningService) SignForTenant(ctx context.Context, tenant *entity.Tenant, xmlBytes []byte) ([]byte, error) {
	cert, err := s.certRepo.GetByTenant(ctx, tenant.RUC)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.CertificateError{
				Kind:   domain.CertNotFound,
				Detail: fmt.Sprintf("el emisor %s no tiene certificado cargado", tenant.RUC),
			}
		}
		return nil, fmt.Errorf("consultar certificado del emisor %s: %w", tenant.RUC, err)
	}

	now := s.now()
	if !cert.IsValidAt(now) {
		return nil, &domain.CertificateError{
			Kind: domain.CertExpired,
			Detail: fmt.Sprintf("vigencia %s a %s no cubre %s",
				cert.NotBefore.Format("2006-01-02"), cert.NotAfter.Format("2006-01-02"), now.Format("2006-01-02")),
		}
	}
	if cert.SubjectRUC != tenant.RUC {
		return nil, &domain.CertificateError{
			Kind:   domain.CertOwnershipMismatch,
			Detail: fmt.Sprintf("el certificado pertenece al RUC %s, no al emisor %s", cert.SubjectRUC, tenant.RUC),
		}
	}

	passphrase, err := s.sealer.OpenString(cert.PassphraseSealed)
	if err != nil {
		return nil, fmt.Errorf("descifrar frase de paso del certificado: %w", err)
	}
	tlsCert, err := signer.DecodeP12(cert.PKCS12, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decodificar PKCS#12 del emisor %s: %w", tenant.RUC, err)
	}

	return s.signer.Sign(xmlBytes, tlsCert)
}

var _ DocumentSigner = (*SigningService)(nil)
