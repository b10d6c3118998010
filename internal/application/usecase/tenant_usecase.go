package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/Facturacion-api/pkg/security"
	"github.com/jhoicas/Facturacion-api/pkg/sunat"
)

// TenantUseCase administra emisores: alta con credenciales SOL cifradas,
// actualización, listado y carga del certificado digital de firma.
type TenantUseCase struct {
	tenantRepo repository.TenantRepository
	certRepo   repository.CertificateRepository
	sealer     *security.Sealer
}

// NewTenantUseCase construye el caso de uso con sus puertos de persistencia.
func NewTenantUseCase(tenantRepo repository.TenantRepository, certRepo repository.CertificateRepository, sealer *security.Sealer) *TenantUseCase {
	return &TenantUseCase{tenantRepo: tenantRepo, certRepo: certRepo, sealer: sealer}
}

// Create registra un emisor. Valida el dígito verificador del RUC y cifra la
// clave SOL antes de persistir. Devuelve domain.ErrDuplicate si el RUC ya existe.
func (uc *TenantUseCase) Create(ctx context.Context, in dto.CreateTenantRequest) (*dto.TenantResponse, error) {
	if err := sunat.ValidateRUC(in.RUC); err != nil {
		return nil, domain.NewValidationError("ruc", err.Error())
	}
	existing, _ := uc.tenantRepo.GetByRUC(ctx, in.RUC)
	if existing != nil {
		return nil, fmt.Errorf("%w: ya existe el emisor %s", domain.ErrDuplicate, in.RUC)
	}
	sealed, err := uc.sealer.SealString(in.SOLPassword)
	if err != nil {
		return nil, fmt.Errorf("cifrar clave SOL: %w", err)
	}
	now := time.Now()
	tenant := &entity.Tenant{
		RUC:             in.RUC,
		RazonSocial:     in.RazonSocial,
		NombreComercial: in.NombreComercial,
		Address:         in.Address,
		Ubigeo:          in.Ubigeo,
		Phone:           in.Phone,
		Email:           in.Email,
		Status:          entity.TenantStatusActive,
		SOLUser:         in.SOLUser,
		SOLPassSealed:   sealed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, tenant), nil
}

// GetByRUC obtiene un emisor.
func (uc *TenantUseCase) GetByRUC(ctx context.Context, ruc string) (*dto.TenantResponse, error) {
	tenant, err := uc.tenantRepo.GetByRUC(ctx, ruc)
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, tenant), nil
}

// List lista emisores con paginación.
func (uc *TenantUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.TenantListResponse, error) {
	page.DefaultPage()
	list, err := uc.tenantRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.TenantResponse, 0, len(list))
	for _, t := range list {
		items = append(items, *uc.toResponse(ctx, t))
	}
	return &dto.TenantListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Update aplica cambios parciales al emisor. La clave SOL, si viene, se vuelve
// a cifrar; el resto de campos se tocan solo si el puntero no es nil.
func (uc *TenantUseCase) Update(ctx context.Context, ruc string, in dto.UpdateTenantRequest) (*dto.TenantResponse, error) {
	tenant, err := uc.tenantRepo.GetByRUC(ctx, ruc)
	if err != nil {
		return nil, err
	}
	if in.RazonSocial != nil {
		tenant.RazonSocial = *in.RazonSocial
	}
	if in.NombreComercial != nil {
		tenant.NombreComercial = *in.NombreComercial
	}
	if in.Address != nil {
		tenant.Address = *in.Address
	}
	if in.Ubigeo != nil {
		tenant.Ubigeo = *in.Ubigeo
	}
	if in.Phone != nil {
		tenant.Phone = *in.Phone
	}
	if in.Email != nil {
		tenant.Email = *in.Email
	}
	if in.SOLUser != nil {
		tenant.SOLUser = *in.SOLUser
	}
	if in.SOLPassword != nil {
		sealed, err := uc.sealer.SealString(*in.SOLPassword)
		if err != nil {
			return nil, fmt.Errorf("cifrar clave SOL: %w", err)
		}
		tenant.SOLPassSealed = sealed
	}
	if in.Status != nil {
		tenant.Status = *in.Status
	}
	tenant.UpdatedAt = time.Now()
	if err := uc.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, tenant), nil
}

// UploadCertificate carga el certificado digital del emisor: verifica que el
// PKCS#12 abra con la frase de paso dada, que el titular sea el propio emisor
// y que esté vigente; la frase se cifra antes de guardar. Un certificado nuevo
// reemplaza al anterior.
func (uc *TenantUseCase) UploadCertificate(ctx context.Context, ruc string, in dto.UploadCertificateRequest) (*dto.CertificateResponse, error) {
	tenant, err := uc.tenantRepo.GetByRUC(ctx, ruc)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(in.PKCS12)
	if err != nil {
		return nil, domain.NewValidationError("pkcs12", "el contenido no es base64 válido")
	}
	tlsCert, err := signer.DecodeP12(raw, in.Passphrase)
	if err != nil {
		return nil, domain.NewValidationError("pkcs12", "el PKCS#12 no se pudo abrir con la frase de paso dada")
	}
	leaf := tlsCert.Leaf

	subjectRUC := signer.SubjectRUC(leaf)
	if subjectRUC != tenant.RUC {
		return nil, &domain.CertificateError{
			Kind:   domain.CertOwnershipMismatch,
			Detail: fmt.Sprintf("el certificado pertenece al RUC %q, no al emisor %s", subjectRUC, tenant.RUC),
		}
	}
	now := time.Now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		return nil, &domain.CertificateError{
			Kind: domain.CertExpired,
			Detail: fmt.Sprintf("vigencia %s a %s no cubre la fecha actual",
				leaf.NotBefore.Format("2006-01-02"), leaf.NotAfter.Format("2006-01-02")),
		}
	}

	sealed, err := uc.sealer.SealString(in.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("cifrar frase de paso: %w", err)
	}
	cert := &entity.Certificate{
		ID:               uuid.New().String(),
		TenantRUC:        tenant.RUC,
		SubjectRUC:       subjectRUC,
		SubjectCN:        leaf.Subject.CommonName,
		SerialNumber:     fmt.Sprintf("%x", leaf.SerialNumber),
		NotBefore:        leaf.NotBefore,
		NotAfter:         leaf.NotAfter,
		PKCS12:           raw,
		PassphraseSealed: sealed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.certRepo.Save(ctx, cert); err != nil {
		return nil, err
	}
	return toCertificateResponse(cert), nil
}

// GetCertificate devuelve los metadatos del certificado activo del emisor.
func (uc *TenantUseCase) GetCertificate(ctx context.Context, ruc string) (*dto.CertificateResponse, error) {
	cert, err := uc.certRepo.GetByTenant(ctx, ruc)
	if err != nil {
		return nil, err
	}
	return toCertificateResponse(cert), nil
}

func (uc *TenantUseCase) toResponse(ctx context.Context, t *entity.Tenant) *dto.TenantResponse {
	if t == nil {
		return nil
	}
	hasCert := false
	if _, err := uc.certRepo.GetByTenant(ctx, t.RUC); err == nil {
		hasCert = true
	}
	return &dto.TenantResponse{
		RUC:             t.RUC,
		RazonSocial:     t.RazonSocial,
		NombreComercial: t.NombreComercial,
		Address:         t.Address,
		Ubigeo:          t.Ubigeo,
		Phone:           t.Phone,
		Email:           t.Email,
		Status:          t.Status,
		HasCert:         hasCert,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toCertificateResponse(c *entity.Certificate) *dto.CertificateResponse {
	if c == nil {
		return nil
	}
	return &dto.CertificateResponse{
		TenantRUC:  c.TenantRUC,
		Subject:    c.SubjectCN,
		SerialHex:  c.SerialNumber,
		NotBefore:  c.NotBefore,
		NotAfter:   c.NotAfter,
		UploadedAt: c.UpdatedAt,
	}
}
