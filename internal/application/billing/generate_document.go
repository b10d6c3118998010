package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	domainsunat "github.com/jhoicas/Facturacion-api/internal/domain/sunat"
	infrasunat "github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	pkgsunat "github.com/jhoicas/Facturacion-api/pkg/sunat"
)

// GenerateDocumentUseCase emite un comprobante: valida la solicitud, calcula
// totales, reserva el correlativo de la serie, construye el XML UBL 2.1 y
// persiste todo en estado PENDING. La reserva del correlativo no participa de
// la transacción de escritura: si la persistencia falla queda un hueco en la
// serie, nunca un número repetido.
type GenerateDocumentUseCase struct {
	docRepo    repository.DocumentRepository
	seqRepo    repository.SequenceRepository
	tenantRepo repository.TenantRepository
	xmlBuilder *infrasunat.XMLBuilderService
	validate   *validator.Validate
	log        *logger.Logger
}

// NewGenerateDocumentUseCase construye el caso de uso de emisión.
func NewGenerateDocumentUseCase(
	docRepo repository.DocumentRepository,
	seqRepo repository.SequenceRepository,
	tenantRepo repository.TenantRepository,
	xmlBuilder *infrasunat.XMLBuilderService,
	log *logger.Logger,
) *GenerateDocumentUseCase {
	return &GenerateDocumentUseCase{
		docRepo:    docRepo,
		seqRepo:    seqRepo,
		tenantRepo: tenantRepo,
		xmlBuilder: xmlBuilder,
		validate:   validator.New(),
		log:        log,
	}
}

// Generate emite un comprobante para el emisor callerRUC.
func (uc *GenerateDocumentUseCase) Generate(ctx context.Context, callerRUC string, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if err := uc.validate.Struct(in); err != nil {
		return nil, invalidFields(err)
	}

	tenant, err := uc.tenantRepo.GetByRUC(ctx, callerRUC)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantInactive, tenant.RUC)
	}

	// Una nota de crédito solo puede anular o corregir un comprobante propio
	// ya aceptado por SUNAT.
	if in.DocType == pkgsunat.DocTypeNotaCredito {
		if err := uc.checkReferencedDocument(ctx, callerRUC, in.ReferencedNumber); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	lines := buildLines(in.Lines)
	var subtotal, taxTotal decimal.Decimal
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal)
		taxTotal = taxTotal.Add(l.IGV)
	}

	doc := &entity.Document{
		ID:        uuid.New().String(),
		TenantRUC: callerRUC,
		DocType:   in.DocType,
		Series:    strings.ToUpper(in.Series),
		IssueDate: now,
		Currency:  in.Currency,
		Issuer: entity.Party{
			IdentityType:   pkgsunat.IdentityTypeRUC,
			IdentityNumber: tenant.RUC,
			Name:           tenant.RazonSocial,
			Address:        tenant.Address,
		},
		Customer: entity.Party{
			IdentityType:   in.Customer.IdentityType,
			IdentityNumber: in.Customer.IdentityNumber,
			Name:           in.Customer.Name,
			Address:        in.Customer.Address,
		},
		Subtotal:         subtotal.Round(2),
		TaxTotal:         taxTotal.Round(2),
		GrandTotal:       subtotal.Add(taxTotal).Round(2),
		State:            entity.StatePending,
		ReferencedNumber: in.ReferencedNumber,
		CreditNoteType:   in.CreditNoteType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// Validación de reglas SUNAT antes de consumir correlativo: una solicitud
	// inválida no deja rastro, ni siquiera un hueco en la serie.
	if err := domainsunat.ValidateDocument(doc, lines); err != nil {
		return nil, err
	}

	seq, err := uc.seqRepo.Next(ctx, callerRUC, doc.DocType, doc.Series)
	if err != nil {
		return nil, fmt.Errorf("reservar correlativo de la serie %s: %w", doc.Series, err)
	}
	doc.Sequence = seq

	xmlBytes, err := uc.xmlBuilder.Build(&infrasunat.DocumentBuildContext{
		Document: doc,
		Lines:    lines,
		Tenant:   tenant,
	})
	if err != nil {
		return nil, fmt.Errorf("construir XML del comprobante %s: %w", doc.FullNumber(), err)
	}
	doc.XML = string(xmlBytes)

	if err := uc.docRepo.Create(ctx, callerRUC, doc, lines); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("emisor", callerRUC).
		Str("comprobante", doc.FullNumber()).
		Str("tipo", doc.DocType).
		Str("total", doc.GrandTotal.StringFixed(2)).
		Msg("comprobante emitido")

	return toDocumentResponse(doc, lines), nil
}

// checkReferencedDocument verifica que el comprobante afectado exista para el
// emisor y esté aceptado.
func (uc *GenerateDocumentUseCase) checkReferencedDocument(ctx context.Context, callerRUC, number string) error {
	if number == "" {
		return domain.NewValidationError("referenced_number", "la nota de crédito debe referenciar el comprobante afectado")
	}
	series, seq, err := ParseDocumentNumber(number)
	if err != nil {
		return domain.NewValidationError("referenced_number", err.Error())
	}
	ref, err := uc.docRepo.GetByNumber(ctx, callerRUC, series, seq)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("referenced_number", fmt.Sprintf("el comprobante %s no existe para el emisor", number))
		}
		return err
	}
	if ref.State != entity.StateAccepted {
		return domain.NewValidationError("referenced_number",
			fmt.Sprintf("el comprobante %s está %s; solo se puede modificar uno aceptado", number, ref.State))
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// buildLines calcula los importes de cada línea: valor de venta, IGV según la
// afectación y total, todo redondeado a 2 decimales.
func buildLines(in []dto.DocumentLineRequest) []*entity.DocumentLine {
	lines := make([]*entity.DocumentLine, len(in))
	for i, l := range in {
		rate := pkgsunat.IGVRateFor(l.AfectacionIGV)
		subtotal := l.Quantity.Mul(l.UnitPrice).Round(2)
		igv := subtotal.Mul(rate).Round(2)
		lines[i] = &entity.DocumentLine{
			Position:      i + 1,
			Description:   l.Description,
			UnitCode:      l.UnitCode,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			AfectacionIGV: l.AfectacionIGV,
			IGVRate:       rate,
			Subtotal:      subtotal,
			IGV:           igv,
			Total:         subtotal.Add(igv),
		}
	}
	return lines
}

// ParseDocumentNumber separa un número completo "B001-00000001" en serie y
// correlativo.
func ParseDocumentNumber(number string) (series string, sequence int64, err error) {
	parts := strings.SplitN(strings.TrimSpace(number), "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", 0, fmt.Errorf("número de comprobante %q malformado (se esperaba SERIE-CORRELATIVO)", number)
	}
	seq, convErr := strconv.ParseInt(parts[1], 10, 64)
	if convErr != nil || seq <= 0 {
		return "", 0, fmt.Errorf("correlativo %q inválido en el número %q", parts[1], number)
	}
	return strings.ToUpper(parts[0]), seq, nil
}

// invalidFields convierte los errores del validador de estructuras en
// ValidationError de dominio, uno por campo.
func invalidFields(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, domain.NewValidationError(fe.Field(), fmt.Sprintf("incumple la regla %q", fe.Tag())))
	}
	return errors.Join(errs...)
}
