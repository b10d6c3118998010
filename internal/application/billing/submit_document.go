package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	infrasunat "github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	"github.com/jhoicas/Facturacion-api/pkg/security"
)

// SubmitDocumentUseCase orquesta el ciclo completo de transmisión a SUNAT:
//
//	Firma XML-DSig → Archivo del XML firmado → ZIP → sendBill con reintentos → CDR → Estado
//
// El comprobante se reclama con la transición condicional PENDING→SUBMITTED
// antes de tocar nada: dos envíos concurrentes del mismo número no pueden
// transmitir dos veces. Si el flujo se corta antes de llegar al WS (firma,
// blobs, credenciales) el comprobante vuelve a PENDING; si el presupuesto de
// reintentos se agota también, con el registro completo de fallos persistido.
type SubmitDocumentUseCase struct {
	docRepo    repository.DocumentRepository
	tenantRepo repository.TenantRepository
	blobs      repository.BlobStore
	signer     DocumentSigner
	submitter  infrasunat.SUNATSubmitter
	retry      *RetryEngine
	interp     *ReceiptInterpreter
	sealer     *security.Sealer
	log        *logger.Logger
}

// NewSubmitDocumentUseCase construye el orquestador con todas sus dependencias.
func NewSubmitDocumentUseCase(
	docRepo repository.DocumentRepository,
	tenantRepo repository.TenantRepository,
	blobs repository.BlobStore,
	signer DocumentSigner,
	submitter infrasunat.SUNATSubmitter,
	retry *RetryEngine,
	interp *ReceiptInterpreter,
	sealer *security.Sealer,
	log *logger.Logger,
) *SubmitDocumentUseCase {
	return &SubmitDocumentUseCase{
		docRepo:    docRepo,
		tenantRepo: tenantRepo,
		blobs:      blobs,
		signer:     signer,
		submitter:  submitter,
		retry:      retry,
		interp:     interp,
		sealer:     sealer,
		log:        log,
	}
}

// Submit transmite el comprobante number del emisor callerRUC y devuelve el
// desenlace. Un comprobante PENDING con registro de fallos previo simplemente
// vuelve a entrar al ciclo.
func (uc *SubmitDocumentUseCase) Submit(ctx context.Context, callerRUC, number string) (*dto.SubmitResultResponse, error) {
	series, seq, err := ParseDocumentNumber(number)
	if err != nil {
		return nil, domain.NewValidationError("number", err.Error())
	}

	tenant, err := uc.tenantRepo.GetByRUC(ctx, callerRUC)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantInactive, tenant.RUC)
	}

	doc, err := uc.docRepo.GetByNumber(ctx, callerRUC, series, seq)
	if err != nil {
		return nil, err
	}
	if entity.IsFinalState(doc.State) {
		return nil, fmt.Errorf("%w: el comprobante %s ya está %s", domain.ErrConflict, number, doc.State)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 0. Reclamar el comprobante: PENDING → SUBMITTED (condicional, sin carreras)
	// ═══════════════════════════════════════════════════════════════════════════
	if err := uc.docRepo.TransitionState(ctx, callerRUC, doc.ID, entity.StatePending, entity.StateSubmitted); err != nil {
		return nil, err
	}

	// abort devuelve el comprobante a PENDING cuando el flujo se corta antes de
	// transmitir. El estado SUBMITTED queda reservado para envíos que llegaron
	// al WS.
	abort := func(step string, cause error) {
		if rerr := uc.docRepo.TransitionState(ctx, callerRUC, doc.ID, entity.StateSubmitted, entity.StatePending); rerr != nil {
			uc.log.Error().Str("comprobante", number).Str("paso", step).Err(rerr).
				Msg("no se pudo devolver el comprobante a PENDING")
		}
		uc.log.Warn().Str("emisor", callerRUC).Str("comprobante", number).Str("paso", step).Err(cause).
			Msg("envío abortado antes de transmitir")
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Firma digital con el certificado del emisor
	// ═══════════════════════════════════════════════════════════════════════════
	signedXML, err := uc.signer.SignForTenant(ctx, tenant, []byte(doc.XML))
	if err != nil {
		abort("firma", err)
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Archivar el XML firmado en el almacén del emisor
	// ═══════════════════════════════════════════════════════════════════════════
	xmlName, zipName := infrasunat.SUNATFilenames(tenant.RUC, doc)
	xmlKey := repository.BlobKey(tenant.RUC, "xml", xmlName)
	if err := uc.blobs.Put(ctx, tenant.RUC, xmlKey, signedXML, "application/xml"); err != nil {
		abort("archivo-xml", err)
		return nil, fmt.Errorf("archivar XML firmado: %w", err)
	}
	if err := uc.docRepo.SetSignedXMLKey(ctx, callerRUC, doc.ID, xmlKey); err != nil {
		abort("archivo-xml", err)
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Empaquetar en ZIP con el nombre que exige el billService
	// ═══════════════════════════════════════════════════════════════════════════
	zipBytes, err := infrasunat.CompressXMLToZip(signedXML, xmlName)
	if err != nil {
		abort("zip", err)
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Credenciales SOL del emisor
	// ═══════════════════════════════════════════════════════════════════════════
	solPassword, err := uc.sealer.OpenString(tenant.SOLPassSealed)
	if err != nil {
		abort("credenciales", err)
		return nil, fmt.Errorf("descifrar la clave SOL del emisor %s: %w", tenant.RUC, err)
	}
	creds := infrasunat.Credentials{RUC: tenant.RUC, SOLUser: tenant.SOLUser, SOLPassword: solPassword}

	// ═══════════════════════════════════════════════════════════════════════════
	// 5. sendBill con presupuesto de reintentos
	// ═══════════════════════════════════════════════════════════════════════════
	result, errLog, err := uc.retry.Run(ctx, func(ctx context.Context) (*infrasunat.SubmitResult, error) {
		return uc.submitter.Submit(ctx, creds, zipName, zipBytes)
	})
	if err != nil {
		// Presupuesto agotado sin respuesta definitiva: el comprobante vuelve a
		// PENDING con el registro completo; un envío posterior lo retoma.
		if serr := uc.docRepo.SaveOutcome(ctx, callerRUC, doc.ID, entity.StatePending, nil, errLog); serr != nil {
			uc.log.Error().Str("comprobante", number).Err(serr).
				Msg("no se pudo persistir el agotamiento de reintentos")
		}
		uc.log.Warn().Str("emisor", callerRUC).Str("comprobante", number).
			Int("intentos", len(errLog)).Msg("reintentos agotados, comprobante de vuelta a PENDING")
		return nil, fmt.Errorf("presupuesto de reintentos agotado tras %d intentos: %w", len(errLog), err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 6. Archivar la constancia CDR (si vino cuerpo)
	// ═══════════════════════════════════════════════════════════════════════════
	receipt := result.Receipt
	if len(result.CDRZip) > 0 {
		cdrKey := repository.BlobKey(tenant.RUC, "cdr", "R-"+zipName)
		if err := uc.blobs.Put(ctx, tenant.RUC, cdrKey, result.CDRZip, "application/zip"); err != nil {
			// la constancia manda: el desenlace se persiste aunque el blob falle
			uc.log.Error().Str("comprobante", number).Err(err).Msg("no se pudo archivar el CDR")
		} else {
			receipt.BlobKey = cdrKey
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 7. Interpretar la constancia y persistir el desenlace
	// ═══════════════════════════════════════════════════════════════════════════
	newState := uc.interp.Interpret(receipt)
	if err := uc.docRepo.SaveOutcome(ctx, callerRUC, doc.ID, newState, receipt, errLog); err != nil {
		return nil, err
	}

	attempts := len(errLog) + 1
	uc.log.Info().
		Str("emisor", callerRUC).
		Str("comprobante", number).
		Str("estado", newState).
		Str("codigo", receipt.Code).
		Int("intentos", attempts).
		Msg("comprobante transmitido a SUNAT")

	return &dto.SubmitResultResponse{
		DocumentNumber: number,
		State:          newState,
		Attempts:       attempts,
		Receipt:        toReceiptResponse(receipt, ""),
	}, nil
}
