package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	pkgsunat "github.com/jhoicas/Facturacion-api/pkg/sunat"
)

// DocumentQueries atiende las consultas de comprobantes del emisor: estado de
// envío, detalle con líneas, listado, descarga del XML firmado y contadores de
// serie. Todas las búsquedas van acotadas al RUC del solicitante.
type DocumentQueries struct {
	docRepo       repository.DocumentRepository
	seqRepo       repository.SequenceRepository
	blobs         repository.BlobStore
	qr            *pkgsunat.QRPayloadService
	presignExpiry time.Duration
	log           *logger.Logger
}

// NewDocumentQueries construye el caso de uso de consultas.
func NewDocumentQueries(
	docRepo repository.DocumentRepository,
	seqRepo repository.SequenceRepository,
	blobs repository.BlobStore,
	presignExpiry time.Duration,
	log *logger.Logger,
) *DocumentQueries {
	return &DocumentQueries{
		docRepo:       docRepo,
		seqRepo:       seqRepo,
		blobs:         blobs,
		qr:            pkgsunat.NewQRPayloadService(),
		presignExpiry: presignExpiry,
		log:           log,
	}
}

// GetStatus devuelve el estado de envío del comprobante, con la constancia y
// una URL de descarga temporal del CDR cuando existe. RejectionReason viene
// poblado solo para comprobantes rechazados.
func (q *DocumentQueries) GetStatus(ctx context.Context, callerRUC, number string) (*dto.DocumentStatusResponse, error) {
	doc, err := q.getByFullNumber(ctx, callerRUC, number)
	if err != nil {
		return nil, err
	}

	resp := &dto.DocumentStatusResponse{
		DocumentNumber: doc.FullNumber(),
		State:          doc.State,
	}
	if doc.Receipt != nil {
		url := ""
		if doc.Receipt.BlobKey != "" {
			url, err = q.blobs.PresignGet(ctx, callerRUC, doc.Receipt.BlobKey, q.presignExpiry)
			if err != nil {
				// el estado se responde igual, solo sin enlace de descarga
				q.log.Warn().Str("comprobante", number).Err(err).Msg("no se pudo firmar la URL del CDR")
				url = ""
			}
		}
		resp.Receipt = toReceiptResponse(doc.Receipt, url)
		if doc.State == entity.StateRejected {
			resp.RejectionReason = doc.Receipt.Message
		}
	}
	for _, e := range doc.ErrorLog {
		resp.ErrorLog = append(resp.ErrorLog, dto.TransmissionErrorResponse{
			Attempt:     e.Attempt,
			Message:     e.Message,
			Kind:        e.Kind,
			OccurredAt:  e.OccurredAt.Format(time.RFC3339),
			NextDelayMs: e.NextDelayMs,
		})
	}
	return resp, nil
}

// GetDetail devuelve el comprobante completo con sus líneas.
func (q *DocumentQueries) GetDetail(ctx context.Context, callerRUC, number string) (*dto.DocumentResponse, error) {
	doc, err := q.getByFullNumber(ctx, callerRUC, number)
	if err != nil {
		return nil, err
	}
	lines, err := q.docRepo.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, lines), nil
}

// List lista los comprobantes del emisor, más recientes primero.
func (q *DocumentQueries) List(ctx context.Context, callerRUC string, page dto.PageRequest) (*dto.DocumentListResponse, error) {
	page.DefaultPage()
	docs, err := q.docRepo.ListByTenant(ctx, callerRUC, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	resp := &dto.DocumentListResponse{
		Items: make([]dto.DocumentResponse, 0, len(docs)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, d := range docs {
		resp.Items = append(resp.Items, *toDocumentResponse(d, nil))
	}
	return resp, nil
}

// DownloadSignedXML devuelve los bytes del XML firmado y el nombre de archivo
// sugerido. Un comprobante aún sin firmar no tiene nada que descargar.
func (q *DocumentQueries) DownloadSignedXML(ctx context.Context, callerRUC, number string) ([]byte, string, error) {
	doc, err := q.getByFullNumber(ctx, callerRUC, number)
	if err != nil {
		return nil, "", err
	}
	if doc.SignedXMLKey == "" {
		return nil, "", fmt.Errorf("%w: el comprobante %s no tiene XML firmado", domain.ErrNotFound, number)
	}
	data, err := q.blobs.Get(ctx, callerRUC, doc.SignedXMLKey)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("%s-%s-%s.xml", doc.TenantRUC, doc.DocType, doc.FullNumber())
	return data, name, nil
}

// GetQRPayload arma la cadena del código QR de la representación impresa,
// según la R.S. 193-2020/SUNAT. Solo existe para comprobantes ya firmados: el
// último campo de la cadena es el valor resumen de la firma.
func (q *DocumentQueries) GetQRPayload(ctx context.Context, callerRUC, number string) (*dto.QRPayloadResponse, error) {
	doc, err := q.getByFullNumber(ctx, callerRUC, number)
	if err != nil {
		return nil, err
	}
	if doc.SignedXMLKey == "" {
		return nil, fmt.Errorf("%w: el comprobante %s aún no está firmado", domain.ErrNotFound, number)
	}
	signedXML, err := q.blobs.Get(ctx, callerRUC, doc.SignedXMLKey)
	if err != nil {
		return nil, err
	}
	digest, err := signer.ExtractDigestValue(signedXML)
	if err != nil {
		return nil, err
	}
	payload, err := q.qr.Build(&pkgsunat.QRParams{
		RUCEmisor:          doc.TenantRUC,
		TipoComprobante:    doc.DocType,
		Serie:              doc.Series,
		Numero:             strconv.FormatInt(doc.Sequence, 10),
		MtoIGV:             doc.TaxTotal,
		MtoTotal:           doc.GrandTotal,
		FechaEmision:       doc.IssueDate.Format("2006-01-02"),
		TipoDocAdquiriente: doc.Customer.IdentityType,
		NumDocAdquiriente:  doc.Customer.IdentityNumber,
		ValorResumen:       digest,
	})
	if err != nil {
		return nil, err
	}
	return &dto.QRPayloadResponse{DocumentNumber: doc.FullNumber(), Payload: payload}, nil
}

// ListSequences lista las series del emisor con su último correlativo asignado.
func (q *DocumentQueries) ListSequences(ctx context.Context, callerRUC string) ([]dto.SequenceResponse, error) {
	seqs, err := q.seqRepo.ListByTenant(ctx, callerRUC)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.SequenceResponse, 0, len(seqs))
	for _, s := range seqs {
		resp = append(resp, dto.SequenceResponse{
			DocType:    s.DocType,
			Series:     s.Series,
			CurrentVal: s.CurrentVal,
		})
	}
	return resp, nil
}

func (q *DocumentQueries) getByFullNumber(ctx context.Context, callerRUC, number string) (*entity.Document, error) {
	series, seq, err := ParseDocumentNumber(number)
	if err != nil {
		return nil, domain.NewValidationError("number", err.Error())
	}
	return q.docRepo.GetByNumber(ctx, callerRUC, series, seq)
}

// ── mapeadores compartidos ────────────────────────────────────────────────────

func toDocumentResponse(doc *entity.Document, lines []*entity.DocumentLine) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:             doc.ID,
		TenantRUC:      doc.TenantRUC,
		DocumentNumber: doc.FullNumber(),
		DocType:        doc.DocType,
		IssueDate:      doc.IssueDate.Format("2006-01-02"),
		Currency:       doc.Currency,
		Customer: dto.PartyResponse{
			IdentityType:   doc.Customer.IdentityType,
			IdentityNumber: doc.Customer.IdentityNumber,
			Name:           doc.Customer.Name,
			Address:        doc.Customer.Address,
		},
		Subtotal:         doc.Subtotal,
		TaxTotal:         doc.TaxTotal,
		GrandTotal:       doc.GrandTotal,
		State:            doc.State,
		ReferencedNumber: doc.ReferencedNumber,
		CreditNoteType:   doc.CreditNoteType,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.DocumentLineResponse{
			Position:      l.Position,
			Description:   l.Description,
			UnitCode:      l.UnitCode,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			AfectacionIGV: l.AfectacionIGV,
			Subtotal:      l.Subtotal,
			IGV:           l.IGV,
			Total:         l.Total,
		})
	}
	return resp
}

func toReceiptResponse(r *entity.Receipt, downloadURL string) *dto.ReceiptResponse {
	if r == nil {
		return nil
	}
	return &dto.ReceiptResponse{
		Code:        r.Code,
		Message:     r.Message,
		Notes:       r.Notes,
		DownloadURL: downloadURL,
	}
}
