package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementa DocumentRepository sobre PostgreSQL.
// Mantiene el pool (no Querier) porque Create abre su propia transacción
// para insertar cabecera y líneas juntas.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository construye el adaptador de persistencia para comprobantes.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const selectDocument = `
	SELECT id, tenant_ruc, doc_type, series, sequence, issue_date, currency,
	       issuer_identity_type, issuer_identity_number, issuer_name, issuer_address,
	       customer_identity_type, customer_identity_number, customer_name, customer_address,
	       subtotal, tax_total, grand_total, state, xml,
	       signed_xml_key, referenced_number, credit_note_type,
	       receipt_code, receipt_message, receipt_blob_key, receipt_notes, receipt_received_at,
	       error_log, created_at, updated_at
	FROM documents`

// Create persiste cabecera y líneas en una transacción. Verifica la titularidad
// antes de tocar la base: un documento que declara otro emisor no se inserta.
func (r *DocumentRepo) Create(ctx context.Context, callerRUC string, doc *entity.Document, lines []*entity.DocumentLine) error {
	if doc.TenantRUC != callerRUC {
		return fmt.Errorf("%w: el documento declara emisor %s y la operación llega como %s",
			domain.ErrOwnershipViolation, doc.TenantRUC, callerRUC)
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	errLog, err := marshalErrorLog(doc.ErrorLog)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertHeader = `
		INSERT INTO documents
			(id, tenant_ruc, doc_type, series, sequence, issue_date, currency,
			 issuer_identity_type, issuer_identity_number, issuer_name, issuer_address,
			 customer_identity_type, customer_identity_number, customer_name, customer_address,
			 subtotal, tax_total, grand_total, state, xml,
			 signed_xml_key, referenced_number, credit_note_type, error_log,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`
	_, err = tx.Exec(ctx, insertHeader,
		doc.ID, doc.TenantRUC, doc.DocType, doc.Series, doc.Sequence, doc.IssueDate, doc.Currency,
		doc.Issuer.IdentityType, doc.Issuer.IdentityNumber, doc.Issuer.Name, doc.Issuer.Address,
		doc.Customer.IdentityType, doc.Customer.IdentityNumber, doc.Customer.Name, doc.Customer.Address,
		doc.Subtotal, doc.TaxTotal, doc.GrandTotal, doc.State, doc.XML,
		nullIfEmpty(doc.SignedXMLKey), nullIfEmpty(doc.ReferencedNumber), nullIfEmpty(doc.CreditNoteType), errLog,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe el comprobante %s del emisor %s",
				domain.ErrDuplicate, doc.FullNumber(), doc.TenantRUC)
		}
		return fmt.Errorf("insert document: %w", err)
	}

	const insertLine = `
		INSERT INTO document_lines
			(id, document_id, position, description, unit_code, quantity, unit_price,
			 afectacion_igv, igv_rate, subtotal, igv, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for _, l := range lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.DocumentID = doc.ID
		_, err = tx.Exec(ctx, insertLine,
			l.ID, l.DocumentID, l.Position, l.Description, nullIfEmpty(l.UnitCode),
			l.Quantity, l.UnitPrice, l.AfectacionIGV, l.IGVRate, l.Subtotal, l.IGV, l.Total,
		)
		if err != nil {
			return fmt.Errorf("insert document line %d: %w", l.Position, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID obtiene un comprobante por ID, acotado al emisor.
func (r *DocumentRepo) GetByID(ctx context.Context, tenantRUC, id string) (*entity.Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx, selectDocument+` WHERE tenant_ruc = $1 AND id = $2`, tenantRUC, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetByNumber busca por la clave de negocio (emisor, serie, correlativo).
// Un comprobante de otro emisor no existe para quien consulta.
func (r *DocumentRepo) GetByNumber(ctx context.Context, tenantRUC, series string, sequence int64) (*entity.Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx,
		selectDocument+` WHERE tenant_ruc = $1 AND series = $2 AND sequence = $3`,
		tenantRUC, series, sequence))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, entity.FormatDocumentNumber(series, sequence))
		}
		return nil, fmt.Errorf("get document by number: %w", err)
	}
	return doc, nil
}

// GetLines obtiene las líneas en el orden de emisión.
func (r *DocumentRepo) GetLines(ctx context.Context, documentID string) ([]*entity.DocumentLine, error) {
	const q = `
		SELECT id, document_id, position, description, COALESCE(unit_code, ''), quantity, unit_price,
		       afectacion_igv, igv_rate, subtotal, igv, total
		FROM document_lines WHERE document_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, q, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.DocumentLine
	for rows.Next() {
		var l entity.DocumentLine
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Position, &l.Description, &l.UnitCode,
			&l.Quantity, &l.UnitPrice, &l.AfectacionIGV, &l.IGVRate, &l.Subtotal, &l.IGV, &l.Total); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// ListByTenant lista los comprobantes del emisor, más recientes primero.
func (r *DocumentRepo) ListByTenant(ctx context.Context, tenantRUC string, limit, offset int) ([]*entity.Document, error) {
	rows, err := r.pool.Query(ctx,
		selectDocument+` WHERE tenant_ruc = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		tenantRUC, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var list []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// TransitionState cambia el estado con la condición en el WHERE: nunca
// leer-modificar-escribir. Devuelve ErrConflict si el estado ya no es from.
func (r *DocumentRepo) TransitionState(ctx context.Context, tenantRUC, id, from, to string) error {
	if !entity.CanTransition(from, to) {
		return fmt.Errorf("%w: transición %s -> %s no permitida", domain.ErrConflict, from, to)
	}
	const q = `
		UPDATE documents SET state = $4, updated_at = now()
		WHERE tenant_ruc = $1 AND id = $2 AND state = $3`
	cmd, err := r.pool.Exec(ctx, q, tenantRUC, id, from, to)
	if err != nil {
		return fmt.Errorf("transition document state: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: el comprobante %s ya no está en estado %s", domain.ErrConflict, id, from)
	}
	return nil
}

// SetSignedXMLKey guarda la clave del blob del XML firmado.
func (r *DocumentRepo) SetSignedXMLKey(ctx context.Context, tenantRUC, id, key string) error {
	const q = `
		UPDATE documents SET signed_xml_key = $3, updated_at = now()
		WHERE tenant_ruc = $1 AND id = $2`
	cmd, err := r.pool.Exec(ctx, q, tenantRUC, id, key)
	if err != nil {
		return fmt.Errorf("set signed xml key: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveOutcome persiste el desenlace de una transmisión en un solo UPDATE
// condicionado a SUBMITTED: estado nuevo, constancia (si la hubo) y registro
// de reintentos. Si otro worker ya movió el estado devuelve ErrConflict.
func (r *DocumentRepo) SaveOutcome(ctx context.Context, tenantRUC, id, newState string, receipt *entity.Receipt, errLog []entity.TransmissionError) error {
	if !entity.CanTransition(entity.StateSubmitted, newState) && newState != entity.StateSubmitted {
		return fmt.Errorf("%w: desenlace %s no permitido desde SUBMITTED", domain.ErrConflict, newState)
	}
	logJSON, err := marshalErrorLog(errLog)
	if err != nil {
		return err
	}

	var code, message, blobKey *string
	var notes []byte
	var receivedAt *time.Time
	if receipt != nil {
		code = &receipt.Code
		message = &receipt.Message
		blobKey = nullIfEmpty(receipt.BlobKey)
		receivedAt = &receipt.ReceivedAt
		if len(receipt.Notes) > 0 {
			notes, err = json.Marshal(receipt.Notes)
			if err != nil {
				return fmt.Errorf("marshal receipt notes: %w", err)
			}
		}
	}

	const q = `
		UPDATE documents
		SET state               = $3,
		    receipt_code        = COALESCE($4, receipt_code),
		    receipt_message     = COALESCE($5, receipt_message),
		    receipt_blob_key    = COALESCE($6, receipt_blob_key),
		    receipt_notes       = COALESCE($7, receipt_notes),
		    receipt_received_at = COALESCE($8, receipt_received_at),
		    error_log           = $9,
		    updated_at          = now()
		WHERE tenant_ruc = $1 AND id = $2 AND state = $10`
	cmd, err := r.pool.Exec(ctx, q, tenantRUC, id, newState,
		code, message, blobKey, notes, receivedAt, logJSON, entity.StateSubmitted)
	if err != nil {
		return fmt.Errorf("save transmission outcome: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: el comprobante %s ya no está en estado %s", domain.ErrConflict, id, entity.StateSubmitted)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func scanDocument(row pgxScanner) (*entity.Document, error) {
	var d entity.Document
	var signedKey, refNumber, cnType *string
	var rcCode, rcMessage, rcBlobKey *string
	var rcNotes, errLog []byte
	var rcReceivedAt *time.Time
	err := row.Scan(
		&d.ID, &d.TenantRUC, &d.DocType, &d.Series, &d.Sequence, &d.IssueDate, &d.Currency,
		&d.Issuer.IdentityType, &d.Issuer.IdentityNumber, &d.Issuer.Name, &d.Issuer.Address,
		&d.Customer.IdentityType, &d.Customer.IdentityNumber, &d.Customer.Name, &d.Customer.Address,
		&d.Subtotal, &d.TaxTotal, &d.GrandTotal, &d.State, &d.XML,
		&signedKey, &refNumber, &cnType,
		&rcCode, &rcMessage, &rcBlobKey, &rcNotes, &rcReceivedAt,
		&errLog, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.SignedXMLKey = derefStr(signedKey)
	d.ReferencedNumber = derefStr(refNumber)
	d.CreditNoteType = derefStr(cnType)
	if rcCode != nil {
		rc := entity.Receipt{Code: *rcCode, Message: derefStr(rcMessage), BlobKey: derefStr(rcBlobKey)}
		if rcReceivedAt != nil {
			rc.ReceivedAt = *rcReceivedAt
		}
		if len(rcNotes) > 0 {
			if err := json.Unmarshal(rcNotes, &rc.Notes); err != nil {
				return nil, fmt.Errorf("unmarshal receipt notes: %w", err)
			}
		}
		d.Receipt = &rc
	}
	if len(errLog) > 0 {
		if err := json.Unmarshal(errLog, &d.ErrorLog); err != nil {
			return nil, fmt.Errorf("unmarshal error log: %w", err)
		}
	}
	return &d, nil
}

func marshalErrorLog(log []entity.TransmissionError) ([]byte, error) {
	if log == nil {
		log = []entity.TransmissionError{}
	}
	b, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("marshal error log: %w", err)
	}
	return b, nil
}

func derefStr(p *string) string {
	if p != nil {
		return *p
	}
	return ""
}
