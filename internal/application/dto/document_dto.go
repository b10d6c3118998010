package dto

import "github.com/shopspring/decimal"

// PartyRequest identifica al adquiriente del comprobante.
type PartyRequest struct {
	IdentityType   string `json:"identity_type" validate:"required"`
	IdentityNumber string `json:"identity_number" validate:"required"`
	Name           string `json:"name" validate:"required,max=500"`
	Address        string `json:"address,omitempty" validate:"max=500"`
}

// CreateDocumentRequest body para POST /api/documents.
// ReferencedNumber y CreditNoteType solo aplican a notas de crédito (07).
type CreateDocumentRequest struct {
	DocType          string                `json:"doc_type" validate:"required,oneof=01 03 07"`
	Series           string                `json:"series" validate:"required,len=4"`
	Currency         string                `json:"currency" validate:"required,oneof=PEN USD"`
	Customer         PartyRequest          `json:"customer" validate:"required"`
	Lines            []DocumentLineRequest `json:"lines" validate:"required,min=1,dive"`
	ReferencedNumber string                `json:"referenced_number,omitempty"`
	CreditNoteType   string                `json:"credit_note_type,omitempty" validate:"omitempty,oneof=01 02 03 06 07"`
}

// DocumentLineRequest línea del comprobante.
type DocumentLineRequest struct {
	Description   string          `json:"description" validate:"required,max=500"`
	UnitCode      string          `json:"unit_code,omitempty"`
	Quantity      decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice     decimal.Decimal `json:"unit_price" validate:"required"`
	AfectacionIGV string          `json:"afectacion_igv" validate:"required,oneof=10 20 30 40"`
}

// PartyResponse parte del comprobante en respuestas.
type PartyResponse struct {
	IdentityType   string `json:"identity_type"`
	IdentityNumber string `json:"identity_number"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
}

// DocumentResponse comprobante con líneas para POST /api/documents y
// GET /api/documents/:number/detail.
type DocumentResponse struct {
	ID               string                 `json:"id"`
	TenantRUC        string                 `json:"tenant_ruc"`
	DocumentNumber   string                 `json:"document_number"`
	DocType          string                 `json:"doc_type"`
	IssueDate        string                 `json:"issue_date"`
	Currency         string                 `json:"currency"`
	Customer         PartyResponse          `json:"customer"`
	Subtotal         decimal.Decimal        `json:"subtotal"`
	TaxTotal         decimal.Decimal        `json:"tax_total"`
	GrandTotal       decimal.Decimal        `json:"grand_total"`
	State            string                 `json:"state"`
	ReferencedNumber string                 `json:"referenced_number,omitempty"`
	CreditNoteType   string                 `json:"credit_note_type,omitempty"`
	Lines            []DocumentLineResponse `json:"lines,omitempty"`
}

// DocumentLineResponse línea en la respuesta.
type DocumentLineResponse struct {
	Position      int             `json:"position"`
	Description   string          `json:"description"`
	UnitCode      string          `json:"unit_code,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	AfectacionIGV string          `json:"afectacion_igv"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	IGV           decimal.Decimal `json:"igv"`
	Total         decimal.Decimal `json:"total"`
}

// DocumentListResponse lista paginada de comprobantes (sin líneas).
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ReceiptResponse constancia de recepción (CDR) en respuestas.
type ReceiptResponse struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Notes       []string `json:"notes,omitempty"`
	DownloadURL string   `json:"download_url,omitempty"`
}

// DocumentStatusResponse respuesta de GET /api/documents/:number.
// RejectionReason solo viene poblado cuando el estado es REJECTED.
type DocumentStatusResponse struct {
	DocumentNumber  string                      `json:"document_number"`
	State           string                      `json:"state"`
	Receipt         *ReceiptResponse            `json:"receipt,omitempty"`
	RejectionReason string                      `json:"rejection_reason,omitempty"`
	ErrorLog        []TransmissionErrorResponse `json:"error_log,omitempty"`
}

// TransmissionErrorResponse entrada del registro de reintentos.
type TransmissionErrorResponse struct {
	Attempt     int    `json:"attempt"`
	Message     string `json:"message"`
	Kind        string `json:"kind"`
	OccurredAt  string `json:"occurred_at"`
	NextDelayMs int64  `json:"next_delay_ms"`
}

// SubmitResultResponse respuesta de POST /api/documents/:number/submit.
type SubmitResultResponse struct {
	DocumentNumber string           `json:"document_number"`
	State          string           `json:"state"`
	Attempts       int              `json:"attempts"`
	Receipt        *ReceiptResponse `json:"receipt,omitempty"`
}

// SequenceResponse contador de numeración para GET /api/sequences.
type SequenceResponse struct {
	DocType    string `json:"doc_type"`
	Series     string `json:"series"`
	CurrentVal int64  `json:"current_val"`
}

// QRPayloadResponse cadena del código QR de la representación impresa
// (GET /api/documents/:number/qr).
type QRPayloadResponse struct {
	DocumentNumber string `json:"document_number"`
	Payload        string `json:"payload"`
}
