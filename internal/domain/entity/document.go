package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de envío a SUNAT.
const (
	StatePending   = "PENDING"   // Generado y numerado, sin transmisión definitiva
	StateSubmitted = "SUBMITTED" // Transmitido al WS SUNAT, respuesta definitiva pendiente
	StateAccepted  = "ACCEPTED"  // Aceptado por SUNAT (CDR 0, o con observaciones)
	StateRejected  = "REJECTED"  // Rechazado por SUNAT
)

// transiciones válidas del ciclo de vida. SUBMITTED vuelve a PENDING cuando
// el motor de reintentos agota el presupuesto sin respuesta de SUNAT.
var validTransitions = map[string]map[string]bool{
	StatePending:   {StateSubmitted: true},
	StateSubmitted: {StateAccepted: true, StateRejected: true, StatePending: true},
	StateAccepted:  {},
	StateRejected:  {},
}

// CanTransition indica si el paso de from a to es una transición válida del ciclo de vida.
func CanTransition(from, to string) bool {
	return validTransitions[from][to]
}

// IsFinalState indica si el estado es terminal (el documento ya no cambia).
func IsFinalState(state string) bool {
	return state == StateAccepted || state == StateRejected
}

// Party es el snapshot de identificación fiscal de una parte (emisor o adquiriente),
// congelado al generar el documento para que ediciones posteriores del padrón no
// alteren comprobantes ya emitidos.
type Party struct {
	IdentityType   string // Catálogo 06: 1=DNI, 6=RUC
	IdentityNumber string
	Name           string // razón social o nombre completo
	Address        string
}

// Document representa un comprobante electrónico (cabecera, partes y totales).
type Document struct {
	ID               string
	TenantRUC        string
	DocType          string // Catálogo 01: 01 factura, 03 boleta, 07 nota de crédito
	Series           string // F001, B001, etc.
	Sequence         int64  // correlativo asignado por la serie
	IssueDate        time.Time
	Currency         string          // PEN, USD
	Issuer           Party           // snapshot del emisor
	Customer         Party           // snapshot del adquiriente
	Subtotal         decimal.Decimal // suma de valores de venta por línea
	TaxTotal         decimal.Decimal // suma del IGV por línea
	GrandTotal       decimal.Decimal // Subtotal + TaxTotal
	State            string
	XML              string // XML canónico sin firmar (contenido completo)
	SignedXMLKey     string // clave del blob del XML firmado
	ReferencedNumber string // comprobante afectado (solo notas de crédito)
	CreditNoteType   string // Catálogo 09 (solo notas de crédito)
	Receipt          *Receipt
	ErrorLog         []TransmissionError
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FullNumber devuelve el número completo del comprobante: serie y correlativo
// de 8 dígitos con ceros a la izquierda (B001-00000001).
func (d *Document) FullNumber() string {
	return FormatDocumentNumber(d.Series, d.Sequence)
}

// FormatDocumentNumber arma el número completo a partir de serie y correlativo.
func FormatDocumentNumber(series string, sequence int64) string {
	return fmt.Sprintf("%s-%08d", series, sequence)
}
