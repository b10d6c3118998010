package entity

import "time"

// Códigos de respuesta sintéticos para envíos asíncronos: SUNAT devolvió un
// ticket en lugar de un CDR y el estado definitivo se resuelve después.
const (
	ReceiptCodeTicket     = "TICKET"
	ReceiptCodeProcessing = "PROCESSING"
)

// Receipt es la constancia de recepción (CDR) devuelta por SUNAT, o el
// marcador de un envío asíncrono pendiente.
type Receipt struct {
	Code       string // código de respuesta SUNAT ("0", "2335", "TICKET", ...)
	Message    string
	BlobKey    string   // clave del zip R-*.zip en el almacén; vacío si no hubo cuerpo
	Notes      []string // observaciones del CDR (códigos 4000-4999)
	ReceivedAt time.Time
}

// TransmissionError es una entrada del registro de reintentos de transmisión.
// Se acumulan en orden de ocurrencia y se persisten junto al documento.
type TransmissionError struct {
	Attempt     int       `json:"attempt"` // número de intento (1..n)
	Message     string    `json:"message"` // mensaje del error
	Kind        string    `json:"kind"`    // recoverable, non_recoverable, timeout
	OccurredAt  time.Time `json:"occurred_at"`
	NextDelayMs int64     `json:"next_delay_ms"` // espera antes del siguiente intento; 0 en el último
}
