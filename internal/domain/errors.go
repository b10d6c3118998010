package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrTenantInactive     = errors.New("emisor inactivo o suspendido")
	ErrOwnershipViolation = errors.New("el recurso pertenece a otro emisor")
)

// ValidationError señala un campo de la solicitud que incumple las reglas de
// emisión. Envuelve ErrInvalidInput para que errors.Is siga funcionando.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("entrada inválida: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError construye un ValidationError para el campo dado.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Motivos por los que la firma no puede realizarse.
const (
	CertMalformedInput    = "entrada_malformada"
	CertNotFound          = "certificado_no_encontrado"
	CertExpired           = "certificado_vencido"
	CertOwnershipMismatch = "titular_distinto"
)

// CertificateError señala que la firma de un comprobante no puede realizarse
// por el estado del certificado o de la entrada. La firma nunca degrada: ante
// cualquiera de estos motivos el documento queda sin firmar.
type CertificateError struct {
	Kind   string // ver constantes Cert*
	Detail string
}

func (e *CertificateError) Error() string {
	return fmt.Sprintf("firma: %s: %s", e.Kind, e.Detail)
}

// Clasificación de fallos de transmisión. Informativa: el motor de reintentos
// agota siempre su presupuesto sin importar la clase.
const (
	TransportRecoverable    = "recoverable"
	TransportNonRecoverable = "non_recoverable"
	TransportTimeout        = "timeout"
)

// TransportError envuelve un fallo de comunicación con SUNAT, clasificado
// para el registro de reintentos.
type TransportError struct {
	Kind string // ver constantes Transport*
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transmisión (%s): %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError clasifica err con la clase dada.
func NewTransportError(kind string, err error) *TransportError {
	return &TransportError{Kind: kind, Err: err}
}

// TransportKind devuelve la clasificación de err, o recoverable si err no
// viene clasificado (política conservadora: lo desconocido se reintenta).
func TransportKind(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return TransportRecoverable
}
