package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para comprobantes y sus líneas.
// Toda lectura va acotada por el RUC del emisor: un comprobante de otro emisor
// simplemente no existe para quien consulta (ErrNotFound, nunca ErrForbidden).
type DocumentRepository interface {
	// Create persiste cabecera y líneas en una sola transacción. Verifica que
	// doc.TenantRUC coincida con callerRUC y devuelve ErrOwnershipViolation si no.
	Create(ctx context.Context, callerRUC string, doc *entity.Document, lines []*entity.DocumentLine) error

	GetByID(ctx context.Context, tenantRUC, id string) (*entity.Document, error)

	// GetByNumber busca por (emisor, serie, correlativo), la clave de negocio
	// del comprobante. El número completo "B001-00000001" se parsea en la capa
	// de aplicación.
	GetByNumber(ctx context.Context, tenantRUC, series string, sequence int64) (*entity.Document, error)

	GetLines(ctx context.Context, documentID string) ([]*entity.DocumentLine, error)

	ListByTenant(ctx context.Context, tenantRUC string, limit, offset int) ([]*entity.Document, error)

	// TransitionState cambia el estado solo si el actual coincide con from
	// (condición en el WHERE, sin leer-modificar-escribir). Si ninguna fila
	// cambió devuelve ErrConflict.
	TransitionState(ctx context.Context, tenantRUC, id, from, to string) error

	SetSignedXMLKey(ctx context.Context, tenantRUC, id, key string) error

	// SaveOutcome persiste el desenlace de una transmisión: el estado nuevo
	// (condicionado a que el actual sea SUBMITTED), la constancia si la hubo y
	// el registro completo de reintentos. Cubre tanto la aceptación/rechazo
	// como la vuelta a PENDING por agotamiento.
	SaveOutcome(ctx context.Context, tenantRUC, id, newState string, receipt *entity.Receipt, errLog []entity.TransmissionError) error
}
