package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// SequenceRepository define el puerto del correlativo por serie.
type SequenceRepository interface {
	// Next reserva y devuelve el siguiente correlativo para
	// (emisor, tipo, serie) de forma atómica. La primera llamada sobre una
	// serie nueva crea el contador y devuelve 1. El correlativo reservado no
	// se devuelve jamás al contador: si la emisión falla después, queda un
	// hueco en la serie.
	Next(ctx context.Context, tenantRUC, docType, series string) (int64, error)

	// ListByTenant lista las series del emisor con su último correlativo.
	ListByTenant(ctx context.Context, tenantRUC string) ([]*entity.DocumentSequence, error)
}
