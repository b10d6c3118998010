package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo implementa SequenceRepository sobre PostgreSQL.
// Recibe un Querier para poder usarse con pool o transacción.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador del correlativo.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Next reserva el siguiente correlativo en un solo roundtrip: el upsert crea
// el contador en 1 la primera vez y lo incrementa después, sin SELECT previo
// ni bloqueo explícito. Dos workers concurrentes obtienen valores distintos
// porque el UPDATE del conflicto serializa sobre la fila.
func (r *SequenceRepo) Next(ctx context.Context, tenantRUC, docType, series string) (int64, error) {
	const q = `
		INSERT INTO document_sequences (tenant_ruc, doc_type, series, current_val, created_at, updated_at)
		VALUES ($1, $2, $3, 1, now(), now())
		ON CONFLICT (tenant_ruc, doc_type, series)
		DO UPDATE SET current_val = document_sequences.current_val + 1, updated_at = now()
		RETURNING current_val`
	var n int64
	if err := r.q.QueryRow(ctx, q, tenantRUC, docType, series).Scan(&n); err != nil {
		return 0, fmt.Errorf("next correlativo %s %s-%s: %w", tenantRUC, docType, series, err)
	}
	return n, nil
}

// ListByTenant lista las series del emisor con su último correlativo.
func (r *SequenceRepo) ListByTenant(ctx context.Context, tenantRUC string) ([]*entity.DocumentSequence, error) {
	const q = `
		SELECT tenant_ruc, doc_type, series, current_val, created_at, updated_at
		FROM document_sequences WHERE tenant_ruc = $1 ORDER BY doc_type, series`
	rows, err := r.q.Query(ctx, q, tenantRUC)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()
	var list []*entity.DocumentSequence
	for rows.Next() {
		var s entity.DocumentSequence
		if err := rows.Scan(&s.TenantRUC, &s.DocType, &s.Series, &s.CurrentVal, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
