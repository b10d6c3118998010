package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// BlobStore define el puerto del almacén binario (XML firmados, CDRs).
// Toda clave vive bajo el prefijo "{ruc}/" de su emisor. Las implementaciones
// rechazan con ErrOwnershipViolation cualquier clave fuera del prefijo del
// emisor que opera, en todas las operaciones, incluidas borrar y listar.
type BlobStore interface {
	Put(ctx context.Context, tenantRUC, key string, data []byte, contentType string) error
	Get(ctx context.Context, tenantRUC, key string) ([]byte, error)
	Exists(ctx context.Context, tenantRUC, key string) (bool, error)
	Delete(ctx context.Context, tenantRUC, key string) error

	// List enumera claves del emisor. prefix es relativo a la raíz "{ruc}/"
	// ("cdr/", "xml/" o vacío para todo el emisor).
	List(ctx context.Context, tenantRUC, prefix string) ([]string, error)

	// PresignGet genera una URL de descarga temporal para la clave dada.
	PresignGet(ctx context.Context, tenantRUC, key string, expiry time.Duration) (string, error)
}

// BlobKey arma una clave bajo el prefijo del emisor: "{ruc}/{parte}/{...}".
func BlobKey(tenantRUC string, parts ...string) string {
	return tenantRUC + "/" + strings.Join(parts, "/")
}

// ValidateBlobKey verifica que key pertenezca al prefijo del emisor dado.
// Se comparte entre las implementaciones reales y las de prueba para que la
// regla de aislamiento sea una sola.
func ValidateBlobKey(tenantRUC, key string) error {
	if tenantRUC == "" {
		return fmt.Errorf("%w: emisor vacío", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(key, tenantRUC+"/") {
		return fmt.Errorf("%w: clave %q fuera del prefijo del emisor %s", domain.ErrOwnershipViolation, key, tenantRUC)
	}
	rest := strings.TrimPrefix(key, tenantRUC+"/")
	if rest == "" || strings.Contains(rest, "..") {
		return fmt.Errorf("%w: clave %q malformada", domain.ErrInvalidInput, key)
	}
	return nil
}
