// Package sunat implementa la generación del XML UBL 2.1, el empaquetado ZIP y
// el envío SOAP de comprobantes electrónicos al billService de SUNAT (Perú).
package sunat

import (
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// DocumentBuildContext contexto con todos los datos necesarios para construir
// el XML del comprobante.
type DocumentBuildContext struct {
	Document *entity.Document
	Lines    []*entity.DocumentLine
	Tenant   *entity.Tenant // Emisor; opcional, aporta el nombre comercial
}
