package entity

import "github.com/shopspring/decimal"

// DocumentLine representa una línea de detalle de un comprobante.
// El orden de emisión (Position) se conserva tal cual llegó en la solicitud.
type DocumentLine struct {
	ID            string
	DocumentID    string
	Position      int // 1..n, orden de entrada
	Description   string
	UnitCode      string // Catálogo 03 (NIU, ZZ, KGM, ...)
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal // valor unitario sin IGV
	AfectacionIGV string          // Catálogo 07 (10, 20, 30, 40)
	IGVRate       decimal.Decimal // 0.18 para gravado, 0 para el resto
	Subtotal      decimal.Decimal // Quantity * UnitPrice, redondeado a 2 decimales
	IGV           decimal.Decimal // Subtotal * IGVRate, redondeado a 2 decimales
	Total         decimal.Decimal // Subtotal + IGV
}
