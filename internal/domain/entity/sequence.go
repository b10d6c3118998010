package entity

import "time"

// DocumentSequence registra una serie autorizada de un emisor y lleva su
// correlativo. Una fila por (emisor, tipo de comprobante, serie); el
// correlativo avanza de forma atómica en el repositorio y nunca retrocede,
// aunque puede dejar huecos si una emisión falla después de numerar.
type DocumentSequence struct {
	TenantRUC  string
	DocType    string // Catálogo 01
	Series     string // F001, B001, ...
	CurrentVal int64  // último correlativo asignado; 0 = sin emisiones
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
