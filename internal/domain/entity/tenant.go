package entity

import "time"

// Estados de un emisor.
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusInactive  = "inactive"
)

// Tenant representa una empresa emisora del sistema (multi-tenant, enfoque Perú).
// El RUC es la clave natural: todo recurso del emisor se aísla por este valor.
type Tenant struct {
	RUC             string // RUC de 11 dígitos con dígito verificador
	RazonSocial     string
	NombreComercial string
	Address         string
	Ubigeo          string // código de ubicación geográfica INEI (6 dígitos)
	Phone           string
	Email           string
	Status          string // active, suspended, inactive
	SOLUser         string // usuario secundario SOL para el WS de SUNAT
	SOLPassSealed   []byte // contraseña SOL cifrada (secretbox), nunca plana en reposo
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive indica si el emisor puede emitir y transmitir comprobantes.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
