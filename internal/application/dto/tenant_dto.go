package dto

import "time"

// CreateTenantRequest entrada para registrar un emisor.
type CreateTenantRequest struct {
	RUC             string `json:"ruc" validate:"required,len=11,numeric"`
	RazonSocial     string `json:"razon_social" validate:"required,min=1,max=500"`
	NombreComercial string `json:"nombre_comercial" validate:"max=500"`
	Address         string `json:"address" validate:"max=500"`
	Ubigeo          string `json:"ubigeo" validate:"omitempty,len=6,numeric"`
	Phone           string `json:"phone" validate:"max=30"`
	Email           string `json:"email" validate:"omitempty,email"`
	SOLUser         string `json:"sol_user" validate:"required,min=1,max=50"`
	SOLPassword     string `json:"sol_password" validate:"required,min=1,max=100"`
}

// UpdateTenantRequest entrada para actualizar un emisor (campos opcionales).
type UpdateTenantRequest struct {
	RazonSocial     *string `json:"razon_social" validate:"omitempty,min=1,max=500"`
	NombreComercial *string `json:"nombre_comercial" validate:"omitempty,max=500"`
	Address         *string `json:"address" validate:"omitempty,max=500"`
	Ubigeo          *string `json:"ubigeo" validate:"omitempty,len=6,numeric"`
	Phone           *string `json:"phone" validate:"omitempty,max=30"`
	Email           *string `json:"email" validate:"omitempty,email"`
	SOLUser         *string `json:"sol_user" validate:"omitempty,min=1,max=50"`
	SOLPassword     *string `json:"sol_password" validate:"omitempty,min=1,max=100"`
	Status          *string `json:"status" validate:"omitempty,oneof=active suspended inactive"`
}

// TenantResponse salida de un emisor (sin credenciales SOL ni certificado).
type TenantResponse struct {
	RUC             string    `json:"ruc"`
	RazonSocial     string    `json:"razon_social"`
	NombreComercial string    `json:"nombre_comercial"`
	Address         string    `json:"address"`
	Ubigeo          string    `json:"ubigeo"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Status          string    `json:"status"`
	HasCert         bool      `json:"has_cert"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TenantListResponse lista paginada de emisores.
type TenantListResponse struct {
	Items []TenantResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

// UploadCertificateRequest carga del certificado digital del emisor.
// PKCS12 viene en base64 estándar.
type UploadCertificateRequest struct {
	PKCS12     string `json:"pkcs12" validate:"required"`
	Passphrase string `json:"passphrase" validate:"required"`
}

// CertificateResponse metadatos del certificado activo del emisor.
type CertificateResponse struct {
	TenantRUC  string    `json:"tenant_ruc"`
	Subject    string    `json:"subject"`
	SerialHex  string    `json:"serial_hex"`
	NotBefore  time.Time `json:"not_before"`
	NotAfter   time.Time `json:"not_after"`
	UploadedAt time.Time `json:"uploaded_at"`
}
