package entity

import "time"

// Certificate representa el certificado digital de firma de un emisor.
// El archivo PKCS#12 se guarda tal cual se cargó; la frase de paso se
// cifra con secretbox antes de persistir.
type Certificate struct {
	ID               string
	TenantRUC        string
	SubjectRUC       string // RUC embebido en el subject del certificado
	SubjectCN        string // common name del titular
	SerialNumber     string
	NotBefore        time.Time
	NotAfter         time.Time
	PKCS12           []byte // archivo .p12/.pfx completo
	PassphraseSealed []byte // frase de paso cifrada (secretbox)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsValidAt indica si la ventana de vigencia del certificado cubre el instante dado.
func (c *Certificate) IsValidAt(t time.Time) bool {
	return !t.Before(c.NotBefore) && !t.After(c.NotAfter)
}
