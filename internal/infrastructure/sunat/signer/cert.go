// Decodificación de certificados PKCS#12 y extracción del RUC del titular.

package signer

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/pkcs12"
)

// DecodeP12 decodifica certificado y llave privada desde bytes PKCS#12
// (.p12/.pfx). La passphrase puede ser vacía si el archivo no está protegido.
func DecodeP12(data []byte, passphrase string) (tls.Certificate, error) {
	priv, cert, err := pkcs12.Decode(data, passphrase)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	// pkcs12.Decode devuelve un solo certificado; para SUNAT basta la hoja.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// SubjectRUC extrae el RUC del titular del certificado. Los certificados
// tributarios peruanos llevan el RUC en el serialNumber del subject (OID
// 2.5.4.5); como respaldo se busca una secuencia de 11 dígitos en el CN.
// Devuelve vacío si no encuentra ninguno.
func SubjectRUC(cert *x509.Certificate) string {
	if ruc := digitsRUC(cert.Subject.SerialNumber); ruc != "" {
		return ruc
	}
	return digitsRUC(cert.Subject.CommonName)
}

// digitsRUC devuelve la primera secuencia de exactamente 11 dígitos de s.
func digitsRUC(s string) string {
	start := -1
	for i := 0; i <= len(s); i++ {
		digit := i < len(s) && s[i] >= '0' && s[i] <= '9'
		if digit {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 && i-start == 11 {
			return s[start:i]
		}
		start = -1
	}
	return ""
}
