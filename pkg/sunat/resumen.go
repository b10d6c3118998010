// Package sunat: construcción de la cadena del código QR de la representación
// impresa, según la R.S. 193-2020/SUNAT. Campos separados por pipe en orden
// estricto; el último campo es el valor resumen (DigestValue) de la firma.

package sunat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// QRParams contiene los datos para armar la cadena del QR (orden estricto SUNAT).
// Se puede construir desde Document + Tenant en la capa de aplicación.
type QRParams struct {
	RUCEmisor          string          // RUC del emisor, solo dígitos
	TipoComprobante    string          // Catálogo 01 (01, 03, 07)
	Serie              string          // Serie del comprobante (F001, B001)
	Numero             string          // Número correlativo, sin ceros obligatorios
	MtoIGV             decimal.Decimal // Sumatoria IGV
	MtoTotal           decimal.Decimal // Importe total
	FechaEmision       string          // Fecha emisión YYYY-MM-DD
	TipoDocAdquiriente string          // Catálogo 06 (1=DNI, 6=RUC)
	NumDocAdquiriente  string          // Documento del adquiriente, solo dígitos
	ValorResumen       string          // DigestValue de la firma (base64)
}

// QRPayloadService arma la cadena QR según la R.S. 193-2020/SUNAT.
type QRPayloadService struct{}

// NewQRPayloadService crea el servicio.
func NewQRPayloadService() *QRPayloadService {
	return &QRPayloadService{}
}

// Build genera la cadena QR a partir de parámetros ya preparados.
// Orden estricto SUNAT: RUC | TIPO | SERIE | NUMERO | IGV | TOTAL | FECHA | TIPO DOC ADQ | NUM DOC ADQ | RESUMEN.
func (s *QRPayloadService) Build(p *QRParams) (string, error) {
	if p == nil {
		return "", fmt.Errorf("sunat: QRParams es obligatorio")
	}

	ruc := onlyDigits(p.RUCEmisor)
	if ruc == "" {
		return "", fmt.Errorf("sunat: RUCEmisor es obligatorio para el QR")
	}
	if p.TipoComprobante == "" {
		return "", fmt.Errorf("sunat: TipoComprobante es obligatorio")
	}
	serie := regexp.MustCompile(`\s+`).ReplaceAllString(strings.TrimSpace(p.Serie), "")
	if serie == "" {
		return "", fmt.Errorf("sunat: Serie es obligatoria")
	}
	numero := strings.TrimSpace(p.Numero)
	if numero == "" {
		return "", fmt.Errorf("sunat: Numero es obligatorio")
	}
	if p.FechaEmision == "" {
		return "", fmt.Errorf("sunat: FechaEmision es obligatoria")
	}
	docAdq := onlyDigits(p.NumDocAdquiriente)
	if docAdq == "" {
		return "", fmt.Errorf("sunat: NumDocAdquiriente es obligatorio para el QR")
	}

	campos := []string{
		ruc,
		p.TipoComprobante,
		serie,
		numero,
		formatDecimalForQR(p.MtoIGV),
		formatDecimalForQR(p.MtoTotal),
		p.FechaEmision,
		p.TipoDocAdquiriente,
		docAdq,
		p.ValorResumen,
	}
	return strings.Join(campos, "|"), nil
}

// formatDecimalForQR formatea el monto para la cadena QR: sin separador de miles, punto decimal, 2 decimales.
func formatDecimalForQR(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// onlyDigits deja solo dígitos 0-9.
func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
