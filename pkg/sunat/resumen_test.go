package sunat_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/pkg/sunat"
)

// ──────────────────────────────────────────────────────────────────────────────
// Cadena del código QR (R.S. 193-2020/SUNAT)
//
// El orden de los campos es un contrato: RUC | TIPO | SERIE | NUMERO | IGV |
// TOTAL | FECHA | TIPO DOC ADQ | NUM DOC ADQ | RESUMEN.
// ──────────────────────────────────────────────────────────────────────────────

func buildQRParams() *sunat.QRParams {
	return &sunat.QRParams{
		RUCEmisor:          "20600055519",
		TipoComprobante:    sunat.DocTypeFactura,
		Serie:              "F001",
		Numero:             "42",
		MtoIGV:             decimal.NewFromFloat(18),
		MtoTotal:           decimal.NewFromFloat(118),
		FechaEmision:       "2026-01-15",
		TipoDocAdquiriente: sunat.IdentityTypeRUC,
		NumDocAdquiriente:  "20123456788",
		ValorResumen:       "mBo6RnF0T2Y=",
	}
}

func TestQRBuild_CadenaExacta(t *testing.T) {
	svc := sunat.NewQRPayloadService()
	got, err := svc.Build(buildQRParams())
	require.NoError(t, err)
	assert.Equal(t, "20600055519|01|F001|42|18.00|118.00|2026-01-15|6|20123456788|mBo6RnF0T2Y=", got)
}

// Los montos van siempre con dos decimales y punto, sin separador de miles.
func TestQRBuild_FormatoDeMontos(t *testing.T) {
	p := buildQRParams()
	p.MtoIGV = decimal.NewFromFloat(1234.5)
	p.MtoTotal = decimal.NewFromFloat(9876.549)

	got, err := sunat.NewQRPayloadService().Build(p)
	require.NoError(t, err)
	campos := strings.Split(got, "|")
	require.Len(t, campos, 10)
	assert.Equal(t, "1234.50", campos[4])
	assert.Equal(t, "9876.55", campos[5])
}

// RUC y documento del adquiriente se limpian a solo dígitos.
func TestQRBuild_LimpiaSeparadores(t *testing.T) {
	p := buildQRParams()
	p.RUCEmisor = "20-600055519"
	p.NumDocAdquiriente = "20.123.456.788"

	got, err := sunat.NewQRPayloadService().Build(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "20600055519|"))
	assert.Contains(t, got, "|20123456788|")
}

func TestQRBuild_CamposObligatorios(t *testing.T) {
	svc := sunat.NewQRPayloadService()

	_, err := svc.Build(nil)
	assert.Error(t, err, "sin parámetros no hay cadena")

	p := buildQRParams()
	p.RUCEmisor = ""
	_, err = svc.Build(p)
	assert.Error(t, err, "el RUC del emisor es obligatorio")

	p = buildQRParams()
	p.Serie = "  "
	_, err = svc.Build(p)
	assert.Error(t, err, "la serie es obligatoria")

	p = buildQRParams()
	p.FechaEmision = ""
	_, err = svc.Build(p)
	assert.Error(t, err, "la fecha de emisión es obligatoria")

	p = buildQRParams()
	p.NumDocAdquiriente = "s/n"
	_, err = svc.Build(p)
	assert.Error(t, err, "el documento del adquiriente debe tener dígitos")
}
