package sunat_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	domainsunat "github.com/jhoicas/Facturacion-api/internal/domain/sunat"
	pkgsunat "github.com/jhoicas/Facturacion-api/pkg/sunat"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
//
// Comprobante de referencia: una línea gravada de 2 x 50.00, es decir
// subtotal 100.00, IGV 18.00, total 118.00.
// ──────────────────────────────────────────────────────────────────────────────

func lineaGravada() *entity.DocumentLine {
	return &entity.DocumentLine{
		Position:      1,
		Description:   "Servicio de consultoría",
		UnitCode:      pkgsunat.UnitServicio,
		Quantity:      decimal.NewFromInt(2),
		UnitPrice:     decimal.NewFromInt(50),
		AfectacionIGV: pkgsunat.AfectacionGravado,
		IGVRate:       pkgsunat.IGVRate,
		Subtotal:      decimal.NewFromInt(100),
		IGV:           decimal.NewFromInt(18),
		Total:         decimal.NewFromInt(118),
	}
}

func facturaValida() (*entity.Document, []*entity.DocumentLine) {
	doc := &entity.Document{
		TenantRUC: "20600055519",
		DocType:   pkgsunat.DocTypeFactura,
		Series:    "F001",
		Sequence:  42,
		IssueDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Currency:  pkgsunat.CurrencyPEN,
		Issuer: entity.Party{
			IdentityType:   pkgsunat.IdentityTypeRUC,
			IdentityNumber: "20600055519",
			Name:           "Comercial Andina S.A.C.",
		},
		Customer: entity.Party{
			IdentityType:   pkgsunat.IdentityTypeRUC,
			IdentityNumber: "20123456788",
			Name:           "Distribuidora del Sur E.I.R.L.",
		},
		Subtotal:   decimal.NewFromInt(100),
		TaxTotal:   decimal.NewFromInt(18),
		GrandTotal: decimal.NewFromInt(118),
		State:      entity.StatePending,
	}
	return doc, []*entity.DocumentLine{lineaGravada()}
}

func boletaValida() (*entity.Document, []*entity.DocumentLine) {
	doc, lines := facturaValida()
	doc.DocType = pkgsunat.DocTypeBoleta
	doc.Series = "B001"
	doc.Customer = entity.Party{
		IdentityType:   pkgsunat.IdentityTypeDNI,
		IdentityNumber: "46027897",
		Name:           "Juana Quispe Mamani",
	}
	return doc, lines
}

// ──────────────────────────────────────────────────────────────────────────────
// Casos válidos
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateDocument_FacturaValida(t *testing.T) {
	doc, lines := facturaValida()
	assert.NoError(t, domainsunat.ValidateDocument(doc, lines))
}

func TestValidateDocument_BoletaValida(t *testing.T) {
	doc, lines := boletaValida()
	assert.NoError(t, domainsunat.ValidateDocument(doc, lines))
}

func TestValidateDocument_NotaCreditoValida(t *testing.T) {
	doc, lines := facturaValida()
	doc.DocType = pkgsunat.DocTypeNotaCredito
	doc.ReferencedNumber = "F001-00000012"
	doc.CreditNoteType = pkgsunat.CreditNoteAnulacion
	assert.NoError(t, domainsunat.ValidateDocument(doc, lines))
}

// ──────────────────────────────────────────────────────────────────────────────
// Identidad del adquiriente según tipo de comprobante
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateDocument_BoletaExigeDNI(t *testing.T) {
	doc, lines := boletaValida()
	doc.Customer.IdentityType = pkgsunat.IdentityTypeRUC
	doc.Customer.IdentityNumber = "20123456788"

	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainsunat.ErrInvalidDocument)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "exige DNI")
}

func TestValidateDocument_FacturaExigeRUC(t *testing.T) {
	doc, lines := facturaValida()
	doc.Customer.IdentityType = pkgsunat.IdentityTypeDNI
	doc.Customer.IdentityNumber = "46027897"

	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exige RUC")
}

func TestValidateDocument_RUCEmisorInvalido(t *testing.T) {
	doc, lines := facturaValida()
	doc.Issuer.IdentityNumber = "20600055518" // dígito verificador incorrecto

	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issuer.identity_number")
}

// ──────────────────────────────────────────────────────────────────────────────
// Serie
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateDocument_SerieSegunTipo(t *testing.T) {
	doc, lines := facturaValida()
	doc.Series = "B001"
	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empieza con F")

	doc, lines = boletaValida()
	doc.Series = "F001"
	err = domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empieza con B")

	doc, lines = facturaValida()
	doc.DocType = pkgsunat.DocTypeNotaCredito
	doc.ReferencedNumber = "F001-00000012"
	doc.CreditNoteType = pkgsunat.CreditNoteAnulacion
	doc.Series = "X001"
	err = domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empieza con F o B")
}

func TestValidateDocument_SerieFormatoInvalido(t *testing.T) {
	for _, serie := range []string{"", "F01", "F0001", "1001", "f001"} {
		doc, lines := facturaValida()
		doc.Series = serie
		err := domainsunat.ValidateDocument(doc, lines)
		require.Error(t, err, "serie %q debería rechazarse", serie)
		assert.Contains(t, err.Error(), "formato")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Totales
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateDocument_TotalesInconsistentes(t *testing.T) {
	doc, lines := facturaValida()
	doc.GrandTotal = decimal.NewFromFloat(118.01)
	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importe total")

	doc, lines = facturaValida()
	doc.TaxTotal = decimal.NewFromInt(17)
	doc.GrandTotal = decimal.NewFromInt(117)
	err = domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IGV total")

	doc, lines = facturaValida()
	doc.Subtotal = decimal.NewFromInt(99)
	err = domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subtotal")
}

func TestValidateDocument_SinLineas(t *testing.T) {
	doc, _ := facturaValida()
	err := domainsunat.ValidateDocument(doc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "al menos una línea")
}

// ──────────────────────────────────────────────────────────────────────────────
// Nota de crédito
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateDocument_NotaCreditoSinReferencia(t *testing.T) {
	doc, lines := facturaValida()
	doc.DocType = pkgsunat.DocTypeNotaCredito
	doc.CreditNoteType = pkgsunat.CreditNoteAnulacion

	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referenciar el comprobante afectado")
}

func TestValidateDocument_NotaCreditoMotivoInvalido(t *testing.T) {
	doc, lines := facturaValida()
	doc.DocType = pkgsunat.DocTypeNotaCredito
	doc.ReferencedNumber = "F001-00000012"
	doc.CreditNoteType = "99"

	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Catálogo 09")
}

func TestValidateDocument_ReferenciaSoloEnNotaCredito(t *testing.T) {
	doc, lines := facturaValida()
	doc.ReferencedNumber = "F001-00000012"

	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solo una nota de crédito")
}

// ──────────────────────────────────────────────────────────────────────────────
// Líneas
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateDocument_LineasInvalidas(t *testing.T) {
	casos := []struct {
		nombre  string
		mutar   func(*entity.DocumentLine)
		mensaje string
	}{
		{"descripción vacía", func(l *entity.DocumentLine) { l.Description = "" }, "descripción obligatoria"},
		{"cantidad cero", func(l *entity.DocumentLine) { l.Quantity = decimal.Zero }, "cantidad"},
		{"precio negativo", func(l *entity.DocumentLine) { l.UnitPrice = decimal.NewFromInt(-5) }, "valor unitario"},
		{"afectación desconocida", func(l *entity.DocumentLine) { l.AfectacionIGV = "99" }, "Catálogo 07"},
		{"unidad desconocida", func(l *entity.DocumentLine) { l.UnitCode = "XYZ" }, "unidad de medida"},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			doc, lines := facturaValida()
			c.mutar(lines[0])
			err := domainsunat.ValidateDocument(doc, lines)
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.mensaje)
			assert.Contains(t, err.Error(), "lines[0]")
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Otros
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateDocument_Nulo(t *testing.T) {
	err := domainsunat.ValidateDocument(nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainsunat.ErrInvalidDocument)
}

func TestValidateDocument_MonedaNoAdmitida(t *testing.T) {
	doc, lines := facturaValida()
	doc.Currency = "EUR"
	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moneda")
}

func TestValidateDocument_TipoDesconocido(t *testing.T) {
	doc, lines := facturaValida()
	doc.DocType = "08"
	err := domainsunat.ValidateDocument(doc, lines)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}
