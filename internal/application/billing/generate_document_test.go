package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	domainsunat "github.com/jhoicas/Facturacion-api/internal/domain/sunat"
	infrasunat "github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

const (
	rucEmisor  = "20600055519"
	rucCliente = "20123456788"
	dniCliente = "46027897"
)

func emisorActivo() *entity.Tenant {
	return &entity.Tenant{
		RUC:         rucEmisor,
		RazonSocial: "Comercial Andina S.A.C.",
		Address:     "Av. Arequipa 1234, Lima",
		Status:      entity.TenantStatusActive,
		SOLUser:     "MODDATOS",
	}
}

type generateEnv struct {
	docs    *fakeDocumentRepo
	seqs    *fakeSequenceRepo
	tenants *fakeTenantRepo
	uc      *billing.GenerateDocumentUseCase
}

func newGenerateEnv(t *testing.T) *generateEnv {
	t.Helper()
	env := &generateEnv{
		docs:    newFakeDocumentRepo(),
		seqs:    newFakeSequenceRepo(),
		tenants: newFakeTenantRepo(emisorActivo()),
	}
	env.uc = billing.NewGenerateDocumentUseCase(
		env.docs, env.seqs, env.tenants,
		infrasunat.NewXMLBuilderService(), logger.Nop(),
	)
	return env
}

func boletaRequest() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		DocType:  "03",
		Series:   "B001",
		Currency: "PEN",
		Customer: dto.PartyRequest{
			IdentityType:   "1",
			IdentityNumber: dniCliente,
			Name:           "Juana Quispe Mamani",
		},
		Lines: []dto.DocumentLineRequest{{
			Description:   "Gaseosa 500 ml",
			UnitCode:      "NIU",
			Quantity:      decimal.NewFromInt(2),
			UnitPrice:     decimal.NewFromInt(50),
			AfectacionIGV: "10",
		}},
	}
}

func facturaRequest() dto.CreateDocumentRequest {
	req := boletaRequest()
	req.DocType = "01"
	req.Series = "F001"
	req.Customer = dto.PartyRequest{
		IdentityType:   "6",
		IdentityNumber: rucCliente,
		Name:           "Distribuidora del Sur E.I.R.L.",
	}
	return req
}

// ──────────────────────────────────────────────────────────────────────────────
// Emisión
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerate_PrimerComprobanteDeLaSerie(t *testing.T) {
	env := newGenerateEnv(t)

	resp, err := env.uc.Generate(context.Background(), rucEmisor, boletaRequest())
	require.NoError(t, err)

	assert.Equal(t, "B001-00000001", resp.DocumentNumber)
	assert.Equal(t, entity.StatePending, resp.State)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(100)), "subtotal: %s", resp.Subtotal)
	assert.True(t, resp.TaxTotal.Equal(decimal.NewFromInt(18)), "IGV: %s", resp.TaxTotal)
	assert.True(t, resp.GrandTotal.Equal(decimal.NewFromInt(118)), "total: %s", resp.GrandTotal)
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].IGV.Equal(decimal.NewFromInt(18)))

	// El comprobante queda persistido con su XML listo para firmar.
	doc, err := env.docs.GetByNumber(context.Background(), rucEmisor, "B001", 1)
	require.NoError(t, err)
	assert.Contains(t, doc.XML, "<Invoice")
	assert.Contains(t, doc.XML, "B001-00000001")
	assert.Equal(t, entity.StatePending, doc.State)
}

func TestGenerate_CorrelativoSecuencial(t *testing.T) {
	env := newGenerateEnv(t)

	for i, want := range []string{"B001-00000001", "B001-00000002", "B001-00000003"} {
		resp, err := env.uc.Generate(context.Background(), rucEmisor, boletaRequest())
		require.NoError(t, err, "emisión %d", i+1)
		assert.Equal(t, want, resp.DocumentNumber)
	}

	// Una serie distinta numera aparte.
	resp, err := env.uc.Generate(context.Background(), rucEmisor, facturaRequest())
	require.NoError(t, err)
	assert.Equal(t, "F001-00000001", resp.DocumentNumber)
}

func TestGenerate_SerieSeNormalizaAMayusculas(t *testing.T) {
	env := newGenerateEnv(t)
	req := boletaRequest()
	req.Series = "b001"

	resp, err := env.uc.Generate(context.Background(), rucEmisor, req)
	require.NoError(t, err)
	assert.Equal(t, "B001-00000001", resp.DocumentNumber)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rechazos antes de numerar
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerate_EmisorInactivo(t *testing.T) {
	env := newGenerateEnv(t)
	emisor, _ := env.tenants.GetByRUC(context.Background(), rucEmisor)
	emisor.Status = entity.TenantStatusSuspended

	_, err := env.uc.Generate(context.Background(), rucEmisor, boletaRequest())
	assert.ErrorIs(t, err, domain.ErrTenantInactive)
	assert.Zero(t, env.seqs.calls, "un emisor inactivo no consume correlativo")
}

func TestGenerate_EmisorDesconocido(t *testing.T) {
	env := newGenerateEnv(t)
	_, err := env.uc.Generate(context.Background(), "20999999994", boletaRequest())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerate_SolicitudInvalida(t *testing.T) {
	env := newGenerateEnv(t)
	req := boletaRequest()
	req.DocType = "99"

	_, err := env.uc.Generate(context.Background(), rucEmisor, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, env.seqs.calls)
}

// Las reglas SUNAT se aplican antes de reservar correlativo: la solicitud
// inválida no deja ni un hueco en la serie.
func TestGenerate_ReglasSUNATAntesDeNumerar(t *testing.T) {
	env := newGenerateEnv(t)
	req := boletaRequest()
	req.Customer = dto.PartyRequest{
		IdentityType:   "6",
		IdentityNumber: rucCliente,
		Name:           "No corresponde a una boleta",
	}

	_, err := env.uc.Generate(context.Background(), rucEmisor, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainsunat.ErrInvalidDocument)
	assert.Zero(t, env.seqs.calls, "la serie no avanza con solicitudes inválidas")

	// La siguiente emisión válida sigue siendo la número 1.
	resp, err := env.uc.Generate(context.Background(), rucEmisor, boletaRequest())
	require.NoError(t, err)
	assert.Equal(t, "B001-00000001", resp.DocumentNumber)
}

// ──────────────────────────────────────────────────────────────────────────────
// Notas de crédito
// ──────────────────────────────────────────────────────────────────────────────

// La nota de crédito lleva su propia serie (FC01), como exige SUNAT: una
// serie pertenece a un solo tipo de comprobante.
func notaCreditoRequest(referencia string) dto.CreateDocumentRequest {
	req := facturaRequest()
	req.DocType = "07"
	req.Series = "FC01"
	req.ReferencedNumber = referencia
	req.CreditNoteType = "01"
	return req
}

func seedFacturaAceptada(env *generateEnv) {
	env.docs.mustSeed(&entity.Document{
		ID:        uuid.New().String(),
		TenantRUC: rucEmisor,
		DocType:   "01",
		Series:    "F001",
		Sequence:  12,
		State:     entity.StateAccepted,
	}, nil)
}

func TestGenerate_NotaCreditoSobreFacturaAceptada(t *testing.T) {
	env := newGenerateEnv(t)
	seedFacturaAceptada(env)

	resp, err := env.uc.Generate(context.Background(), rucEmisor, notaCreditoRequest("F001-00000012"))
	require.NoError(t, err)
	assert.Equal(t, "FC01-00000001", resp.DocumentNumber, "la nota numera en su propia serie")
	assert.Equal(t, "F001-00000012", resp.ReferencedNumber)

	doc, err := env.docs.GetByNumber(context.Background(), rucEmisor, "FC01", 1)
	require.NoError(t, err)
	assert.Contains(t, doc.XML, "<CreditNote")
}

func TestGenerate_NotaCreditoSinReferenciaAceptada(t *testing.T) {
	env := newGenerateEnv(t)

	// Referencia inexistente.
	_, err := env.uc.Generate(context.Background(), rucEmisor, notaCreditoRequest("F001-00000099"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "no existe")

	// Referencia aún pendiente de envío.
	env.docs.mustSeed(&entity.Document{
		ID:        uuid.New().String(),
		TenantRUC: rucEmisor,
		DocType:   "01",
		Series:    "F001",
		Sequence:  5,
		State:     entity.StatePending,
	}, nil)
	_, err = env.uc.Generate(context.Background(), rucEmisor, notaCreditoRequest("F001-00000005"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solo se puede modificar uno aceptado")

	assert.Zero(t, env.seqs.calls)
}

// La referencia se busca acotada al emisor: la factura aceptada de otro RUC no
// sirve de base para la nota.
func TestGenerate_NotaCreditoNoVeComprobantesAjenos(t *testing.T) {
	env := newGenerateEnv(t)
	env.docs.mustSeed(&entity.Document{
		ID:        uuid.New().String(),
		TenantRUC: rucCliente, // otro emisor
		DocType:   "01",
		Series:    "F001",
		Sequence:  12,
		State:     entity.StateAccepted,
	}, nil)

	_, err := env.uc.Generate(context.Background(), rucEmisor, notaCreditoRequest("F001-00000012"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no existe")
}

// ──────────────────────────────────────────────────────────────────────────────
// Número completo
// ──────────────────────────────────────────────────────────────────────────────

func TestParseDocumentNumber(t *testing.T) {
	series, seq, err := billing.ParseDocumentNumber("b001-00000001")
	require.NoError(t, err)
	assert.Equal(t, "B001", series)
	assert.Equal(t, int64(1), seq)

	series, seq, err = billing.ParseDocumentNumber("F001-42")
	require.NoError(t, err)
	assert.Equal(t, "F001", series)
	assert.Equal(t, int64(42), seq)

	for _, malo := range []string{"", "F001", "F001-", "-42", "F001-cero", "F001-0", "F001--3"} {
		_, _, err := billing.ParseDocumentNumber(malo)
		assert.Error(t, err, "número %q debería rechazarse", malo)
	}
}

func TestGenerate_FechaDeEmisionDelDia(t *testing.T) {
	env := newGenerateEnv(t)
	resp, err := env.uc.Generate(context.Background(), rucEmisor, boletaRequest())
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format("2006-01-02"), resp.IssueDate)
}
