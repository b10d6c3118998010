package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// respuestaPara ejecuta writeDomainError con err y devuelve status y cuerpo.
func respuestaPara(t *testing.T, err error) (int, dto.ErrorResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/error", func(c *fiber.Ctx) error {
		return writeDomainError(c, err)
	})

	resp, testErr := app.Test(httptest.NewRequest("GET", "/error", nil), -1)
	require.NoError(t, testErr)
	defer resp.Body.Close()

	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestWriteDomainError_Validacion(t *testing.T) {
	err := fmt.Errorf("generar comprobante: %w",
		domain.NewValidationError("series", "no cumple el formato de serie"))

	status, body := respuestaPara(t, err)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.Equal(t, []string{"series: no cumple el formato de serie"}, body.Details)
}

func TestWriteDomainError_ValidacionesAgrupadas(t *testing.T) {
	// los validadores juntan varios ValidationError con errors.Join; todos
	// deben llegar al cuerpo de la respuesta, en orden
	err := fmt.Errorf("generar comprobante: %w", errors.Join(
		domain.NewValidationError("customer.identity_type", "la factura exige RUC"),
		domain.NewValidationError("lines[0].quantity", "la cantidad debe ser positiva"),
	))

	status, body := respuestaPara(t, err)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.Equal(t, []string{
		"customer.identity_type: la factura exige RUC",
		"lines[0].quantity: la cantidad debe ser positiva",
	}, body.Details)
}

func TestWriteDomainError_Certificado(t *testing.T) {
	casos := []struct {
		nombre string
		kind   string
		code   string
	}{
		{"vencido", domain.CertExpired, "CERTIFICADO_VENCIDO"},
		{"titular distinto", domain.CertOwnershipMismatch, "TITULAR_DISTINTO"},
		{"no encontrado", domain.CertNotFound, "CERTIFICADO_NO_ENCONTRADO"},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			err := fmt.Errorf("firmar comprobante: %w",
				&domain.CertificateError{Kind: c.kind, Detail: "detalle del fallo"})

			status, body := respuestaPara(t, err)

			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, c.code, body.Code)
			assert.Equal(t, "detalle del fallo", body.Message)
		})
	}
}

func TestWriteDomainError_Sentinelas(t *testing.T) {
	casos := []struct {
		nombre string
		err    error
		status int
		code   string
	}{
		{"no encontrado", domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
		{"usuario no encontrado", domain.ErrUserNotFound, fiber.StatusNotFound, "NOT_FOUND"},
		// los recursos de otro emisor responden igual que los inexistentes
		{"recurso ajeno", domain.ErrOwnershipViolation, fiber.StatusNotFound, "NOT_FOUND"},
		{"email duplicado", domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS"},
		{"duplicado", domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
		{"conflicto de estado", domain.ErrConflict, fiber.StatusBadRequest, "STATE_CONFLICT"},
		{"emisor inactivo", domain.ErrTenantInactive, fiber.StatusBadRequest, "TENANT_INACTIVE"},
		{"no autorizado", domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"prohibido", domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			// los casos de uso siempre envuelven; el mapeo va por errors.Is
			status, body := respuestaPara(t, fmt.Errorf("caso de uso: %w", c.err))

			assert.Equal(t, c.status, status)
			assert.Equal(t, c.code, body.Code)
		})
	}
}

func TestWriteDomainError_ConflictoConservaElMensaje(t *testing.T) {
	err := fmt.Errorf("el comprobante F001-00000001 ya tiene un envío en curso: %w", domain.ErrConflict)

	status, body := respuestaPara(t, err)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "STATE_CONFLICT", body.Code)
	assert.Equal(t, err.Error(), body.Message,
		"el conflicto explica qué transición se rechazó")
}

func TestWriteDomainError_Desconocido(t *testing.T) {
	status, body := respuestaPara(t, errors.New("conexión a la base perdida"))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.Equal(t, "conexión a la base perdida", body.Message)
}
