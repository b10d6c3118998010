package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// writeDomainError traduce un error de dominio a la respuesta HTTP que le
// corresponde. Los casos de uso envuelven sus errores (fmt.Errorf %w), así que
// la comparación va por errors.Is / errors.As y no por igualdad directa.
func writeDomainError(c *fiber.Ctx, err error) error {
	var cerr *domain.CertificateError
	if errors.As(err, &cerr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    strings.ToUpper(cerr.Kind),
			Message: cerr.Detail,
		})
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: "entrada inválida",
			Details: validationDetails(err),
		})
	}
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrOwnershipViolation):
		// No se revela la existencia de recursos de otro emisor.
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "EMAIL_EXISTS", Message: "el email ya está registrado en este emisor"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "STATE_CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrTenantInactive):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "TENANT_INACTIVE", Message: "el emisor está inactivo o suspendido"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

// validationDetails recorre el árbol de errores (incluye errors.Join) y junta
// cada ValidationError como "campo: motivo" para el cuerpo de la respuesta.
func validationDetails(err error) []string {
	var details []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ve, ok := e.(*domain.ValidationError); ok {
			details = append(details, fmt.Sprintf("%s: %s", ve.Field, ve.Reason))
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, sub := range u.Unwrap() {
				walk(sub)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return details
}
