package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/application/usecase"
)

// TenantHandler maneja las peticiones HTTP para el recurso Tenant (emisor).
type TenantHandler struct {
	uc *usecase.TenantUseCase
}

// NewTenantHandler construye el handler inyectando el caso de uso.
func NewTenantHandler(uc *usecase.TenantUseCase) *TenantHandler {
	return &TenantHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar emisor
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTenantRequest  true  "Datos del emisor"
// @Success      201   {object}  dto.TenantResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/tenants [post]
func (h *TenantHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTenantRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByRUC godoc
// @Summary      Obtener emisor por RUC
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        ruc  path  string  true  "RUC del emisor"
// @Success      200  {object}  dto.TenantResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tenants/{ruc} [get]
func (h *TenantHandler) GetByRUC(c *fiber.Ctx) error {
	ruc := c.Params("ruc")
	if ruc == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ruc requerido"})
	}
	out, err := h.uc.GetByRUC(c.Context(), ruc)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar emisores
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200  {object}  dto.TenantListResponse
// @Router       /api/tenants [get]
func (h *TenantHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if page.Limit > 100 {
		page.Limit = 100
	}
	out, err := h.uc.List(c.Context(), page)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar emisor
// @Description  Actualización parcial. Solo el propio emisor puede modificarse.
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ruc   path  string  true  "RUC del emisor"
// @Param        body  body  dto.UpdateTenantRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.TenantResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/tenants/{ruc} [put]
func (h *TenantHandler) Update(c *fiber.Ctx) error {
	ruc := c.Params("ruc")
	if ruc == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ruc requerido"})
	}
	if ruc != GetTenantRUC(c) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo puede operar sobre su propio emisor"})
	}
	var in dto.UpdateTenantRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Update(c.Context(), ruc, in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// UploadCertificate godoc
// @Summary      Subir certificado de firma
// @Description  Recibe el PKCS#12 en base64 con su frase de paso, valida vigencia y titularidad, y lo guarda sellado.
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ruc   path  string  true  "RUC del emisor"
// @Param        body  body  dto.UploadCertificateRequest  true  "Certificado PKCS#12"
// @Success      200   {object}  dto.CertificateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/tenants/{ruc}/certificate [post]
func (h *TenantHandler) UploadCertificate(c *fiber.Ctx) error {
	ruc := c.Params("ruc")
	if ruc == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ruc requerido"})
	}
	if ruc != GetTenantRUC(c) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo puede operar sobre su propio emisor"})
	}
	var in dto.UploadCertificateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.UploadCertificate(c.Context(), ruc, in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// GetCertificate godoc
// @Summary      Consultar certificado vigente
// @Description  Metadatos del certificado del emisor (titular, serie, vigencia). Nunca expone la clave.
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        ruc  path  string  true  "RUC del emisor"
// @Success      200  {object}  dto.CertificateResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tenants/{ruc}/certificate [get]
func (h *TenantHandler) GetCertificate(c *fiber.Ctx) error {
	ruc := c.Params("ruc")
	if ruc == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ruc requerido"})
	}
	if ruc != GetTenantRUC(c) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo puede operar sobre su propio emisor"})
	}
	out, err := h.uc.GetCertificate(c.Context(), ruc)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}
