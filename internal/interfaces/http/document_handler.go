package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// DocumentHandler maneja las peticiones HTTP del recurso Document: emisión,
// envío a SUNAT y consultas. El RUC del emisor sale siempre del token JWT.
type DocumentHandler struct {
	generateUC *billing.GenerateDocumentUseCase
	submitUC   *billing.SubmitDocumentUseCase
	queries    *billing.DocumentQueries
}

// NewDocumentHandler construye el handler inyectando los casos de uso.
func NewDocumentHandler(generateUC *billing.GenerateDocumentUseCase, submitUC *billing.SubmitDocumentUseCase, queries *billing.DocumentQueries) *DocumentHandler {
	return &DocumentHandler{generateUC: generateUC, submitUC: submitUC, queries: queries}
}

// Generate godoc
// @Summary      Emitir comprobante
// @Description  Valida, numera y construye el XML UBL 2.1. El comprobante queda en estado PENDING.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateDocumentRequest  true  "Datos del comprobante"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/documents [post]
func (h *DocumentHandler) Generate(c *fiber.Ctx) error {
	tenantRUC := GetTenantRUC(c)
	if tenantRUC == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_ruc no encontrado en el token"})
	}
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.generateUC.Generate(c.Context(), tenantRUC, in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Submit godoc
// @Summary      Enviar comprobante a SUNAT
// @Description  Firma, empaqueta y transmite el comprobante con reintentos. Devuelve el estado resultante.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        number  path  string  true  "Número completo (p.ej. F001-00000042)"
// @Success      200  {object}  dto.SubmitResultResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Failure      504  {object}  dto.ErrorResponse
// @Router       /api/documents/{number}/submit [post]
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	tenantRUC := GetTenantRUC(c)
	if tenantRUC == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_ruc no encontrado en el token"})
	}
	number := c.Params("number")
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "number requerido"})
	}
	out, err := h.submitUC.Submit(c.Context(), tenantRUC, number)
	if err != nil {
		// Agotamiento de reintentos: el error viene envuelto con la última
		// clase de transporte y decide el código HTTP terminal.
		var terr *domain.TransportError
		if errors.As(err, &terr) {
			switch terr.Kind {
			case domain.TransportTimeout:
				return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{Code: "TIMEOUT", Message: err.Error()})
			case domain.TransportNonRecoverable:
				return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "AUTHORITY_ERROR", Message: err.Error()})
			default:
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "RETRY_EXHAUSTED", Message: err.Error()})
			}
		}
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// GetStatus godoc
// @Summary      Consultar estado de un comprobante
// @Description  Estado del ciclo de vida, constancia (con URL de descarga del CDR) y registro de errores de transmisión.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        number  path  string  true  "Número completo"
// @Success      200  {object}  dto.DocumentStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{number} [get]
func (h *DocumentHandler) GetStatus(c *fiber.Ctx) error {
	tenantRUC := GetTenantRUC(c)
	if tenantRUC == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_ruc no encontrado en el token"})
	}
	number := c.Params("number")
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "number requerido"})
	}
	out, err := h.queries.GetStatus(c.Context(), tenantRUC, number)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// GetDetail godoc
// @Summary      Detalle de un comprobante
// @Description  Comprobante completo con líneas y totales.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        number  path  string  true  "Número completo"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{number}/detail [get]
func (h *DocumentHandler) GetDetail(c *fiber.Ctx) error {
	tenantRUC := GetTenantRUC(c)
	if tenantRUC == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_ruc no encontrado en el token"})
	}
	number := c.Params("number")
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "number requerido"})
	}
	out, err := h.queries.GetDetail(c.Context(), tenantRUC, number)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar comprobantes del emisor
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200  {object}  dto.DocumentListResponse
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	tenantRUC := GetTenantRUC(c)
	if tenantRUC == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_ruc no encontrado en el token"})
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if page.Limit > 100 {
		page.Limit = 100
	}
	out, err := h.queries.List(c.Context(), tenantRUC, page)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// DownloadXML godoc
// @Summary      Descargar el XML firmado
// @Tags         documents
// @Produce      xml
// @Security     BearerAuth
// @Param        number  path  string  true  "Número completo"
// @Success      200  {string}  string  "XML UBL 2.1 firmado"
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{number}/xml [get]
func (h *DocumentHandler) DownloadXML(c *fiber.Ctx) error {
	tenantRUC := GetTenantRUC(c)
	if tenantRUC == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_ruc no encontrado en el token"})
	}
	number := c.Params("number")
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "number requerido"})
	}
	data, filename, err := h.queries.DownloadSignedXML(c.Context(), tenantRUC, number)
	if err != nil {
		return writeDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

// GetQR godoc
// @Summary      Código QR de la representación impresa
// @Description  Cadena del QR (R.S. 193-2020/SUNAT) con el valor resumen de la firma. Solo para comprobantes firmados.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        number  path  string  true  "Número completo"
// @Success      200  {object}  dto.QRPayloadResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{number}/qr [get]
func (h *DocumentHandler) GetQR(c *fiber.Ctx) error {
	tenantRUC := GetTenantRUC(c)
	if tenantRUC == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_ruc no encontrado en el token"})
	}
	number := c.Params("number")
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "number requerido"})
	}
	out, err := h.queries.GetQRPayload(c.Context(), tenantRUC, number)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}

// ListSequences godoc
// @Summary      Listar correlativos del emisor
// @Description  Último correlativo emitido por tipo de comprobante y serie.
// @Tags         sequences
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.SequenceResponse
// @Router       /api/sequences [get]
func (h *DocumentHandler) ListSequences(c *fiber.Ctx) error {
	tenantRUC := GetTenantRUC(c)
	if tenantRUC == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant_ruc no encontrado en el token"})
	}
	out, err := h.queries.ListSequences(c.Context(), tenantRUC)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(out)
}
