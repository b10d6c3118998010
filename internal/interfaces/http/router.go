package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturacion-api/internal/application/auth"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/usecase"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	TenantUC   *usecase.TenantUseCase
	UserUC     *usecase.UserUseCase
	AuthUC     *auth.AuthUseCase
	GenerateUC *billing.GenerateDocumentUseCase
	SubmitUC   *billing.SubmitDocumentUseCase
	Queries    *billing.DocumentQueries
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Alta de emisores (público: es el punto de entrada del onboarding,
	// antes de que exista usuario alguno para ese RUC)
	tenantHandler := NewTenantHandler(deps.TenantUC)
	api.Post("/tenants", tenantHandler.Create)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Tenants (protegido; mutaciones solo admin)
	tenants := protected.Group("/tenants")
	tenants.Get("/", tenantHandler.List)
	tenants.Get("/:ruc", tenantHandler.GetByRUC)
	tenants.Put("/:ruc", RequireRole(entity.RoleAdmin), tenantHandler.Update)
	tenants.Post("/:ruc/certificate", RequireRole(entity.RoleAdmin), tenantHandler.UploadCertificate)
	tenants.Get("/:ruc/certificate", tenantHandler.GetCertificate)

	// Users (protegido)
	users := protected.Group("/users")
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.GetByID)

	// Documents (protegido; emitir y enviar requieren rol emisor o admin)
	documents := protected.Group("/documents")
	documentHandler := NewDocumentHandler(deps.GenerateUC, deps.SubmitUC, deps.Queries)
	documents.Post("/", RequireRole(entity.RoleAdmin, entity.RoleEmisor), documentHandler.Generate)
	documents.Get("/", documentHandler.List)
	documents.Get("/:number", documentHandler.GetStatus)
	documents.Get("/:number/detail", documentHandler.GetDetail)
	documents.Get("/:number/xml", documentHandler.DownloadXML)
	documents.Get("/:number/qr", documentHandler.GetQR)
	documents.Post("/:number/submit", RequireRole(entity.RoleAdmin, entity.RoleEmisor), documentHandler.Submit)

	// Sequences (protegido, solo lectura)
	protected.Get("/sequences", documentHandler.ListSequences)
}
