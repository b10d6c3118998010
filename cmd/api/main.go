package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jhoicas/Facturacion-api/docs"
	"github.com/jhoicas/Facturacion-api/internal/application/auth"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/usecase"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	infras3 "github.com/jhoicas/Facturacion-api/internal/infrastructure/s3"
	infrasunat "github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat/signer"
	httpRouter "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	"github.com/jhoicas/Facturacion-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	tenantRepo := postgres.NewTenantRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	certRepo := postgres.NewCertificateRepository(pool)
	docRepo := postgres.NewDocumentRepository(pool)
	seqRepo := postgres.NewSequenceRepository(pool)

	blobs, err := infras3.NewBlobStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("almacén S3")
	}

	sealer, err := security.NewSealer(cfg.Security.SealKey)
	if err != nil {
		log.Fatal().Err(err).Msg("clave de sellado")
	}

	// Ciclo de emisión y envío: XML UBL 2.1 → firma por emisor → ZIP →
	// billService SOAP con reintentos → interpretación del CDR.
	xmlBuilder := infrasunat.NewXMLBuilderService()
	signingSvc := billing.NewSigningService(certRepo, sealer, signer.NewDigitalSignatureService())
	submitter := infrasunat.NewSOAPSUNATClient(cfg.SUNAT)
	retryEngine := billing.NewRetryEngine(cfg.Retry, log)
	interpreter := billing.NewReceiptInterpreter()

	generateUC := billing.NewGenerateDocumentUseCase(docRepo, seqRepo, tenantRepo, xmlBuilder, log)
	submitUC := billing.NewSubmitDocumentUseCase(
		docRepo, tenantRepo, blobs, signingSvc, submitter, retryEngine, interpreter, sealer, log,
	)
	queries := billing.NewDocumentQueries(
		docRepo, seqRepo, blobs,
		time.Duration(cfg.Storage.PresignExpiryMinutes)*time.Minute, log,
	)

	tenantUC := usecase.NewTenantUseCase(tenantRepo, certRepo, sealer)
	userUC := usecase.NewUserUseCase(userRepo)
	authUC := auth.NewAuthUseCase(userRepo, tenantRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// WriteTimeout holgado: el envío a SUNAT es síncrono y una respuesta puede
	// tardar todo el presupuesto de reintentos (esperas + timeout por intento).
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Minute * 3,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		TenantUC:   tenantUC,
		UserUC:     userUC,
		AuthUC:     authUC,
		GenerateUC: generateUC,
		SubmitUC:   submitUC,
		Queries:    queries,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
