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
	"github.com/tiendapos/facturacion-api/internal/application/billing"
	infraafip "github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
	"github.com/tiendapos/facturacion-api/internal/infrastructure/postgres"
	httpRouter "github.com/tiendapos/facturacion-api/internal/interfaces/http"
	"github.com/tiendapos/facturacion-api/internal/worker"
	"github.com/tiendapos/facturacion-api/pkg/config"
	"github.com/tiendapos/facturacion-api/pkg/logger"
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
		Str("afip_env", cfg.AFIP.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	configRepo := postgres.NewTaxConfigurationRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	attemptRepo := postgres.NewRetryAttemptRepository(pool)
	contingencyRepo := postgres.NewContingencyRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)

	// El registro de firmantes se arma una sola vez: un certificado ilegible
	// debe abortar el arranque, no fallar en medio de una venta.
	registry := billing.NewSignerRegistry()
	signer, err := buildSigner(cfg.AFIP)
	if err != nil {
		log.Fatal().Err(err).Msg("certificado AFIP inutilizable")
	}
	if signer != nil {
		startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		configs, err := configRepo.ListActive(startupCtx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("listar configuraciones fiscales")
		}
		seen := make(map[string]bool)
		for _, tc := range configs {
			if seen[tc.TaxID] {
				continue
			}
			seen[tc.TaxID] = true
			registry.Register(tc.TaxID, signer)
			log.Info().Str("cuit", tc.TaxID).Str("subject", signer.Subject()).Msg("certificado registrado")
		}
	} else {
		log.Warn().Msg("sin certificado AFIP configurado: la emisión de comprobantes fallará")
	}

	wsaaClient := infraafip.NewWSAAClient(cfg.AFIP.Env)
	wsfeClient := infraafip.NewWSFEClient(cfg.AFIP.Env)

	tokenManager := billing.NewTokenManager(tokenRepo, wsaaClient, registry, cfg.AFIP.Service)
	issuer := billing.NewInvoiceIssuer(invoiceRepo, saleRepo, configRepo, contingencyRepo, tokenManager, wsfeClient)
	retryCoordinator := billing.NewRetryCoordinator(invoiceRepo, attemptRepo, issuer)

	jobCtx, stopJob := context.WithCancel(ctx)
	defer stopJob()
	renewalJob := worker.NewTokenRenewalJob(
		configRepo, tokenManager, wsfeClient,
		time.Duration(cfg.AFIP.RenewalIntervalMin)*time.Minute,
		time.Duration(cfg.AFIP.RenewalPauseMS)*time.Millisecond,
	)
	renewalJob.Start(jobCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
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

	httpRouter.Router(app, httpRouter.RouterDeps{
		Issuer:        issuer,
		Retry:         retryCoordinator,
		Tokens:        tokenManager,
		WSFE:          wsfeClient,
		Invoices:      invoiceRepo,
		Contingencies: contingencyRepo,
		Configs:       configRepo,
		JWTSecret:     cfg.JWT.Secret,
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
	stopJob()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// buildSigner construye el firmante de tickets desde la configuración.
// Prioridad: par PEM en base64; si no, archivo .p12. Sin material devuelve nil
// (la API arranca igual para consultas, la emisión fallará con ErrCertificate).
func buildSigner(cfg config.AFIPConfig) (*infraafip.TicketSigner, error) {
	switch {
	case cfg.CertB64 != "" && cfg.KeyB64 != "":
		return infraafip.NewTicketSignerFromBase64(cfg.CertB64, cfg.KeyB64)
	case cfg.CertPath != "":
		return infraafip.NewTicketSignerFromP12(cfg.CertPath, cfg.CertPassword)
	default:
		return nil, nil
	}
}
