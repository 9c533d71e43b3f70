// Package worker contiene los procesos de fondo de la aplicación.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tiendapos/facturacion-api/internal/application/billing"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
	pkgafip "github.com/tiendapos/facturacion-api/pkg/afip"
)

// RenewalSummary resultado de una pasada del job sobre todos los CUITs activos.
type RenewalSummary struct {
	Renewed   int
	Unchanged int
	Failed    int
}

// TokenRenewalJob renueva proactivamente los tokens WSAA de todos los CUITs
// con configuración fiscal activa, antes de que entren en el margen de
// renovación. Cada CUIT se procesa de forma aislada: la falla de uno no
// interrumpe la pasada.
type TokenRenewalJob struct {
	configs  repository.TaxConfigurationRepository
	tokens   *billing.TokenManager
	wsfe     billing.InvoiceService
	interval time.Duration
	pause    time.Duration // espera entre CUITs para no ametrallar al WSAA
}

// NewTokenRenewalJob construye el job. interval define cada cuánto corre la
// pasada; pause la espera entre CUITs dentro de una pasada.
func NewTokenRenewalJob(
	configs repository.TaxConfigurationRepository,
	tokens *billing.TokenManager,
	wsfe billing.InvoiceService,
	interval, pause time.Duration,
) *TokenRenewalJob {
	return &TokenRenewalJob{
		configs:  configs,
		tokens:   tokens,
		wsfe:     wsfe,
		interval: interval,
		pause:    pause,
	}
}

// Start lanza el ciclo en una goroutine. Corre una pasada inmediata al
// arrancar y luego una por intervalo, hasta que el contexto se cancele.
func (j *TokenRenewalJob) Start(ctx context.Context) {
	go func() {
		log.Info().Dur("interval", j.interval).Msg("Job de renovación de tokens iniciado")

		j.RunOnce(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Job de renovación de tokens detenido")
				return
			case <-ticker.C:
				j.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce ejecuta una pasada completa: por cada CUIT activo renueva el token
// si hace falta y verifica el acceso al WSFE con una consulta de numeración.
func (j *TokenRenewalJob) RunOnce(ctx context.Context) RenewalSummary {
	var summary RenewalSummary

	configs, err := j.configs.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Renovación de tokens: no se pudieron listar las configuraciones")
		return summary
	}

	seen := make(map[string]bool)
	for _, cfg := range configs {
		if seen[cfg.TaxID] {
			continue // varios puntos de venta pueden compartir CUIT
		}
		seen[cfg.TaxID] = true

		if ctx.Err() != nil {
			return summary
		}

		renewed, err := j.renewOne(ctx, cfg.TaxID, cfg.PointOfSale)
		switch {
		case err != nil:
			summary.Failed++
		case renewed:
			summary.Renewed++
		default:
			summary.Unchanged++
		}

		if j.pause > 0 {
			select {
			case <-ctx.Done():
				return summary
			case <-time.After(j.pause):
			}
		}
	}

	log.Info().
		Int("renewed", summary.Renewed).
		Int("unchanged", summary.Unchanged).
		Int("failed", summary.Failed).
		Msg("Pasada de renovación de tokens completada")
	return summary
}

// renewOne procesa un CUIT. Devuelve si hubo renovación. Los errores se
// registran acá y se resumen arriba: un CUIT con problemas no detiene al resto.
func (j *TokenRenewalJob) renewOne(ctx context.Context, taxID string, pointOfSale int) (bool, error) {
	renewed, err := j.tokens.EnsureFresh(ctx, taxID)
	if err != nil {
		log.Error().Err(err).Str("cuit", taxID).Msg("Renovación de token fallida")
		return false, err
	}

	if renewed {
		// Verificación de humo: el token recién emitido debe servir para una
		// consulta real (numeración del punto de venta). Solo diagnóstico: la
		// numeración local nunca se toca.
		creds, err := j.tokens.GetValidToken(ctx, taxID)
		if err != nil {
			return true, err
		}
		last, err := j.wsfe.LastAuthorizedInvoiceNumber(ctx, creds, pointOfSale, pkgafip.VoucherFacturaB)
		if err != nil {
			log.Warn().Err(err).Str("cuit", taxID).Msg("Token renovado pero la consulta de verificación falló")
			return true, err
		}
		log.Debug().
			Str("cuit", taxID).
			Int("pto_vta", pointOfSale).
			Int64("ultimo_autorizado", last).
			Msg("Token verificado contra WSFE")
	}
	return renewed, nil
}
