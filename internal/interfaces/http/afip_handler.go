package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tiendapos/facturacion-api/internal/application/billing"
	"github.com/tiendapos/facturacion-api/internal/application/dto"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
	pkgafip "github.com/tiendapos/facturacion-api/pkg/afip"
)

// AFIPHandler operaciones de diagnóstico contra los webservices de AFIP
// (protegido). Solo consulta: jamás altera la numeración local.
type AFIPHandler struct {
	tokens  *billing.TokenManager
	wsfe    billing.InvoiceService
	configs repository.TaxConfigurationRepository
}

// NewAFIPHandler construye el handler.
func NewAFIPHandler(tokens *billing.TokenManager, wsfe billing.InvoiceService, configs repository.TaxConfigurationRepository) *AFIPHandler {
	return &AFIPHandler{tokens: tokens, wsfe: wsfe, configs: configs}
}

// LastNumber consulta el último comprobante autorizado por AFIP para la
// sucursal del operador. Sirve para verificar conectividad y comparar
// numeración; el valor no se usa para numerar localmente.
// GET /api/afip/last-number?voucher_type=6
func (h *AFIPHandler) LastNumber(c *fiber.Ctx) error {
	branchID := GetBranchID(c)
	if branchID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}

	cfg, err := h.configs.FindActiveByBranch(c.Context(), branchID)
	if err != nil {
		return mapDomainError(c, err)
	}
	if cfg == nil {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_TAX_CONFIG", Message: "la sucursal no tiene configuración fiscal activa"})
	}

	voucherType := c.QueryInt("voucher_type", pkgafip.VoucherFacturaB)

	creds, err := h.tokens.GetValidToken(c.Context(), cfg.TaxID)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "AFIP_AUTH", Message: err.Error()})
	}
	last, err := h.wsfe.LastAuthorizedInvoiceNumber(c.Context(), creds, cfg.PointOfSale, voucherType)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "AFIP_WSFE", Message: err.Error()})
	}

	return c.JSON(dto.LastNumberResponse{
		TaxID:       cfg.TaxID,
		PointOfSale: cfg.PointOfSale,
		VoucherType: voucherType,
		LastNumber:  last,
	})
}
