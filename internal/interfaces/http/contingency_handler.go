package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tiendapos/facturacion-api/internal/application/dto"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

// ContingencyHandler expone las contingencias pendientes de revisión (protegido).
type ContingencyHandler struct {
	contingencies repository.ContingencyRepository
}

// NewContingencyHandler construye el handler.
func NewContingencyHandler(contingencies repository.ContingencyRepository) *ContingencyHandler {
	return &ContingencyHandler{contingencies: contingencies}
}

// ListOpen lista las contingencias sin resolver, la más antigua primero.
// GET /api/contingencies
func (h *ContingencyHandler) ListOpen(c *fiber.Ctx) error {
	list, err := h.contingencies.ListOpen(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.ContingencyResponse, 0, len(list))
	for _, cont := range list {
		out = append(out, dto.FromContingency(cont))
	}
	return c.JSON(out)
}
