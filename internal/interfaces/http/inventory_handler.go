package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/application/dto"
	appinventory "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// InventoryHandler consulta y sincronización del almacén (protegido).
type InventoryHandler struct {
	ledger *appinventory.Ledger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *appinventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// Stock existencias por fase.
// GET /api/almacen
func (h *InventoryHandler) Stock(c *fiber.Ctx) error {
	summary, err := h.ledger.Summary(c.Context())
	if err != nil {
		return storeError(c, err)
	}
	out := dto.StockResponse{Phases: make([]dto.PhaseStockDTO, 0, len(summary)), TotalKg: decimal.Zero}
	for _, s := range summary {
		out.Phases = append(out.Phases, dto.PhaseStockDTO{
			Phase:    string(s.Phase),
			Label:    s.Phase.Label(),
			Quantity: s.Quantity,
			Lots:     s.Lots,
		})
		out.TotalKg = out.TotalKg.Add(s.Quantity)
	}
	return c.JSON(out)
}

// Lots lotes disponibles de una fase, en orden FIFO.
// GET /api/almacen/:fase/lotes
func (h *InventoryHandler) Lots(c *fiber.Ctx) error {
	phase, ok := entity.ParsePhase(c.Params("fase"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_PHASE", Message: "fase de café inválida"})
	}
	lots := h.ledger.Lots(c.Context(), phase)
	out := make([]dto.LotDTO, 0, len(lots))
	for _, l := range lots {
		item := dto.LotDTO{
			EntryID:          l.EntryID,
			PurchaseID:       l.PurchaseID,
			Supplier:         l.Supplier,
			UnitPrice:        l.UnitPrice,
			OriginPhase:      string(l.OriginPhase),
			CreatedAt:        l.CreatedAt,
			OriginalQuantity: l.OriginalQuantity,
			Quantity:         l.Quantity,
		}
		if !l.PurchaseDate.IsZero() {
			d := l.PurchaseDate
			item.PurchaseDate = &d
		}
		out = append(out, item)
	}
	return c.JSON(fiber.Map{"fase": phase, "total": len(out), "lotes": out})
}

// Reconcile crea las entradas faltantes para compras sin inventario (solo admin).
// POST /api/almacen/sincronizar
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	res, err := h.ledger.Reconcile(c.Context())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(dto.ReconcileResponse{Created: len(res.Created), Skipped: res.Skipped, Invalid: res.Invalid})
}

// storeError traduce errores del almacén tabular a respuestas HTTP.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrSchema):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "SCHEMA", Message: "estructura de hoja inválida"})
	case errors.Is(err, domain.ErrStorage):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE", Message: "almacén no disponible, intente más tarde"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}
