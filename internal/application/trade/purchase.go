package trade

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// PurchaseInput datos de una compra.
type PurchaseInput struct {
	Phase        entity.Phase
	Supplier     string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Notes        string
	RegisteredBy string
}

// PurchaseResult compra registrada y su entrada de almacén.
type PurchaseResult struct {
	Purchase *entity.Purchase
	Entry    *entity.InventoryEntry
	// InventoryErr la compra quedó registrada pero no su entrada de almacén; /sincronizar la repara.
	InventoryErr error
}

func validatePurchase(in PurchaseInput) error {
	if !in.Phase.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPhase, string(in.Phase))
	}
	if err := required("proveedor", in.Supplier); err != nil {
		return err
	}
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if in.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: el precio no puede ser negativo", domain.ErrInvalidInput)
	}
	return nil
}

// RegisterPurchase agrega la fila de compra y crea su entrada en el almacén.
func (uc *UseCase) RegisterPurchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	if err := validatePurchase(in); err != nil {
		return nil, err
	}
	p := &entity.Purchase{
		ID:           uuid.New().String(),
		Date:         uc.now(),
		Phase:        in.Phase,
		Supplier:     strings.TrimSpace(in.Supplier),
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		RegisteredBy: in.RegisteredBy,
		Notes:        in.Notes,
	}
	p.TotalPrice = p.ComputeTotal()
	if err := uc.purchases.Create(ctx, p); err != nil {
		return nil, uc.storeErr("purchase", err)
	}
	res := &PurchaseResult{Purchase: p}
	res.Entry, res.InventoryErr = uc.ledger.Increment(ctx, inventory.IncrementInput{
		Phase:      p.Phase,
		Quantity:   p.Quantity,
		PurchaseID: p.ID,
		CreatedAt:  p.Date,
		Notes:      "compra a " + p.Supplier,
	})
	if res.InventoryErr != nil {
		uc.log.Warn().Err(res.InventoryErr).Str("purchase", p.ID).Msg("compra sin entrada de almacén")
	}
	uc.log.Info().Str("purchase", p.ID).Str("supplier", p.Supplier).Str("quantity", p.Quantity.String()).
		Msg("compra registrada")
	return res, nil
}
