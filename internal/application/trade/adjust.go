package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// AdjustMode tipo de ajuste manual del almacén.
type AdjustMode string

const (
	AdjustAdd      AdjustMode = "agregar"
	AdjustSubtract AdjustMode = "restar"
	AdjustSet      AdjustMode = "establecer"
)

// ParseAdjustMode interpreta el modo escrito por el usuario.
func ParseAdjustMode(raw string) (AdjustMode, bool) {
	switch AdjustMode(entity.NormalizePhase(raw)) {
	case "AGREGAR", "SUMAR":
		return AdjustAdd, true
	case "RESTAR", "QUITAR":
		return AdjustSubtract, true
	case "ESTABLECER", "FIJAR":
		return AdjustSet, true
	}
	return "", false
}

// AdjustInput ajuste manual de una fase.
type AdjustInput struct {
	Phase        entity.Phase
	Mode         AdjustMode
	Quantity     decimal.Decimal
	Notes        string
	RegisteredBy string
}

// AdjustInventory aplica un ajuste manual y devuelve el disponible resultante de la fase.
func (uc *UseCase) AdjustInventory(ctx context.Context, in AdjustInput) (decimal.Decimal, error) {
	notes := joinNotes("ajuste manual", in.Notes, "por "+in.RegisteredBy)
	var err error
	switch in.Mode {
	case AdjustAdd:
		_, err = uc.ledger.Increment(ctx, inventory.IncrementInput{Phase: in.Phase, Quantity: in.Quantity, Notes: notes})
	case AdjustSubtract:
		_, err = uc.ledger.Decrement(ctx, inventory.DecrementInput{Phase: in.Phase, Quantity: in.Quantity, Reason: notes})
	case AdjustSet:
		_, err = uc.ledger.SetQuantity(ctx, in.Phase, in.Quantity, notes)
	default:
		return decimal.Zero, fmt.Errorf("%w: modo de ajuste %q", domain.ErrInvalidInput, string(in.Mode))
	}
	if err != nil {
		return decimal.Zero, err
	}
	return uc.ledger.Available(ctx, in.Phase), nil
}
