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

// SaleInput datos de una venta.
type SaleInput struct {
	Phase        entity.Phase
	Customer     string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Notes        string
	RegisteredBy string
}

// RegisterSale descuenta del almacén (FIFO) y agrega la fila de venta.
// Si la fila no se puede escribir, lo descontado se devuelve al almacén.
func (uc *UseCase) RegisterSale(ctx context.Context, in SaleInput) (*entity.Sale, error) {
	if !in.Phase.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPhase, string(in.Phase))
	}
	if err := required("cliente", in.Customer); err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if in.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: el precio no puede ser negativo", domain.ErrInvalidInput)
	}
	customer := strings.TrimSpace(in.Customer)

	consumption, err := uc.ledger.Decrement(ctx, inventory.DecrementInput{
		Phase:    in.Phase,
		Quantity: in.Quantity,
		Reason:   "venta a " + customer,
	})
	if err != nil {
		return nil, err
	}
	s := &entity.Sale{
		ID:           uuid.New().String(),
		Date:         uc.now(),
		Phase:        in.Phase,
		Customer:     customer,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		Total:        in.Quantity.Mul(in.UnitPrice).Round(2),
		EntryIDs:     consumption.EntryIDs(),
		Notes:        in.Notes,
		RegisteredBy: in.RegisteredBy,
	}
	if err := uc.sales.Create(ctx, s); err != nil {
		translated := uc.storeErr("sale", err)
		if rerr := uc.ledger.Restore(ctx, consumption); rerr != nil {
			uc.log.Error().Err(rerr).Bool("critical", true).Str("phase", string(in.Phase)).
				Msg("venta no registrada y stock no restaurado")
		}
		return nil, translated
	}
	uc.log.Info().Str("sale", s.ID).Str("phase", string(s.Phase)).Str("quantity", s.Quantity.String()).
		Msg("venta registrada")
	return s, nil
}
