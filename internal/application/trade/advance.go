package trade

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// AdvanceInput datos de un adelanto a proveedor.
type AdvanceInput struct {
	Supplier     string
	Amount       decimal.Decimal
	Notes        string
	RegisteredBy string
}

// RegisterAdvance agrega un adelanto con saldo igual al monto.
func (uc *UseCase) RegisterAdvance(ctx context.Context, in AdvanceInput) (*entity.Advance, error) {
	if err := required("proveedor", in.Supplier); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: el monto debe ser mayor que cero", domain.ErrInvalidInput)
	}
	a := &entity.Advance{
		ID:           uuid.New().String(),
		Date:         uc.now(),
		Supplier:     strings.TrimSpace(in.Supplier),
		Amount:       in.Amount,
		Balance:      in.Amount,
		Notes:        in.Notes,
		RegisteredBy: in.RegisteredBy,
	}
	if err := uc.advances.Create(ctx, a); err != nil {
		return nil, uc.storeErr("advance", err)
	}
	uc.log.Info().Str("advance", a.ID).Str("supplier", a.Supplier).Str("amount", a.Amount.String()).Msg("adelanto registrado")
	return a, nil
}

// OpenAdvances adelantos con saldo pendiente, del más antiguo al más reciente.
func (uc *UseCase) OpenAdvances(ctx context.Context) ([]*entity.Advance, error) {
	all, err := uc.advances.List(ctx)
	if err != nil {
		return nil, uc.storeErr("advances", err)
	}
	out := make([]*entity.Advance, 0, len(all))
	for _, a := range all {
		if a.Balance.IsPositive() {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// AdvancePurchaseInput compra pagada con el saldo de un adelanto.
type AdvancePurchaseInput struct {
	AdvanceID    string
	Phase        entity.Phase
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Notes        string
	RegisteredBy string
}

// AdvancePurchaseResult compra registrada y adelanto con el saldo actualizado.
type AdvancePurchaseResult struct {
	PurchaseResult
	Advance *entity.Advance
}

// RegisterAdvancePurchase descuenta el total del saldo del adelanto y registra la compra.
// Rechaza con ErrInsufficientBalance si el total supera el saldo.
func (uc *UseCase) RegisterAdvancePurchase(ctx context.Context, in AdvancePurchaseInput) (*AdvancePurchaseResult, error) {
	if err := required("adelanto", in.AdvanceID); err != nil {
		return nil, err
	}
	unlock := uc.locks.Lock("adelanto:" + in.AdvanceID)
	defer unlock()

	a, err := uc.advances.GetByID(ctx, in.AdvanceID)
	if err != nil {
		return nil, uc.storeErr("advance_purchase", err)
	}
	if a == nil {
		return nil, domain.ErrNotFound
	}
	pin := PurchaseInput{
		Phase:        in.Phase,
		Supplier:     a.Supplier,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		Notes:        joinNotes(in.Notes, "pagado con adelanto del "+a.Date.Format("2006-01-02")),
		RegisteredBy: in.RegisteredBy,
	}
	if err := validatePurchase(pin); err != nil {
		return nil, err
	}
	total := in.Quantity.Mul(in.UnitPrice).Round(2)
	if total.GreaterThan(a.Balance) {
		return nil, fmt.Errorf("%w: total %s, saldo %s", domain.ErrInsufficientBalance, total.StringFixed(2), a.Balance.StringFixed(2))
	}

	previous := a.Balance
	if err := uc.advances.UpdateBalance(ctx, a, previous.Sub(total)); err != nil {
		return nil, uc.storeErr("advance_purchase", err)
	}
	pr, err := uc.RegisterPurchase(ctx, pin)
	if err != nil {
		if rerr := uc.advances.UpdateBalance(ctx, a, previous); rerr != nil {
			uc.log.Error().Err(rerr).Bool("critical", true).Str("advance", a.ID).
				Str("restore_to", previous.String()).Msg("no se pudo restaurar el saldo del adelanto")
		}
		return nil, err
	}
	return &AdvancePurchaseResult{PurchaseResult: *pr, Advance: a}, nil
}

func joinNotes(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}
