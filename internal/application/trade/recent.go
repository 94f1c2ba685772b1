package trade

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// Operation resumen de una operación para elegirla al adjuntar evidencia.
type Operation struct {
	Type    string
	ID      string
	Date    time.Time
	Summary string
}

// RecentOperations últimas operaciones del tipo indicado, la más reciente primero.
func (uc *UseCase) RecentOperations(ctx context.Context, kind string, limit int) ([]Operation, error) {
	var ops []Operation
	switch kind {
	case entity.OperationPurchase:
		list, err := uc.purchases.List(ctx)
		if err != nil {
			return nil, uc.storeErr("recent", err)
		}
		for _, p := range list {
			ops = append(ops, Operation{Type: kind, ID: p.ID, Date: p.Date,
				Summary: fmt.Sprintf("%s · %s kg %s · $%s", p.Supplier, p.Quantity.StringFixed(2), p.Phase.Label(), p.TotalPrice.StringFixed(0))})
		}
	case entity.OperationSale:
		list, err := uc.sales.List(ctx)
		if err != nil {
			return nil, uc.storeErr("recent", err)
		}
		for _, s := range list {
			ops = append(ops, Operation{Type: kind, ID: s.ID, Date: s.Date,
				Summary: fmt.Sprintf("%s · %s kg %s · $%s", s.Customer, s.Quantity.StringFixed(2), s.Phase.Label(), s.Total.StringFixed(0))})
		}
	case entity.OperationAdvance:
		list, err := uc.advances.List(ctx)
		if err != nil {
			return nil, uc.storeErr("recent", err)
		}
		for _, a := range list {
			ops = append(ops, Operation{Type: kind, ID: a.ID, Date: a.Date,
				Summary: fmt.Sprintf("%s · $%s", a.Supplier, a.Amount.StringFixed(0))})
		}
	case entity.OperationExpense:
		list, err := uc.expenses.List(ctx)
		if err != nil {
			return nil, uc.storeErr("recent", err)
		}
		for _, e := range list {
			ops = append(ops, Operation{Type: kind, ID: e.ID, Date: e.Date,
				Summary: fmt.Sprintf("%s · $%s", e.Category, e.Amount.StringFixed(0))})
		}
	default:
		return nil, fmt.Errorf("%w: tipo de operación %q", domain.ErrInvalidInput, kind)
	}
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Date.After(ops[j].Date) })
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}
