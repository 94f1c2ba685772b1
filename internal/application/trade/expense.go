package trade

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// ExpenseCategories categorías sugeridas en el teclado de /gasto. Se acepta cualquier texto.
var ExpenseCategories = []string{"transporte", "mano de obra", "insumos", "servicios", "mantenimiento", "otros"}

// ExpenseInput datos de un gasto.
type ExpenseInput struct {
	Category     string
	Amount       decimal.Decimal
	Description  string
	RegisteredBy string
}

// RegisterExpense agrega la fila de gasto.
func (uc *UseCase) RegisterExpense(ctx context.Context, in ExpenseInput) (*entity.Expense, error) {
	if err := required("categoría", in.Category); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: el monto debe ser mayor que cero", domain.ErrInvalidInput)
	}
	e := &entity.Expense{
		ID:           uuid.New().String(),
		Date:         uc.now(),
		Category:     strings.ToLower(strings.TrimSpace(in.Category)),
		Amount:       in.Amount,
		Description:  in.Description,
		RegisteredBy: in.RegisteredBy,
	}
	if err := uc.expenses.Create(ctx, e); err != nil {
		return nil, uc.storeErr("expense", err)
	}
	uc.log.Info().Str("expense", e.ID).Str("category", e.Category).Str("amount", e.Amount.String()).Msg("gasto registrado")
	return e, nil
}
