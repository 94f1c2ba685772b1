package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// SaleRepository puerto para la hoja "ventas".
type SaleRepository interface {
	List(ctx context.Context) ([]*entity.Sale, error)
	Create(ctx context.Context, s *entity.Sale) error
}

// AdvanceRepository puerto para la hoja "adelantos".
type AdvanceRepository interface {
	List(ctx context.Context) ([]*entity.Advance, error)
	GetByID(ctx context.Context, id string) (*entity.Advance, error)
	Create(ctx context.Context, a *entity.Advance) error
	// UpdateBalance escribe saldo_restante de la fila del adelanto.
	UpdateBalance(ctx context.Context, a *entity.Advance, balance decimal.Decimal) error
}

// ExpenseRepository puerto para la hoja "gastos".
type ExpenseRepository interface {
	List(ctx context.Context) ([]*entity.Expense, error)
	Create(ctx context.Context, e *entity.Expense) error
}

// EvidenceRepository puerto para la hoja "evidencias".
type EvidenceRepository interface {
	Create(ctx context.Context, e *entity.Evidence) error
}
