package repository

import (
	"context"

	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// PurchaseRepository define el puerto para la hoja "compras" (solo agregar y leer).
type PurchaseRepository interface {
	List(ctx context.Context) ([]*entity.Purchase, error)
	GetByID(ctx context.Context, id string) (*entity.Purchase, error)
	Create(ctx context.Context, p *entity.Purchase) error
}
