package repository

import (
	"context"

	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// ProcessRepository define el puerto para la bitácora de transformaciones (hoja "proceso").
type ProcessRepository interface {
	List(ctx context.Context) ([]*entity.ProcessEvent, error)
	Create(ctx context.Context, ev *entity.ProcessEvent) error
}
