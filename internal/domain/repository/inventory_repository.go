package repository

import (
	"context"

	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// InventoryRepository define el puerto para las entradas de la hoja "almacen".
type InventoryRepository interface {
	// List devuelve todas las entradas con su RowIndex.
	List(ctx context.Context) ([]*entity.InventoryEntry, error)
	// ListByPhase devuelve las entradas cuya fase_actual coincide (incluye agotadas).
	ListByPhase(ctx context.Context, phase entity.Phase) ([]*entity.InventoryEntry, error)
	// Create agrega una entrada nueva; asigna RowIndex al volver.
	Create(ctx context.Context, e *entity.InventoryEntry) error
	// UpdateStock persiste cantidad_actual, notas y fecha_actualizacion de la entrada (una celda por columna).
	UpdateStock(ctx context.Context, e *entity.InventoryEntry) error
}
