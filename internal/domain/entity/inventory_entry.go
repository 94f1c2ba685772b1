package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryEntry registro de la hoja "almacen": una cantidad de café en una fase,
// opcionalmente trazable a la compra que la originó.
// Nunca se borra: las entradas agotadas quedan con CurrentQuantity = 0.
type InventoryEntry struct {
	RowIndex        int // índice 0-based de la fila de datos; -1 si aún no está persistida
	ID              string
	PurchaseID      string // compra_id, vacío si no hay trazabilidad
	OriginPhase     Phase  // tipo_cafe_origen
	CreatedAt       time.Time
	Quantity        decimal.Decimal // cantidad original
	CurrentPhase    Phase           // fase_actual
	CurrentQuantity decimal.Decimal // cantidad_actual, siempre >= 0
	Notes           string          // bitácora acumulada de operaciones
	UpdatedAt       time.Time
}

// Available indica si la entrada aún tiene café disponible.
func (e *InventoryEntry) Available() bool {
	return e.CurrentQuantity.GreaterThan(decimal.Zero)
}

// AppendNote agrega una línea a la bitácora de la entrada.
func (e *InventoryEntry) AppendNote(line string) {
	if line == "" {
		return
	}
	if e.Notes == "" {
		e.Notes = line
		return
	}
	e.Notes = e.Notes + " | " + line
}
