package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// ConsumptionStep cuánto se toma de una entrada concreta.
type ConsumptionStep struct {
	Entry     *entity.InventoryEntry
	Take      decimal.Decimal
	Remaining decimal.Decimal // cantidad_actual de la entrada después del paso
}

// Plan resultado de planificar un consumo FIFO sobre una instantánea de entradas.
type Plan struct {
	Steps     []ConsumptionStep
	Requested decimal.Decimal
	Available decimal.Decimal // suma de cantidad_actual de las entradas elegibles
	Shortfall decimal.Decimal // > 0 si las entradas no alcanzan
}

// Sufficient indica si el plan cubre toda la cantidad solicitada.
func (p Plan) Sufficient() bool {
	return !p.Shortfall.GreaterThan(decimal.Zero)
}

// PlanConsumption ordena las entradas elegibles (cantidad_actual > 0) por fecha de creación
// ascendente y toma min(restante, disponible) de cada una hasta cubrir quantity.
// Si preferredPurchaseIDs no está vacío, las entradas de esas compras van primero
// (manteniendo FIFO entre ellas) y luego el resto en FIFO.
// No modifica las entradas recibidas.
func PlanConsumption(entries []*entity.InventoryEntry, quantity decimal.Decimal, preferredPurchaseIDs []string) Plan {
	preferred := make(map[string]bool, len(preferredPurchaseIDs))
	for _, id := range preferredPurchaseIDs {
		if id != "" {
			preferred[id] = true
		}
	}

	eligible := make([]*entity.InventoryEntry, 0, len(entries))
	available := decimal.Zero
	for _, e := range entries {
		if e.Available() {
			eligible = append(eligible, e)
			available = available.Add(e.CurrentQuantity)
		}
	}
	SortFIFO(eligible)
	if len(preferred) > 0 {
		sort.SliceStable(eligible, func(i, j int) bool {
			return preferred[eligible[i].PurchaseID] && !preferred[eligible[j].PurchaseID]
		})
	}

	plan := Plan{Requested: quantity, Available: available}
	remaining := quantity
	for _, e := range eligible {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		take := decimal.Min(remaining, e.CurrentQuantity)
		plan.Steps = append(plan.Steps, ConsumptionStep{
			Entry:     e,
			Take:      take,
			Remaining: e.CurrentQuantity.Sub(take),
		})
		remaining = remaining.Sub(take)
	}
	if remaining.GreaterThan(decimal.Zero) {
		plan.Shortfall = remaining
	}
	return plan
}

// SortFIFO ordena por fecha de creación ascendente; a igual fecha, por orden de fila.
func SortFIFO(entries []*entity.InventoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.RowIndex < b.RowIndex
	})
}
