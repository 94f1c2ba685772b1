package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PhaseStockDTO existencias de una fase para GET /api/almacen.
type PhaseStockDTO struct {
	Phase    string          `json:"fase"`
	Label    string          `json:"nombre"`
	Quantity decimal.Decimal `json:"cantidad_kg"`
	Lots     int             `json:"lotes"`
}

// StockResponse cuerpo de GET /api/almacen.
type StockResponse struct {
	Phases  []PhaseStockDTO `json:"fases"`
	TotalKg decimal.Decimal `json:"total_kg"`
}

// LotDTO lote disponible de una fase (GET /api/almacen/:fase/lotes).
type LotDTO struct {
	EntryID          string          `json:"id"`
	PurchaseID       string          `json:"compra_id,omitempty"`
	Supplier         string          `json:"proveedor,omitempty"`
	PurchaseDate     *time.Time      `json:"fecha_compra,omitempty"`
	UnitPrice        decimal.Decimal `json:"precio_kg"`
	OriginPhase      string          `json:"fase_origen,omitempty"`
	CreatedAt        time.Time       `json:"fecha_creacion"`
	OriginalQuantity decimal.Decimal `json:"cantidad_original"`
	Quantity         decimal.Decimal `json:"cantidad_actual"`
}

// ReconcileResponse resultado de POST /api/almacen/sincronizar.
type ReconcileResponse struct {
	Created int `json:"creadas"`
	Skipped int `json:"omitidas"`
	Invalid int `json:"invalidas"`
}
