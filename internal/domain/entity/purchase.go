package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase lote de compra (hoja "compras"). Inmutable una vez creado.
type Purchase struct {
	ID           string
	Date         time.Time
	Phase        Phase // tipo_cafe
	Supplier     string
	Quantity     decimal.Decimal // kg
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
	RegisteredBy string
	Notes        string
}

// ComputeTotal calcula el precio total redondeado a 2 decimales.
func (p *Purchase) ComputeTotal() decimal.Decimal {
	return p.Quantity.Mul(p.UnitPrice).Round(2)
}
