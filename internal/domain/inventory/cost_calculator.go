package inventory

import "github.com/shopspring/decimal"

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// WeightedLot cantidad y precio unitario de un lote para promediar.
type WeightedLot struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// AveragePrice acumula CostCalculator sobre una serie de lotes (precio promedio por kg).
func AveragePrice(lots []WeightedLot) decimal.Decimal {
	stock, cost := decimal.Zero, decimal.Zero
	for _, l := range lots {
		if !l.Quantity.GreaterThan(decimal.Zero) {
			continue
		}
		cost = CostCalculator(stock, cost, l.Quantity, l.UnitPrice)
		stock = stock.Add(l.Quantity)
	}
	return cost.Round(2)
}
