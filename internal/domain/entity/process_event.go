package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessEvent registro de una transformación (hoja "proceso"). Solo se agrega, nunca se modifica.
type ProcessEvent struct {
	Date               time.Time
	Origin             Phase
	Destination        Phase
	Quantity           decimal.Decimal
	PurchaseIDs        []string        // compras_ids, referencia débil
	Shrinkage          decimal.Decimal // merma real aplicada
	EstimatedShrinkage decimal.Decimal // merma sugerida por la relación configurada
	ExpectedOutput     decimal.Decimal // cantidad_resultante_esperada
	Output             decimal.Decimal // cantidad_resultante
	Notes              string
	RegisteredBy       string
}
