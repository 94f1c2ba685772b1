package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale venta de café (hoja "ventas").
type Sale struct {
	ID           string
	Date         time.Time
	Phase        Phase
	Customer     string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Total        decimal.Decimal
	EntryIDs     []string // entradas de almacén consumidas
	Notes        string
	RegisteredBy string
}

// Advance adelanto (pago anticipado) a un proveedor (hoja "adelantos").
type Advance struct {
	RowIndex     int
	ID           string
	Date         time.Time
	Supplier     string
	Amount       decimal.Decimal
	Balance      decimal.Decimal // saldo_restante
	Notes        string
	RegisteredBy string
}

// Expense gasto operativo (hoja "gastos").
type Expense struct {
	ID           string
	Date         time.Time
	Category     string
	Amount       decimal.Decimal
	Description  string
	RegisteredBy string
}

// Tipos de operación que admiten evidencia de pago.
const (
	OperationPurchase = "compra"
	OperationSale     = "venta"
	OperationAdvance  = "adelanto"
	OperationExpense  = "gasto"
)

// Evidence foto de respaldo de una operación (hoja "evidencias").
type Evidence struct {
	ID            string
	Date          time.Time
	OperationType string
	OperationID   string
	File          string // clave en el almacenamiento remoto o file_id de Telegram
	URL           string
	Notes         string
	RegisteredBy  string
}
