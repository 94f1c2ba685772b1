package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrInvalidPhase        = errors.New("fase de café inválida")
	ErrInvalidTransition   = errors.New("transición de fase no permitida")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrInsufficientBalance = errors.New("saldo de adelanto insuficiente")
	ErrStorage             = errors.New("error de almacenamiento")
	ErrSchema              = errors.New("estructura de hoja inválida")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
)

// InsufficientStockError detalla cuánto se pidió y cuánto había disponible en la fase.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	Phase     string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente de %s: solicitado %s kg, disponible %s kg",
		e.Phase, e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
