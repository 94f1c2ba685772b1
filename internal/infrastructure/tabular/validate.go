package tabular

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// decimal.Decimal se valida como float64 para poder usar gt/gte en las reglas.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

type fieldRule struct {
	name  string
	value interface{}
	tag   string
}

func check(table string, rules ...fieldRule) error {
	for _, r := range rules {
		if err := validate.Var(r.value, r.tag); err != nil {
			return fmt.Errorf("%w: %s.%s no cumple %q", domain.ErrInvalidInput, table, r.name, r.tag)
		}
	}
	return nil
}

func validPhase(p entity.Phase) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPhase, p)
	}
	return nil
}

func validateInventoryEntry(e *entity.InventoryEntry) error {
	if err := validPhase(e.CurrentPhase); err != nil {
		return err
	}
	// Filas cargadas a mano pueden no tener id; solo se exige al crear.
	return check(TableInventory,
		fieldRule{"cantidad", e.Quantity, "gte=0"},
		fieldRule{"cantidad_actual", e.CurrentQuantity, "gte=0"},
	)
}

func validatePurchase(p *entity.Purchase) error {
	if err := validPhase(p.Phase); err != nil {
		return err
	}
	return check(TablePurchases,
		fieldRule{"id", p.ID, "required"},
		fieldRule{"proveedor", p.Supplier, "required,max=120"},
		fieldRule{"cantidad", p.Quantity, "gt=0"},
		fieldRule{"precio", p.UnitPrice, "gte=0"},
	)
}

func validateProcessEvent(ev *entity.ProcessEvent) error {
	if err := validPhase(ev.Origin); err != nil {
		return err
	}
	if err := validPhase(ev.Destination); err != nil {
		return err
	}
	return check(TableProcess,
		fieldRule{"cantidad", ev.Quantity, "gt=0"},
		fieldRule{"merma", ev.Shrinkage, "gte=0"},
		fieldRule{"cantidad_resultante", ev.Output, "gte=0"},
	)
}

func validateSale(s *entity.Sale) error {
	if err := validPhase(s.Phase); err != nil {
		return err
	}
	return check(TableSales,
		fieldRule{"id", s.ID, "required"},
		fieldRule{"cliente", s.Customer, "required,max=120"},
		fieldRule{"cantidad", s.Quantity, "gt=0"},
		fieldRule{"precio", s.UnitPrice, "gte=0"},
	)
}

func validateAdvance(a *entity.Advance) error {
	return check(TableAdvances,
		fieldRule{"id", a.ID, "required"},
		fieldRule{"proveedor", a.Supplier, "required,max=120"},
		fieldRule{"monto", a.Amount, "gt=0"},
		fieldRule{"saldo_restante", a.Balance, "gte=0"},
	)
}

func validateExpense(e *entity.Expense) error {
	return check(TableExpenses,
		fieldRule{"id", e.ID, "required"},
		fieldRule{"categoria", e.Category, "required,max=60"},
		fieldRule{"monto", e.Amount, "gt=0"},
	)
}

func validateEvidence(e *entity.Evidence) error {
	return check(TableEvidence,
		fieldRule{"id", e.ID, "required"},
		fieldRule{"tipo_operacion", e.OperationType, "required,oneof=compra venta adelanto gasto"},
		fieldRule{"operacion_id", e.OperationID, "required"},
		fieldRule{"archivo", e.File, "required"},
	)
}
