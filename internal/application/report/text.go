package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Text representación del reporte para un mensaje de Telegram.
func Text(r *InventoryReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 Reporte de almacén (%s)\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))
	for _, p := range r.Phases {
		fmt.Fprintf(&b, "• %s: %s kg", p.Phase.Label(), Kg(p.Quantity))
		if n := len(p.Lots); n > 0 {
			fmt.Fprintf(&b, " en %d lote(s)", n)
		}
		if p.AveragePrice.IsPositive() {
			fmt.Fprintf(&b, ", promedio $%s/kg", Money(p.AveragePrice))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTotal: %s kg\n", Kg(r.TotalKg))
	fmt.Fprintf(&b, "Ventas: %d por %s kg, $%s\n", r.Sales.Count, Kg(r.Sales.Quantity), Money(r.Sales.Amount))
	fmt.Fprintf(&b, "Gastos: %d por $%s\n", r.Expenses.Count, Money(r.Expenses.Amount))
	fmt.Fprintf(&b, "Adelantos abiertos: %d con saldo $%s", r.OpenAdvances.Count, Money(r.OpenAdvances.Amount))
	return b.String()
}

// Kg cantidad con dos decimales.
func Kg(d decimal.Decimal) string { return d.StringFixed(2) }

// Money monto con separador de miles "." y sin decimales cuando son cero ("1.250.000", "12,50").
func Money(d decimal.Decimal) string {
	neg := d.IsNegative()
	d = d.Abs().Round(2)
	intPart := d.Truncate(0)
	frac := d.Sub(intPart)

	digits := intPart.String()
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	out := strings.Join(groups, ".")
	if !frac.IsZero() {
		out += fmt.Sprintf(",%02d", frac.Mul(decimal.NewFromInt(100)).IntPart())
	}
	if neg {
		out = "-" + out
	}
	return out
}
