// Package report arma el reporte de almacén (texto y PDF) a partir del libro de inventario y las hojas de negocio.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appinventory "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/domain/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain/repository"
	"github.com/jhoicas/cafe-bot/pkg/logger"
)

// PDFGenerator genera la representación PDF del reporte.
type PDFGenerator interface {
	GenerateInventoryPDF(ctx context.Context, r *InventoryReport) ([]byte, error)
}

// PhaseReport existencias de una fase.
type PhaseReport struct {
	Phase    entity.Phase
	Quantity decimal.Decimal
	Lots     []appinventory.LotView
	// AveragePrice precio promedio ponderado por kg de los lotes comprados en esta fase que siguen en almacén.
	AveragePrice decimal.Decimal
	// Value Quantity valorizada a AveragePrice (0 si la fase no tiene lotes comprados).
	Value decimal.Decimal
}

// Totals conteo y suma de montos.
type Totals struct {
	Count    int
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// InventoryReport foto del almacén y de los totales de negocio.
type InventoryReport struct {
	GeneratedAt  time.Time
	Phases       []PhaseReport
	TotalKg      decimal.Decimal
	Sales        Totals
	Expenses     Totals
	OpenAdvances Totals
}

// UseCase construye reportes.
type UseCase struct {
	ledger   *appinventory.Ledger
	sales    repository.SaleRepository
	expenses repository.ExpenseRepository
	advances repository.AdvanceRepository
	pdf      PDFGenerator
	log      *logger.Logger
	now      func() time.Time
}

// NewUseCase construye el caso de uso. pdf puede ser nil (reporte solo en texto).
func NewUseCase(
	ledger *appinventory.Ledger,
	sales repository.SaleRepository,
	expenses repository.ExpenseRepository,
	advances repository.AdvanceRepository,
	pdf PDFGenerator,
	log *logger.Logger,
) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{ledger: ledger, sales: sales, expenses: expenses, advances: advances, pdf: pdf, log: log.Component("report"), now: time.Now}
}

// SetClock fija el reloj (tests).
func (uc *UseCase) SetClock(now func() time.Time) { uc.now = now }

// InventoryReport arma el reporte completo.
func (uc *UseCase) InventoryReport(ctx context.Context) (*InventoryReport, error) {
	summary, err := uc.ledger.Summary(ctx)
	if err != nil {
		return nil, err
	}
	r := &InventoryReport{GeneratedAt: uc.now(), TotalKg: decimal.Zero}
	for _, s := range summary {
		pr := PhaseReport{Phase: s.Phase, Quantity: s.Quantity, AveragePrice: decimal.Zero, Value: decimal.Zero}
		if s.Lots > 0 {
			pr.Lots = uc.ledger.Lots(ctx, s.Phase)
			pr.AveragePrice = averagePrice(pr.Lots)
			pr.Value = pr.Quantity.Mul(pr.AveragePrice).Round(2)
		}
		r.TotalKg = r.TotalKg.Add(s.Quantity)
		r.Phases = append(r.Phases, pr)
	}

	sales, err := uc.sales.List(ctx)
	if err != nil {
		return nil, uc.storeErr(err)
	}
	r.Sales = Totals{Quantity: decimal.Zero, Amount: decimal.Zero}
	for _, s := range sales {
		r.Sales.Count++
		r.Sales.Quantity = r.Sales.Quantity.Add(s.Quantity)
		r.Sales.Amount = r.Sales.Amount.Add(s.Total)
	}

	expenses, err := uc.expenses.List(ctx)
	if err != nil {
		return nil, uc.storeErr(err)
	}
	r.Expenses = Totals{Quantity: decimal.Zero, Amount: decimal.Zero}
	for _, e := range expenses {
		r.Expenses.Count++
		r.Expenses.Amount = r.Expenses.Amount.Add(e.Amount)
	}

	advances, err := uc.advances.List(ctx)
	if err != nil {
		return nil, uc.storeErr(err)
	}
	r.OpenAdvances = Totals{Quantity: decimal.Zero, Amount: decimal.Zero}
	for _, a := range advances {
		if a.Balance.IsPositive() {
			r.OpenAdvances.Count++
			r.OpenAdvances.Amount = r.OpenAdvances.Amount.Add(a.Balance)
		}
	}
	return r, nil
}

// InventoryPDF arma el reporte y lo genera en PDF. Devuelve los bytes y el nombre de archivo sugerido.
func (uc *UseCase) InventoryPDF(ctx context.Context) ([]byte, string, error) {
	if uc.pdf == nil {
		return nil, "", fmt.Errorf("%w: generador de PDF no configurado", domain.ErrInvalidInput)
	}
	r, err := uc.InventoryReport(ctx)
	if err != nil {
		return nil, "", err
	}
	doc, err := uc.pdf.GenerateInventoryPDF(ctx, r)
	if err != nil {
		uc.log.Error().Err(err).Msg("no se pudo generar el PDF de almacén")
		return nil, "", err
	}
	return doc, "almacen_" + r.GeneratedAt.Format("20060102_1504") + ".pdf", nil
}

// averagePrice promedia solo lotes comprados directamente en la fase; los transformados no tienen precio propio.
func averagePrice(lots []appinventory.LotView) decimal.Decimal {
	weighted := make([]inventory.WeightedLot, 0, len(lots))
	for _, l := range lots {
		if l.PurchaseID == "" || l.OriginPhase != "" || !l.UnitPrice.IsPositive() {
			continue
		}
		weighted = append(weighted, inventory.WeightedLot{Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return inventory.AveragePrice(weighted)
}

func (uc *UseCase) storeErr(err error) error {
	if errors.Is(err, domain.ErrSchema) {
		uc.log.Error().Err(err).Bool("critical", true).Msg("estructura de hoja inválida")
		return domain.ErrSchema
	}
	uc.log.Error().Err(err).Msg("error leyendo hojas para el reporte")
	return domain.ErrStorage
}
