package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/application/report"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakePDF struct{ got *report.InventoryReport }

func (f *fakePDF) GenerateInventoryPDF(_ context.Context, r *report.InventoryReport) ([]byte, error) {
	f.got = r
	return []byte("%PDF-1.4"), nil
}

func seed(t *testing.T) (*report.UseCase, *fakePDF) {
	t.Helper()
	ctx := context.Background()
	store := tabular.NewMemoryStore(tabular.AllSchemas()...)
	repos := tabular.NewRepositories(store, time.UTC)
	ledger := appinv.NewLedger(repos.Inventory, repos.Purchases, nil)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, p := range []*entity.Purchase{
		{ID: "c-1", Date: base, Phase: entity.PhaseCerezo, Supplier: "Finca A", Quantity: dec("100"), UnitPrice: dec("2")},
		{ID: "c-2", Date: base.Add(time.Hour), Phase: entity.PhaseCerezo, Supplier: "Finca B", Quantity: dec("50"), UnitPrice: dec("4")},
	} {
		p.TotalPrice = p.ComputeTotal()
		require.NoError(t, repos.Purchases.Create(ctx, p), "compra %d", i)
	}
	_, err := ledger.Reconcile(ctx)
	require.NoError(t, err)
	// Lote transformado: no entra al promedio de precio.
	_, err = ledger.Increment(ctx, appinv.IncrementInput{Phase: entity.PhaseMote, Quantity: dec("10"), PurchaseID: "c-1", OriginPhase: entity.PhaseCerezo})
	require.NoError(t, err)

	require.NoError(t, repos.Sales.Create(ctx, &entity.Sale{ID: "v-1", Date: base, Phase: entity.PhaseTostado, Customer: "Tienda", Quantity: dec("2"), UnitPrice: dec("30"), Total: dec("60")}))
	require.NoError(t, repos.Expenses.Create(ctx, &entity.Expense{ID: "g-1", Date: base, Category: "transporte", Amount: dec("25000")}))
	require.NoError(t, repos.Advances.Create(ctx, &entity.Advance{ID: "a-1", Date: base, Supplier: "Finca A", Amount: dec("500"), Balance: dec("120")}))
	require.NoError(t, repos.Advances.Create(ctx, &entity.Advance{ID: "a-2", Date: base, Supplier: "Finca B", Amount: dec("300"), Balance: dec("0")}))

	pdf := &fakePDF{}
	uc := report.NewUseCase(ledger, repos.Sales, repos.Expenses, repos.Advances, pdf, nil)
	uc.SetClock(func() time.Time { return time.Date(2024, 5, 2, 18, 30, 0, 0, time.UTC) })
	return uc, pdf
}

func TestInventoryReport(t *testing.T) {
	uc, _ := seed(t)
	r, err := uc.InventoryReport(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Phases, len(entity.Phases))
	cerezo := r.Phases[0]
	assert.Equal(t, entity.PhaseCerezo, cerezo.Phase)
	assert.True(t, cerezo.Quantity.Equal(dec("150")))
	assert.Len(t, cerezo.Lots, 2)
	// (100*2 + 50*4) / 150 = 2.67
	assert.True(t, cerezo.AveragePrice.Equal(dec("2.67")), cerezo.AveragePrice.String())
	assert.True(t, cerezo.Value.Equal(dec("400.5")), cerezo.Value.String())

	mote := r.Phases[1]
	assert.True(t, mote.Quantity.Equal(dec("10")))
	assert.True(t, mote.AveragePrice.IsZero())

	assert.True(t, r.TotalKg.Equal(dec("160")))
	assert.Equal(t, 1, r.Sales.Count)
	assert.True(t, r.Sales.Amount.Equal(dec("60")))
	assert.True(t, r.Expenses.Amount.Equal(dec("25000")))
	assert.Equal(t, 1, r.OpenAdvances.Count)
	assert.True(t, r.OpenAdvances.Amount.Equal(dec("120")))

	txt := report.Text(r)
	assert.Contains(t, txt, "Cerezo: 150.00 kg en 2 lote(s), promedio $2,67/kg")
	assert.Contains(t, txt, "Gastos: 1 por $25.000")
	assert.Contains(t, txt, "Adelantos abiertos: 1 con saldo $120")
}

func TestInventoryPDF(t *testing.T) {
	uc, pdf := seed(t)
	doc, name, err := uc.InventoryPDF(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "almacen_20240502_1830.pdf", name)
	assert.NotEmpty(t, doc)
	require.NotNil(t, pdf.got)

	noPDF := report.NewUseCase(nil, nil, nil, nil, nil, nil)
	_, _, err = noPDF.InventoryPDF(context.Background())
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"0":         "0",
		"999":       "999",
		"1250000":   "1.250.000",
		"12.5":      "12,50",
		"3.05":      "3,05",
		"-4200.129": "-4.200,13",
	}
	for in, want := range cases {
		assert.Equal(t, want, report.Money(dec(in)), in)
	}
}
