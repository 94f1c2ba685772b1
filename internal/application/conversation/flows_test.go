package conversation_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cafe-bot/internal/application/conversation"
	appinv "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/application/trade"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
)

func (f *fixture) buy(t *testing.T, phase entity.Phase, supplier, qty, price string) *entity.Purchase {
	t.Helper()
	res, err := f.trade.RegisterPurchase(context.Background(), trade.PurchaseInput{
		Phase: phase, Supplier: supplier, Quantity: dec(qty), UnitPrice: dec(price),
	})
	require.NoError(t, err)
	require.NoError(t, res.InventoryErr)
	return res.Purchase
}

func TestVenta_ValidaDisponible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Increment(ctx, appinv.IncrementInput{Phase: entity.PhaseTostado, Quantity: dec("10")})
	require.NoError(t, err)

	r := f.send(t, "/venta")
	assert.Equal(t, []string{"TOSTADO"}, buttonData(r))
	f.press(t, "TOSTADO")
	f.send(t, "Tienda El Parque")
	r = f.send(t, "12")
	assert.Contains(t, r.Text, "Solo hay 10.00 kg de Tostado")
	assert.Equal(t, "cantidad", f.session(t).Step)

	f.send(t, "4")
	f.send(t, "30000")
	f.press(t, "-")
	r = f.press(t, "si")
	assert.Contains(t, r.Text, "✅ Venta registrada")
	assert.Contains(t, r.Text, "Quedan 6.00 kg de Tostado")

	sales, err := f.repos.Sales.List(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Total.Equal(dec("120000")))
}

func TestVenta_SinStock(t *testing.T) {
	f := newFixture(t)
	r := f.send(t, "/venta")
	assert.Contains(t, r.Text, "No hay café en el almacén")
	assert.Nil(t, f.session(t))
}

func TestProceso_MermaSugerida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.buy(t, entity.PhaseCerezo, "Finca A", "100", "2000")

	r := f.send(t, "/proceso")
	assert.Equal(t, []string{"CEREZO"}, buttonData(r))
	r = f.press(t, "CEREZO")
	assert.ElementsMatch(t, []string{"MOTE", "PERGAMINO"}, buttonData(r))

	// Una sola compra en el origen: no se pregunta el lote.
	r = f.press(t, "MOTE")
	assert.Equal(t, "cantidad", f.session(t).Step)
	assert.Contains(t, r.Text, "Disponible en Cerezo: 100.00 kg")

	r = f.send(t, "100")
	assert.Contains(t, r.Text, "Merma sugerida: 85.00 kg")
	f.press(t, "sugerida")
	r = f.press(t, "-")
	assert.Contains(t, r.Text, "Resultado: 15.00 kg")

	r = f.press(t, "si")
	assert.Contains(t, r.Text, "100.00 kg de Cerezo → 15.00 kg de Mote")
	assert.True(t, f.ledger.Available(ctx, entity.PhaseCerezo).IsZero())
	assert.True(t, f.ledger.Available(ctx, entity.PhaseMote).Equal(dec("15")))

	events, err := f.repos.Process.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].EstimatedShrinkage.Equal(dec("85")))
}

func TestProceso_LoteElegidoYMermaManual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.buy(t, entity.PhaseCerezo, "Finca A", "30", "2000")
	b := f.buy(t, entity.PhaseCerezo, "Finca B", "20", "2100")

	f.send(t, "/proceso")
	f.press(t, "CEREZO")
	r := f.press(t, "PERGAMINO")
	require.Equal(t, "lote", f.session(t).Step)
	assert.Contains(t, buttonData(r), "fifo")
	assert.Contains(t, buttonData(r), "lote:"+b.ID)

	f.press(t, "lote:"+b.ID)
	f.send(t, "25")
	f.send(t, "3")
	r = f.press(t, "-")
	assert.Contains(t, r.Text, "Lote primero: Finca B")
	f.press(t, "si")

	lots := f.ledger.Lots(ctx, entity.PhaseCerezo)
	require.Len(t, lots, 1)
	assert.Equal(t, "Finca A", lots[0].Supplier)
	assert.True(t, lots[0].Quantity.Equal(dec("25")))
	assert.True(t, f.ledger.Available(ctx, entity.PhasePergamino).Equal(dec("22")))
}

func TestCompraAdelanto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.send(t, "/compra_adelanto")
	assert.Contains(t, r.Text, "No hay adelantos con saldo")
	assert.Nil(t, f.session(t))

	a, err := f.trade.RegisterAdvance(ctx, trade.AdvanceInput{Supplier: "Doña Rosa", Amount: dec("300000")})
	require.NoError(t, err)

	r = f.send(t, "/compra_adelanto")
	assert.Equal(t, []string{a.ID}, buttonData(r))
	f.press(t, a.ID)
	f.press(t, "CEREZO")
	f.send(t, "100")
	r = f.send(t, "5000")
	assert.Contains(t, r.Text, "supera el saldo")
	f.send(t, "2500")
	r = f.press(t, "-")
	assert.Contains(t, r.Text, "Saldo después: $50.000")
	r = f.press(t, "si")
	assert.Contains(t, r.Text, "Saldo restante de Doña Rosa: $50.000")
	assert.True(t, f.ledger.Available(ctx, entity.PhaseCerezo).Equal(dec("100")))
}

func TestAlmacen_AjusteYLotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.send(t, "/almacen")
	assert.Contains(t, r.Text, "📦 Almacén")
	assert.Equal(t, []string{"lotes", "ajustar", "listo"}, buttonData(r))
	f.press(t, "ajustar")
	f.press(t, "VERDE")
	f.press(t, "agregar")
	f.send(t, "7")
	r = f.press(t, "-")
	assert.Contains(t, r.Text, "Ajuste de Verde: agregar 7.00 kg")
	r = f.press(t, "si")
	assert.Contains(t, r.Text, "Verde: 7.00 kg disponibles")
	assert.True(t, f.ledger.Available(ctx, entity.PhaseVerde).Equal(dec("7")))

	f.send(t, "/almacen")
	f.press(t, "lotes")
	r = f.press(t, "VERDE")
	assert.Contains(t, r.Text, "Lotes de Verde")
	assert.Nil(t, f.session(t))

	f.send(t, "/almacen")
	r = f.press(t, "listo")
	assert.Equal(t, "👍", r.Text)
}

func TestAlmacen_LotesMuestranPrecioYOrigen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.buy(t, entity.PhaseVerde, "Finca Alta", "20", "12000")
	f.buy(t, entity.PhasePergamino, "La Esperanza", "50", "9000")
	transform := appinv.NewTransformUseCase(f.ledger, nil, f.repos.Process, nil)
	_, err := transform.Transform(ctx, appinv.TransformInput{
		Origin: entity.PhasePergamino, Destination: entity.PhaseVerde, Quantity: dec("50"), Shrinkage: dec("10"),
	})
	require.NoError(t, err)

	f.send(t, "/almacen")
	f.press(t, "lotes")
	r := f.press(t, "VERDE")
	lines := strings.Split(r.Text, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Finca Alta")
	assert.Contains(t, lines[1], "$12.000/kg")
	assert.NotContains(t, lines[1], "desde")
	assert.Contains(t, lines[2], "La Esperanza")
	assert.Contains(t, lines[2], "desde Pergamino")
	assert.Contains(t, lines[2], "$9.000/kg")
}

func TestEvidencia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.trade.RegisterExpense(ctx, trade.ExpenseInput{Category: "transporte", Amount: dec("25000")})
	require.NoError(t, err)

	f.send(t, "/evidencia")
	r := f.press(t, "gasto")
	assert.Equal(t, []string{e.ID}, buttonData(r))
	f.press(t, e.ID)
	r = f.send(t, "aquí va")
	assert.Contains(t, r.Text, "Envía una foto")

	replies := f.d.Handle(ctx, conversation.Input{
		UserID: userID, ChatID: userID, Username: "ana",
		Photo: &conversation.Photo{FileID: "AgACAgEAAxkBAAIB"},
	})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "✅ Comprobante guardado para Gasto")

	rows, err := f.store.ReadAll(ctx, tabular.TableEvidence)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AgACAgEAAxkBAAIB", rows[0].Values["archivo"])
	assert.Equal(t, e.ID, rows[0].Values["operacion_id"])
}

func TestFotoSinFlujo(t *testing.T) {
	f := newFixture(t)
	replies := f.d.Handle(context.Background(), conversation.Input{UserID: userID, Photo: &conversation.Photo{FileID: "x"}})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "/evidencia")
}

func TestReportesYSincronizar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.buy(t, entity.PhaseCerezo, "Finca A", "40", "2000")
	require.NoError(t, f.repos.Purchases.Create(ctx, &entity.Purchase{
		ID: "manual-1", Date: f.clock, Phase: entity.PhaseVerde, Supplier: "Finca C", Quantity: dec("5"), UnitPrice: dec("9000"),
	}))

	r := f.send(t, "/sincronizar")
	assert.Contains(t, r.Text, "Entradas creadas: 1")
	assert.Contains(t, r.Text, "Compras ya registradas: 1")

	r = f.send(t, "/reporte")
	assert.True(t, strings.HasPrefix(r.Text, "📦 Reporte de almacén"), r.Text)
	assert.Contains(t, r.Text, "Verde: 5.00 kg")

	r = f.send(t, "/reporte_pdf")
	require.NotNil(t, r.Document)
	assert.True(t, strings.HasPrefix(r.Document.Name, "almacen_"))
	assert.NotEmpty(t, r.Document.Content)
}
