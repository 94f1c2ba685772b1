package conversation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cafe-bot/internal/application/conversation"
	"github.com/jhoicas/cafe-bot/internal/application/evidence"
	appinv "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/application/report"
	"github.com/jhoicas/cafe-bot/internal/application/trade"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/session"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
)

const userID = 1001

type fakePDF struct{}

func (fakePDF) GenerateInventoryPDF(context.Context, *report.InventoryReport) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

type fixture struct {
	store    *tabular.MemoryStore
	repos    *tabular.Repositories
	ledger   *appinv.Ledger
	trade    *trade.UseCase
	sessions *session.MemoryStore
	d        *conversation.Dispatcher
	clock    time.Time
}

func newFixture(t *testing.T, allowed ...int64) *fixture {
	t.Helper()
	f := &fixture{clock: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	now := func() time.Time { return f.clock }
	f.store = tabular.NewMemoryStore(tabular.AllSchemas()...)
	f.repos = tabular.NewRepositories(f.store, time.UTC)
	f.ledger = appinv.NewLedger(f.repos.Inventory, f.repos.Purchases, nil, appinv.WithClock(now))
	f.trade = trade.NewUseCase(f.ledger, trade.Repos{
		Purchases: f.repos.Purchases, Sales: f.repos.Sales, Advances: f.repos.Advances, Expenses: f.repos.Expenses,
	}, nil)
	f.trade.SetClock(func() time.Time { f.clock = f.clock.Add(time.Second); return f.clock })
	svc := conversation.Services{
		Ledger:    f.ledger,
		Transform: appinv.NewTransformUseCase(f.ledger, nil, f.repos.Process, nil),
		Trade:     f.trade,
		Evidence:  evidence.NewUseCase(f.repos.Evidence, nil, nil, nil),
		Report:    report.NewUseCase(f.ledger, f.repos.Sales, f.repos.Expenses, f.repos.Advances, fakePDF{}, nil),
	}
	f.sessions = session.NewMemoryStore()
	f.sessions.SetClock(now)
	f.d = conversation.NewDispatcher(f.sessions, svc, conversation.Options{
		AllowedUsers: allowed,
		FlowTimeout:  10 * time.Minute,
	}, nil)
	f.d.SetClock(now)
	return f
}

func (f *fixture) send(t *testing.T, text string) conversation.Reply {
	t.Helper()
	replies := f.d.Handle(context.Background(), conversation.Input{UserID: userID, ChatID: userID, Username: "ana", Text: text})
	require.NotEmpty(t, replies)
	return replies[len(replies)-1]
}

func (f *fixture) press(t *testing.T, data string) conversation.Reply {
	t.Helper()
	replies := f.d.Handle(context.Background(), conversation.Input{UserID: userID, ChatID: userID, Username: "ana", Callback: data})
	require.NotEmpty(t, replies)
	return replies[len(replies)-1]
}

func (f *fixture) session(t *testing.T) *conversation.Session {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func buttonData(r conversation.Reply) []string {
	var out []string
	for _, row := range r.Keyboard {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompra_FlujoCompleto(t *testing.T) {
	f := newFixture(t)
	r := f.send(t, "/compra")
	assert.Contains(t, buttonData(r), "CEREZO")

	f.press(t, "CEREZO")
	f.send(t, "Finca La Esperanza")
	f.send(t, "100")
	f.send(t, "2.500")
	r = f.press(t, "-")
	assert.Contains(t, r.Text, "100.00 kg de Cerezo a Finca La Esperanza")
	assert.Contains(t, r.Text, "Total: $250.000")
	assert.Equal(t, []string{"si", "no"}, buttonData(r))

	r = f.press(t, "si")
	assert.Contains(t, r.Text, "✅ Compra registrada")
	assert.Nil(t, f.session(t))
	assert.True(t, f.ledger.Available(context.Background(), entity.PhaseCerezo).Equal(dec("100")))

	purchases, err := f.repos.Purchases.List(context.Background())
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "ana", purchases[0].RegisteredBy)
	assert.True(t, purchases[0].UnitPrice.Equal(dec("2500")))
}

func TestValidacion_RepreguntaSinAvanzar(t *testing.T) {
	f := newFixture(t)
	f.send(t, "/compra")
	f.press(t, "cerezo")
	f.send(t, "Finca")

	r := f.send(t, "mucho")
	assert.True(t, strings.HasPrefix(r.Text, "❌"), r.Text)
	assert.Equal(t, "cantidad", f.session(t).Step)

	r = f.send(t, "-5")
	assert.Contains(t, r.Text, "mayor que cero")
	assert.Equal(t, "cantidad", f.session(t).Step)

	f.send(t, "12,5")
	assert.Equal(t, "precio", f.session(t).Step)
	assert.Equal(t, "12.5", f.session(t).Get("cantidad"))

	// Fase inexistente en el primer paso.
	f.send(t, "/compra")
	r = f.send(t, "ORO")
	assert.Contains(t, r.Text, "Elige una fase")
	assert.Equal(t, "fase", f.session(t).Step)
}

func TestCancelar(t *testing.T) {
	f := newFixture(t)
	r := f.send(t, "/cancelar")
	assert.Equal(t, "No hay ninguna operación en curso.", r.Text)

	f.send(t, "/adelanto@CafeBot")
	r = f.send(t, "/cancelar")
	assert.Equal(t, "Operación cancelada.", r.Text)
	assert.Nil(t, f.session(t))

	r = f.send(t, "hola")
	assert.Contains(t, r.Text, "/ayuda")
}

func TestConfirmacion_No(t *testing.T) {
	f := newFixture(t)
	f.send(t, "/adelanto")
	f.send(t, "Don Pedro")
	f.send(t, "$ 200.000")
	r := f.press(t, "-")
	assert.Contains(t, r.Text, "Adelanto de $200.000 a Don Pedro")

	r = f.send(t, "quizás")
	assert.Contains(t, r.Text, "Confirmar o Cancelar")
	r = f.press(t, "no")
	assert.Equal(t, "Operación cancelada.", r.Text)
	advances, _ := f.repos.Advances.List(context.Background())
	assert.Empty(t, advances)
}

func TestSesionExpirada(t *testing.T) {
	f := newFixture(t)
	f.send(t, "/gasto")
	f.clock = f.clock.Add(11 * time.Minute)

	r := f.send(t, "transporte")
	assert.Contains(t, r.Text, "expiró")
	assert.Nil(t, f.session(t))

	// Un comando después de vencer avisa y arranca el flujo nuevo.
	f.send(t, "/gasto")
	f.clock = f.clock.Add(11 * time.Minute)
	replies := f.d.Handle(context.Background(), conversation.Input{UserID: userID, ChatID: userID, Text: "/adelanto"})
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0].Text, "expiró")
	assert.Equal(t, "adelanto", f.session(t).Flow)
}

func TestActividadExtiendeLaSesion(t *testing.T) {
	f := newFixture(t)
	f.send(t, "/gasto")
	f.clock = f.clock.Add(8 * time.Minute)
	f.press(t, "insumos")
	f.clock = f.clock.Add(8 * time.Minute)
	f.send(t, "15000")
	assert.Equal(t, "descripcion", f.session(t).Step)
}

func TestComandoNuevoReemplazaSesion(t *testing.T) {
	f := newFixture(t)
	f.send(t, "/compra")
	f.press(t, "MOTE")
	f.send(t, "/adelanto")
	s := f.session(t)
	assert.Equal(t, "adelanto", s.Flow)
	assert.Empty(t, s.Get("fase"))
}

func TestUsuarioNoAutorizado(t *testing.T) {
	f := newFixture(t, 5)
	r := f.send(t, "/compra")
	assert.Contains(t, r.Text, "No tienes permiso")
	assert.Nil(t, f.session(t))
}

func TestAyudaYComandos(t *testing.T) {
	f := newFixture(t)
	r := f.send(t, "/start")
	for _, c := range f.d.Commands() {
		assert.Contains(t, r.Text, "/"+c.Name)
	}
	names := make([]string, 0)
	for _, c := range f.d.Commands() {
		names = append(names, c.Name)
	}
	assert.Subset(t, names, []string{"compra", "venta", "adelanto", "compra_adelanto", "proceso", "gasto",
		"almacen", "sincronizar", "evidencia", "reporte", "reporte_pdf", "cancelar"})

	r = f.send(t, "/desconocido")
	assert.Contains(t, r.Text, "/ayuda")
}
