package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
)

func TestRegisterProcess_CerezoAMoteConMermaSugerida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, entity.PhaseCerezo, "120", f.base, "c1")

	res, err := f.transform.RegisterProcess(ctx, appinv.ProcessInput{
		Origin: entity.PhaseCerezo, Destination: entity.PhaseMote, Quantity: dec("100"), RegisteredBy: "ana",
	})
	require.NoError(t, err)
	assert.True(t, res.Event.Shrinkage.Equal(dec("85")))
	assert.True(t, res.Event.EstimatedShrinkage.Equal(dec("85")))
	assert.True(t, res.Transform.Output.Equal(dec("15")))
	require.NotNil(t, res.Transform.Destination)
	assert.Equal(t, "c1", res.Transform.Destination.PurchaseID)
	assert.Equal(t, entity.PhaseCerezo, res.Transform.Destination.OriginPhase)
	assert.Contains(t, res.Transform.Destination.Notes, "transformado desde CEREZO")

	assert.True(t, f.ledger.Available(ctx, entity.PhaseCerezo).Equal(dec("20")))
	assert.True(t, f.ledger.Available(ctx, entity.PhaseMote).Equal(dec("15")))

	events, err := f.repos.Process.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"c1"}, events[0].PurchaseIDs)
	assert.True(t, events[0].ExpectedOutput.Equal(dec("15")))
	assert.Equal(t, "ana", events[0].RegisteredBy)
}

func TestRegisterProcess_FasesEnMinusculas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, entity.PhaseVerde, "10", f.base, "c1")

	res, err := f.transform.RegisterProcess(ctx, appinv.ProcessInput{
		Origin: " verde", Destination: "Tostado", Quantity: dec("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseVerde, res.Event.Origin)
	assert.Equal(t, entity.PhaseTostado, res.Event.Destination)
	assert.True(t, f.ledger.Available(ctx, entity.PhaseVerde).IsZero())
	assert.True(t, f.ledger.Available(ctx, entity.PhaseTostado).Equal(res.Transform.Output))
}

func TestTransform_Conservacion(t *testing.T) {
	cases := []struct {
		name      string
		quantity  string
		shrinkage string
		output    string
	}{
		{"sin merma", "10", "0", "10"},
		{"merma parcial", "40.5", "8.1", "32.4"},
		{"merma igual a la cantidad", "10", "10", "0"},
		{"merma mayor que la cantidad", "10", "12", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.seed(t, entity.PhasePergamino, "50", f.base, "")
			beforeOrigin := f.ledger.Available(ctx, entity.PhasePergamino)
			beforeDest := f.ledger.Available(ctx, entity.PhaseVerde)

			res, err := f.transform.Transform(ctx, appinv.TransformInput{
				Origin: entity.PhasePergamino, Destination: entity.PhaseVerde,
				Quantity: dec(tc.quantity), Shrinkage: dec(tc.shrinkage),
			})
			require.NoError(t, err)
			assert.True(t, res.Output.Equal(dec(tc.output)))
			if res.Output.IsZero() {
				assert.Nil(t, res.Destination)
			}
			assert.True(t, beforeOrigin.Sub(f.ledger.Available(ctx, entity.PhasePergamino)).Equal(dec(tc.quantity)))
			assert.True(t, f.ledger.Available(ctx, entity.PhaseVerde).Sub(beforeDest).Equal(dec(tc.output)))
		})
	}
}

func TestTransform_TransicionInvalida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, entity.PhasePergamino, "50", f.base, "")
	for _, pair := range [][2]entity.Phase{
		{entity.PhasePergamino, entity.PhaseCerezo},
		{entity.PhasePergamino, entity.PhasePergamino},
		{entity.PhaseMolido, entity.PhaseTostado},
	} {
		_, err := f.transform.Transform(ctx, appinv.TransformInput{
			Origin: pair[0], Destination: pair[1], Quantity: dec("1"),
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "%s → %s", pair[0], pair[1])
	}
	assert.True(t, f.ledger.Available(ctx, entity.PhasePergamino).Equal(dec("50")))

	_, err := f.transform.Transform(ctx, appinv.TransformInput{
		Origin: entity.PhasePergamino, Destination: entity.PhaseVerde, Quantity: dec("1"), Shrinkage: dec("-1"),
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestTransform_StockInsuficienteNoCreaDestino(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, entity.PhaseCerezo, "10", f.base, "")
	_, err := f.transform.Transform(ctx, appinv.TransformInput{
		Origin: entity.PhaseCerezo, Destination: entity.PhaseMote, Quantity: dec("11"), Shrinkage: dec("1"),
	})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.True(t, f.ledger.Available(ctx, entity.PhaseMote).IsZero())
	assert.True(t, f.ledger.Available(ctx, entity.PhaseCerezo).Equal(dec("10")))
}

func TestTransform_RestauraOrigenSiFallaDestino(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, entity.PhaseCerezo, "30", f.base, "")
	b := f.seed(t, entity.PhaseCerezo, "20", f.base.Add(1), "")
	f.store.failAppend[tabular.TableInventory] = true

	_, err := f.transform.Transform(ctx, appinv.TransformInput{
		Origin: entity.PhaseCerezo, Destination: entity.PhaseMote, Quantity: dec("40"), Shrinkage: dec("34"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))

	q := f.quantities(t, entity.PhaseCerezo)
	assert.Equal(t, "30", q[a.ID])
	assert.Equal(t, "20", q[b.ID])
	assert.True(t, f.ledger.Available(ctx, entity.PhaseMote).IsZero())
}

func TestRegisterProcess_RevierteSiFallaBitacora(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, entity.PhaseVerde, "10", f.base, "")
	f.store.failAppend[tabular.TableProcess] = true

	shrink := decimal.RequireFromString("1.6")
	_, err := f.transform.RegisterProcess(ctx, appinv.ProcessInput{
		Origin: entity.PhaseVerde, Destination: entity.PhaseTostado, Quantity: dec("10"), Shrinkage: &shrink,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	assert.Equal(t, "10", f.quantities(t, entity.PhaseVerde)[a.ID])
	// La entrada de destino queda anulada en cero (las filas no se borran).
	assert.True(t, f.ledger.Available(ctx, entity.PhaseTostado).IsZero())
	entries, _ := f.repos.Inventory.ListByPhase(ctx, entity.PhaseTostado)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Notes, "anulado")
}

func TestRegisterProcess_MermaManual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, entity.PhaseTostado, "10", f.base, "")
	shrink := dec("0.5")
	res, err := f.transform.RegisterProcess(ctx, appinv.ProcessInput{
		Origin: entity.PhaseTostado, Destination: entity.PhaseMolido, Quantity: dec("10"), Shrinkage: &shrink,
	})
	require.NoError(t, err)
	assert.True(t, res.Event.EstimatedShrinkage.Equal(dec("0.1")))
	assert.True(t, res.Event.Shrinkage.Equal(dec("0.5")))
	assert.True(t, res.Event.ExpectedOutput.Equal(dec("9.9")))
	assert.True(t, res.Event.Output.Equal(dec("9.5")))
}
