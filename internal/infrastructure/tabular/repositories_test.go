package tabular_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
)

func newRepos(t *testing.T) (*tabular.MemoryStore, *tabular.Repositories) {
	t.Helper()
	store := tabular.NewMemoryStore(tabular.AllSchemas()...)
	return store, tabular.NewRepositories(store, time.UTC)
}

func TestInventoryRepo_CrearActualizarListar(t *testing.T) {
	ctx := context.Background()
	store, repos := newRepos(t)
	created := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)

	e := &entity.InventoryEntry{
		ID:              "e1",
		PurchaseID:      "c1",
		OriginPhase:     entity.PhaseCerezo,
		CreatedAt:       created,
		Quantity:        decimal.RequireFromString("100"),
		CurrentPhase:    entity.PhaseCerezo,
		CurrentQuantity: decimal.RequireFromString("100"),
	}
	require.NoError(t, repos.Inventory.Create(ctx, e))
	assert.Equal(t, 0, e.RowIndex)

	rows, err := store.ReadAll(ctx, tabular.TableInventory)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10 08:30:00", rows[0].Values["fecha"])
	assert.Equal(t, "CEREZO", rows[0].Values["fase_actual"])

	e.CurrentQuantity = decimal.RequireFromString("62.5")
	e.AppendNote("venta -37.5")
	e.UpdatedAt = created.Add(time.Hour)
	require.NoError(t, repos.Inventory.UpdateStock(ctx, e))

	got, err := repos.Inventory.ListByPhase(ctx, entity.PhaseCerezo)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].CurrentQuantity.Equal(decimal.RequireFromString("62.5")))
	assert.Equal(t, "venta -37.5", got[0].Notes)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.Equal(t, "c1", got[0].PurchaseID)

	none, err := repos.Inventory.ListByPhase(ctx, entity.PhaseMote)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInventoryRepo_NormalizaFaseEscritaAMano(t *testing.T) {
	ctx := context.Background()
	store, repos := newRepos(t)
	_, err := store.Append(ctx, tabular.TableInventory, tabular.Record{
		"id": "manual", "fase_actual": " pérgamino", "cantidad": "10", "cantidad_actual": "10,5",
	})
	require.NoError(t, err)

	got, err := repos.Inventory.ListByPhase(ctx, entity.PhasePergamino)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].CurrentQuantity.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, got[0].CreatedAt.IsZero())
}

func TestInventoryRepo_NumeroInvalidoEsErrorDeEstructura(t *testing.T) {
	ctx := context.Background()
	store, repos := newRepos(t)
	_, err := store.Append(ctx, tabular.TableInventory, tabular.Record{
		"id": "x", "fase_actual": "MOTE", "cantidad_actual": "diez",
	})
	require.NoError(t, err)

	_, err = repos.Inventory.List(ctx)
	assert.True(t, errors.Is(err, domain.ErrSchema))
}

func TestInventoryRepo_RechazaCantidadNegativa(t *testing.T) {
	_, repos := newRepos(t)
	e := &entity.InventoryEntry{
		ID: "neg", CurrentPhase: entity.PhaseMote, CurrentQuantity: decimal.NewFromInt(-1),
	}
	err := repos.Inventory.Create(context.Background(), e)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestPurchaseRepo(t *testing.T) {
	ctx := context.Background()
	_, repos := newRepos(t)
	p := &entity.Purchase{
		ID: "c1", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Phase: entity.PhaseCerezo,
		Supplier: "Finca La Esperanza", Quantity: decimal.NewFromInt(50), UnitPrice: decimal.RequireFromString("2.5"),
	}
	p.TotalPrice = p.ComputeTotal()
	require.NoError(t, repos.Purchases.Create(ctx, p))

	got, err := repos.Purchases.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Finca La Esperanza", got.Supplier)
	assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("125")))

	missing, err := repos.Purchases.GetByID(ctx, "nada")
	require.NoError(t, err)
	assert.Nil(t, missing)

	bad := &entity.Purchase{ID: "c2", Phase: entity.PhaseCerezo, Quantity: decimal.NewFromInt(1)}
	assert.True(t, errors.Is(repos.Purchases.Create(ctx, bad), domain.ErrInvalidInput))
}

func TestPurchaseRepo_FilaAntiguaSinTotalNiFase(t *testing.T) {
	ctx := context.Background()
	store, repos := newRepos(t)
	_, err := store.Append(ctx, tabular.TablePurchases, tabular.Record{
		"id": "vieja", "fecha": "2023-12-01", "proveedor": "Don Luis", "cantidad": "20", "precio": "3",
	})
	require.NoError(t, err)

	list, err := repos.Purchases.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.PhaseCerezo, list[0].Phase)
	assert.True(t, list[0].TotalPrice.Equal(decimal.NewFromInt(60)))
}

func TestProcessRepo_ListaDeCompras(t *testing.T) {
	ctx := context.Background()
	_, repos := newRepos(t)
	ev := &entity.ProcessEvent{
		Date: time.Now().UTC(), Origin: entity.PhaseCerezo, Destination: entity.PhaseMote,
		Quantity: decimal.NewFromInt(100), PurchaseIDs: []string{"c1", "c2"},
		Shrinkage: decimal.NewFromInt(85), Output: decimal.NewFromInt(15),
	}
	require.NoError(t, repos.Process.Create(ctx, ev))
	list, err := repos.Process.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"c1", "c2"}, list[0].PurchaseIDs)
}

func TestAdvanceRepo_ActualizaSaldo(t *testing.T) {
	ctx := context.Background()
	_, repos := newRepos(t)
	a := &entity.Advance{ID: "a1", Supplier: "Doña Rosa", Amount: decimal.NewFromInt(500), Balance: decimal.NewFromInt(500)}
	require.NoError(t, repos.Advances.Create(ctx, a))

	require.NoError(t, repos.Advances.UpdateBalance(ctx, a, decimal.NewFromInt(200)))
	got, err := repos.Advances.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(200)))

	assert.Error(t, repos.Advances.UpdateBalance(ctx, a, decimal.NewFromInt(-1)))
}

func TestEvidenceRepo_ValidaTipo(t *testing.T) {
	_, repos := newRepos(t)
	err := repos.Evidence.Create(context.Background(), &entity.Evidence{
		ID: "ev1", OperationType: "regalo", OperationID: "x", File: "f",
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestParseDecimal(t *testing.T) {
	cases := map[string]string{
		"":        "0",
		"12":      "12",
		"12.5":    "12.5",
		"12,5":    "12.5",
		"1.234,5": "1234.5",
		" 7 ":     "7",
	}
	for in, want := range cases {
		got, err := tabular.ParseDecimal(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%q -> %s", in, got)
	}
	_, err := tabular.ParseDecimal("doce")
	assert.Error(t, err)
}
