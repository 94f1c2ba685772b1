package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/domain/inventory"
)

func TestIsValidTransition_SoloParesConfigurados(t *testing.T) {
	g := inventory.DefaultGraph()
	allowed := map[[2]entity.Phase]bool{
		{entity.PhaseCerezo, entity.PhaseMote}:       true,
		{entity.PhaseCerezo, entity.PhasePergamino}:  true,
		{entity.PhaseMote, entity.PhasePergamino}:    true,
		{entity.PhasePergamino, entity.PhaseVerde}:   true,
		{entity.PhasePergamino, entity.PhaseTostado}: true,
		{entity.PhasePergamino, entity.PhaseMolido}:  true,
		{entity.PhaseVerde, entity.PhaseTostado}:     true,
		{entity.PhaseTostado, entity.PhaseMolido}:    true,
	}
	// Recorre todos los pares, incluidos bucles y transiciones inversas.
	for _, o := range entity.Phases {
		for _, d := range entity.Phases {
			assert.Equal(t, allowed[[2]entity.Phase{o, d}], g.IsValidTransition(o, d), "%s -> %s", o, d)
		}
	}
}

func TestIsValidTransition_OrigenDesconocido(t *testing.T) {
	g := inventory.DefaultGraph()
	assert.False(t, g.IsValidTransition(entity.Phase("PASILLA"), entity.PhaseVerde))
	assert.False(t, g.IsValidTransition(entity.PhaseMolido, entity.PhaseTostado), "MOLIDO es terminal")
	assert.Empty(t, g.Successors(entity.PhaseMolido))
}

func TestSuggestedShrinkage(t *testing.T) {
	g := inventory.DefaultGraph()

	got := g.SuggestedShrinkage(entity.PhaseCerezo, entity.PhaseMote, decimal.NewFromInt(100))
	assert.True(t, got.Equal(decimal.NewFromInt(85)), "100 kg CEREZO->MOTE con 0.85 = 85 kg, got %s", got)

	// Par sin relación configurada: merma exactamente cero.
	custom := inventory.DefaultGraph().WithRatios(nil)
	zero := custom.SuggestedShrinkage(entity.PhaseMolido, entity.PhaseCerezo, decimal.NewFromInt(50))
	assert.True(t, zero.IsZero())
}

func TestSuggestedShrinkage_RedondeoDosDecimales(t *testing.T) {
	g := inventory.DefaultGraph().WithRatios(map[string]decimal.Decimal{
		"verde_tostado": decimal.RequireFromString("0.125"),
	})
	// 10.1 * 0.125 = 1.2625 -> 1.26 ; 0.3 * 0.125 = 0.0375 -> 0.04 (mitad lejos de cero)
	assert.Equal(t, "1.26", g.SuggestedShrinkage(entity.PhaseVerde, entity.PhaseTostado, decimal.RequireFromString("10.1")).StringFixed(2))
	assert.Equal(t, "0.04", g.SuggestedShrinkage(entity.PhaseVerde, entity.PhaseTostado, decimal.RequireFromString("0.3")).StringFixed(2))
}

func TestParseRatios(t *testing.T) {
	ratios, err := inventory.ParseRatios(" cerezo_mote=0.6, VERDE_TOSTADO = 0.18 ,")
	require.NoError(t, err)
	assert.Len(t, ratios, 2)
	assert.Equal(t, "0.6", ratios["CEREZO_MOTE"].String())

	g := inventory.DefaultGraph().WithRatios(ratios)
	assert.Equal(t, "60.00", g.SuggestedShrinkage(entity.PhaseCerezo, entity.PhaseMote, decimal.NewFromInt(100)).StringFixed(2))

	_, err = inventory.ParseRatios("CEREZO_MOTE")
	assert.Error(t, err)
	_, err = inventory.ParseRatios("CEREZO_CHOCOLATE=0.1")
	assert.Error(t, err)
	_, err = inventory.ParseRatios("CEREZO_MOTE=1.5")
	assert.Error(t, err)
}

func TestAveragePrice(t *testing.T) {
	avg := inventory.AveragePrice([]inventory.WeightedLot{
		{Quantity: decimal.NewFromInt(30), UnitPrice: decimal.NewFromInt(10)},
		{Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(14)},
		{Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(99)},
	})
	assert.Equal(t, "11.00", avg.StringFixed(2))
}
