package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// Graph grafo estático de transiciones entre fases y relaciones de merma sugeridas.
// La merma se expresa como fracción de la masa de entrada que se pierde.
type Graph struct {
	successors map[entity.Phase][]entity.Phase
	ratios     map[string]decimal.Decimal // clave "ORIGEN_DESTINO"
}

// DefaultGraph devuelve el grafo de procesamiento de café con las mermas por defecto.
//
//	CEREZO -> MOTE | PERGAMINO
//	MOTE -> PERGAMINO
//	PERGAMINO -> VERDE | TOSTADO | MOLIDO
//	VERDE -> TOSTADO
//	TOSTADO -> MOLIDO
func DefaultGraph() *Graph {
	return &Graph{
		successors: map[entity.Phase][]entity.Phase{
			entity.PhaseCerezo:    {entity.PhaseMote, entity.PhasePergamino},
			entity.PhaseMote:      {entity.PhasePergamino},
			entity.PhasePergamino: {entity.PhaseVerde, entity.PhaseTostado, entity.PhaseMolido},
			entity.PhaseVerde:     {entity.PhaseTostado},
			entity.PhaseTostado:   {entity.PhaseMolido},
		},
		ratios: map[string]decimal.Decimal{
			"CEREZO_MOTE":       decimal.RequireFromString("0.85"),
			"CEREZO_PERGAMINO":  decimal.RequireFromString("0.88"),
			"MOTE_PERGAMINO":    decimal.RequireFromString("0.20"),
			"PERGAMINO_VERDE":   decimal.RequireFromString("0.20"),
			"PERGAMINO_TOSTADO": decimal.RequireFromString("0.33"),
			"PERGAMINO_MOLIDO":  decimal.RequireFromString("0.34"),
			"VERDE_TOSTADO":     decimal.RequireFromString("0.16"),
			"TOSTADO_MOLIDO":    decimal.RequireFromString("0.01"),
		},
	}
}

// WithRatios devuelve una copia del grafo con las relaciones de merma reemplazadas
// para las claves indicadas. Las transiciones no cambian.
func (g *Graph) WithRatios(overrides map[string]decimal.Decimal) *Graph {
	ratios := make(map[string]decimal.Decimal, len(g.ratios)+len(overrides))
	for k, v := range g.ratios {
		ratios[k] = v
	}
	for k, v := range overrides {
		ratios[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &Graph{successors: g.successors, ratios: ratios}
}

// IsValidTransition indica si destination es sucesor directo de origin.
// Un origen desconocido devuelve false, no error.
func (g *Graph) IsValidTransition(origin, destination entity.Phase) bool {
	for _, s := range g.successors[origin] {
		if s == destination {
			return true
		}
	}
	return false
}

// Successors fases destino permitidas desde origin (nil si es terminal o desconocida).
func (g *Graph) Successors(origin entity.Phase) []entity.Phase {
	out := make([]entity.Phase, len(g.successors[origin]))
	copy(out, g.successors[origin])
	return out
}

// Ratio relación de merma configurada para el par; cero si no está configurada.
func (g *Graph) Ratio(origin, destination entity.Phase) decimal.Decimal {
	if r, ok := g.ratios[ratioKey(origin, destination)]; ok {
		return r
	}
	return decimal.Zero
}

// SuggestedShrinkage merma sugerida = cantidad × relación, redondeada a 2 decimales.
// Sin relación configurada la merma es exactamente 0.
func (g *Graph) SuggestedShrinkage(origin, destination entity.Phase, quantity decimal.Decimal) decimal.Decimal {
	return quantity.Mul(g.Ratio(origin, destination)).Round(2)
}

func ratioKey(origin, destination entity.Phase) string {
	return string(origin) + "_" + string(destination)
}

// ParseRatios interpreta "CEREZO_MOTE=0.85,VERDE_TOSTADO=0.16".
func ParseRatios(raw string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("relación de merma sin '=': %q", part)
		}
		origin, dest, ok := strings.Cut(strings.TrimSpace(key), "_")
		if !ok {
			return nil, fmt.Errorf("clave de merma inválida: %q", key)
		}
		o, okO := entity.ParsePhase(origin)
		d, okD := entity.ParsePhase(dest)
		if !okO || !okD {
			return nil, fmt.Errorf("fase desconocida en %q", key)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("relación de merma fuera de rango en %q", part)
		}
		out[ratioKey(o, d)] = decimal.NewFromFloat(f)
	}
	return out, nil
}
