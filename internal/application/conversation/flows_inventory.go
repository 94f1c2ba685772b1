package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	appinventory "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/application/trade"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

const (
	lotFIFO         = "fifo"
	lotPrefix       = "lote:"
	shrinkSuggested = "sugerida"
)

// purchaseLots lotes de la fase agrupados por compra, en orden FIFO.
func purchaseLots(lots []appinventory.LotView) []appinventory.LotView {
	var out []appinventory.LotView
	idx := map[string]int{}
	for _, l := range lots {
		if l.PurchaseID == "" {
			continue
		}
		if i, ok := idx[l.PurchaseID]; ok {
			out[i].Quantity = out[i].Quantity.Add(l.Quantity)
			continue
		}
		idx[l.PurchaseID] = len(out)
		out = append(out, l)
	}
	return out
}

func lotLabel(l appinventory.LotView) string {
	supplier := l.Supplier
	if supplier == "" {
		supplier = "sin proveedor"
	}
	date := l.CreatedAt
	if !l.PurchaseDate.IsZero() {
		date = l.PurchaseDate
	}
	return fmt.Sprintf("%s · %s kg · %s", supplier, kg(l.Quantity), date.Format("2006-01-02"))
}

func processFlow(svc Services) flow {
	graph := svc.Transform.Graph()
	shrink := parseNonNegative("La merma")
	suggested := func(s *Session) decimal.Decimal {
		return graph.SuggestedShrinkage(phaseOf(s, "origen"), phaseOf(s, "destino"), dec(s, "cantidad"))
	}
	shrinkage := func(s *Session) decimal.Decimal {
		if s.Get("merma") == shrinkSuggested {
			return suggested(s)
		}
		return dec(s, "merma")
	}
	return &form{
		fields: []field{
			stockPhaseField(svc, "origen", "🔄 ¿Qué café vas a procesar?", "No hay café disponible para procesar.",
				func(p entity.Phase) bool { return len(graph.Successors(p)) > 0 }),
			{
				key: "destino",
				prompt: func(_ context.Context, s *Session) (Reply, error) {
					return Reply{
						Text:     fmt.Sprintf("➡️ ¿A qué fase pasa el %s?", phaseOf(s, "origen").Label()),
						Keyboard: phaseButtons(graph.Successors(phaseOf(s, "origen")), entity.Phase.Label),
					}, nil
				},
				parse: func(ctx context.Context, s *Session, in Input) (string, error) {
					p, err := parsePhaseIn(in.Value(), graph.Successors(phaseOf(s, "origen")))
					if err != nil {
						return "", err
					}
					// Con una sola compra en el origen no se pregunta el lote.
					n := len(purchaseLots(svc.Ledger.Lots(ctx, phaseOf(s, "origen"))))
					s.Set("lotes_disponibles", fmt.Sprint(n))
					return string(p), nil
				},
			},
			{
				key: "lote",
				skip: func(s *Session) bool {
					return s.Get("lotes_disponibles") == "0" || s.Get("lotes_disponibles") == "1"
				},
				prompt: func(ctx context.Context, s *Session) (Reply, error) {
					lots := purchaseLots(svc.Ledger.Lots(ctx, phaseOf(s, "origen")))
					buttons := []Button{{Text: "🔁 FIFO automático", Data: lotFIFO}}
					for _, l := range lots {
						buttons = append(buttons, Button{Text: lotLabel(l), Data: lotPrefix + l.PurchaseID})
					}
					return Reply{Text: "📦 ¿De qué lote sale primero?", Keyboard: rows(buttons, 1)}, nil
				},
				parse: func(ctx context.Context, s *Session, in Input) (string, error) {
					v := in.Value()
					if v == lotFIFO {
						return "", nil
					}
					id := strings.TrimPrefix(v, lotPrefix)
					for _, l := range purchaseLots(svc.Ledger.Lots(ctx, phaseOf(s, "origen"))) {
						if v != id && l.PurchaseID == id {
							s.Set("lote_nombre", lotLabel(l))
							return id, nil
						}
					}
					return "", userError("Elige un lote con los botones.")
				},
			},
			stockQuantityField(svc, "origen"),
			{
				key: "merma",
				prompt: func(_ context.Context, s *Session) (Reply, error) {
					sug := suggested(s)
					return Reply{
						Text: fmt.Sprintf("📉 Merma sugerida: %s kg (relación %s). Escribe la merma real en kg o usa la sugerida.",
							kg(sug), graph.Ratio(phaseOf(s, "origen"), phaseOf(s, "destino")).String()),
						Keyboard: [][]Button{{{Text: fmt.Sprintf("Usar sugerida (%s kg)", kg(sug)), Data: shrinkSuggested}}},
					}, nil
				},
				parse: func(_ context.Context, _ *Session, in Input) (string, error) {
					if in.Value() == shrinkSuggested {
						return shrinkSuggested, nil
					}
					d, err := shrink(in.Value())
					if err != nil {
						return "", err
					}
					return d.String(), nil
				},
			},
			notesField(),
		},
		summary: func(s *Session) string {
			q, m := dec(s, "cantidad"), shrinkage(s)
			out := decimal.Max(decimal.Zero, q.Sub(m))
			text := fmt.Sprintf("🔄 Proceso %s → %s\nCantidad: %s kg · Merma: %s kg (sugerida %s kg)\nResultado: %s kg",
				phaseOf(s, "origen").Label(), phaseOf(s, "destino").Label(), kg(q), kg(m), kg(suggested(s)), kg(out))
			if name := s.Get("lote_nombre"); name != "" && s.Get("lote") != "" {
				text += "\nLote primero: " + name
			}
			return text + notesLine(s)
		},
		submit: func(ctx context.Context, s *Session, _ Input) ([]Reply, error) {
			in := appinventory.ProcessInput{
				Origin:       phaseOf(s, "origen"),
				Destination:  phaseOf(s, "destino"),
				Quantity:     dec(s, "cantidad"),
				Notes:        s.Get("notas"),
				RegisteredBy: s.Username,
			}
			if s.Get("merma") != shrinkSuggested {
				m := dec(s, "merma")
				in.Shrinkage = &m
			}
			if id := s.Get("lote"); id != "" {
				in.PreferredPurchaseIDs = []string{id}
			}
			res, err := svc.Transform.RegisterProcess(ctx, in)
			if err != nil {
				return nil, err
			}
			text := fmt.Sprintf("✅ Proceso registrado: %s kg de %s → %s kg de %s.",
				kg(in.Quantity), in.Origin.Label(), kg(res.Event.Output), in.Destination.Label())
			if res.Transform.Destination == nil {
				text += fmt.Sprintf("\nLa merma cubrió toda la cantidad; no se creó entrada en %s.", in.Destination.Label())
			}
			return []Reply{{Text: text}}, nil
		},
	}
}

const (
	actionLots   = "lotes"
	actionAdjust = "ajustar"
	actionDone   = "listo"
)

func stockSummary(ctx context.Context, svc Services) (string, error) {
	summary, err := svc.Ledger.Summary(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("📦 Almacén\n")
	total := decimal.Zero
	for _, ps := range summary {
		fmt.Fprintf(&b, "• %s: %s kg", ps.Phase.Label(), kg(ps.Quantity))
		if ps.Lots > 0 {
			fmt.Fprintf(&b, " (%d lote(s))", ps.Lots)
		}
		b.WriteString("\n")
		total = total.Add(ps.Quantity)
	}
	fmt.Fprintf(&b, "Total: %s kg", kg(total))
	return b.String(), nil
}

func inventoryFlow(svc Services) flow {
	isAdjust := func(s *Session) bool { return s.Get("accion") == actionAdjust }
	notAdjust := func(s *Session) bool { return !isAdjust(s) }
	notes := notesField()
	notes.skip = notAdjust
	return &form{
		fields: []field{
			{
				key: "accion",
				prompt: func(ctx context.Context, _ *Session) (Reply, error) {
					text, err := stockSummary(ctx, svc)
					if err != nil {
						return Reply{}, err
					}
					return Reply{Text: text, Keyboard: [][]Button{{
						{Text: "📋 Ver lotes", Data: actionLots},
						{Text: "✏️ Ajustar", Data: actionAdjust},
						{Text: "✔️ Listo", Data: actionDone},
					}}}, nil
				},
				parse: func(_ context.Context, _ *Session, in Input) (string, error) {
					switch v := strings.ToLower(strings.TrimSpace(in.Value())); v {
					case actionLots, actionAdjust, actionDone:
						return v, nil
					}
					return "", userError("Elige una opción con los botones.")
				},
			},
			{
				key:  "fase",
				skip: func(s *Session) bool { return s.Get("accion") == actionDone },
				prompt: func(_ context.Context, _ *Session) (Reply, error) {
					return Reply{Text: "☕ ¿Qué fase?", Keyboard: phaseButtons(entity.Phases, entity.Phase.Label)}, nil
				},
				parse: func(_ context.Context, _ *Session, in Input) (string, error) {
					p, err := parsePhaseIn(in.Value(), entity.Phases)
					return string(p), err
				},
			},
			{
				key:  "modo",
				skip: notAdjust,
				prompt: func(_ context.Context, _ *Session) (Reply, error) {
					return Reply{Text: "✏️ ¿Qué ajuste?", Keyboard: [][]Button{{
						{Text: "➕ Agregar", Data: string(trade.AdjustAdd)},
						{Text: "➖ Restar", Data: string(trade.AdjustSubtract)},
						{Text: "🟰 Establecer", Data: string(trade.AdjustSet)},
					}}}, nil
				},
				parse: func(_ context.Context, _ *Session, in Input) (string, error) {
					m, ok := trade.ParseAdjustMode(in.Value())
					if !ok {
						return "", userError("Elige agregar, restar o establecer.")
					}
					return string(m), nil
				},
			},
			{
				key:  "cantidad",
				skip: notAdjust,
				prompt: func(ctx context.Context, s *Session) (Reply, error) {
					p := phaseOf(s, "fase")
					return Reply{Text: fmt.Sprintf("⚖️ ¿Cuántos kg? Disponible en %s: %s kg", p.Label(), kg(svc.Ledger.Available(ctx, p)))}, nil
				},
				parse: func(_ context.Context, s *Session, in Input) (string, error) {
					parse := parsePositive("La cantidad")
					if trade.AdjustMode(s.Get("modo")) == trade.AdjustSet {
						parse = parseNonNegative("La cantidad")
					}
					d, err := parse(in.Value())
					if err != nil {
						return "", err
					}
					return d.String(), nil
				},
			},
			notes,
		},
		confirmIf: isAdjust,
		summary: func(s *Session) string {
			return fmt.Sprintf("✏️ Ajuste de %s: %s %s kg%s",
				phaseOf(s, "fase").Label(), s.Get("modo"), kg(dec(s, "cantidad")), notesLine(s))
		},
		submit: func(ctx context.Context, s *Session, _ Input) ([]Reply, error) {
			p := phaseOf(s, "fase")
			switch s.Get("accion") {
			case actionLots:
				return []Reply{{Text: lotsText(p, svc.Ledger.Lots(ctx, p))}}, nil
			case actionAdjust:
				avail, err := svc.Trade.AdjustInventory(ctx, trade.AdjustInput{
					Phase:        p,
					Mode:         trade.AdjustMode(s.Get("modo")),
					Quantity:     dec(s, "cantidad"),
					Notes:        s.Get("notas"),
					RegisteredBy: s.Username,
				})
				if err != nil {
					return nil, err
				}
				return []Reply{{Text: fmt.Sprintf("✅ Almacén actualizado. %s: %s kg disponibles.", p.Label(), kg(avail))}}, nil
			default:
				return []Reply{{Text: "👍"}}, nil
			}
		},
	}
}

func lotsText(p entity.Phase, lots []appinventory.LotView) string {
	if len(lots) == 0 {
		return fmt.Sprintf("No hay lotes disponibles de %s.", p.Label())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Lotes de %s (del más antiguo al más reciente):\n", p.Label())
	for i, l := range lots {
		fmt.Fprintf(&b, "%d. %s", i+1, lotLabel(l))
		if l.OriginPhase != "" && l.OriginPhase != p {
			fmt.Fprintf(&b, " · desde %s", l.OriginPhase.Label())
		}
		if l.UnitPrice.IsPositive() {
			fmt.Fprintf(&b, " · %s/kg", money(l.UnitPrice))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func reconcileFlow(svc Services) flow {
	return action(func(ctx context.Context, _ *Session, _ Input) ([]Reply, error) {
		res, err := svc.Ledger.Reconcile(ctx)
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf("🔄 Sincronización terminada.\nEntradas creadas: %d\nCompras ya registradas: %d", len(res.Created), res.Skipped)
		if res.Invalid > 0 {
			text += fmt.Sprintf("\nCompras con datos inválidos (revisar en la hoja): %d", res.Invalid)
		}
		return []Reply{{Text: text}}, nil
	})
}
