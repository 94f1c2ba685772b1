package conversation

import (
	"context"
	"fmt"

	"github.com/jhoicas/cafe-bot/internal/application/trade"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

func allPhasesField(key, prompt string) field {
	return field{
		key: key,
		prompt: func(_ context.Context, _ *Session) (Reply, error) {
			return Reply{Text: prompt, Keyboard: phaseButtons(entity.Phases, entity.Phase.Label)}, nil
		},
		parse: func(_ context.Context, _ *Session, in Input) (string, error) {
			p, err := parsePhaseIn(in.Value(), entity.Phases)
			return string(p), err
		},
	}
}

func purchaseFlow(svc Services) flow {
	return &form{
		fields: []field{
			allPhasesField("fase", "☕ ¿En qué fase viene el café comprado?"),
			textField("proveedor", "👤 ¿A qué proveedor le compras?", "el nombre del proveedor", 120),
			numberField("cantidad", "⚖️ ¿Cuántos kg?", parsePositive("La cantidad")),
			numberField("precio", "💲 ¿Precio por kg?", parseNonNegative("El precio")),
			notesField(),
		},
		summary: func(s *Session) string {
			q, p := dec(s, "cantidad"), dec(s, "precio")
			return fmt.Sprintf("🧾 Compra de %s kg de %s a %s\nPrecio: %s/kg · Total: %s%s",
				kg(q), phaseOf(s, "fase").Label(), s.Get("proveedor"), money(p), money(q.Mul(p).Round(2)), notesLine(s))
		},
		submit: func(ctx context.Context, s *Session, _ Input) ([]Reply, error) {
			res, err := svc.Trade.RegisterPurchase(ctx, trade.PurchaseInput{
				Phase:        phaseOf(s, "fase"),
				Supplier:     s.Get("proveedor"),
				Quantity:     dec(s, "cantidad"),
				UnitPrice:    dec(s, "precio"),
				Notes:        s.Get("notas"),
				RegisteredBy: s.Username,
			})
			if err != nil {
				return nil, err
			}
			text := fmt.Sprintf("✅ Compra registrada: %s kg de %s a %s por %s.",
				kg(res.Purchase.Quantity), res.Purchase.Phase.Label(), res.Purchase.Supplier, money(res.Purchase.TotalPrice))
			if res.InventoryErr != nil {
				text += "\n⚠️ La compra quedó registrada pero el almacén no se actualizó. Usa /sincronizar."
			}
			return []Reply{{Text: text + "\n📎 Puedes adjuntar el comprobante con /evidencia."}}, nil
		},
	}
}

// availablePhases fases con stock, con la etiqueta "Tostado (12.50 kg)".
func availablePhases(ctx context.Context, svc Services, include func(entity.Phase) bool) ([]entity.Phase, map[entity.Phase]string, error) {
	summary, err := svc.Ledger.Summary(ctx)
	if err != nil {
		return nil, nil, err
	}
	var phases []entity.Phase
	labels := map[entity.Phase]string{}
	for _, ps := range summary {
		if !ps.Quantity.IsPositive() || (include != nil && !include(ps.Phase)) {
			continue
		}
		phases = append(phases, ps.Phase)
		labels[ps.Phase] = fmt.Sprintf("%s (%s kg)", ps.Phase.Label(), kg(ps.Quantity))
	}
	return phases, labels, nil
}

func stockPhaseField(svc Services, key, prompt, empty string, include func(entity.Phase) bool) field {
	return field{
		key: key,
		prompt: func(ctx context.Context, _ *Session) (Reply, error) {
			phases, labels, err := availablePhases(ctx, svc, include)
			if err != nil {
				return Reply{}, err
			}
			if len(phases) == 0 {
				return Reply{}, userError(empty)
			}
			return Reply{Text: prompt, Keyboard: phaseButtons(phases, func(p entity.Phase) string { return labels[p] })}, nil
		},
		parse: func(ctx context.Context, _ *Session, in Input) (string, error) {
			phases, _, err := availablePhases(ctx, svc, include)
			if err != nil {
				return "", err
			}
			p, err := parsePhaseIn(in.Value(), phases)
			return string(p), err
		},
	}
}

// stockQuantityField cantidad a descontar de la fase guardada en phaseKey; no puede superar lo disponible.
func stockQuantityField(svc Services, phaseKey string) field {
	positive := parsePositive("La cantidad")
	return field{
		key: "cantidad",
		prompt: func(ctx context.Context, s *Session) (Reply, error) {
			p := phaseOf(s, phaseKey)
			return Reply{Text: fmt.Sprintf("⚖️ ¿Cuántos kg? Disponible en %s: %s kg", p.Label(), kg(svc.Ledger.Available(ctx, p)))}, nil
		},
		parse: func(ctx context.Context, s *Session, in Input) (string, error) {
			q, err := positive(in.Value())
			if err != nil {
				return "", err
			}
			p := phaseOf(s, phaseKey)
			if avail := svc.Ledger.Available(ctx, p); q.GreaterThan(avail) {
				return "", userError(fmt.Sprintf("Solo hay %s kg de %s.", kg(avail), p.Label()))
			}
			return q.String(), nil
		},
	}
}

func saleFlow(svc Services) flow {
	return &form{
		fields: []field{
			stockPhaseField(svc, "fase", "☕ ¿Qué café vendes?", "No hay café en el almacén para vender.", nil),
			textField("cliente", "👤 ¿A qué cliente?", "el nombre del cliente", 120),
			stockQuantityField(svc, "fase"),
			numberField("precio", "💲 ¿Precio por kg?", parseNonNegative("El precio")),
			notesField(),
		},
		summary: func(s *Session) string {
			q, p := dec(s, "cantidad"), dec(s, "precio")
			return fmt.Sprintf("🧾 Venta de %s kg de %s a %s\nPrecio: %s/kg · Total: %s%s",
				kg(q), phaseOf(s, "fase").Label(), s.Get("cliente"), money(p), money(q.Mul(p).Round(2)), notesLine(s))
		},
		submit: func(ctx context.Context, s *Session, _ Input) ([]Reply, error) {
			sale, err := svc.Trade.RegisterSale(ctx, trade.SaleInput{
				Phase:        phaseOf(s, "fase"),
				Customer:     s.Get("cliente"),
				Quantity:     dec(s, "cantidad"),
				UnitPrice:    dec(s, "precio"),
				Notes:        s.Get("notas"),
				RegisteredBy: s.Username,
			})
			if err != nil {
				return nil, err
			}
			left := svc.Ledger.Available(ctx, sale.Phase)
			return []Reply{{Text: fmt.Sprintf("✅ Venta registrada: %s kg de %s a %s por %s.\nQuedan %s kg de %s.",
				kg(sale.Quantity), sale.Phase.Label(), sale.Customer, money(sale.Total), kg(left), sale.Phase.Label())}}, nil
		},
	}
}

func advanceFlow(svc Services) flow {
	return &form{
		fields: []field{
			textField("proveedor", "👤 ¿A qué proveedor le das el adelanto?", "el nombre del proveedor", 120),
			numberField("monto", "💵 ¿Monto del adelanto?", parsePositive("El monto")),
			notesField(),
		},
		summary: func(s *Session) string {
			return fmt.Sprintf("🧾 Adelanto de %s a %s%s", money(dec(s, "monto")), s.Get("proveedor"), notesLine(s))
		},
		submit: func(ctx context.Context, s *Session, _ Input) ([]Reply, error) {
			a, err := svc.Trade.RegisterAdvance(ctx, trade.AdvanceInput{
				Supplier:     s.Get("proveedor"),
				Amount:       dec(s, "monto"),
				Notes:        s.Get("notas"),
				RegisteredBy: s.Username,
			})
			if err != nil {
				return nil, err
			}
			return []Reply{{Text: fmt.Sprintf("✅ Adelanto registrado: %s a %s.\nÚsalo con /compra_adelanto.", money(a.Amount), a.Supplier)}}, nil
		},
	}
}

func advancePurchaseFlow(svc Services) flow {
	price := parseNonNegative("El precio")
	return &form{
		fields: []field{
			{
				key: "adelanto",
				prompt: func(ctx context.Context, _ *Session) (Reply, error) {
					open, err := svc.Trade.OpenAdvances(ctx)
					if err != nil {
						return Reply{}, err
					}
					if len(open) == 0 {
						return Reply{}, userError("No hay adelantos con saldo pendiente. Registra uno con /adelanto.")
					}
					buttons := make([]Button, 0, len(open))
					for _, a := range open {
						buttons = append(buttons, Button{
							Text: fmt.Sprintf("%s · saldo %s (%s)", a.Supplier, money(a.Balance), a.Date.Format("2006-01-02")),
							Data: a.ID,
						})
					}
					return Reply{Text: "💵 ¿Con qué adelanto pagas?", Keyboard: rows(buttons, 1)}, nil
				},
				parse: func(ctx context.Context, s *Session, in Input) (string, error) {
					open, err := svc.Trade.OpenAdvances(ctx)
					if err != nil {
						return "", err
					}
					for _, a := range open {
						if a.ID == in.Value() {
							s.Set("proveedor", a.Supplier)
							s.Set("saldo", a.Balance.String())
							return a.ID, nil
						}
					}
					return "", userError("Elige un adelanto con los botones.")
				},
			},
			allPhasesField("fase", "☕ ¿En qué fase viene el café?"),
			numberField("cantidad", "⚖️ ¿Cuántos kg?", parsePositive("La cantidad")),
			{
				key: "precio",
				prompt: func(_ context.Context, s *Session) (Reply, error) {
					return Reply{Text: fmt.Sprintf("💲 ¿Precio por kg? Saldo del adelanto: %s", money(dec(s, "saldo")))}, nil
				},
				parse: func(_ context.Context, s *Session, in Input) (string, error) {
					p, err := price(in.Value())
					if err != nil {
						return "", err
					}
					total := dec(s, "cantidad").Mul(p).Round(2)
					if saldo := dec(s, "saldo"); total.GreaterThan(saldo) {
						return "", userError(fmt.Sprintf("El total %s supera el saldo del adelanto (%s).", money(total), money(saldo)))
					}
					return p.String(), nil
				},
			},
			notesField(),
		},
		summary: func(s *Session) string {
			q, p := dec(s, "cantidad"), dec(s, "precio")
			total := q.Mul(p).Round(2)
			return fmt.Sprintf("🧾 Compra con adelanto a %s\n%s kg de %s a %s/kg · Total: %s\nSaldo después: %s%s",
				s.Get("proveedor"), kg(q), phaseOf(s, "fase").Label(), money(p), money(total),
				money(dec(s, "saldo").Sub(total)), notesLine(s))
		},
		submit: func(ctx context.Context, s *Session, _ Input) ([]Reply, error) {
			res, err := svc.Trade.RegisterAdvancePurchase(ctx, trade.AdvancePurchaseInput{
				AdvanceID:    s.Get("adelanto"),
				Phase:        phaseOf(s, "fase"),
				Quantity:     dec(s, "cantidad"),
				UnitPrice:    dec(s, "precio"),
				Notes:        s.Get("notas"),
				RegisteredBy: s.Username,
			})
			if err != nil {
				return nil, err
			}
			text := fmt.Sprintf("✅ Compra registrada con adelanto: %s kg de %s por %s.\nSaldo restante de %s: %s.",
				kg(res.Purchase.Quantity), res.Purchase.Phase.Label(), money(res.Purchase.TotalPrice),
				res.Advance.Supplier, money(res.Advance.Balance))
			if res.InventoryErr != nil {
				text += "\n⚠️ El almacén no se actualizó. Usa /sincronizar."
			}
			return []Reply{{Text: text}}, nil
		},
	}
}

func expenseFlow(svc Services) flow {
	category := parseText("la categoría", 60)
	return &form{
		fields: []field{
			{
				key: "categoria",
				prompt: func(_ context.Context, _ *Session) (Reply, error) {
					buttons := make([]Button, 0, len(trade.ExpenseCategories))
					for _, c := range trade.ExpenseCategories {
						buttons = append(buttons, Button{Text: c, Data: c})
					}
					return Reply{Text: "🏷️ ¿Categoría del gasto? Elige o escribe otra.", Keyboard: rows(buttons, 3)}, nil
				},
				parse: func(_ context.Context, _ *Session, in Input) (string, error) {
					return category(in.Value())
				},
			},
			numberField("monto", "💵 ¿Monto?", parsePositive("El monto")),
			{
				key: "descripcion",
				prompt: func(_ context.Context, _ *Session) (Reply, error) {
					return Reply{Text: "📝 Descripción (opcional):", Keyboard: notesKeyboard()}, nil
				},
				parse: func(_ context.Context, _ *Session, in Input) (string, error) {
					return parseNotes(in.Value()), nil
				},
			},
		},
		summary: func(s *Session) string {
			text := fmt.Sprintf("🧾 Gasto de %s en %s", money(dec(s, "monto")), s.Get("categoria"))
			if d := s.Get("descripcion"); d != "" {
				text += "\nDescripción: " + d
			}
			return text
		},
		submit: func(ctx context.Context, s *Session, _ Input) ([]Reply, error) {
			e, err := svc.Trade.RegisterExpense(ctx, trade.ExpenseInput{
				Category:     s.Get("categoria"),
				Amount:       dec(s, "monto"),
				Description:  s.Get("descripcion"),
				RegisteredBy: s.Username,
			})
			if err != nil {
				return nil, err
			}
			return []Reply{{Text: fmt.Sprintf("✅ Gasto registrado: %s en %s.", money(e.Amount), e.Category)}}, nil
		},
	}
}
