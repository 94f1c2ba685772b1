package conversation

import (
	"context"
	"fmt"

	"github.com/jhoicas/cafe-bot/internal/application/evidence"
	"github.com/jhoicas/cafe-bot/internal/application/report"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

var operationLabels = map[string]string{
	entity.OperationPurchase: "Compra",
	entity.OperationSale:     "Venta",
	entity.OperationAdvance:  "Adelanto",
	entity.OperationExpense:  "Gasto",
}

const recentLimit = 5

func evidenceFlow(svc Services) flow {
	return &form{
		fields: []field{
			{
				key: "tipo",
				prompt: func(_ context.Context, _ *Session) (Reply, error) {
					var buttons []Button
					for _, op := range []string{entity.OperationPurchase, entity.OperationSale, entity.OperationAdvance, entity.OperationExpense} {
						buttons = append(buttons, Button{Text: operationLabels[op], Data: op})
					}
					return Reply{Text: "📎 ¿A qué tipo de operación corresponde el comprobante?", Keyboard: rows(buttons, 2)}, nil
				},
				parse: func(_ context.Context, _ *Session, in Input) (string, error) {
					if _, ok := operationLabels[in.Value()]; !ok {
						return "", userError("Elige el tipo con los botones.")
					}
					return in.Value(), nil
				},
			},
			{
				key: "operacion",
				prompt: func(ctx context.Context, s *Session) (Reply, error) {
					ops, err := svc.Trade.RecentOperations(ctx, s.Get("tipo"), recentLimit)
					if err != nil {
						return Reply{}, err
					}
					if len(ops) == 0 {
						return Reply{}, userError("No hay operaciones de ese tipo registradas.")
					}
					buttons := make([]Button, 0, len(ops))
					for _, op := range ops {
						buttons = append(buttons, Button{Text: op.Date.Format("01-02 15:04") + " · " + op.Summary, Data: op.ID})
					}
					return Reply{Text: "🧾 ¿Cuál operación?", Keyboard: rows(buttons, 1)}, nil
				},
				parse: func(ctx context.Context, s *Session, in Input) (string, error) {
					ops, err := svc.Trade.RecentOperations(ctx, s.Get("tipo"), recentLimit)
					if err != nil {
						return "", err
					}
					for _, op := range ops {
						if op.ID == in.Value() {
							s.Set("operacion_resumen", op.Summary)
							return op.ID, nil
						}
					}
					return "", userError("Elige la operación con los botones.")
				},
			},
			{
				key: "foto",
				prompt: func(_ context.Context, _ *Session) (Reply, error) {
					return Reply{Text: "📷 Envía la foto del comprobante."}, nil
				},
				parse: func(_ context.Context, _ *Session, in Input) (string, error) {
					if in.Photo == nil || in.Photo.FileID == "" {
						return "", userError("Envía una foto (no texto).")
					}
					return in.Photo.FileID, nil
				},
			},
		},
		submit: func(ctx context.Context, s *Session, in Input) ([]Reply, error) {
			att := evidence.AttachInput{
				OperationType: s.Get("tipo"),
				OperationID:   s.Get("operacion"),
				FileID:        s.Get("foto"),
				RegisteredBy:  s.Username,
			}
			if svc.Evidence.StorageEnabled() && in.Photo != nil && in.Photo.Fetch != nil {
				content, contentType, err := in.Photo.Fetch(ctx)
				if err != nil {
					return nil, fmt.Errorf("descargar foto: %w", err)
				}
				att.Content, att.ContentType = content, contentType
			}
			if _, err := svc.Evidence.Attach(ctx, att); err != nil {
				return nil, err
			}
			return []Reply{{Text: fmt.Sprintf("✅ Comprobante guardado para %s: %s.",
				operationLabels[att.OperationType], s.Get("operacion_resumen"))}}, nil
		},
	}
}

func reportFlow(svc Services) flow {
	return action(func(ctx context.Context, _ *Session, _ Input) ([]Reply, error) {
		r, err := svc.Report.InventoryReport(ctx)
		if err != nil {
			return nil, err
		}
		return []Reply{{Text: report.Text(r)}}, nil
	})
}

func reportPDFFlow(svc Services) flow {
	return action(func(ctx context.Context, _ *Session, _ Input) ([]Reply, error) {
		doc, name, err := svc.Report.InventoryPDF(ctx)
		if err != nil {
			return nil, err
		}
		return []Reply{{Text: "📄 Reporte de almacén", Document: &Document{Name: name, Content: doc}}}, nil
	})
}
