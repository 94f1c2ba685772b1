package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/domain/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain/repository"
	"github.com/jhoicas/cafe-bot/pkg/logger"
	"github.com/jhoicas/cafe-bot/pkg/metrics"
)

// TransformUseCase aplica transformaciones de fase sobre el Ledger y las registra en la hoja "proceso".
type TransformUseCase struct {
	ledger  *Ledger
	graph   *inventory.Graph
	process repository.ProcessRepository
	log     *logger.Logger
}

// NewTransformUseCase construye el motor de transformación.
func NewTransformUseCase(ledger *Ledger, graph *inventory.Graph, process repository.ProcessRepository, log *logger.Logger) *TransformUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if graph == nil {
		graph = inventory.DefaultGraph()
	}
	return &TransformUseCase{ledger: ledger, graph: graph, process: process, log: log.Component("transform")}
}

// Graph grafo de fases en uso (teclados de destino, merma sugerida).
func (uc *TransformUseCase) Graph() *inventory.Graph { return uc.graph }

// TransformInput entrada de una transformación.
type TransformInput struct {
	Origin               entity.Phase
	Destination          entity.Phase
	Quantity             decimal.Decimal
	Shrinkage            decimal.Decimal
	PreferredPurchaseIDs []string
}

// TransformResult resultado de una transformación exitosa.
type TransformResult struct {
	Consumption *Consumption
	Output      decimal.Decimal
	// Destination nil cuando la merma se come toda la cantidad (no se crea entrada en cero).
	Destination *entity.InventoryEntry
}

func outputQuantity(quantity, shrinkage decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, quantity.Sub(shrinkage))
}

// validate normaliza las fases de in y revisa la transición y las cantidades.
func (uc *TransformUseCase) validate(in *TransformInput) error {
	var err error
	if in.Origin, err = validPhase(in.Origin); err != nil {
		return err
	}
	if in.Destination, err = validPhase(in.Destination); err != nil {
		return err
	}
	if !uc.graph.IsValidTransition(in.Origin, in.Destination) {
		return fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, in.Origin, in.Destination)
	}
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if in.Shrinkage.IsNegative() {
		return fmt.Errorf("%w: la merma no puede ser negativa", domain.ErrInvalidInput)
	}
	return nil
}

// Transform descuenta quantity del origen (FIFO) y crea en destino max(0, quantity - shrinkage).
// Si la entrada de destino no se puede crear, el origen se restaura antes de devolver el error.
func (uc *TransformUseCase) Transform(ctx context.Context, in TransformInput) (res *TransformResult, err error) {
	defer func() { record("transform", in.Origin, err) }()
	if err := uc.validate(&in); err != nil {
		return nil, err
	}
	unlock := uc.ledger.locks.LockMany(phaseKey(in.Origin), phaseKey(in.Destination))
	defer unlock()
	return uc.transform(ctx, in)
}

func (uc *TransformUseCase) transform(ctx context.Context, in TransformInput) (*TransformResult, error) {
	consumption, err := uc.ledger.decrement(ctx, DecrementInput{
		Phase:                in.Origin,
		Quantity:             in.Quantity,
		Reason:               "proceso a " + string(in.Destination),
		PreferredPurchaseIDs: in.PreferredPurchaseIDs,
	})
	if err != nil {
		return nil, err
	}

	res := &TransformResult{Consumption: consumption, Output: outputQuantity(in.Quantity, in.Shrinkage)}
	if !res.Output.IsPositive() {
		uc.log.Warn().Str("origin", string(in.Origin)).Str("quantity", in.Quantity.String()).
			Msg("la merma cubre toda la cantidad; no se crea entrada de destino")
		return res, nil
	}

	dest, err := uc.ledger.create(ctx, IncrementInput{
		Phase:       in.Destination,
		Quantity:    res.Output,
		PurchaseID:  consumption.SinglePurchaseID(),
		OriginPhase: in.Origin,
		Notes: uc.ledger.auditLine("transformado desde %s (%s kg, merma %s kg)",
			in.Origin, in.Quantity.StringFixed(2), in.Shrinkage.StringFixed(2)),
	})
	if err != nil {
		uc.log.Error().Err(err).Str("origin", string(in.Origin)).Str("destination", string(in.Destination)).
			Msg("destino no registrado; restaurando origen")
		uc.ledger.rollback(ctx, "transform", consumption)
		return nil, err
	}
	res.Destination = dest
	return res, nil
}

// ProcessInput entrada del registro de un proceso.
type ProcessInput struct {
	Origin      entity.Phase
	Destination entity.Phase
	Quantity    decimal.Decimal
	// Shrinkage nil = usar la merma sugerida por la relación configurada.
	Shrinkage            *decimal.Decimal
	PreferredPurchaseIDs []string
	Notes                string
	RegisteredBy         string
}

// ProcessResult transformación aplicada y su registro.
type ProcessResult struct {
	Transform *TransformResult
	Event     *entity.ProcessEvent
}

// RegisterProcess valida la transición, aplica la transformación y agrega la fila en "proceso".
// Si la fila no se puede escribir, la transformación completa se revierte.
func (uc *TransformUseCase) RegisterProcess(ctx context.Context, in ProcessInput) (res *ProcessResult, err error) {
	defer func() { record("process", in.Origin, err) }()
	if in.Origin, err = validPhase(in.Origin); err != nil {
		return nil, err
	}
	if in.Destination, err = validPhase(in.Destination); err != nil {
		return nil, err
	}
	estimated := uc.graph.SuggestedShrinkage(in.Origin, in.Destination, in.Quantity)
	shrinkage := estimated
	if in.Shrinkage != nil {
		shrinkage = *in.Shrinkage
	}
	tin := TransformInput{
		Origin:               in.Origin,
		Destination:          in.Destination,
		Quantity:             in.Quantity,
		Shrinkage:            shrinkage,
		PreferredPurchaseIDs: in.PreferredPurchaseIDs,
	}
	if err := uc.validate(&tin); err != nil {
		return nil, err
	}

	unlock := uc.ledger.locks.LockMany(phaseKey(in.Origin), phaseKey(in.Destination))
	defer unlock()

	tr, err := uc.transform(ctx, tin)
	if err != nil {
		return nil, err
	}
	ev := &entity.ProcessEvent{
		Date:               uc.ledger.now(),
		Origin:             in.Origin,
		Destination:        in.Destination,
		Quantity:           in.Quantity,
		PurchaseIDs:        tr.Consumption.PurchaseIDs(),
		Shrinkage:          shrinkage,
		EstimatedShrinkage: estimated,
		ExpectedOutput:     outputQuantity(in.Quantity, estimated),
		Output:             tr.Output,
		Notes:              in.Notes,
		RegisteredBy:       in.RegisteredBy,
	}
	if err := uc.process.Create(ctx, ev); err != nil {
		translated := uc.ledger.storeErr("process", in.Origin, err)
		uc.undo(ctx, tr)
		return nil, translated
	}
	uc.log.Info().Str("origin", string(in.Origin)).Str("destination", string(in.Destination)).
		Str("quantity", in.Quantity.String()).Str("output", tr.Output.String()).Msg("proceso registrado")
	return &ProcessResult{Transform: tr, Event: ev}, nil
}

// undo anula la entrada de destino y restaura el origen. El llamador tiene ambos candados.
func (uc *TransformUseCase) undo(ctx context.Context, tr *TransformResult) {
	if tr.Destination != nil {
		d := *tr.Destination
		d.CurrentQuantity = decimal.Zero
		d.AppendNote(uc.ledger.auditLine("anulado: proceso no registrado"))
		d.UpdatedAt = uc.ledger.now()
		if err := uc.ledger.entries.UpdateStock(ctx, &d); err != nil {
			metrics.CompensationsTotal.WithLabelValues("process", "error").Inc()
			uc.log.Error().Err(err).Bool("critical", true).Str("entry", d.ID).Msg("no se pudo anular la entrada de destino")
		}
	}
	uc.ledger.rollback(ctx, "process", tr.Consumption)
}
