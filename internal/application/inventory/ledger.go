package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/domain/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain/repository"
	"github.com/jhoicas/cafe-bot/pkg/keylock"
	"github.com/jhoicas/cafe-bot/pkg/logger"
	"github.com/jhoicas/cafe-bot/pkg/metrics"
)

const noteTimeLayout = "2006-01-02 15:04"

// Ledger lleva el inventario de café por fase sobre la hoja "almacen".
// Toda mutación toma el candado de la fase afectada: dentro del proceso hay un solo escritor por fase.
// Los errores del almacén se registran y se devuelven como domain.ErrStorage o domain.ErrSchema.
type Ledger struct {
	entries   repository.InventoryRepository
	purchases repository.PurchaseRepository
	locks     *keylock.KeyedMutex
	log       *logger.Logger
	now       func() time.Time
}

// LedgerOption ajusta el Ledger al construirlo.
type LedgerOption func(*Ledger)

// WithClock fija el reloj (tests).
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithLocks comparte el juego de candados con otros componentes.
func WithLocks(k *keylock.KeyedMutex) LedgerOption {
	return func(l *Ledger) { l.locks = k }
}

// NewLedger construye el almacén de inventario.
func NewLedger(
	entries repository.InventoryRepository,
	purchases repository.PurchaseRepository,
	log *logger.Logger,
	opts ...LedgerOption,
) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	l := &Ledger{
		entries:   entries,
		purchases: purchases,
		locks:     keylock.New(),
		log:       log.Component("ledger"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func phaseKey(p entity.Phase) string { return "fase:" + string(p) }

func record(op string, phase entity.Phase, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientStock):
		result = "insufficient"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidPhase), errors.Is(err, domain.ErrInvalidTransition):
		result = "invalid"
	default:
		result = "error"
	}
	metrics.LedgerOperationsTotal.WithLabelValues(op, string(phase), result).Inc()
}

// storeErr registra el error del almacén y lo traduce a un error de dominio sin la causa.
func (l *Ledger) storeErr(op string, phase entity.Phase, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidPhase):
		return err
	case errors.Is(err, domain.ErrSchema):
		l.log.Error().Err(err).Bool("critical", true).Str("op", op).Str("phase", string(phase)).
			Msg("estructura de hoja inválida")
		return domain.ErrSchema
	default:
		l.log.Error().Err(err).Str("op", op).Str("phase", string(phase)).Msg("error de almacenamiento")
		return domain.ErrStorage
	}
}

// validPhase normaliza la fase (espacios, mayúsculas, tildes) y la valida.
func validPhase(p entity.Phase) (entity.Phase, error) {
	parsed, ok := entity.ParsePhase(string(p))
	if !ok {
		return p, fmt.Errorf("%w: %q", domain.ErrInvalidPhase, string(p))
	}
	return parsed, nil
}

func (l *Ledger) auditLine(format string, args ...interface{}) string {
	return l.now().Format(noteTimeLayout) + " " + fmt.Sprintf(format, args...)
}

// Available cantidad disponible en la fase. Fase desconocida o error del almacén: 0 (el error se registra).
func (l *Ledger) Available(ctx context.Context, phase entity.Phase) decimal.Decimal {
	phase, err := validPhase(phase)
	if err != nil {
		return decimal.Zero
	}
	entries, err := l.entries.ListByPhase(ctx, phase)
	if err != nil {
		_ = l.storeErr("available", phase, err)
		return decimal.Zero
	}
	return sumAvailable(entries)
}

func sumAvailable(entries []*entity.InventoryEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Available() {
			total = total.Add(e.CurrentQuantity)
		}
	}
	return total
}

// LotView entrada disponible enriquecida con los datos de su compra.
type LotView struct {
	EntryID          string
	PurchaseID       string
	Supplier         string
	PurchaseDate     time.Time
	UnitPrice        decimal.Decimal
	OriginPhase      entity.Phase
	CreatedAt        time.Time
	OriginalQuantity decimal.Decimal
	Quantity         decimal.Decimal
}

// Lots entradas con cantidad_actual > 0 en la fase, en orden FIFO.
// Si falla la lectura de compras se devuelven los lotes sin proveedor.
func (l *Ledger) Lots(ctx context.Context, phase entity.Phase) []LotView {
	phase, err := validPhase(phase)
	if err != nil {
		return nil
	}
	entries, err := l.entries.ListByPhase(ctx, phase)
	if err != nil {
		_ = l.storeErr("lots", phase, err)
		return nil
	}
	available := make([]*entity.InventoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Available() {
			available = append(available, e)
		}
	}
	inventory.SortFIFO(available)

	byID := map[string]*entity.Purchase{}
	if l.purchases != nil && len(available) > 0 {
		purchases, err := l.purchases.List(ctx)
		if err != nil {
			l.log.Warn().Err(err).Msg("lotes sin datos de compra")
		}
		for _, p := range purchases {
			byID[p.ID] = p
		}
	}

	out := make([]LotView, 0, len(available))
	for _, e := range available {
		v := LotView{
			EntryID:          e.ID,
			PurchaseID:       e.PurchaseID,
			OriginPhase:      e.OriginPhase,
			CreatedAt:        e.CreatedAt,
			OriginalQuantity: e.Quantity,
			Quantity:         e.CurrentQuantity,
		}
		if p, ok := byID[e.PurchaseID]; ok {
			v.Supplier = p.Supplier
			v.PurchaseDate = p.Date
			v.UnitPrice = p.UnitPrice
		}
		out = append(out, v)
	}
	return out
}

// IncrementInput entrada para registrar café nuevo en una fase.
type IncrementInput struct {
	Phase       entity.Phase
	Quantity    decimal.Decimal
	PurchaseID  string
	OriginPhase entity.Phase // vacío = Phase
	Notes       string
	CreatedAt   time.Time // cero = ahora
}

// Increment crea siempre una entrada nueva; nunca suma sobre una existente.
func (l *Ledger) Increment(ctx context.Context, in IncrementInput) (entry *entity.InventoryEntry, err error) {
	defer func() { record("increment", in.Phase, err) }()
	if in.Phase, err = validPhase(in.Phase); err != nil {
		return nil, err
	}
	if in.OriginPhase != "" {
		if in.OriginPhase, err = validPhase(in.OriginPhase); err != nil {
			return nil, err
		}
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	unlock := l.locks.Lock(phaseKey(in.Phase))
	defer unlock()
	return l.create(ctx, in)
}

// create escribe la entrada; el llamador tiene el candado de la fase.
func (l *Ledger) create(ctx context.Context, in IncrementInput) (*entity.InventoryEntry, error) {
	now := l.now()
	created := in.CreatedAt
	if created.IsZero() {
		created = now
	}
	origin := in.OriginPhase
	if origin == "" {
		origin = in.Phase
	}
	e := &entity.InventoryEntry{
		RowIndex:        -1,
		ID:              uuid.New().String(),
		PurchaseID:      in.PurchaseID,
		OriginPhase:     origin,
		CreatedAt:       created,
		Quantity:        in.Quantity,
		CurrentPhase:    in.Phase,
		CurrentQuantity: in.Quantity,
		Notes:           in.Notes,
		UpdatedAt:       now,
	}
	if err := l.entries.Create(ctx, e); err != nil {
		return nil, l.storeErr("increment", in.Phase, err)
	}
	l.log.Info().Str("phase", string(in.Phase)).Str("entry", e.ID).Str("quantity", in.Quantity.String()).
		Msg("entrada de almacén creada")
	return e, nil
}

// DecrementInput entrada para consumir café de una fase.
type DecrementInput struct {
	Phase    entity.Phase
	Quantity decimal.Decimal
	Reason   string // aparece en la bitácora de cada entrada ("venta", "proceso a MOTE")
	// PreferredPurchaseIDs lotes elegidos por el usuario; se consumen antes que el resto.
	PreferredPurchaseIDs []string
}

// ConsumedLot lo que se tomó de una entrada.
type ConsumedLot struct {
	EntryID    string
	PurchaseID string
	RowIndex   int
	Taken      decimal.Decimal
	Before     decimal.Decimal
	After      decimal.Decimal
}

// Consumption resultado de un Decrement. Sirve para revertirlo con Restore.
type Consumption struct {
	Phase     entity.Phase
	Requested decimal.Decimal
	Lots      []ConsumedLot
	snapshot  []*entity.InventoryEntry // copias previas a la escritura, en el mismo orden que Lots
}

// EntryIDs ids de las entradas tocadas, en orden de consumo.
func (c *Consumption) EntryIDs() []string {
	out := make([]string, 0, len(c.Lots))
	for _, lot := range c.Lots {
		out = append(out, lot.EntryID)
	}
	return out
}

// PurchaseIDs ids de compra distintos (no vacíos) de las entradas tocadas.
func (c *Consumption) PurchaseIDs() []string {
	seen := map[string]bool{}
	var out []string
	for _, lot := range c.Lots {
		if lot.PurchaseID != "" && !seen[lot.PurchaseID] {
			seen[lot.PurchaseID] = true
			out = append(out, lot.PurchaseID)
		}
	}
	return out
}

// SinglePurchaseID el id de compra si todas las entradas consumidas vienen de la misma compra.
func (c *Consumption) SinglePurchaseID() string {
	ids := c.PurchaseIDs()
	if len(ids) != 1 {
		return ""
	}
	for _, lot := range c.Lots {
		if lot.PurchaseID == "" {
			return ""
		}
	}
	return ids[0]
}

// Decrement consume en orden FIFO por fecha de creación. Primero planifica sobre una instantánea;
// si no alcanza devuelve *domain.InsufficientStockError sin escribir nada. Si una escritura falla,
// las entradas ya escritas vuelven a su valor anterior.
func (l *Ledger) Decrement(ctx context.Context, in DecrementInput) (c *Consumption, err error) {
	defer func() { record("decrement", in.Phase, err) }()
	if in.Phase, err = validPhase(in.Phase); err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	unlock := l.locks.Lock(phaseKey(in.Phase))
	defer unlock()
	return l.decrement(ctx, in)
}

// decrement el llamador tiene el candado de la fase.
func (l *Ledger) decrement(ctx context.Context, in DecrementInput) (*Consumption, error) {
	entries, err := l.entries.ListByPhase(ctx, in.Phase)
	if err != nil {
		return nil, l.storeErr("decrement", in.Phase, err)
	}
	plan := inventory.PlanConsumption(entries, in.Quantity, in.PreferredPurchaseIDs)
	if !plan.Sufficient() {
		l.log.Info().Str("phase", string(in.Phase)).Str("requested", in.Quantity.String()).
			Str("available", plan.Available.String()).Msg("stock insuficiente")
		return nil, &domain.InsufficientStockError{
			Phase:     string(in.Phase),
			Requested: in.Quantity,
			Available: plan.Available,
		}
	}

	reason := in.Reason
	if reason == "" {
		reason = "salida"
	}
	c := &Consumption{Phase: in.Phase, Requested: in.Quantity}
	for _, step := range plan.Steps {
		before := *step.Entry
		updated := *step.Entry
		updated.CurrentQuantity = step.Remaining
		updated.AppendNote(l.auditLine("-%s kg %s", step.Take.StringFixed(2), reason))
		updated.UpdatedAt = l.now()

		c.snapshot = append(c.snapshot, &before)
		c.Lots = append(c.Lots, ConsumedLot{
			EntryID:    updated.ID,
			PurchaseID: updated.PurchaseID,
			RowIndex:   updated.RowIndex,
			Taken:      step.Take,
			Before:     before.CurrentQuantity,
			After:      step.Remaining,
		})
		if err := l.entries.UpdateStock(ctx, &updated); err != nil {
			translated := l.storeErr("decrement", in.Phase, err)
			l.rollback(ctx, "decrement", c)
			return nil, translated
		}
	}
	l.log.Info().Str("phase", string(in.Phase)).Str("quantity", in.Quantity.String()).
		Int("entries", len(c.Lots)).Str("reason", reason).Msg("salida de almacén")
	return c, nil
}

// rollback devuelve las entradas a la instantánea tomada antes de escribir.
// El llamador tiene el candado de la fase, así que nadie más las tocó.
func (l *Ledger) rollback(ctx context.Context, op string, c *Consumption) {
	failed := 0
	for i := len(c.snapshot) - 1; i >= 0; i-- {
		if err := l.entries.UpdateStock(ctx, c.snapshot[i]); err != nil {
			failed++
			l.log.Error().Err(err).Bool("critical", true).Str("entry", c.snapshot[i].ID).
				Str("restore_to", c.snapshot[i].CurrentQuantity.String()).Msg("no se pudo restaurar la entrada")
		}
	}
	result := "ok"
	if failed > 0 {
		result = "error"
	}
	metrics.CompensationsTotal.WithLabelValues(op, result).Inc()
}

// Restore revierte un Decrement ya confirmado devolviendo lo tomado a cada entrada.
// Suma sobre el valor actual, así que respeta movimientos posteriores en la misma entrada.
func (l *Ledger) Restore(ctx context.Context, c *Consumption) (err error) {
	if c == nil || len(c.Lots) == 0 {
		return nil
	}
	defer func() { record("restore", c.Phase, err) }()
	unlock := l.locks.Lock(phaseKey(c.Phase))
	defer unlock()
	return l.restore(ctx, c, "reversión")
}

func (l *Ledger) restore(ctx context.Context, c *Consumption, reason string) error {
	entries, err := l.entries.ListByPhase(ctx, c.Phase)
	if err != nil {
		return l.storeErr("restore", c.Phase, err)
	}
	byRow := make(map[int]*entity.InventoryEntry, len(entries))
	for _, e := range entries {
		byRow[e.RowIndex] = e
	}
	var firstErr error
	for _, lot := range c.Lots {
		// Las filas nunca se borran: el índice identifica la entrada aunque no tenga id.
		e, ok := byRow[lot.RowIndex]
		if !ok || e.ID != lot.EntryID {
			l.log.Error().Bool("critical", true).Str("entry", lot.EntryID).Msg("entrada a restaurar no encontrada")
			if firstErr == nil {
				firstErr = domain.ErrNotFound
			}
			continue
		}
		e.CurrentQuantity = e.CurrentQuantity.Add(lot.Taken)
		e.AppendNote(l.auditLine("+%s kg %s", lot.Taken.StringFixed(2), reason))
		e.UpdatedAt = l.now()
		if err := l.entries.UpdateStock(ctx, e); err != nil && firstErr == nil {
			firstErr = l.storeErr("restore", c.Phase, err)
		}
	}
	result := "ok"
	if firstErr != nil {
		result = "error"
	}
	metrics.CompensationsTotal.WithLabelValues("restore", result).Inc()
	return firstErr
}

// SetQuantity registra una cantidad absoluta como entrada nueva. No ajusta las entradas existentes.
func (l *Ledger) SetQuantity(ctx context.Context, phase entity.Phase, quantity decimal.Decimal, notes string) (entry *entity.InventoryEntry, err error) {
	defer func() { record("set", phase, err) }()
	if phase, err = validPhase(phase); err != nil {
		return nil, err
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("%w: la cantidad no puede ser negativa", domain.ErrInvalidInput)
	}
	unlock := l.locks.Lock(phaseKey(phase))
	defer unlock()
	line := l.auditLine("establecido en %s kg", quantity.StringFixed(2))
	if notes != "" {
		line = notes + " | " + line
	}
	return l.create(ctx, IncrementInput{Phase: phase, Quantity: quantity, Notes: line})
}

// ReconcileResult resumen de una sincronización con compras.
type ReconcileResult struct {
	Created []*entity.InventoryEntry
	Skipped int // compras que ya tenían entrada
	Invalid int // compras sin id o con fase o cantidad inválida
}

// Reconcile crea una entrada por cada compra que aún no tiene ninguna (por compra_id).
// Es idempotente: correrla dos veces seguidas no duplica entradas.
func (l *Ledger) Reconcile(ctx context.Context) (res ReconcileResult, err error) {
	defer func() { record("reconcile", "", err) }()
	keys := make([]string, 0, len(entity.Phases))
	for _, p := range entity.Phases {
		keys = append(keys, phaseKey(p))
	}
	unlock := l.locks.LockMany(keys...)
	defer unlock()

	purchases, err := l.purchases.List(ctx)
	if err != nil {
		return res, l.storeErr("reconcile", "", err)
	}
	entries, err := l.entries.List(ctx)
	if err != nil {
		return res, l.storeErr("reconcile", "", err)
	}
	linked := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.PurchaseID != "" {
			linked[e.PurchaseID] = true
		}
	}
	for _, p := range purchases {
		if linked[p.ID] {
			res.Skipped++
			continue
		}
		phase, phaseErr := validPhase(p.Phase)
		if p.ID == "" || phaseErr != nil || !p.Quantity.IsPositive() {
			res.Invalid++
			l.log.Warn().Str("purchase", p.ID).Str("phase", string(p.Phase)).Msg("compra sin id, fase o cantidad válida")
			continue
		}
		e, err := l.create(ctx, IncrementInput{
			Phase:      phase,
			Quantity:   p.Quantity,
			PurchaseID: p.ID,
			CreatedAt:  p.Date,
			Notes:      l.auditLine("sincronizado desde compras"),
		})
		if err != nil {
			return res, err
		}
		linked[p.ID] = true
		res.Created = append(res.Created, e)
	}
	l.log.Info().Int("created", len(res.Created)).Int("skipped", res.Skipped).Int("invalid", res.Invalid).Msg("almacén sincronizado con compras")
	return res, nil
}

// PhaseStock existencias de una fase.
type PhaseStock struct {
	Phase    entity.Phase
	Quantity decimal.Decimal
	Lots     int
}

// Summary existencias de todas las fases, en el orden de procesamiento.
func (l *Ledger) Summary(ctx context.Context) ([]PhaseStock, error) {
	entries, err := l.entries.List(ctx)
	if err != nil {
		return nil, l.storeErr("summary", "", err)
	}
	idx := make(map[entity.Phase]int, len(entity.Phases))
	out := make([]PhaseStock, len(entity.Phases))
	for i, p := range entity.Phases {
		idx[p] = i
		out[i] = PhaseStock{Phase: p, Quantity: decimal.Zero}
	}
	for _, e := range entries {
		i, ok := idx[e.CurrentPhase]
		if !ok || !e.Available() {
			continue
		}
		out[i].Quantity = out[i].Quantity.Add(e.CurrentQuantity)
		out[i].Lots++
	}
	return out, nil
}
