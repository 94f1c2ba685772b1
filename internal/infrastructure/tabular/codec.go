package tabular

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

// TimeLayout formato de fechas en las hojas.
const TimeLayout = "2006-01-02 15:04:05"

var readLayouts = []string{TimeLayout, "2006-01-02 15:04", "2006-01-02", time.RFC3339, "02/01/2006 15:04:05", "02/01/2006"}

// Codec convierte entre registros de texto y entidades tipadas.
//
// Reglas por defecto al leer: número vacío = 0, fecha vacía = tiempo cero, lista vacía = nil.
// Un número o fecha que no se puede interpretar es un error de estructura (ErrSchema).
type Codec struct {
	loc *time.Location
}

// NewCodec construye el codec; loc nil usa time.Local.
func NewCodec(loc *time.Location) Codec {
	if loc == nil {
		loc = time.Local
	}
	return Codec{loc: loc}
}

func (c Codec) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(c.loc).Format(TimeLayout)
}

func (c Codec) parseTime(col, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range readLayouts {
		if t, err := time.ParseInLocation(layout, raw, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: fecha inválida en %s: %q", domain.ErrSchema, col, raw)
}

func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

// ParseDecimal interpreta cantidades escritas a mano: acepta coma decimal ("12,5")
// y separador de miles con punto cuando también hay coma ("1.234,5").
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, " ", ""))
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

func parseDecimalCol(col, raw string) (decimal.Decimal, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: número inválido en %s: %q", domain.ErrSchema, col, raw)
	}
	return d, nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitIDs(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decoder acumula el primer error para no repetir if err != nil por columna.
type decoder struct {
	c   Codec
	rec Record
	err error
}

func (d *decoder) str(col string) string { return strings.TrimSpace(d.rec[col]) }

func (d *decoder) dec(col string) decimal.Decimal {
	v, err := parseDecimalCol(col, d.rec[col])
	if err != nil && d.err == nil {
		d.err = err
	}
	return v
}

func (d *decoder) time(col string) time.Time {
	v, err := d.c.parseTime(col, d.rec[col])
	if err != nil && d.err == nil {
		d.err = err
	}
	return v
}

func (d *decoder) phase(col string) entity.Phase {
	return entity.Phase(entity.NormalizePhase(d.rec[col]))
}

// --- almacen ---

func (c Codec) EncodeInventoryEntry(e *entity.InventoryEntry) Record {
	return Record{
		"id":                  e.ID,
		"compra_id":           e.PurchaseID,
		"tipo_cafe_origen":    string(e.OriginPhase),
		"fecha":               c.formatTime(e.CreatedAt),
		"cantidad":            formatDecimal(e.Quantity),
		"fase_actual":         string(e.CurrentPhase),
		"cantidad_actual":     formatDecimal(e.CurrentQuantity),
		"notas":               e.Notes,
		"fecha_actualizacion": c.formatTime(e.UpdatedAt),
	}
}

func (c Codec) DecodeInventoryEntry(row Row) (*entity.InventoryEntry, error) {
	d := decoder{c: c, rec: row.Values}
	e := &entity.InventoryEntry{
		RowIndex:        row.Index,
		ID:              d.str("id"),
		PurchaseID:      d.str("compra_id"),
		OriginPhase:     d.phase("tipo_cafe_origen"),
		CreatedAt:       d.time("fecha"),
		Quantity:        d.dec("cantidad"),
		CurrentPhase:    d.phase("fase_actual"),
		CurrentQuantity: d.dec("cantidad_actual"),
		Notes:           d.rec["notas"],
		UpdatedAt:       d.time("fecha_actualizacion"),
	}
	if d.err != nil {
		return nil, fmt.Errorf("almacen fila %d: %w", row.Index, d.err)
	}
	return e, nil
}

// --- compras ---

func (c Codec) EncodePurchase(p *entity.Purchase) Record {
	return Record{
		"id":             p.ID,
		"fecha":          c.formatTime(p.Date),
		"tipo_cafe":      string(p.Phase),
		"proveedor":      p.Supplier,
		"cantidad":       formatDecimal(p.Quantity),
		"precio":         formatDecimal(p.UnitPrice),
		"preciototal":    formatDecimal(p.TotalPrice),
		"registrado_por": p.RegisteredBy,
		"notas":          p.Notes,
	}
}

func (c Codec) DecodePurchase(row Row) (*entity.Purchase, error) {
	d := decoder{c: c, rec: row.Values}
	p := &entity.Purchase{
		ID:           d.str("id"),
		Date:         d.time("fecha"),
		Phase:        d.phase("tipo_cafe"),
		Supplier:     d.str("proveedor"),
		Quantity:     d.dec("cantidad"),
		UnitPrice:    d.dec("precio"),
		TotalPrice:   d.dec("preciototal"),
		RegisteredBy: d.str("registrado_por"),
		Notes:        d.rec["notas"],
	}
	if d.err != nil {
		return nil, fmt.Errorf("compras fila %d: %w", row.Index, d.err)
	}
	// Filas antiguas sin total calculado.
	if p.TotalPrice.IsZero() {
		p.TotalPrice = p.ComputeTotal()
	}
	// Compras históricas sin fase registrada se asumen en cerezo.
	if p.Phase == "" {
		p.Phase = entity.PhaseCerezo
	}
	return p, nil
}

// --- proceso ---

func (c Codec) EncodeProcessEvent(ev *entity.ProcessEvent) Record {
	return Record{
		"fecha":                        c.formatTime(ev.Date),
		"origen":                       string(ev.Origin),
		"destino":                      string(ev.Destination),
		"cantidad":                     formatDecimal(ev.Quantity),
		"compras_ids":                  joinIDs(ev.PurchaseIDs),
		"merma":                        formatDecimal(ev.Shrinkage),
		"merma_estimada":               formatDecimal(ev.EstimatedShrinkage),
		"cantidad_resultante_esperada": formatDecimal(ev.ExpectedOutput),
		"cantidad_resultante":          formatDecimal(ev.Output),
		"notas":                        ev.Notes,
		"registrado_por":               ev.RegisteredBy,
	}
}

func (c Codec) DecodeProcessEvent(row Row) (*entity.ProcessEvent, error) {
	d := decoder{c: c, rec: row.Values}
	ev := &entity.ProcessEvent{
		Date:               d.time("fecha"),
		Origin:             d.phase("origen"),
		Destination:        d.phase("destino"),
		Quantity:           d.dec("cantidad"),
		PurchaseIDs:        splitIDs(d.rec["compras_ids"]),
		Shrinkage:          d.dec("merma"),
		EstimatedShrinkage: d.dec("merma_estimada"),
		ExpectedOutput:     d.dec("cantidad_resultante_esperada"),
		Output:             d.dec("cantidad_resultante"),
		Notes:              d.rec["notas"],
		RegisteredBy:       d.str("registrado_por"),
	}
	if d.err != nil {
		return nil, fmt.Errorf("proceso fila %d: %w", row.Index, d.err)
	}
	return ev, nil
}

// --- ventas ---

func (c Codec) EncodeSale(s *entity.Sale) Record {
	return Record{
		"id":             s.ID,
		"fecha":          c.formatTime(s.Date),
		"tipo_cafe":      string(s.Phase),
		"cliente":        s.Customer,
		"cantidad":       formatDecimal(s.Quantity),
		"precio":         formatDecimal(s.UnitPrice),
		"total":          formatDecimal(s.Total),
		"almacen_ids":    joinIDs(s.EntryIDs),
		"notas":          s.Notes,
		"registrado_por": s.RegisteredBy,
	}
}

func (c Codec) DecodeSale(row Row) (*entity.Sale, error) {
	d := decoder{c: c, rec: row.Values}
	s := &entity.Sale{
		ID:           d.str("id"),
		Date:         d.time("fecha"),
		Phase:        d.phase("tipo_cafe"),
		Customer:     d.str("cliente"),
		Quantity:     d.dec("cantidad"),
		UnitPrice:    d.dec("precio"),
		Total:        d.dec("total"),
		EntryIDs:     splitIDs(d.rec["almacen_ids"]),
		Notes:        d.rec["notas"],
		RegisteredBy: d.str("registrado_por"),
	}
	if d.err != nil {
		return nil, fmt.Errorf("ventas fila %d: %w", row.Index, d.err)
	}
	return s, nil
}

// --- adelantos ---

func (c Codec) EncodeAdvance(a *entity.Advance) Record {
	return Record{
		"id":             a.ID,
		"fecha":          c.formatTime(a.Date),
		"proveedor":      a.Supplier,
		"monto":          formatDecimal(a.Amount),
		"saldo_restante": formatDecimal(a.Balance),
		"notas":          a.Notes,
		"registrado_por": a.RegisteredBy,
	}
}

func (c Codec) DecodeAdvance(row Row) (*entity.Advance, error) {
	d := decoder{c: c, rec: row.Values}
	a := &entity.Advance{
		RowIndex:     row.Index,
		ID:           d.str("id"),
		Date:         d.time("fecha"),
		Supplier:     d.str("proveedor"),
		Amount:       d.dec("monto"),
		Balance:      d.dec("saldo_restante"),
		Notes:        d.rec["notas"],
		RegisteredBy: d.str("registrado_por"),
	}
	if d.err != nil {
		return nil, fmt.Errorf("adelantos fila %d: %w", row.Index, d.err)
	}
	return a, nil
}

// --- gastos ---

func (c Codec) EncodeExpense(e *entity.Expense) Record {
	return Record{
		"id":             e.ID,
		"fecha":          c.formatTime(e.Date),
		"categoria":      e.Category,
		"monto":          formatDecimal(e.Amount),
		"descripcion":    e.Description,
		"registrado_por": e.RegisteredBy,
	}
}

func (c Codec) DecodeExpense(row Row) (*entity.Expense, error) {
	d := decoder{c: c, rec: row.Values}
	e := &entity.Expense{
		ID:           d.str("id"),
		Date:         d.time("fecha"),
		Category:     d.str("categoria"),
		Amount:       d.dec("monto"),
		Description:  d.rec["descripcion"],
		RegisteredBy: d.str("registrado_por"),
	}
	if d.err != nil {
		return nil, fmt.Errorf("gastos fila %d: %w", row.Index, d.err)
	}
	return e, nil
}

// --- evidencias ---

func (c Codec) EncodeEvidence(e *entity.Evidence) Record {
	return Record{
		"id":             e.ID,
		"fecha":          c.formatTime(e.Date),
		"tipo_operacion": e.OperationType,
		"operacion_id":   e.OperationID,
		"archivo":        e.File,
		"url":            e.URL,
		"notas":          e.Notes,
		"registrado_por": e.RegisteredBy,
	}
}
