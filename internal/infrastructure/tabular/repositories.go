package tabular

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/domain/repository"
)

var (
	_ repository.InventoryRepository = (*InventoryRepo)(nil)
	_ repository.PurchaseRepository  = (*PurchaseRepo)(nil)
	_ repository.ProcessRepository   = (*ProcessRepo)(nil)
	_ repository.SaleRepository      = (*SaleRepo)(nil)
	_ repository.AdvanceRepository   = (*AdvanceRepo)(nil)
	_ repository.ExpenseRepository   = (*ExpenseRepo)(nil)
	_ repository.EvidenceRepository  = (*EvidenceRepo)(nil)
)

// Repositories agrupa los repositorios tipados construidos sobre un mismo almacén.
type Repositories struct {
	Inventory *InventoryRepo
	Purchases *PurchaseRepo
	Process   *ProcessRepo
	Sales     *SaleRepo
	Advances  *AdvanceRepo
	Expenses  *ExpenseRepo
	Evidence  *EvidenceRepo
}

// NewRepositories construye todos los repositorios con el mismo codec.
func NewRepositories(store Store, loc *time.Location) *Repositories {
	c := NewCodec(loc)
	return &Repositories{
		Inventory: NewInventoryRepository(store, c),
		Purchases: NewPurchaseRepository(store, c),
		Process:   NewProcessRepository(store, c),
		Sales:     NewSaleRepository(store, c),
		Advances:  NewAdvanceRepository(store, c),
		Expenses:  NewExpenseRepository(store, c),
		Evidence:  NewEvidenceRepository(store, c),
	}
}

func decodeAll[T any](rows []Row, decode func(Row) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// InventoryRepo entradas de la hoja "almacen".
type InventoryRepo struct {
	store Store
	codec Codec
}

// NewInventoryRepository construye el repositorio de almacén.
func NewInventoryRepository(store Store, codec Codec) *InventoryRepo {
	return &InventoryRepo{store: store, codec: codec}
}

// List devuelve todas las entradas.
func (r *InventoryRepo) List(ctx context.Context) ([]*entity.InventoryEntry, error) {
	rows, err := r.store.ReadAll(ctx, TableInventory)
	if err != nil {
		return nil, fmt.Errorf("leer almacen: %w", err)
	}
	return decodeAll(rows, r.codec.DecodeInventoryEntry)
}

// ListByPhase entradas cuya fase_actual coincide con la fase. La comparación se hace
// después de normalizar para tolerar celdas escritas a mano ("pergamino ").
func (r *InventoryRepo) ListByPhase(ctx context.Context, phase entity.Phase) ([]*entity.InventoryEntry, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.InventoryEntry, 0, len(all))
	for _, e := range all {
		if e.CurrentPhase == phase {
			out = append(out, e)
		}
	}
	return out, nil
}

// Create agrega la entrada y asigna RowIndex.
func (r *InventoryRepo) Create(ctx context.Context, e *entity.InventoryEntry) error {
	if err := validateInventoryEntry(e); err != nil {
		return err
	}
	if err := check(TableInventory, fieldRule{"id", e.ID, "required"}); err != nil {
		return err
	}
	idx, err := r.store.Append(ctx, TableInventory, r.codec.EncodeInventoryEntry(e))
	if err != nil {
		return fmt.Errorf("agregar almacen: %w", err)
	}
	e.RowIndex = idx
	return nil
}

// UpdateStock escribe cantidad_actual, notas y fecha_actualizacion. Son tres escrituras de celda
// independientes: cantidad_actual va primero porque es la que importa para el stock.
func (r *InventoryRepo) UpdateStock(ctx context.Context, e *entity.InventoryEntry) error {
	if err := validateInventoryEntry(e); err != nil {
		return err
	}
	rec := r.codec.EncodeInventoryEntry(e)
	for _, col := range []string{"cantidad_actual", "notas", "fecha_actualizacion"} {
		if err := r.store.UpdateCell(ctx, TableInventory, e.RowIndex, col, rec[col]); err != nil {
			return fmt.Errorf("actualizar almacen fila %d %s: %w", e.RowIndex, col, err)
		}
	}
	return nil
}

// PurchaseRepo hoja "compras".
type PurchaseRepo struct {
	store Store
	codec Codec
}

// NewPurchaseRepository construye el repositorio de compras.
func NewPurchaseRepository(store Store, codec Codec) *PurchaseRepo {
	return &PurchaseRepo{store: store, codec: codec}
}

func (r *PurchaseRepo) List(ctx context.Context) ([]*entity.Purchase, error) {
	rows, err := r.store.ReadAll(ctx, TablePurchases)
	if err != nil {
		return nil, fmt.Errorf("leer compras: %w", err)
	}
	return decodeAll(rows, r.codec.DecodePurchase)
}

// GetByID devuelve nil, nil si no existe.
func (r *PurchaseRepo) GetByID(ctx context.Context, id string) (*entity.Purchase, error) {
	rows, err := r.store.ReadFiltered(ctx, TablePurchases, map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("buscar compra: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return r.codec.DecodePurchase(rows[0])
}

func (r *PurchaseRepo) Create(ctx context.Context, p *entity.Purchase) error {
	if err := validatePurchase(p); err != nil {
		return err
	}
	if _, err := r.store.Append(ctx, TablePurchases, r.codec.EncodePurchase(p)); err != nil {
		return fmt.Errorf("agregar compra: %w", err)
	}
	return nil
}

// ProcessRepo hoja "proceso".
type ProcessRepo struct {
	store Store
	codec Codec
}

// NewProcessRepository construye el repositorio de la bitácora de procesos.
func NewProcessRepository(store Store, codec Codec) *ProcessRepo {
	return &ProcessRepo{store: store, codec: codec}
}

func (r *ProcessRepo) List(ctx context.Context) ([]*entity.ProcessEvent, error) {
	rows, err := r.store.ReadAll(ctx, TableProcess)
	if err != nil {
		return nil, fmt.Errorf("leer proceso: %w", err)
	}
	return decodeAll(rows, r.codec.DecodeProcessEvent)
}

func (r *ProcessRepo) Create(ctx context.Context, ev *entity.ProcessEvent) error {
	if err := validateProcessEvent(ev); err != nil {
		return err
	}
	if _, err := r.store.Append(ctx, TableProcess, r.codec.EncodeProcessEvent(ev)); err != nil {
		return fmt.Errorf("agregar proceso: %w", err)
	}
	return nil
}

// SaleRepo hoja "ventas".
type SaleRepo struct {
	store Store
	codec Codec
}

func NewSaleRepository(store Store, codec Codec) *SaleRepo {
	return &SaleRepo{store: store, codec: codec}
}

func (r *SaleRepo) List(ctx context.Context) ([]*entity.Sale, error) {
	rows, err := r.store.ReadAll(ctx, TableSales)
	if err != nil {
		return nil, fmt.Errorf("leer ventas: %w", err)
	}
	return decodeAll(rows, r.codec.DecodeSale)
}

func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	if err := validateSale(s); err != nil {
		return err
	}
	if _, err := r.store.Append(ctx, TableSales, r.codec.EncodeSale(s)); err != nil {
		return fmt.Errorf("agregar venta: %w", err)
	}
	return nil
}

// AdvanceRepo hoja "adelantos".
type AdvanceRepo struct {
	store Store
	codec Codec
}

func NewAdvanceRepository(store Store, codec Codec) *AdvanceRepo {
	return &AdvanceRepo{store: store, codec: codec}
}

func (r *AdvanceRepo) List(ctx context.Context) ([]*entity.Advance, error) {
	rows, err := r.store.ReadAll(ctx, TableAdvances)
	if err != nil {
		return nil, fmt.Errorf("leer adelantos: %w", err)
	}
	return decodeAll(rows, r.codec.DecodeAdvance)
}

// GetByID devuelve nil, nil si no existe.
func (r *AdvanceRepo) GetByID(ctx context.Context, id string) (*entity.Advance, error) {
	rows, err := r.store.ReadFiltered(ctx, TableAdvances, map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("buscar adelanto: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return r.codec.DecodeAdvance(rows[0])
}

func (r *AdvanceRepo) Create(ctx context.Context, a *entity.Advance) error {
	if err := validateAdvance(a); err != nil {
		return err
	}
	idx, err := r.store.Append(ctx, TableAdvances, r.codec.EncodeAdvance(a))
	if err != nil {
		return fmt.Errorf("agregar adelanto: %w", err)
	}
	a.RowIndex = idx
	return nil
}

func (r *AdvanceRepo) UpdateBalance(ctx context.Context, a *entity.Advance, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("saldo negativo para adelanto %s", a.ID)
	}
	if err := r.store.UpdateCell(ctx, TableAdvances, a.RowIndex, "saldo_restante", formatDecimal(balance)); err != nil {
		return fmt.Errorf("actualizar saldo adelanto: %w", err)
	}
	a.Balance = balance
	return nil
}

// ExpenseRepo hoja "gastos".
type ExpenseRepo struct {
	store Store
	codec Codec
}

func NewExpenseRepository(store Store, codec Codec) *ExpenseRepo {
	return &ExpenseRepo{store: store, codec: codec}
}

func (r *ExpenseRepo) List(ctx context.Context) ([]*entity.Expense, error) {
	rows, err := r.store.ReadAll(ctx, TableExpenses)
	if err != nil {
		return nil, fmt.Errorf("leer gastos: %w", err)
	}
	return decodeAll(rows, r.codec.DecodeExpense)
}

func (r *ExpenseRepo) Create(ctx context.Context, e *entity.Expense) error {
	if err := validateExpense(e); err != nil {
		return err
	}
	if _, err := r.store.Append(ctx, TableExpenses, r.codec.EncodeExpense(e)); err != nil {
		return fmt.Errorf("agregar gasto: %w", err)
	}
	return nil
}

// EvidenceRepo hoja "evidencias".
type EvidenceRepo struct {
	store Store
	codec Codec
}

func NewEvidenceRepository(store Store, codec Codec) *EvidenceRepo {
	return &EvidenceRepo{store: store, codec: codec}
}

func (r *EvidenceRepo) Create(ctx context.Context, e *entity.Evidence) error {
	if err := validateEvidence(e); err != nil {
		return err
	}
	if _, err := r.store.Append(ctx, TableEvidence, r.codec.EncodeEvidence(e)); err != nil {
		return fmt.Errorf("agregar evidencia: %w", err)
	}
	return nil
}
