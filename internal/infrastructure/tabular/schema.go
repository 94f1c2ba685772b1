package tabular

import "fmt"

// Schema nombre de la hoja y orden fijo de columnas. Se usa tanto para la cabecera
// como para serializar filas.
type Schema struct {
	Name    string
	Columns []string
}

// Nombres de hojas.
const (
	TableInventory = "almacen"
	TablePurchases = "compras"
	TableProcess   = "proceso"
	TableSales     = "ventas"
	TableAdvances  = "adelantos"
	TableExpenses  = "gastos"
	TableEvidence  = "evidencias"
)

// Esquemas de todas las hojas.
var (
	InventorySchema = Schema{Name: TableInventory, Columns: []string{
		"id", "compra_id", "tipo_cafe_origen", "fecha", "cantidad", "fase_actual",
		"cantidad_actual", "notas", "fecha_actualizacion",
	}}
	PurchaseSchema = Schema{Name: TablePurchases, Columns: []string{
		"id", "fecha", "tipo_cafe", "proveedor", "cantidad", "precio", "preciototal",
		"registrado_por", "notas",
	}}
	ProcessSchema = Schema{Name: TableProcess, Columns: []string{
		"fecha", "origen", "destino", "cantidad", "compras_ids", "merma", "merma_estimada",
		"cantidad_resultante_esperada", "cantidad_resultante", "notas", "registrado_por",
	}}
	SaleSchema = Schema{Name: TableSales, Columns: []string{
		"id", "fecha", "tipo_cafe", "cliente", "cantidad", "precio", "total", "almacen_ids",
		"notas", "registrado_por",
	}}
	AdvanceSchema = Schema{Name: TableAdvances, Columns: []string{
		"id", "fecha", "proveedor", "monto", "saldo_restante", "notas", "registrado_por",
	}}
	ExpenseSchema = Schema{Name: TableExpenses, Columns: []string{
		"id", "fecha", "categoria", "monto", "descripcion", "registrado_por",
	}}
	EvidenceSchema = Schema{Name: TableEvidence, Columns: []string{
		"id", "fecha", "tipo_operacion", "operacion_id", "archivo", "url", "notas", "registrado_por",
	}}
)

// AllSchemas todas las hojas que usa el bot.
func AllSchemas() []Schema {
	return []Schema{
		InventorySchema, PurchaseSchema, ProcessSchema, SaleSchema,
		AdvanceSchema, ExpenseSchema, EvidenceSchema,
	}
}

// ColumnIndex posición 0-based de la columna, -1 si no existe.
func (s Schema) ColumnIndex(column string) int {
	for i, c := range s.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Values serializa el registro en el orden del esquema; columnas ausentes quedan vacías.
func (s Schema) Values(rec Record) []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = rec[c]
	}
	return out
}

// Record construye un registro a partir de valores en orden de columnas.
// Celdas faltantes al final de la fila se interpretan como vacías.
func (s Schema) Record(values []string) Record {
	rec := make(Record, len(s.Columns))
	for i, c := range s.Columns {
		if i < len(values) {
			rec[c] = values[i]
		} else {
			rec[c] = ""
		}
	}
	return rec
}

// CheckHeader compara una cabecera leída con el esquema.
func (s Schema) CheckHeader(header []string) error {
	if len(header) < len(s.Columns) {
		return fmt.Errorf("%w: %s tiene %d columnas, se esperaban %d", ErrHeaderMismatch, s.Name, len(header), len(s.Columns))
	}
	for i, c := range s.Columns {
		if header[i] != c {
			return fmt.Errorf("%w: %s columna %d es %q, se esperaba %q", ErrHeaderMismatch, s.Name, i+1, header[i], c)
		}
	}
	return nil
}

// Lookup devuelve el esquema por nombre de hoja.
func Lookup(table string) (Schema, bool) {
	for _, s := range AllSchemas() {
		if s.Name == table {
			return s, true
		}
	}
	return Schema{}, false
}
