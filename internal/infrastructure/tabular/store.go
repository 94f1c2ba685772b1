// Package tabular define el contrato del almacén tabular (hojas con esquema fijo de columnas)
// y los repositorios tipados que lo consumen.
package tabular

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/cafe-bot/internal/domain"
)

// Record fila como mapa nombre de columna -> valor en texto.
type Record map[string]string

// Row fila leída con su índice 0-based de datos (sin contar la cabecera).
type Row struct {
	Index  int
	Values Record
}

// Store contrato del almacén tabular remoto.
type Store interface {
	ReadAll(ctx context.Context, table string) ([]Row, error)
	ReadFiltered(ctx context.Context, table string, filters map[string]string) ([]Row, error)
	// Append agrega la fila al final y devuelve su índice de datos.
	Append(ctx context.Context, table string, rec Record) (int, error)
	UpdateCell(ctx context.Context, table string, row int, column, value string) error
}

// SchemaEnsurer lo implementan los almacenes capaces de crear hojas y cabeceras.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context, schema Schema) error
}

// Errores estructurales (errors.Is(err, domain.ErrSchema) es verdadero).
var (
	ErrTableNotFound  = fmt.Errorf("%w: hoja no encontrada", domain.ErrSchema)
	ErrUnknownColumn  = fmt.Errorf("%w: columna desconocida", domain.ErrSchema)
	ErrHeaderMismatch = fmt.Errorf("%w: cabecera distinta al esquema", domain.ErrSchema)
)

// ErrRowNotFound el índice de fila no existe en la hoja.
var ErrRowNotFound = errors.New("fila no encontrada")

// FilterRows aplica filtros de igualdad exacta sobre las filas.
func FilterRows(rows []Row, filters map[string]string) []Row {
	if len(filters) == 0 {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		match := true
		for col, want := range filters {
			if r.Values[col] != want {
				match = false
				break
			}
		}
		if match {
			out = append(out, r)
		}
	}
	return out
}

// EnsureAll crea/valida todas las hojas si el almacén lo soporta.
func EnsureAll(ctx context.Context, store Store, schemas ...Schema) error {
	ensurer, ok := store.(SchemaEnsurer)
	if !ok {
		return nil
	}
	for _, s := range schemas {
		if err := ensurer.EnsureSchema(ctx, s); err != nil {
			return fmt.Errorf("hoja %s: %w", s.Name, err)
		}
	}
	return nil
}
