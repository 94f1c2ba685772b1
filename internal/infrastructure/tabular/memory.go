package tabular

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore almacén tabular en memoria. Útil para desarrollo (STORE_DRIVER=memory) y tests.
// Las hojas deben registrarse con EnsureSchema (o en el constructor) antes de usarse.
type MemoryStore struct {
	mu      sync.RWMutex
	schemas map[string]Schema
	rows    map[string][]Record
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ SchemaEnsurer = (*MemoryStore)(nil)
)

// NewMemoryStore crea el almacén con las hojas indicadas ya registradas.
func NewMemoryStore(schemas ...Schema) *MemoryStore {
	s := &MemoryStore{
		schemas: make(map[string]Schema),
		rows:    make(map[string][]Record),
	}
	for _, sc := range schemas {
		s.schemas[sc.Name] = sc
	}
	return s
}

// EnsureSchema registra la hoja si no existía.
func (s *MemoryStore) EnsureSchema(_ context.Context, schema Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schemas[schema.Name]; !ok {
		s.schemas[schema.Name] = schema
	}
	return nil
}

func (s *MemoryStore) ReadAll(_ context.Context, table string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.schemas[table]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	out := make([]Row, len(s.rows[table]))
	for i, rec := range s.rows[table] {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out[i] = Row{Index: i, Values: cp}
	}
	return out, nil
}

func (s *MemoryStore) ReadFiltered(ctx context.Context, table string, filters map[string]string) ([]Row, error) {
	rows, err := s.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}
	return FilterRows(rows, filters), nil
}

func (s *MemoryStore) Append(_ context.Context, table string, rec Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schema, ok := s.schemas[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	// Serializa y reconstruye para descartar columnas fuera del esquema.
	s.rows[table] = append(s.rows[table], schema.Record(schema.Values(rec)))
	return len(s.rows[table]) - 1, nil
}

func (s *MemoryStore) UpdateCell(_ context.Context, table string, row int, column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schema, ok := s.schemas[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if schema.ColumnIndex(column) < 0 {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, column)
	}
	if row < 0 || row >= len(s.rows[table]) {
		return fmt.Errorf("%w: %s[%d]", ErrRowNotFound, table, row)
	}
	s.rows[table][row][column] = value
	return nil
}
