package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
	"github.com/jhoicas/cafe-bot/pkg/metrics"
)

const driverName = "postgres"

var (
	_ tabular.Store         = (*SheetStore)(nil)
	_ tabular.SchemaEnsurer = (*SheetStore)(nil)
)

// Migration crea las tablas que emulan las hojas: una fila de "hojas" por esquema y
// una fila de "filas_hoja" por fila de datos, guardada como JSONB columna -> texto.
const Migration = `
CREATE TABLE IF NOT EXISTS hojas (
    nombre   TEXT PRIMARY KEY,
    columnas TEXT[] NOT NULL
);
CREATE TABLE IF NOT EXISTS filas_hoja (
    hoja           TEXT        NOT NULL REFERENCES hojas(nombre),
    fila           INTEGER     NOT NULL,
    datos          JSONB       NOT NULL,
    creado_en      TIMESTAMPTZ NOT NULL DEFAULT now(),
    actualizado_en TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (hoja, fila)
);
CREATE INDEX IF NOT EXISTS idx_filas_hoja_datos ON filas_hoja USING GIN (datos);`

// SheetStore almacén tabular sobre PostgreSQL, para instalaciones sin Google Sheets.
// Mantiene la semántica de hoja: índices de fila densos desde 0, filas que nunca se borran.
type SheetStore struct {
	q  Querier
	tx *TxRunner
}

// NewSheetStore construye el almacén. db suele ser el *pgxpool.Pool.
func NewSheetStore(db interface {
	Querier
	TxBeginner
}) *SheetStore {
	return &SheetStore{q: db, tx: NewTxRunner(db)}
}

// Migrate crea las tablas si no existen.
func (s *SheetStore) Migrate(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, Migration); err != nil {
		return fmt.Errorf("migrar hojas: %w", err)
	}
	return nil
}

func observe(operation string, start time.Time, err error) {
	metrics.StoreRequestDuration.WithLabelValues(driverName, operation).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StoreRequestsTotal.WithLabelValues(driverName, operation, status).Inc()
}

// EnsureSchema registra la hoja; si ya existe compara las columnas guardadas con el esquema.
func (s *SheetStore) EnsureSchema(ctx context.Context, schema tabular.Schema) (err error) {
	defer func(start time.Time) { observe("ensure_schema", start, err) }(time.Now())
	const insert = `INSERT INTO hojas (nombre, columnas) VALUES ($1, $2) ON CONFLICT (nombre) DO NOTHING`
	if _, err = s.q.Exec(ctx, insert, schema.Name, schema.Columns); err != nil {
		return fmt.Errorf("registrar hoja %s: %w", schema.Name, err)
	}
	var columns []string
	if err = s.q.QueryRow(ctx, `SELECT columnas FROM hojas WHERE nombre = $1`, schema.Name).Scan(&columns); err != nil {
		return fmt.Errorf("leer hoja %s: %w", schema.Name, err)
	}
	return schema.CheckHeader(columns)
}

func (s *SheetStore) schema(ctx context.Context, q Querier, table string) (tabular.Schema, error) {
	var columns []string
	err := q.QueryRow(ctx, `SELECT columnas FROM hojas WHERE nombre = $1`, table).Scan(&columns)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tabular.Schema{}, fmt.Errorf("%w: %s", tabular.ErrTableNotFound, table)
		}
		return tabular.Schema{}, fmt.Errorf("leer hoja %s: %w", table, err)
	}
	return tabular.Schema{Name: table, Columns: columns}, nil
}

func (s *SheetStore) ReadAll(ctx context.Context, table string) ([]tabular.Row, error) {
	return s.ReadFiltered(ctx, table, nil)
}

// ReadFiltered filtra en la base con contención JSONB (datos @> filtros).
func (s *SheetStore) ReadFiltered(ctx context.Context, table string, filters map[string]string) (rows []tabular.Row, err error) {
	defer func(start time.Time) { observe("read", start, err) }(time.Now())
	schema, err := s.schema(ctx, s.q, table)
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = map[string]string{}
	}
	filterJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("serializar filtros: %w", err)
	}
	const query = `
		SELECT fila, datos FROM filas_hoja
		WHERE hoja = $1 AND datos @> $2::jsonb
		ORDER BY fila`
	res, err := s.q.Query(ctx, query, table, string(filterJSON))
	if err != nil {
		return nil, fmt.Errorf("leer %s: %w", table, err)
	}
	defer res.Close()

	rows = []tabular.Row{}
	for res.Next() {
		var (
			idx  int
			data map[string]string
		)
		if err := res.Scan(&idx, &data); err != nil {
			return nil, fmt.Errorf("leer %s scan: %w", table, err)
		}
		rows = append(rows, tabular.Row{Index: idx, Values: schema.Record(schema.Values(data))})
	}
	return rows, res.Err()
}

// Append toma un bloqueo asesor por hoja para asignar el siguiente índice sin huecos.
func (s *SheetStore) Append(ctx context.Context, table string, rec tabular.Record) (idx int, err error) {
	defer func(start time.Time) { observe("append", start, err) }(time.Now())
	err = s.tx.Run(ctx, func(q Querier) error {
		schema, err := s.schema(ctx, q, table)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, table); err != nil {
			return fmt.Errorf("bloquear %s: %w", table, err)
		}
		if err := q.QueryRow(ctx, `SELECT COALESCE(MAX(fila) + 1, 0) FROM filas_hoja WHERE hoja = $1`, table).Scan(&idx); err != nil {
			return fmt.Errorf("siguiente fila %s: %w", table, err)
		}
		data, err := json.Marshal(schema.Record(schema.Values(rec)))
		if err != nil {
			return fmt.Errorf("serializar fila: %w", err)
		}
		_, err = q.Exec(ctx, `INSERT INTO filas_hoja (hoja, fila, datos) VALUES ($1, $2, $3::jsonb)`, table, idx, string(data))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("fila %s[%d] duplicada: %w", table, idx, err)
			}
			return fmt.Errorf("insertar %s: %w", table, err)
		}
		return nil
	})
	return idx, err
}

func (s *SheetStore) UpdateCell(ctx context.Context, table string, row int, column, value string) (err error) {
	defer func(start time.Time) { observe("update", start, err) }(time.Now())
	schema, err := s.schema(ctx, s.q, table)
	if err != nil {
		return err
	}
	if schema.ColumnIndex(column) < 0 {
		return fmt.Errorf("%w: %s.%s", tabular.ErrUnknownColumn, table, column)
	}
	const query = `
		UPDATE filas_hoja
		SET datos = jsonb_set(datos, ARRAY[$3::text], to_jsonb($4::text)), actualizado_en = now()
		WHERE hoja = $1 AND fila = $2`
	tag, err := s.q.Exec(ctx, query, table, row, column, value)
	if err != nil {
		return fmt.Errorf("actualizar %s[%d].%s: %w", table, row, column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s[%d]", tabular.ErrRowNotFound, table, row)
	}
	return nil
}
