package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cafe-bot/internal/infrastructure/postgres"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
)

// Requiere TEST_DATABASE_URL apuntando a una base desechable.
func newStore(t *testing.T) *postgres.SheetStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, _ = pool.Exec(ctx, `DROP TABLE IF EXISTS filas_hoja; DROP TABLE IF EXISTS hojas;`)
	s := postgres.NewSheetStore(pool)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, tabular.EnsureAll(ctx, s, tabular.AllSchemas()...))
	return s
}

func TestSheetStore_AppendLeerActualizar(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	idx, err := s.Append(ctx, tabular.TableInventory, tabular.Record{"id": "e1", "fase_actual": "CEREZO", "cantidad_actual": "30"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = s.Append(ctx, tabular.TableInventory, tabular.Record{"id": "e2", "fase_actual": "MOTE", "cantidad_actual": "5"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	require.NoError(t, s.UpdateCell(ctx, tabular.TableInventory, 1, "cantidad_actual", "2.5"))

	rows, err := s.ReadFiltered(ctx, tabular.TableInventory, map[string]string{"fase_actual": "MOTE"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, "2.5", rows[0].Values["cantidad_actual"])

	all, err := s.ReadAll(ctx, tabular.TableInventory)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSheetStore_Errores(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.ReadAll(ctx, "no_existe")
	assert.True(t, errors.Is(err, tabular.ErrTableNotFound))

	err = s.UpdateCell(ctx, tabular.TableInventory, 99, "cantidad_actual", "1")
	assert.True(t, errors.Is(err, tabular.ErrRowNotFound))

	err = s.UpdateCell(ctx, tabular.TableInventory, 0, "rara", "1")
	assert.True(t, errors.Is(err, tabular.ErrUnknownColumn))

	otra := tabular.Schema{Name: tabular.TableInventory, Columns: []string{"id", "otra"}}
	assert.True(t, errors.Is(s.EnsureSchema(ctx, otra), tabular.ErrHeaderMismatch))
}
