// Package stores abre el almacén tabular según STORE_DRIVER.
package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/cafe-bot/internal/infrastructure/googlesheets"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/postgres"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
	"github.com/jhoicas/cafe-bot/pkg/config"
	"github.com/jhoicas/cafe-bot/pkg/logger"
)

const sheetsTimeout = 30 * time.Second

// Open construye el almacén del driver configurado. closeFn libera sus recursos (pool de conexiones).
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (store tabular.Store, closeFn func(), err error) {
	if log == nil {
		log = logger.Nop()
	}
	switch cfg.Store.Driver {
	case config.StoreSheets:
		httpClient, err := googlesheets.ServiceAccountClientFromFile(ctx, cfg.Store.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		client, err := googlesheets.New(ctx, googlesheets.Config{
			SpreadsheetID: cfg.Store.SpreadsheetID,
			Endpoint:      cfg.Store.SheetsEndpoint,
			MaxRetries:    cfg.Store.MaxRetries,
			RetryBase:     cfg.Store.RetryBase,
			Timeout:       sheetsTimeout,
		}, httpClient, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("spreadsheet", cfg.Store.SpreadsheetID).Msg("almacén: Google Sheets")
		return client, func() {}, nil

	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		sheets := postgres.NewSheetStore(pool)
		if err := sheets.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info().Msg("almacén: PostgreSQL")
		return sheets, pool.Close, nil

	case config.StoreMemory:
		log.Warn().Msg("almacén: memoria (los datos se pierden al reiniciar)")
		return tabular.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("STORE_DRIVER desconocido: %q", cfg.Store.Driver)
}
