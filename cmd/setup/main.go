// setup tareas de instalación del bot.
//
// Uso:
//
//	go run ./cmd/setup hojas          crea o valida los encabezados de todas las hojas
//	go run ./cmd/setup sincronizar    crea entradas de almacén para compras que no tienen
//	go run ./cmd/setup hash <clave>   imprime el hash bcrypt para ADMIN_PASSWORD_HASH
//
// Usa la misma configuración (variables de entorno / .env) que el bot.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	appinventory "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/stores"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
	"github.com/jhoicas/cafe-bot/pkg/config"
	"github.com/jhoicas/cafe-bot/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "hash":
		if len(os.Args) < 3 {
			usage()
		}
		err = printHash(os.Args[2])
	case "hojas":
		err = withStore(ensureSheets)
	case "sincronizar":
		err = withStore(reconcile)
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Uso: setup hojas | sincronizar | hash <clave>")
	os.Exit(2)
}

func printHash(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("la clave debe tener al menos 8 caracteres")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}

func withStore(run func(ctx context.Context, cfg *config.Config, store tabular.Store, log *logger.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: "development", Level: cfg.App.LogLevel})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, closeStore, err := stores.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	return run(ctx, cfg, store, log)
}

func ensureSheets(ctx context.Context, _ *config.Config, store tabular.Store, _ *logger.Logger) error {
	for _, s := range tabular.AllSchemas() {
		if err := tabular.EnsureAll(ctx, store, s); err != nil {
			return err
		}
		fmt.Printf("Hoja %-12s OK (%d columnas)\n", s.Name, len(s.Columns))
	}
	return nil
}

func reconcile(ctx context.Context, cfg *config.Config, store tabular.Store, log *logger.Logger) error {
	if err := tabular.EnsureAll(ctx, store, tabular.AllSchemas()...); err != nil {
		return err
	}
	repos := tabular.NewRepositories(store, cfg.App.Location())
	ledger := appinventory.NewLedger(repos.Inventory, repos.Purchases, log)
	res, err := ledger.Reconcile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Entradas creadas: %d\nCompras ya registradas: %d\nCompras inválidas: %d\n",
		len(res.Created), res.Skipped, res.Invalid)
	return nil
}
