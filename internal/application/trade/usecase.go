// Package trade casos de uso de negocio: compras, ventas, adelantos, gastos y ajustes de almacén.
package trade

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/repository"
	"github.com/jhoicas/cafe-bot/pkg/keylock"
	"github.com/jhoicas/cafe-bot/pkg/logger"
)

// UseCase agrupa las operaciones de negocio que escriben en las hojas.
type UseCase struct {
	ledger    *inventory.Ledger
	purchases repository.PurchaseRepository
	sales     repository.SaleRepository
	advances  repository.AdvanceRepository
	expenses  repository.ExpenseRepository
	locks     *keylock.KeyedMutex
	log       *logger.Logger
	now       func() time.Time
}

// Repos repositorios que necesita el caso de uso.
type Repos struct {
	Purchases repository.PurchaseRepository
	Sales     repository.SaleRepository
	Advances  repository.AdvanceRepository
	Expenses  repository.ExpenseRepository
}

// NewUseCase construye el caso de uso.
func NewUseCase(ledger *inventory.Ledger, repos Repos, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		ledger:    ledger,
		purchases: repos.Purchases,
		sales:     repos.Sales,
		advances:  repos.Advances,
		expenses:  repos.Expenses,
		locks:     keylock.New(),
		log:       log.Component("trade"),
		now:       time.Now,
	}
}

// SetClock fija el reloj (tests).
func (uc *UseCase) SetClock(now func() time.Time) { uc.now = now }

// storeErr deja pasar errores de negocio y traduce el resto a ErrStorage/ErrSchema registrando la causa.
func (uc *UseCase) storeErr(op string, err error) error {
	for _, known := range []error{
		domain.ErrInvalidInput, domain.ErrInvalidPhase, domain.ErrInvalidTransition,
		domain.ErrInsufficientStock, domain.ErrInsufficientBalance, domain.ErrNotFound,
		domain.ErrStorage,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, domain.ErrSchema) {
		uc.log.Error().Err(err).Bool("critical", true).Str("op", op).Msg("estructura de hoja inválida")
		return domain.ErrSchema
	}
	uc.log.Error().Err(err).Str("op", op).Msg("error de almacenamiento")
	return domain.ErrStorage
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s es obligatorio", domain.ErrInvalidInput, field)
	}
	return nil
}
