// Package evidence adjunta fotos de respaldo (comprobantes de pago) a operaciones registradas.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/domain/repository"
	"github.com/jhoicas/cafe-bot/pkg/logger"
)

// ObjectStorage almacenamiento remoto de archivos (S3, MinIO, R2).
type ObjectStorage interface {
	// Put sube el contenido bajo key y devuelve la URL pública o firmada del objeto.
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// AttachInput foto enviada por el usuario para una operación.
type AttachInput struct {
	OperationType string
	OperationID   string
	// FileID identificador del archivo en Telegram; se guarda cuando no hay almacenamiento remoto.
	FileID       string
	Content      []byte
	ContentType  string
	Notes        string
	RegisteredBy string
}

// UseCase registra evidencias.
type UseCase struct {
	repo    repository.EvidenceRepository
	storage ObjectStorage // nil = almacenamiento deshabilitado
	folder  func(operationType string) string
	log     *logger.Logger
	now     func() time.Time
}

// NewUseCase construye el caso de uso. storage puede ser nil.
func NewUseCase(repo repository.EvidenceRepository, storage ObjectStorage, folder func(string) string, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	if folder == nil {
		folder = func(op string) string { return op }
	}
	return &UseCase{repo: repo, storage: storage, folder: folder, log: log.Component("evidence"), now: time.Now}
}

// StorageEnabled indica si las fotos se suben al almacenamiento remoto.
func (uc *UseCase) StorageEnabled() bool { return uc.storage != nil }

// Attach sube la foto (si hay almacenamiento) y agrega la fila en evidencias.
func (uc *UseCase) Attach(ctx context.Context, in AttachInput) (*entity.Evidence, error) {
	switch in.OperationType {
	case entity.OperationPurchase, entity.OperationSale, entity.OperationAdvance, entity.OperationExpense:
	default:
		return nil, fmt.Errorf("%w: tipo de operación %q", domain.ErrInvalidInput, in.OperationType)
	}
	if strings.TrimSpace(in.OperationID) == "" {
		return nil, fmt.Errorf("%w: falta la operación", domain.ErrInvalidInput)
	}
	ev := &entity.Evidence{
		ID:            uuid.New().String(),
		Date:          uc.now(),
		OperationType: in.OperationType,
		OperationID:   in.OperationID,
		File:          in.FileID,
		Notes:         in.Notes,
		RegisteredBy:  in.RegisteredBy,
	}
	if uc.storage != nil {
		if len(in.Content) == 0 {
			return nil, fmt.Errorf("%w: la foto está vacía", domain.ErrInvalidInput)
		}
		key := path.Join(uc.folder(in.OperationType), in.OperationID, ev.ID+extension(in.ContentType))
		url, err := uc.storage.Put(ctx, key, in.ContentType, in.Content)
		if err != nil {
			uc.log.Error().Err(err).Str("key", key).Msg("no se pudo subir la evidencia")
			return nil, domain.ErrStorage
		}
		ev.File, ev.URL = key, url
	}
	if ev.File == "" {
		return nil, fmt.Errorf("%w: falta la foto", domain.ErrInvalidInput)
	}
	if err := uc.repo.Create(ctx, ev); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		uc.log.Error().Err(err).Str("operation", ev.OperationID).Msg("no se pudo registrar la evidencia")
		return nil, domain.ErrStorage
	}
	uc.log.Info().Str("evidence", ev.ID).Str("type", ev.OperationType).Str("operation", ev.OperationID).Msg("evidencia registrada")
	return ev, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".jpg"
	}
}
