package evidence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cafe-bot/internal/application/evidence"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
)

type fakeStorage struct {
	keys []string
	err  error
}

func (f *fakeStorage) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func newStore() (*tabular.MemoryStore, *tabular.Repositories) {
	store := tabular.NewMemoryStore(tabular.AllSchemas()...)
	return store, tabular.NewRepositories(store, time.UTC)
}

func TestAttach_ConAlmacenamiento(t *testing.T) {
	store, repos := newStore()
	st := &fakeStorage{}
	folders := map[string]string{entity.OperationPurchase: "pagos/compras"}
	uc := evidence.NewUseCase(repos.Evidence, st, func(op string) string { return folders[op] }, nil)

	ev, err := uc.Attach(context.Background(), evidence.AttachInput{
		OperationType: entity.OperationPurchase, OperationID: "c-1", FileID: "tg-file",
		Content: []byte{0xff, 0xd8}, ContentType: "image/jpeg", RegisteredBy: "ana",
	})
	require.NoError(t, err)
	require.Len(t, st.keys, 1)
	assert.Equal(t, "pagos/compras/c-1/"+ev.ID+".jpg", ev.File)
	assert.Equal(t, "https://cdn.example.com/"+ev.File, ev.URL)

	rows, err := store.ReadAll(context.Background(), tabular.TableEvidence)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "compra", rows[0].Values["tipo_operacion"])
	assert.Equal(t, ev.URL, rows[0].Values["url"])
}

func TestAttach_SinAlmacenamientoGuardaFileID(t *testing.T) {
	_, repos := newStore()
	uc := evidence.NewUseCase(repos.Evidence, nil, nil, nil)
	assert.False(t, uc.StorageEnabled())

	ev, err := uc.Attach(context.Background(), evidence.AttachInput{
		OperationType: entity.OperationExpense, OperationID: "g-9", FileID: "AgADBAAD",
	})
	require.NoError(t, err)
	assert.Equal(t, "AgADBAAD", ev.File)
	assert.Empty(t, ev.URL)
}

func TestAttach_Errores(t *testing.T) {
	_, repos := newStore()
	ctx := context.Background()

	uc := evidence.NewUseCase(repos.Evidence, nil, nil, nil)
	_, err := uc.Attach(ctx, evidence.AttachInput{OperationType: "regalo", OperationID: "x", FileID: "f"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = uc.Attach(ctx, evidence.AttachInput{OperationType: entity.OperationSale, FileID: "f"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = uc.Attach(ctx, evidence.AttachInput{OperationType: entity.OperationSale, OperationID: "v-1"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	failing := evidence.NewUseCase(repos.Evidence, &fakeStorage{err: errors.New("s3: 500")}, nil, nil)
	_, err = failing.Attach(ctx, evidence.AttachInput{OperationType: entity.OperationSale, OperationID: "v-1", Content: []byte("x")})
	assert.True(t, errors.Is(err, domain.ErrStorage))
}
