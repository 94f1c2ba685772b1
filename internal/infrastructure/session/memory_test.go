package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cafe-bot/internal/application/conversation"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/session"
)

func TestMemoryStore_GuardaCopias(t *testing.T) {
	ctx := context.Background()
	m := session.NewMemoryStore()
	s := &conversation.Session{UserID: 7, Flow: "compra", ExpiresAt: time.Now().Add(time.Minute)}
	s.Set("fase", "CEREZO")
	require.NoError(t, m.Save(ctx, s))

	s.Set("fase", "MOTE")
	got, err := m.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CEREZO", got.Get("fase"))

	got.Set("fase", "VERDE")
	again, _ := m.Get(ctx, 7)
	assert.Equal(t, "CEREZO", again.Get("fase"))

	require.NoError(t, m.Delete(ctx, 7))
	none, err := m.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, m.Delete(ctx, 7))
}

func TestMemoryStore_VencidasYLimpieza(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := session.NewMemoryStore()
	m.SetClock(func() time.Time { return now })

	require.NoError(t, m.Save(ctx, &conversation.Session{UserID: 1, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, m.Save(ctx, &conversation.Session{UserID: 2, ExpiresAt: now.Add(-2 * conversation.ExpiredRetention)}))
	require.NoError(t, m.Save(ctx, &conversation.Session{UserID: 3, ExpiresAt: now.Add(time.Minute)}))

	// Vencida pero dentro de la retención: se devuelve para poder avisar.
	s, err := m.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.Expired(now))

	s, _ = m.Get(ctx, 2)
	assert.Nil(t, s)

	assert.Equal(t, 1, m.Cleanup())
	assert.Equal(t, 2, m.Len())
}

func TestMemoryStore_Run(t *testing.T) {
	m := session.NewMemoryStore()
	require.NoError(t, m.Save(context.Background(), &conversation.Session{UserID: 1, ExpiresAt: time.Now().Add(-2 * conversation.ExpiredRetention)}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
