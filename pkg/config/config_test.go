package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cafe-bot/pkg/config"
)

func TestLoad_ValoresDesdeEntorno(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ALLOWED_USERS", "11, 22")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("FLOW_TIMEOUT_MINUTES", "15")
	t.Setenv("STORAGE_FOLDER_GASTOS", "recibos")
	t.Setenv("HTTP_ENABLED", "false")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, []int64{11, 22}, cfg.Telegram.AllowedUsers)
	assert.Equal(t, config.StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Session.FlowTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Session.ProcessFlowTimeout)
	assert.Equal(t, "recibos", cfg.Storage.Folder("gasto"))
	assert.Equal(t, "compras", cfg.Storage.Folder("compra"))
	assert.False(t, cfg.HTTP.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_UsuarioInvalido(t *testing.T) {
	t.Setenv("TELEGRAM_ALLOWED_USERS", "11,juan")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate_FaltantesPorDriver(t *testing.T) {
	cfg := &config.Config{
		Store:   config.StoreConfig{Driver: config.StoreSheets},
		Session: config.SessionConfig{Driver: "memcached"},
		Storage: config.StorageConfig{Enabled: true},
		HTTP:    config.HTTPConfig{Enabled: true},
	}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "TELEGRAM_TOKEN")
	assert.Contains(t, msg, "SPREADSHEET_ID")
	assert.Contains(t, msg, "SESSION_DRIVER")
	assert.Contains(t, msg, "STORAGE_BUCKET")
	assert.Contains(t, msg, "JWT_SECRET")
}

func TestDSN_EscapaPassword(t *testing.T) {
	db := config.DBConfig{Host: "db", Port: 5432, User: "cafe", Password: "p@ss:word", DBName: "cafe", SSLMode: "disable"}
	assert.Equal(t, "postgres://cafe:p%40ss%3Aword@db:5432/cafe?sslmode=disable", db.ConnectionString())
	db.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", db.ConnectionString())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, config.AppConfig{TimeZone: "No/Existe"}.Location())
	assert.Equal(t, "America/Bogota", config.AppConfig{TimeZone: "America/Bogota"}.Location().String())
}
