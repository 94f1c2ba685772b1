package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/cafe-bot/pkg/jwt"
)

const testSecret = "test-secret-key-for-unit-tests"

func TestGenerateAndParse(t *testing.T) {
	tok, exp, err := pkgjwt.Generate(testSecret, "admin", "admin", "cafe-bot-test", 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	user, role, err := pkgjwt.Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "admin", role)
}

func TestParse_Errores(t *testing.T) {
	expired, _, err := pkgjwt.Generate(testSecret, "admin", "admin", "cafe-bot-test", -1)
	require.NoError(t, err)
	_, _, err = pkgjwt.Parse(testSecret, expired)
	assert.Error(t, err, "token expirado debe retornar error")

	tok, _, err := pkgjwt.Generate(testSecret, "admin", "admin", "cafe-bot-test", 60)
	require.NoError(t, err)
	_, _, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")

	_, _, err = pkgjwt.Generate("", "admin", "admin", "x", 60)
	assert.Error(t, err)
}
