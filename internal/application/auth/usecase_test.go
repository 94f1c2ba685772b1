package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/cafe-bot/internal/application/auth"
	"github.com/jhoicas/cafe-bot/internal/application/dto"
	"github.com/jhoicas/cafe-bot/internal/domain"
	pkgjwt "github.com/jhoicas/cafe-bot/pkg/jwt"
)

func newUseCase(t *testing.T) *auth.AuthUseCase {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3creto"), bcrypt.MinCost)
	require.NoError(t, err)
	return auth.NewAuthUseCase(
		auth.AdminCredentials{Username: "admin", PasswordHash: string(hash)},
		auth.JWTConfig{Secret: "secret", ExpMinutes: 30, Issuer: "cafe-bot"},
	)
}

func TestLogin_OK(t *testing.T) {
	uc := newUseCase(t)
	out, err := uc.Login(dto.LoginRequest{Username: " Admin", Password: "s3creto"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, out.Role)

	user, role, err := pkgjwt.Parse("secret", out.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
	assert.Equal(t, auth.RoleAdmin, role)
}

func TestLogin_Rechazos(t *testing.T) {
	uc := newUseCase(t)
	_, err := uc.Login(dto.LoginRequest{Username: "admin", Password: "otra"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, err = uc.Login(dto.LoginRequest{Username: "otro", Password: "s3creto"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	empty := auth.NewAuthUseCase(auth.AdminCredentials{}, auth.JWTConfig{Secret: "secret"})
	_, err = empty.Login(dto.LoginRequest{Username: "admin", Password: "x"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
