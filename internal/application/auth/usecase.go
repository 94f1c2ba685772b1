package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/cafe-bot/internal/application/dto"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/pkg/jwt"
)

// RoleAdmin único rol que emite el login del API.
const RoleAdmin = "admin"

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AdminCredentials usuario administrador y su hash bcrypt.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// AuthUseCase login del administrador del API HTTP.
type AuthUseCase struct {
	admin  AdminCredentials
	jwtCfg JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(admin AdminCredentials, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{admin: admin, jwtCfg: jwtCfg}
}

// Login verifica usuario/password contra el hash configurado y genera JWT.
// Sin administrador configurado todo login se rechaza con ErrForbidden.
func (uc *AuthUseCase) Login(in dto.LoginRequest) (*dto.LoginResponse, error) {
	if uc.admin.Username == "" || uc.admin.PasswordHash == "" {
		return nil, domain.ErrForbidden
	}
	if !strings.EqualFold(strings.TrimSpace(in.Username), uc.admin.Username) {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(uc.admin.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, exp, err := jwt.Generate(uc.jwtCfg.Secret, uc.admin.Username, RoleAdmin, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, ExpiresAt: exp, Username: uc.admin.Username, Role: RoleAdmin}, nil
}
