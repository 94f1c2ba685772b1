package googlesheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

const (
	scopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
	defaultTokenURL   = "https://oauth2.googleapis.com/token"
)

// serviceAccount campos del JSON de cuenta de servicio que se usan.
type serviceAccount struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// ServiceAccountClient construye un *http.Client autenticado con el flujo JWT de cuenta de servicio.
// El token se renueva automáticamente.
func ServiceAccountClient(ctx context.Context, credentialsJSON []byte) (*http.Client, error) {
	var sa serviceAccount
	if err := json.Unmarshal(credentialsJSON, &sa); err != nil {
		return nil, fmt.Errorf("credenciales de google: %w", err)
	}
	if sa.Type != "" && sa.Type != "service_account" {
		return nil, fmt.Errorf("credenciales de google: tipo %q no soportado", sa.Type)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("credenciales de google: faltan client_email o private_key")
	}
	tokenURL := sa.TokenURI
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	cfg := &jwt.Config{
		Email:        sa.ClientEmail,
		PrivateKey:   []byte(sa.PrivateKey),
		PrivateKeyID: sa.PrivateKeyID,
		Scopes:       []string{scopeSpreadsheets},
		TokenURL:     tokenURL,
	}
	return oauth2.NewClient(ctx, cfg.TokenSource(ctx)), nil
}

// ServiceAccountClientFromFile lee el archivo de credenciales.
func ServiceAccountClientFromFile(ctx context.Context, path string) (*http.Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer credenciales %s: %w", path, err)
	}
	return ServiceAccountClient(ctx, data)
}
