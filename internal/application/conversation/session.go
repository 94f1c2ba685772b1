// Package conversation implementa los flujos guiados del bot (/compra, /venta, /proceso, …)
// como máquinas de estado sobre una Session por usuario de Telegram.
package conversation

import (
	"context"
	"time"
)

// ExpiredRetention tiempo que un almacén conserva una sesión vencida para poder avisar al usuario.
const ExpiredRetention = time.Hour

// Session estado de la conversación de un usuario. Se serializa en JSON (almacén Redis).
type Session struct {
	UserID    int64             `json:"user_id"`
	ChatID    int64             `json:"chat_id"`
	Username  string            `json:"username,omitempty"`
	Flow      string            `json:"flow"`
	Step      string            `json:"step"`
	Data      map[string]string `json:"data"`
	StartedAt time.Time         `json:"started_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Expired indica si la sesión venció por inactividad.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Get valor guardado por un paso anterior ("" si no existe).
func (s *Session) Get(key string) string { return s.Data[key] }

// Set guarda el valor de un paso.
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	s.Data[key] = value
}

// SessionStore almacén de sesiones por usuario.
// Get devuelve nil, nil si no hay sesión. Las sesiones vencidas se devuelven mientras
// no pase ExpiredRetention desde ExpiresAt.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
}

// Photo foto recibida. Fetch descarga el contenido bajo demanda.
type Photo struct {
	FileID string
	Fetch  func(ctx context.Context) (content []byte, contentType string, err error)
}

// Input mensaje, botón o foto enviado por el usuario.
type Input struct {
	UserID   int64
	ChatID   int64
	Username string
	Text     string // texto o comando ("/compra")
	Callback string // data del botón inline presionado
	Photo    *Photo
}

// Value respuesta del usuario: data del botón si lo hay, si no el texto.
func (in Input) Value() string {
	if in.Callback != "" {
		return in.Callback
	}
	return in.Text
}

// Button botón inline.
type Button struct {
	Text string
	Data string
}

// Document archivo adjunto a una respuesta.
type Document struct {
	Name    string
	Content []byte
}

// Reply mensaje a enviar al usuario.
type Reply struct {
	Text     string
	Keyboard [][]Button
	Document *Document
}
