// Package telegram transporte del bot: long polling, envío de respuestas y descarga de fotos.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jhoicas/cafe-bot/internal/application/conversation"
	"github.com/jhoicas/cafe-bot/pkg/logger"
	"github.com/jhoicas/cafe-bot/pkg/metrics"
)

const (
	pollTimeoutSeconds = 60
	// maxPhotoBytes límite de descarga de fotos (el Bot API no entrega archivos de más de 20 MB).
	maxPhotoBytes = 20 << 20
)

// Handler procesa una entrada y devuelve las respuestas (conversation.Dispatcher).
type Handler interface {
	Handle(ctx context.Context, in conversation.Input) []conversation.Reply
}

// API subconjunto de *tgbotapi.BotAPI que usa el transporte.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot recibe actualizaciones y las entrega al Handler. Las de un mismo usuario se procesan en orden,
// una a la vez; las de usuarios distintos en paralelo.
type Bot struct {
	api      API
	handler  Handler
	commands []conversation.Command
	client   *http.Client
	log      *logger.Logger

	mu      sync.Mutex
	pending map[int64][]tgbotapi.Update
	wg      sync.WaitGroup
}

// New conecta con el Bot API usando el token.
func New(token string, debug bool, handler Handler, commands []conversation.Command, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: conectar: %w", err)
	}
	api.Debug = debug
	b := NewWithAPI(api, handler, commands, log)
	b.log.Info().Str("bot", api.Self.UserName).Msg("conectado a Telegram")
	return b, nil
}

// NewWithAPI construye el bot sobre un cliente ya creado.
func NewWithAPI(api API, handler Handler, commands []conversation.Command, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		api:      api,
		handler:  handler,
		commands: commands,
		client:   &http.Client{Timeout: 60 * time.Second},
		log:      log.Component("telegram"),
		pending:  make(map[int64][]tgbotapi.Update),
	}
}

// Run registra los comandos y procesa actualizaciones hasta que ctx se cancela.
// Al salir espera a que terminen las actualizaciones en curso.
func (b *Bot) Run(ctx context.Context) error {
	if len(b.commands) > 0 {
		if _, err := b.api.Request(tgbotapi.NewSetMyCommands(botCommands(b.commands)...)); err != nil {
			b.log.Warn().Err(err).Msg("no se pudo registrar la lista de comandos")
		}
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)
	b.log.Info().Msg("escuchando actualizaciones")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.log.Info().Msg("bot detenido")
			return nil
		case u, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.enqueue(ctx, u)
		}
	}
}

// enqueue encola la actualización en la cola del usuario y arranca su worker si no hay uno activo.
func (b *Bot) enqueue(ctx context.Context, u tgbotapi.Update) {
	user := updateUser(u)
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.pending[user]
	b.pending[user] = append(q, u)
	if len(q) == 0 {
		b.wg.Add(1)
		go b.drain(ctx, user)
	}
}

func (b *Bot) drain(ctx context.Context, user int64) {
	defer b.wg.Done()
	// Las actualizaciones ya encoladas se terminan aunque el bot se esté deteniendo.
	ctx = context.WithoutCancel(ctx)
	b.mu.Lock()
	u := b.pending[user][0]
	b.mu.Unlock()
	for {
		b.process(ctx, u)

		b.mu.Lock()
		q := b.pending[user][1:]
		if len(q) == 0 {
			delete(b.pending, user)
			b.mu.Unlock()
			return
		}
		b.pending[user] = q
		u = q[0]
		b.mu.Unlock()
	}
}

// process atiende una actualización: responde el callback, llama al Handler y envía las respuestas.
func (b *Bot) process(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Int("update", u.UpdateID).Msg("pánico procesando actualización")
		}
	}()
	in, kind, ok := toInput(u)
	metrics.TelegramUpdatesTotal.WithLabelValues(kind).Inc()
	if !ok {
		return
	}
	if cb := u.CallbackQuery; cb != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.log.Debug().Err(err).Msg("no se pudo responder el callback")
		}
		b.clearKeyboard(cb.Message)
	}
	if in.Photo != nil {
		fileID := in.Photo.FileID
		in.Photo.Fetch = func(ctx context.Context) ([]byte, string, error) {
			return b.download(ctx, fileID)
		}
	}
	for _, r := range b.handler.Handle(ctx, in) {
		b.send(in.ChatID, r)
	}
}

// clearKeyboard quita los botones del mensaje ya respondido para evitar doble pulsación.
func (b *Bot) clearKeyboard(m *tgbotapi.Message) {
	if m == nil || m.ReplyMarkup == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(m.Chat.ID, m.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(edit); err != nil {
		b.log.Debug().Err(err).Msg("no se pudo quitar el teclado")
	}
}

func (b *Bot) send(chatID int64, r conversation.Reply) {
	for _, msg := range messages(chatID, r) {
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error().Err(err).Int64("chat", chatID).Msg("no se pudo enviar el mensaje")
			return
		}
	}
}

// download baja el archivo de Telegram y devuelve su contenido y tipo MIME.
func (b *Bot) download(ctx context.Context, fileID string) ([]byte, string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: url del archivo: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: descargar archivo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("telegram: descargar archivo: estado %d", resp.StatusCode)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("telegram: leer archivo: %w", err)
	}
	if len(content) > maxPhotoBytes {
		return nil, "", fmt.Errorf("telegram: archivo supera %d bytes", maxPhotoBytes)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}
	return content, contentType, nil
}

func updateUser(u tgbotapi.Update) int64 {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	}
	return 0
}
