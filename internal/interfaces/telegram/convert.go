package telegram

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jhoicas/cafe-bot/internal/application/conversation"
)

// maxMessageLen límite de caracteres de un mensaje de Telegram.
const maxMessageLen = 4096

// Tipos de actualización (etiqueta de métricas).
const (
	kindCommand  = "command"
	kindMessage  = "message"
	kindCallback = "callback"
	kindPhoto    = "photo"
	kindIgnored  = "ignored"
)

// toInput convierte una actualización en la entrada del despachador. ok=false si no hay nada que procesar
// (ediciones, canales, stickers, botones sin mensaje).
func toInput(u tgbotapi.Update) (in conversation.Input, kind string, ok bool) {
	switch {
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
			return in, kindIgnored, false
		}
		return conversation.Input{
			UserID:   cb.From.ID,
			ChatID:   cb.Message.Chat.ID,
			Username: displayName(cb.From),
			Callback: cb.Data,
		}, kindCallback, true

	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.Chat == nil {
			return in, kindIgnored, false
		}
		in = conversation.Input{UserID: m.From.ID, ChatID: m.Chat.ID, Username: displayName(m.From)}
		if len(m.Photo) > 0 {
			// La última es la de mayor resolución.
			in.Photo = &conversation.Photo{FileID: m.Photo[len(m.Photo)-1].FileID}
			return in, kindPhoto, true
		}
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return in, kindIgnored, false
		}
		in.Text = text
		if m.IsCommand() {
			return in, kindCommand, true
		}
		return in, kindMessage, true
	}
	return in, kindIgnored, false
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// keyboard teclado inline a partir de las filas de botones.
func keyboard(rows [][]conversation.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	if len(out) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &markup
}

// splitText parte el texto en trozos de hasta max caracteres, cortando en saltos de línea cuando se puede.
func splitText(text string, max int) []string {
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	var parts []string
	for utf8.RuneCountInString(text) > max {
		runes := []rune(text)
		cut := max
		if i := strings.LastIndex(string(runes[:max]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:max])[:i])
		}
		parts = append(parts, string(runes[:cut]))
		text = strings.TrimLeft(string(runes[cut:]), "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// messages arma los mensajes de Telegram de una respuesta. El teclado va en el último trozo.
func messages(chatID int64, r conversation.Reply) []tgbotapi.Chattable {
	if r.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: r.Document.Name, Bytes: r.Document.Content})
		doc.Caption = r.Text
		if kb := keyboard(r.Keyboard); kb != nil {
			doc.ReplyMarkup = kb
		}
		return []tgbotapi.Chattable{doc}
	}
	if r.Text == "" {
		return nil
	}
	parts := splitText(r.Text, maxMessageLen)
	out := make([]tgbotapi.Chattable, 0, len(parts))
	for i, p := range parts {
		msg := tgbotapi.NewMessage(chatID, p)
		if i == len(parts)-1 {
			if kb := keyboard(r.Keyboard); kb != nil {
				msg.ReplyMarkup = kb
			}
		}
		out = append(out, msg)
	}
	return out
}

// botCommands lista de comandos para el menú del cliente.
func botCommands(cmds []conversation.Command) []tgbotapi.BotCommand {
	out := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	return out
}
