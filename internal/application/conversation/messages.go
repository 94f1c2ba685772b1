package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cafe-bot/internal/application/report"
	"github.com/jhoicas/cafe-bot/internal/domain"
	"github.com/jhoicas/cafe-bot/internal/domain/entity"
)

const (
	msgCancelled  = "Operación cancelada."
	msgNoSession  = "No hay ninguna operación en curso."
	msgForbidden  = "⛔ No tienes permiso para usar este bot."
	msgExpired    = "⌛ La operación anterior expiró por inactividad y se descartó."
	msgUnknown    = "No entendí. Usa /ayuda para ver los comandos."
	msgNoNotes    = "Sin notas"
	noNotesMarker = "-"
)

func asUserError(err error, target *userError) bool {
	return errors.As(err, target)
}

// errorText traduce un error de los casos de uso a un mensaje para el usuario, sin ids internos.
func errorText(err error) string {
	var ue userError
	var stock *domain.InsufficientStockError
	switch {
	case errors.As(err, &ue):
		return "❌ " + string(ue)
	case errors.As(err, &stock):
		return fmt.Sprintf("❌ Stock insuficiente de %s: solicitaste %s kg y hay %s kg disponibles.",
			entity.Phase(stock.Phase).Label(), kg(stock.Requested), kg(stock.Available))
	case errors.Is(err, domain.ErrInsufficientStock):
		return "❌ Stock insuficiente."
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "❌ El total supera el saldo disponible del adelanto."
	case errors.Is(err, domain.ErrInvalidTransition):
		return "❌ Esa transformación de fase no está permitida."
	case errors.Is(err, domain.ErrInvalidPhase):
		return "❌ Fase de café inválida."
	case errors.Is(err, domain.ErrNotFound):
		return "❌ No se encontró el registro seleccionado."
	case errors.Is(err, domain.ErrInvalidInput):
		return "❌ Datos inválidos: " + strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
	case errors.Is(err, domain.ErrSchema):
		return "⚠️ La hoja de cálculo tiene una estructura inesperada. Avísale al administrador."
	default:
		return "⚠️ No se pudo guardar en la hoja de cálculo. Intenta de nuevo en unos minutos."
	}
}

func kg(d decimal.Decimal) string { return report.Kg(d) }

func money(d decimal.Decimal) string { return "$" + report.Money(d) }

// parseNumber acepta "12,5", "1.250,75", "$ 3.000" y "20 kg". La coma es el separador decimal.
func parseNumber(raw string) (decimal.Decimal, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, "kg")
	s = strings.NewReplacer("$", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, userError("Escribe un número.")
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1, thousandsDot(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, userError(fmt.Sprintf("%q no es un número válido.", strings.TrimSpace(raw)))
	}
	return d, nil
}

// thousandsDot "2.500" se lee como dos mil quinientos (separador de miles), "2.5" como decimal.
func thousandsDot(s string) bool {
	i := strings.Index(s, ".")
	head := strings.TrimPrefix(s[:max(i, 0)], "-")
	return i > 0 && len(s)-i-1 == 3 && head != "" && head != "0"
}

func parsePositive(what string) func(string) (decimal.Decimal, error) {
	return func(raw string) (decimal.Decimal, error) {
		d, err := parseNumber(raw)
		if err != nil {
			return d, err
		}
		if !d.IsPositive() {
			return d, userError(what + " debe ser mayor que cero.")
		}
		return d, nil
	}
}

func parseNonNegative(what string) func(string) (decimal.Decimal, error) {
	return func(raw string) (decimal.Decimal, error) {
		d, err := parseNumber(raw)
		if err != nil {
			return d, err
		}
		if d.IsNegative() {
			return d, userError(what + " no puede ser negativo.")
		}
		return d, nil
	}
}

func parseText(what string, max int) func(string) (string, error) {
	return func(raw string) (string, error) {
		s := strings.TrimSpace(raw)
		if s == "" || strings.HasPrefix(s, "/") {
			return "", userError("Escribe " + what + ".")
		}
		if len([]rune(s)) > max {
			return "", userError(fmt.Sprintf("Máximo %d caracteres.", max))
		}
		return s, nil
	}
}

func parseNotes(raw string) string {
	s := strings.TrimSpace(raw)
	if s == noNotesMarker || strings.EqualFold(s, msgNoNotes) {
		return ""
	}
	return s
}

// dec lee un decimal guardado por un paso anterior.
func dec(s *Session, key string) decimal.Decimal {
	d, err := decimal.NewFromString(s.Get(key))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func phaseOf(s *Session, key string) entity.Phase { return entity.Phase(s.Get(key)) }

// rows reparte botones en filas de n.
func rows(buttons []Button, n int) [][]Button {
	var out [][]Button
	for len(buttons) > 0 {
		k := n
		if len(buttons) < k {
			k = len(buttons)
		}
		out = append(out, buttons[:k])
		buttons = buttons[k:]
	}
	return out
}

func notesKeyboard() [][]Button {
	return [][]Button{{{Text: msgNoNotes, Data: noNotesMarker}}}
}

func notesField() field {
	return field{
		key: "notas",
		prompt: func(_ context.Context, _ *Session) (Reply, error) {
			return Reply{Text: "📝 Notas (opcional):", Keyboard: notesKeyboard()}, nil
		},
		parse: func(_ context.Context, _ *Session, in Input) (string, error) {
			return parseNotes(in.Value()), nil
		},
	}
}

func textField(key, prompt, what string, max int) field {
	p := parseText(what, max)
	return field{
		key: key,
		prompt: func(_ context.Context, _ *Session) (Reply, error) {
			return Reply{Text: prompt}, nil
		},
		parse: func(_ context.Context, _ *Session, in Input) (string, error) {
			return p(in.Value())
		},
	}
}

func numberField(key, prompt string, parse func(string) (decimal.Decimal, error)) field {
	return field{
		key: key,
		prompt: func(_ context.Context, _ *Session) (Reply, error) {
			return Reply{Text: prompt}, nil
		},
		parse: func(_ context.Context, _ *Session, in Input) (string, error) {
			d, err := parse(in.Value())
			if err != nil {
				return "", err
			}
			return d.String(), nil
		},
	}
}

func phaseButtons(phases []entity.Phase, label func(entity.Phase) string) [][]Button {
	buttons := make([]Button, 0, len(phases))
	for _, p := range phases {
		buttons = append(buttons, Button{Text: label(p), Data: string(p)})
	}
	return rows(buttons, 2)
}

func parsePhaseIn(raw string, allowed []entity.Phase) (entity.Phase, error) {
	p, ok := entity.ParsePhase(raw)
	if !ok {
		return "", userError("Elige una fase con los botones.")
	}
	for _, a := range allowed {
		if a == p {
			return p, nil
		}
	}
	return "", userError(p.Label() + " no está disponible aquí. Elige una de las opciones.")
}

func notesLine(s *Session) string {
	if n := s.Get("notas"); n != "" {
		return "\nNotas: " + n
	}
	return ""
}
