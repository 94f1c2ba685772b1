package conversation

import (
	"context"
	"strings"
)

// outcome estado de un flujo después de procesar un mensaje.
type outcome int

const (
	stay outcome = iota
	completed
	cancelled
	failed
)

func (o outcome) String() string {
	switch o {
	case completed:
		return "completed"
	case cancelled:
		return "cancelled"
	case failed:
		return "failed"
	default:
		return "in_progress"
	}
}

// flow un comando del bot. start se llama con la sesión recién creada.
type flow interface {
	start(ctx context.Context, s *Session, in Input) ([]Reply, outcome)
	step(ctx context.Context, s *Session, in Input) ([]Reply, outcome)
}

// userError mensaje de validación que se muestra tal cual y vuelve a preguntar.
type userError string

func (e userError) Error() string { return string(e) }

const (
	stepConfirm = "confirmar"
	answerYes   = "si"
	answerNo    = "no"
)

// field un paso del formulario: pregunta, interpreta la respuesta y la guarda en Session.Data[key].
type field struct {
	key    string
	prompt func(ctx context.Context, s *Session) (Reply, error)
	parse  func(ctx context.Context, s *Session, in Input) (string, error)
	skip   func(s *Session) bool
}

// form flujo lineal de campos, confirmación opcional y envío.
type form struct {
	fields []field
	// summary texto de confirmación; nil = se envía sin confirmar.
	summary func(s *Session) string
	// confirmIf nil = confirmar siempre que haya summary.
	confirmIf func(s *Session) bool
	submit    func(ctx context.Context, s *Session, in Input) ([]Reply, error)
}

func (f *form) start(ctx context.Context, s *Session, in Input) ([]Reply, outcome) {
	return f.advance(ctx, s, 0, in, "")
}

func (f *form) step(ctx context.Context, s *Session, in Input) ([]Reply, outcome) {
	if s.Step == stepConfirm {
		switch normalizeAnswer(in.Value()) {
		case answerYes:
			return f.finish(ctx, s, in)
		case answerNo:
			return []Reply{{Text: msgCancelled}}, cancelled
		default:
			return []Reply{{Text: "Responde con los botones: Confirmar o Cancelar.", Keyboard: confirmKeyboard()}}, stay
		}
	}
	for i, fd := range f.fields {
		if fd.key != s.Step {
			continue
		}
		value, err := fd.parse(ctx, s, in)
		if err != nil {
			var ue userError
			if asUserError(err, &ue) {
				r, perr := fd.prompt(ctx, s)
				if perr != nil {
					return []Reply{{Text: errorText(perr)}}, failed
				}
				r.Text = "❌ " + string(ue) + "\n\n" + r.Text
				return []Reply{r}, stay
			}
			return []Reply{{Text: errorText(err)}}, failed
		}
		s.Set(fd.key, value)
		return f.advance(ctx, s, i+1, in, "")
	}
	return []Reply{{Text: "La operación se reinició. Empieza de nuevo con el comando."}}, failed
}

func (f *form) advance(ctx context.Context, s *Session, from int, in Input, prefix string) ([]Reply, outcome) {
	for i := from; i < len(f.fields); i++ {
		fd := f.fields[i]
		if fd.skip != nil && fd.skip(s) {
			continue
		}
		r, err := fd.prompt(ctx, s)
		if err != nil {
			return []Reply{{Text: errorText(err)}}, failed
		}
		s.Step = fd.key
		r.Text = prefix + r.Text
		return []Reply{r}, stay
	}
	if f.summary != nil && (f.confirmIf == nil || f.confirmIf(s)) {
		s.Step = stepConfirm
		return []Reply{{Text: f.summary(s) + "\n\n¿Confirmas?", Keyboard: confirmKeyboard()}}, stay
	}
	return f.finish(ctx, s, in)
}

func (f *form) finish(ctx context.Context, s *Session, in Input) ([]Reply, outcome) {
	replies, err := f.submit(ctx, s, in)
	if err != nil {
		return []Reply{{Text: errorText(err)}}, failed
	}
	return replies, completed
}

func confirmKeyboard() [][]Button {
	return [][]Button{{{Text: "✅ Confirmar", Data: answerYes}, {Text: "❌ Cancelar", Data: answerNo}}}
}

func normalizeAnswer(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "si", "sí", "s", "ok", "confirmar", "✅ confirmar":
		return answerYes
	case "no", "n", "cancelar", "❌ cancelar":
		return answerNo
	}
	return ""
}
