package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/cafe-bot/internal/application/evidence"
	appinventory "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/application/report"
	"github.com/jhoicas/cafe-bot/internal/application/trade"
	"github.com/jhoicas/cafe-bot/pkg/logger"
	"github.com/jhoicas/cafe-bot/pkg/metrics"
)

// Services casos de uso que usan los flujos.
type Services struct {
	Ledger    *appinventory.Ledger
	Transform *appinventory.TransformUseCase
	Trade     *trade.UseCase
	Evidence  *evidence.UseCase
	Report    *report.UseCase
}

// Options opciones del despachador.
type Options struct {
	AllowedUsers       []int64 // vacío = cualquier usuario
	FlowTimeout        time.Duration
	ProcessFlowTimeout time.Duration
}

// Command comando visible en el menú de Telegram.
type Command struct {
	Name        string
	Description string
}

type command struct {
	Command
	timeout time.Duration
	flow    flow
}

const cmdCancel = "cancelar"

// Dispatcher enruta cada mensaje al flujo activo del usuario o inicia uno nuevo.
type Dispatcher struct {
	sessions SessionStore
	commands map[string]*command
	order    []Command
	aliases  map[string]string
	allowed  map[int64]bool
	log      *logger.Logger
	now      func() time.Time
}

// NewDispatcher registra todos los flujos del bot.
func NewDispatcher(sessions SessionStore, svc Services, opts Options, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	if opts.FlowTimeout <= 0 {
		opts.FlowTimeout = 10 * time.Minute
	}
	if opts.ProcessFlowTimeout <= 0 {
		opts.ProcessFlowTimeout = opts.FlowTimeout
	}
	d := &Dispatcher{
		sessions: sessions,
		commands: map[string]*command{},
		aliases:  map[string]string{"start": "ayuda", "help": "ayuda"},
		allowed:  map[int64]bool{},
		log:      log.Component("conversation"),
		now:      time.Now,
	}
	for _, id := range opts.AllowedUsers {
		d.allowed[id] = true
	}
	t := opts.FlowTimeout
	d.register("compra", "Registrar una compra de café", t, purchaseFlow(svc))
	d.register("venta", "Registrar una venta", t, saleFlow(svc))
	d.register("adelanto", "Registrar un adelanto a proveedor", t, advanceFlow(svc))
	d.register("compra_adelanto", "Compra pagada con un adelanto", t, advancePurchaseFlow(svc))
	d.register("proceso", "Transformar café entre fases", opts.ProcessFlowTimeout, processFlow(svc))
	d.register("gasto", "Registrar un gasto", t, expenseFlow(svc))
	d.register("almacen", "Ver y ajustar el almacén", t, inventoryFlow(svc))
	d.register("sincronizar", "Crear entradas de almacén para compras sin entrada", t, reconcileFlow(svc))
	d.register("evidencia", "Adjuntar foto de comprobante", t, evidenceFlow(svc))
	d.register("reporte", "Reporte de almacén en texto", t, reportFlow(svc))
	d.register("reporte_pdf", "Reporte de almacén en PDF", t, reportPDFFlow(svc))
	d.register("ayuda", "Lista de comandos", t, action(func(context.Context, *Session, Input) ([]Reply, error) {
		return []Reply{{Text: d.helpText()}}, nil
	}))
	d.order = append(d.order, Command{Name: cmdCancel, Description: "Cancelar la operación en curso"})
	return d
}

func (d *Dispatcher) register(name, description string, timeout time.Duration, f flow) {
	c := &command{Command: Command{Name: name, Description: description}, timeout: timeout, flow: f}
	d.commands[name] = c
	d.order = append(d.order, c.Command)
}

// SetClock fija el reloj (tests).
func (d *Dispatcher) SetClock(now func() time.Time) { d.now = now }

// Commands comandos en el orden del menú.
func (d *Dispatcher) Commands() []Command {
	out := make([]Command, len(d.order))
	copy(out, d.order)
	return out
}

func (d *Dispatcher) helpText() string {
	var b strings.Builder
	b.WriteString("☕ Comandos disponibles:\n")
	for _, c := range d.order {
		fmt.Fprintf(&b, "/%s - %s\n", c.Name, c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) allowedUser(id int64) bool {
	return len(d.allowed) == 0 || d.allowed[id]
}

// parseCommand "/compra@MiBot algo" -> "compra", true.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return "", false
	}
	cmd := strings.ToLower(name[0])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, true
}

// Handle procesa un mensaje y devuelve las respuestas a enviar, en orden.
func (d *Dispatcher) Handle(ctx context.Context, in Input) []Reply {
	if !d.allowedUser(in.UserID) {
		d.log.Warn().Int64("user", in.UserID).Str("username", in.Username).Msg("usuario no autorizado")
		return []Reply{{Text: msgForbidden}}
	}
	now := d.now()
	name, isCmd := "", false
	if in.Callback == "" {
		name, isCmd = parseCommand(in.Text)
	}
	if alias, ok := d.aliases[name]; ok {
		name = alias
	}

	s, err := d.sessions.Get(ctx, in.UserID)
	if err != nil {
		d.log.Error().Err(err).Int64("user", in.UserID).Msg("no se pudo leer la sesión")
		s = nil
	}
	var replies []Reply
	if s != nil && s.Expired(now) {
		d.end(ctx, s, "expired")
		s = nil
		if !isCmd {
			return []Reply{{Text: msgExpired + " Empieza de nuevo con el comando."}}
		}
		replies = append(replies, Reply{Text: msgExpired})
	}

	if isCmd {
		if name == cmdCancel {
			if s == nil {
				return append(replies, Reply{Text: msgNoSession})
			}
			d.end(ctx, s, cancelled.String())
			return append(replies, Reply{Text: msgCancelled})
		}
		cmd, ok := d.commands[name]
		if !ok {
			return append(replies, Reply{Text: msgUnknown})
		}
		if s != nil {
			// Un comando nuevo reemplaza la operación en curso.
			d.end(ctx, s, cancelled.String())
		}
		s = &Session{
			UserID:    in.UserID,
			ChatID:    in.ChatID,
			Username:  in.Username,
			Flow:      cmd.Name,
			StartedAt: now,
			ExpiresAt: now.Add(cmd.timeout),
		}
		out, o := cmd.flow.start(ctx, s, in)
		return append(replies, d.after(ctx, s, cmd, out, o)...)
	}

	if s == nil {
		if in.Photo != nil {
			return []Reply{{Text: "Para adjuntar un comprobante usa /evidencia."}}
		}
		return []Reply{{Text: msgUnknown}}
	}
	cmd, ok := d.commands[s.Flow]
	if !ok {
		d.end(ctx, s, failed.String())
		return []Reply{{Text: msgUnknown}}
	}
	out, o := cmd.flow.step(ctx, s, in)
	return d.after(ctx, s, cmd, out, o)
}

func (d *Dispatcher) after(ctx context.Context, s *Session, cmd *command, out []Reply, o outcome) []Reply {
	if o == stay {
		s.ExpiresAt = d.now().Add(cmd.timeout)
		if err := d.sessions.Save(ctx, s); err != nil {
			d.log.Error().Err(err).Int64("user", s.UserID).Str("flow", s.Flow).Msg("no se pudo guardar la sesión")
			metrics.FlowsTotal.WithLabelValues(s.Flow, failed.String()).Inc()
			return []Reply{{Text: "⚠️ No se pudo guardar el avance de la operación. Intenta de nuevo."}}
		}
		return out
	}
	d.end(ctx, s, o.String())
	return out
}

// end borra la sesión y registra el desenlace del flujo.
func (d *Dispatcher) end(ctx context.Context, s *Session, result string) {
	if err := d.sessions.Delete(ctx, s.UserID); err != nil {
		d.log.Error().Err(err).Int64("user", s.UserID).Msg("no se pudo borrar la sesión")
	}
	metrics.FlowsTotal.WithLabelValues(s.Flow, result).Inc()
	d.log.Debug().Int64("user", s.UserID).Str("flow", s.Flow).Str("outcome", result).Msg("flujo terminado")
}

// action flujo de un solo paso.
type action func(ctx context.Context, s *Session, in Input) ([]Reply, error)

func (a action) start(ctx context.Context, s *Session, in Input) ([]Reply, outcome) {
	out, err := a(ctx, s, in)
	if err != nil {
		return []Reply{{Text: errorText(err)}}, failed
	}
	return out, completed
}

func (a action) step(ctx context.Context, s *Session, in Input) ([]Reply, outcome) {
	return a.start(ctx, s, in)
}
