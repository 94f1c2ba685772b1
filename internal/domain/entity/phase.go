package entity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Phase es la fase de procesamiento en la que se encuentra el café.
type Phase string

// Fases de café, en el orden habitual de procesamiento.
const (
	PhaseCerezo    Phase = "CEREZO"
	PhaseMote      Phase = "MOTE"
	PhasePergamino Phase = "PERGAMINO"
	PhaseVerde     Phase = "VERDE"
	PhaseTostado   Phase = "TOSTADO"
	PhaseMolido    Phase = "MOLIDO"
)

// Phases lista todas las fases válidas.
var Phases = []Phase{PhaseCerezo, PhaseMote, PhasePergamino, PhaseVerde, PhaseTostado, PhaseMolido}

var upperES = cases.Upper(language.Spanish)

// NormalizePhase recorta espacios, quita tildes y pasa a mayúsculas ("  pérgamino" -> "PERGAMINO").
// No valida que el resultado sea una fase conocida.
func NormalizePhase(raw string) string {
	// transform.Chain no es seguro para uso concurrente: se construye por llamada.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.TrimSpace(raw))
	if err != nil {
		s = strings.TrimSpace(raw)
	}
	return upperES.String(s)
}

// ParsePhase normaliza y valida una fase.
func ParsePhase(raw string) (Phase, bool) {
	p := Phase(NormalizePhase(raw))
	return p, p.Valid()
}

// Valid indica si la fase pertenece al conjunto conocido.
func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

func (p Phase) String() string { return string(p) }

// Label nombre legible para mensajes ("Pergamino").
func (p Phase) Label() string {
	s := strings.ToLower(string(p))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
