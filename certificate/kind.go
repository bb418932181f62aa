package certificate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned by ParseKind for unsupported certificate kinds.
var ErrUnknownKind = errors.New("unknown certificate kind")

// Kind identifies a certificate template.
type Kind string

const (
	KindTributario Kind = "tributario"
	KindAportes    Kind = "aportes"
	KindPazYSalvo  Kind = "paz_y_salvo"
)

// Kinds returns the supported kinds in presentation order.
func Kinds() []Kind {
	return []Kind{KindTributario, KindAportes, KindPazYSalvo}
}

// Title returns the heading printed on the document.
func (k Kind) Title() string {
	switch k {
	case KindTributario:
		return "CERTIFICADO TRIBUTARIO"
	case KindAportes:
		return "CERTIFICADO DE APORTES"
	case KindPazYSalvo:
		return "PAZ Y SALVO"
	default:
		return strings.ToUpper(string(k))
	}
}

// ParseKind normalizes s ("Paz y salvo", "TRIBUTARIO", "paz-y-salvo") to a Kind.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)

	for _, k := range Kinds() {
		if string(k) == norm {
			return k, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
