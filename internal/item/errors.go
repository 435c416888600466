package item

import (
	"errors"
	"fmt"
)

// Error kinds. Every parse failure unwraps to exactly one of these.
var (
	ErrEmptyLine          = errors.New("empty line")
	ErrTooFewFields       = errors.New("too few fields")
	ErrMissingProduct     = errors.New("missing product")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidUnit        = errors.New("invalid unit")
	ErrUnrecognizedFormat = errors.New("unrecognized format")
)

// ParseError is returned for any line that cannot be turned into a Line.
// Error() is written for the end user; match on Kind with errors.Is.
type ParseError struct {
	Kind  error
	Token string // Offending token, when there is one.
	msg   string
}

func (e *ParseError) Error() string { return e.msg }
func (e *ParseError) Unwrap() error { return e.Kind }

const formatHint = `"REF; nombre; cantidad; unidad" o "nombre cantidad unidad"`

// NewError builds a ParseError of the given kind.
func NewError(kind error, token string) *ParseError {
	return &ParseError{Kind: kind, Token: token, msg: message(kind, token)}
}

func message(kind error, token string) string {
	switch kind {
	case ErrEmptyLine:
		return "Línea vacía. Formato esperado: " + formatHint
	case ErrTooFewFields:
		return "Formato inválido. Usa " + formatHint + `. Ejemplo: "ABC123; Tomate; 10; kg" o "Tomate 10 kg"`
	case ErrMissingProduct:
		return "No se pudo identificar el nombre del producto."
	case ErrInvalidQuantity:
		if token == "" {
			return `Cantidad inválida. Usa un número decimal, por ejemplo "10" o "2,5".`
		}
		return fmt.Sprintf(`Cantidad inválida: "%s". Usa un número decimal, por ejemplo "10" o "2,5".`, token)
	case ErrInvalidUnit:
		if token == "" {
			return `Unidad inválida. Usa "ud", "kg" o "L". Ejemplo: "ABC123; Tomate; 10; kg" o "Tomate 10 kg".`
		}
		return fmt.Sprintf(`Unidad inválida: "%s". Usa "ud", "kg" o "L".`, token)
	case ErrUnrecognizedFormat:
		return "Formato no reconocido. Usa uno de estos formatos:\n" +
			`• "REF; nombre; cantidad; unidad" (ej: "ABC123; Tomate; 10; kg")` + "\n" +
			`• "nombre cantidad unidad" (ej: "Tomate 10 kg")` + "\n" +
			`• "cantidad unidad nombre" (ej: "10 kg Tomate")` + "\n" +
			`• "REF nombre cantidad unidad" (ej: "PAN010 Pan burger 12 ud")`
	}
	return kind.Error()
}

// KindName returns a stable identifier for the error kind, for logs and
// analytics. It returns "" for errors that are not parse errors.
func KindName(err error) string {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return ""
	}
	switch pe.Kind {
	case ErrEmptyLine:
		return "empty_line"
	case ErrTooFewFields:
		return "too_few_fields"
	case ErrMissingProduct:
		return "missing_product"
	case ErrInvalidQuantity:
		return "invalid_quantity"
	case ErrInvalidUnit:
		return "invalid_unit"
	case ErrUnrecognizedFormat:
		return "unrecognized_format"
	}
	return "unknown"
}
