package ops

import (
	"errors"
	"fmt"
	"strings"

	"koabot/internal/item"
	"koabot/internal/quantity"
	"koabot/internal/units"
)

// ErrValidation marks a request rejected before anything was stored.
var ErrValidation = errors.New("invalid request")

// maxPlaces bounds the decimal places of wastage and production quantities.
const maxPlaces = 3

// ItemInput is one structured item of a request.
type ItemInput struct {
	Ref      string  `json:"ref"`
	Product  string  `json:"product"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Reason   string  `json:"reason,omitempty"`
}

// Registrant identifies who registers an operation. TelegramID wins over
// UserID; the user is created or renamed on the fly.
type Registrant struct {
	UserID     string `json:"registered_by_user_id,omitempty"`
	TelegramID string `json:"registered_by_telegram_id,omitempty"`
	Name       string `json:"registered_by_name,omitempty"`
}

// ReceptionRequest registers a delivery. Items come either structured or
// as ItemsText, one item line per line.
type ReceptionRequest struct {
	Registrant
	OccurredAt    string      `json:"occurred_at"`
	Supplier      string      `json:"supplier"`
	Total         *float64    `json:"total,omitempty"`
	AttachmentURL string      `json:"attachment_url,omitempty"`
	ChatID        string      `json:"chat_id,omitempty"`
	Items         []ItemInput `json:"items,omitempty"`
	ItemsText     string      `json:"items_text,omitempty"`
}

// WastageRequest registers a single wasted product.
type WastageRequest struct {
	Registrant
	ItemInput
	OccurredAt    string `json:"occurred_at"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	ChatID        string `json:"chat_id,omitempty"`
}

// WastageBatchRequest registers several wasted products sharing a date and
// a default reason.
type WastageBatchRequest struct {
	Registrant
	OccurredAt    string      `json:"occurred_at"`
	Reason        string      `json:"reason,omitempty"`
	AttachmentURL string      `json:"attachment_url,omitempty"`
	ChatID        string      `json:"chat_id,omitempty"`
	Items         []ItemInput `json:"items,omitempty"`
	ItemsText     string      `json:"items_text,omitempty"`
}

// ProductionRequest registers a kitchen batch and its outputs.
type ProductionRequest struct {
	OccurredAt  string      `json:"occurred_at"`
	BatchName   string      `json:"batch_name"`
	ProducedBy  Registrant  `json:"produced_by"`
	ChatID      string      `json:"chat_id,omitempty"`
	Outputs     []ItemInput `json:"outputs,omitempty"`
	OutputsText string      `json:"outputs_text,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// toLine validates a structured item the way the parser would validate a
// typed line.
func (in ItemInput) toLine() (item.Line, error) {
	product := strings.TrimSpace(in.Product)
	if product == "" {
		return item.Line{}, invalid("product is required")
	}
	if in.Quantity <= 0 {
		return item.Line{}, invalid("quantity of %q must be positive", product)
	}
	u, ok := units.Normalize(in.Unit)
	if !ok {
		return item.Line{}, invalid("unit %q of %q is not one of %s, %s, %s",
			in.Unit, product, units.Piece, units.Kilogram, units.Liter)
	}
	ref := strings.TrimSpace(in.Ref)
	if ref == "" {
		ref = item.UnknownRef
	}
	return item.Line{
		Ref:      ref,
		Product:  product,
		Quantity: in.Quantity,
		Unit:     u,
		Reason:   strings.TrimSpace(in.Reason),
	}, nil
}

func checkPrecision(lines []item.Line) error {
	for _, l := range lines {
		if err := quantity.CheckPrecision(l.Quantity, maxPlaces); err != nil {
			return invalid("quantity of %q: %v", l.Product, err)
		}
	}
	return nil
}

// batchReason normalises a batch reason. "ninguno" and "-" mean none.
func batchReason(r string) string {
	r = strings.TrimSpace(r)
	switch strings.ToLower(r) {
	case "ninguno", "ninguna", "-":
		return ""
	}
	return r
}
