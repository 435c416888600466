// Package models holds the records kept by the operations store.
package models

import (
	"time"

	"koabot/internal/units"
)

// Kind names a type of registered operation.
type Kind string

const (
	KindReception  Kind = "reception"
	KindWastage    Kind = "wastage"
	KindProduction Kind = "production"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindReception, KindWastage, KindProduction:
		return true
	}
	return false
}

// User is a member of staff, identified by their Telegram account.
type User struct {
	ID         string    `json:"id"`
	TelegramID string    `json:"telegram_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reception is a delivery of goods from a supplier.
type Reception struct {
	ID                 string          `json:"id"`
	OccurredAt         time.Time       `json:"occurred_at"`
	Supplier           string          `json:"supplier"`
	Total              *float64        `json:"total,omitempty"`
	AttachmentURL      string          `json:"attachment_url,omitempty"`
	RegisteredByUserID string          `json:"registered_by_user_id"`
	CreatedAt          time.Time       `json:"created_at"`
	Items              []ReceptionItem `json:"items"`
}

// ReceptionItem is one line of a reception.
type ReceptionItem struct {
	ID          string     `json:"id"`
	ReceptionID string     `json:"reception_id"`
	Ref         string     `json:"ref"`
	Product     string     `json:"product"`
	Quantity    float64    `json:"quantity"`
	Unit        units.Unit `json:"unit"`
}

// Wastage is product thrown away.
type Wastage struct {
	ID                 string     `json:"id"`
	OccurredAt         time.Time  `json:"occurred_at"`
	Ref                string     `json:"ref"`
	Product            string     `json:"product"`
	Quantity           float64    `json:"quantity"`
	Unit               units.Unit `json:"unit"`
	Reason             string     `json:"reason,omitempty"`
	AttachmentURL      string     `json:"attachment_url,omitempty"`
	RegisteredByUserID string     `json:"registered_by_user_id"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Production is a kitchen batch and what it yielded.
type Production struct {
	ID               string             `json:"id"`
	OccurredAt       time.Time          `json:"occurred_at"`
	BatchName        string             `json:"batch_name"`
	ProducedByUserID string             `json:"produced_by_user_id"`
	CreatedAt        time.Time          `json:"created_at"`
	Outputs          []ProductionOutput `json:"outputs"`
}

// ProductionOutput is one product yielded by a batch.
type ProductionOutput struct {
	ID           string     `json:"id"`
	ProductionID string     `json:"production_id"`
	Ref          string     `json:"ref"`
	Product      string     `json:"product"`
	Quantity     float64    `json:"quantity"`
	Unit         units.Unit `json:"unit"`
}

// Operation logs which records a chat created, so the chat can undo them.
type Operation struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Kind      Kind      `json:"kind"`
	RecordIDs []string  `json:"record_ids"`
	CreatedAt time.Time `json:"created_at"`
}
