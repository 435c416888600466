// Package storage persists operations records. SQLite and PostgreSQL both
// implement Store; ClickHouse receives an append-only audit of parsed lines.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"koabot/internal/models"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Store is the operations repository.
type Store interface {
	// UpsertUser inserts u, or renames the user already holding
	// u.TelegramID. It returns the stored user.
	UpsertUser(ctx context.Context, u *models.User) (*models.User, error)
	Users(ctx context.Context) ([]models.User, error)

	InsertReception(ctx context.Context, r *models.Reception) error
	InsertWastages(ctx context.Context, ws []models.Wastage) error
	InsertProduction(ctx context.Context, p *models.Production) error

	// The *Between queries return live records with from <= occurred_at < to,
	// oldest first.
	ReceptionsBetween(ctx context.Context, from, to time.Time) ([]models.Reception, error)
	WastagesBetween(ctx context.Context, from, to time.Time) ([]models.Wastage, error)
	ProductionsBetween(ctx context.Context, from, to time.Time) ([]models.Production, error)

	// RecentSuppliers and RecentBatches return distinct names, most
	// recently used first.
	RecentSuppliers(ctx context.Context, limit int) ([]string, error)
	RecentBatches(ctx context.Context, limit int) ([]string, error)

	RecordOperation(ctx context.Context, op *models.Operation) error
	// LastOperation returns the newest operation of chatID that has not
	// been undone, or ErrNotFound.
	LastOperation(ctx context.Context, chatID string) (*models.Operation, error)
	// SoftDelete marks the records of op deleted and the operation undone.
	SoftDelete(ctx context.Context, op *models.Operation) error

	CreateSchema(ctx context.Context) error
	Close() error
}

// All timestamps are stored in UTC with a fixed width so that text columns
// sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func joinIDs(ids []string) string { return strings.Join(ids, ",") }

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// recordTable names the table and id column holding records of a kind.
type recordTable struct {
	table, idColumn string
}

var recordTables = map[models.Kind]recordTable{
	models.KindReception:  {"receptions", "reception_id"},
	models.KindWastage:    {"wastages", "wastage_id"},
	models.KindProduction: {"productions", "production_id"},
}

func tableFor(kind models.Kind) (recordTable, error) {
	t, ok := recordTables[kind]
	if !ok {
		return recordTable{}, errors.New("unknown operation kind: " + string(kind))
	}
	return t, nil
}
