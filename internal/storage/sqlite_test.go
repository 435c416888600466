package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koabot/internal/models"
	"koabot/internal/units"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC)
}

func TestSQLite_UpsertUser(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	u, err := s.UpsertUser(ctx, &models.User{ID: "usr_1", TelegramID: "42", Name: "Ana", CreatedAt: day(1)})
	require.NoError(t, err)
	assert.Equal(t, "usr_1", u.ID)

	// Same Telegram ID keeps the first ID and takes the new name.
	u, err = s.UpsertUser(ctx, &models.User{ID: "usr_2", TelegramID: "42", Name: "Ana María", CreatedAt: day(2)})
	require.NoError(t, err)
	assert.Equal(t, "usr_1", u.ID)
	assert.Equal(t, "Ana María", u.Name)
	assert.True(t, u.CreatedAt.Equal(day(1)))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSQLite_ReceptionsBetween(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	total := 12.5
	for i, d := range []int{1, 3, 8} {
		r := &models.Reception{
			ID:                 "rcp_" + string(rune('a'+i)),
			OccurredAt:         day(d),
			Supplier:           "Makro",
			RegisteredByUserID: "usr_1",
			CreatedAt:          day(d),
			Items: []models.ReceptionItem{
				{ID: "rit_" + string(rune('a'+i)) + "1", Ref: "ABC123", Product: "Tomate", Quantity: 10, Unit: units.Kilogram},
				{ID: "rit_" + string(rune('a'+i)) + "2", Ref: "UNKNOWN", Product: "Leche", Quantity: 6, Unit: units.Liter},
			},
		}
		if i == 0 {
			r.Total = &total
		}
		require.NoError(t, s.InsertReception(ctx, r))
	}

	got, err := s.ReceptionsBetween(ctx, day(1), day(8))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rcp_a", got[0].ID)
	require.NotNil(t, got[0].Total)
	assert.Equal(t, 12.5, *got[0].Total)
	assert.Nil(t, got[1].Total)
	require.Len(t, got[0].Items, 2)
	assert.Equal(t, "Tomate", got[0].Items[0].Product)
	assert.Equal(t, units.Liter, got[0].Items[1].Unit)
}

func TestSQLite_WastagesAndUndo(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ws := []models.Wastage{
		{ID: "wst_1", OccurredAt: day(2), Ref: "POLLO001", Product: "Pechuga", Quantity: 0.25, Unit: units.Kilogram, Reason: "caducado", RegisteredByUserID: "usr_1", CreatedAt: day(2)},
		{ID: "wst_2", OccurredAt: day(2), Ref: "UNKNOWN", Product: "Pan", Quantity: 3, Unit: units.Piece, RegisteredByUserID: "usr_1", CreatedAt: day(2)},
	}
	require.NoError(t, s.InsertWastages(ctx, ws))

	op := &models.Operation{ID: "op_1", ChatID: "chat", Kind: models.KindWastage, RecordIDs: []string{"wst_1", "wst_2"}, CreatedAt: day(2)}
	require.NoError(t, s.RecordOperation(ctx, op))

	got, err := s.WastagesBetween(ctx, day(1), day(3))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "caducado", got[0].Reason)
	assert.Empty(t, got[1].Reason)

	last, err := s.LastOperation(ctx, "chat")
	require.NoError(t, err)
	assert.Equal(t, []string{"wst_1", "wst_2"}, last.RecordIDs)
	assert.Equal(t, models.KindWastage, last.Kind)

	require.NoError(t, s.SoftDelete(ctx, last))

	got, err = s.WastagesBetween(ctx, day(1), day(3))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.LastOperation(ctx, "chat")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.SoftDelete(ctx, last), ErrNotFound)
}

func TestSQLite_ProductionsAndRecentBatches(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i, name := range []string{"Salsa brava", "Caldo", "Salsa brava"} {
		p := &models.Production{
			ID:               "prd_" + string(rune('a'+i)),
			OccurredAt:       day(i + 1),
			BatchName:        name,
			ProducedByUserID: "usr_1",
			CreatedAt:        day(i + 1),
			Outputs: []models.ProductionOutput{
				{ID: "out_" + string(rune('a'+i)), Ref: "UNKNOWN", Product: name, Quantity: 2, Unit: units.Liter},
			},
		}
		require.NoError(t, s.InsertProduction(ctx, p))
	}

	got, err := s.ProductionsBetween(ctx, day(1), day(10))
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Len(t, got[1].Outputs, 1)
	assert.Equal(t, "Caldo", got[1].Outputs[0].Product)

	batches, err := s.RecentBatches(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Salsa brava", "Caldo"}, batches)

	batches, err = s.RecentBatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Salsa brava"}, batches)
}

func TestSQLite_RecentSuppliersSkipsDeleted(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i, sup := range []string{"Makro", "Mercadona"} {
		require.NoError(t, s.InsertReception(ctx, &models.Reception{
			ID: "rcp_" + sup, OccurredAt: day(i + 1), Supplier: sup, RegisteredByUserID: "usr_1", CreatedAt: day(i + 1),
		}))
	}
	op := &models.Operation{ID: "op_1", ChatID: "c", Kind: models.KindReception, RecordIDs: []string{"rcp_Mercadona"}, CreatedAt: day(2)}
	require.NoError(t, s.RecordOperation(ctx, op))
	require.NoError(t, s.SoftDelete(ctx, op))

	sups, err := s.RecentSuppliers(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Makro"}, sups)
}

func TestSQLite_LastOperationNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.RecordOperation(ctx, &models.Operation{ID: "op_1", ChatID: "c", Kind: models.KindWastage, RecordIDs: []string{"w1"}, CreatedAt: day(1)}))
	require.NoError(t, s.RecordOperation(ctx, &models.Operation{ID: "op_2", ChatID: "c", Kind: models.KindProduction, RecordIDs: []string{"p1"}, CreatedAt: day(2)}))
	require.NoError(t, s.RecordOperation(ctx, &models.Operation{ID: "op_3", ChatID: "other", Kind: models.KindWastage, RecordIDs: []string{"w2"}, CreatedAt: day(3)}))

	op, err := s.LastOperation(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "op_2", op.ID)

	_, err = s.LastOperation(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "open.db")

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Nil(t, db.Audit)
	require.NoError(t, db.CreateSchemas(context.Background()))
}
