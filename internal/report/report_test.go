package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koabot/internal/models"
	"koabot/internal/storage"
	"koabot/internal/units"
)

func day(d, hour int) time.Time {
	return time.Date(2025, 3, d, hour, 0, 0, 0, time.UTC)
}

func seed(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	st, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.UpsertUser(ctx, &models.User{ID: "usr_ana", TelegramID: "1", Name: "Ana", CreatedAt: day(1, 8)})
	require.NoError(t, err)

	require.NoError(t, st.InsertReception(ctx, &models.Reception{
		ID: "rcp_1", OccurredAt: day(3, 12), Supplier: "Frutas García", RegisteredByUserID: "usr_ana", CreatedAt: day(3, 12),
		Items: []models.ReceptionItem{
			{ID: "rit_1", ReceptionID: "rcp_1", Ref: "UNKNOWN", Product: "Tomate", Quantity: 0.1, Unit: units.Kilogram},
			{ID: "rit_2", ReceptionID: "rcp_1", Ref: "UNKNOWN", Product: "Pimiento", Quantity: 0.2, Unit: units.Kilogram},
			{ID: "rit_3", ReceptionID: "rcp_1", Ref: "L1", Product: "Leche", Quantity: 6, Unit: units.Liter},
		},
	}))
	require.NoError(t, st.InsertWastages(ctx, []models.Wastage{
		{ID: "wst_1", OccurredAt: day(4, 12), Ref: "UNKNOWN", Product: "Pan", Quantity: 3, Unit: units.Piece, RegisteredByUserID: "usr_ana", CreatedAt: day(4, 12)},
		{ID: "wst_2", OccurredAt: day(20, 12), Ref: "UNKNOWN", Product: "Fuera", Quantity: 1, Unit: units.Piece, RegisteredByUserID: "usr_ana", CreatedAt: day(20, 12)},
	}))
	require.NoError(t, st.InsertProduction(ctx, &models.Production{
		ID: "prd_1", OccurredAt: day(9, 12), BatchName: "Salsa", ProducedByUserID: "usr_ana", CreatedAt: day(9, 12),
		Outputs: []models.ProductionOutput{
			{ID: "out_1", ProductionID: "prd_1", Ref: "S1", Product: "Salsa base", Quantity: 4.5, Unit: units.Liter},
		},
	}))
	require.NoError(t, st.InsertProduction(ctx, &models.Production{
		ID: "prd_2", OccurredAt: day(5, 12), BatchName: "Caldo", ProducedByUserID: "usr_gone", CreatedAt: day(5, 12),
		Outputs: []models.ProductionOutput{
			{ID: "out_2", ProductionID: "prd_2", Ref: "C1", Product: "Caldo", Quantity: 2, Unit: units.Liter},
		},
	}))
	return st
}

func TestBuild(t *testing.T) {
	st := seed(t)
	now := day(10, 9)

	w, err := Build(context.Background(), st, "2025-03-03", "2025-03-09", now)
	require.NoError(t, err)

	assert.Len(t, w.Receptions, 3)
	assert.Equal(t, "Frutas García", w.Receptions[0].Supplier)

	require.Len(t, w.Wastages, 1, "wastage outside the week is left out")
	assert.Equal(t, "-", w.Wastages[0].Reason)

	require.Len(t, w.Productions, 2)
	byBatch := map[string]string{}
	for _, p := range w.Productions {
		byBatch[p.BatchName] = p.ProducedBy
	}
	assert.Equal(t, "Ana", byBatch["Salsa"], "the inclusive end day is part of the report")
	assert.Equal(t, "usr_gone", byBatch["Caldo"], "unknown users fall back to their ID")

	require.Len(t, w.ReceptionTotals, 2)
	assert.Equal(t, units.Kilogram, w.ReceptionTotals[0].Unit)
	assert.Equal(t, "0.3", w.ReceptionTotals[0].Quantity.String())
	assert.Equal(t, units.Liter, w.ReceptionTotals[1].Unit)
	assert.Equal(t, now, w.GeneratedAt)
}

func TestBuild_BadRange(t *testing.T) {
	st := seed(t)
	_, err := Build(context.Background(), st, "2025-03-09", "2025-03-03", time.Now())
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	st := seed(t)
	w, err := Build(context.Background(), st, "2025-03-03", "2025-03-09", day(10, 9))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, w))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestRender_EmptyWeekAndLongRows(t *testing.T) {
	w := &Weekly{From: "2025-01-06", To: "2025-01-12", GeneratedAt: day(1, 0)}
	data, err := Bytes(w)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	// Enough rows to spill onto further pages, with text wider than its column.
	for i := 0; i < 120; i++ {
		w.Wastages = append(w.Wastages, WastageRow{
			OccurredAt: day(7, 12),
			Ref:        "UNKNOWN",
			Product:    "Producto con un nombre muy largo que no cabe en la columna",
			Quantity:   1.5,
			Unit:       units.Kilogram,
			Reason:     "caducado",
		})
	}
	data, err = Bytes(w)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "reportes/reporte-semanal-2025-03-03-2025-03-09.pdf", Key("2025-03-03", "2025-03-09"))
	assert.Equal(t, "reporte-semanal-2025-03-03-2025-03-09.pdf", Filename("2025-03-03", "2025-03-09"))
}

func TestNewArchive(t *testing.T) {
	a, err := NewArchive(ArchiveConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "reports"})
	require.NoError(t, err)
	assert.NotNil(t, a)

	_, err = NewArchive(ArchiveConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}
