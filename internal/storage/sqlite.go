package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"koabot/internal/models"
	"koabot/internal/units"
)

// SQLiteStore keeps operations in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at path and ensures the
// schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent access.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSchema creates the tables and indices.
func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		telegram_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS receptions (
		reception_id TEXT PRIMARY KEY,
		occurred_at TEXT NOT NULL,
		supplier TEXT NOT NULL,
		total REAL,
		attachment_url TEXT,
		registered_by_user_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS reception_items (
		item_id TEXT PRIMARY KEY,
		reception_id TEXT NOT NULL REFERENCES receptions(reception_id),
		position INTEGER NOT NULL,
		ref TEXT NOT NULL,
		product TEXT NOT NULL,
		quantity REAL NOT NULL,
		unit TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wastages (
		wastage_id TEXT PRIMARY KEY,
		occurred_at TEXT NOT NULL,
		ref TEXT NOT NULL,
		product TEXT NOT NULL,
		quantity REAL NOT NULL,
		unit TEXT NOT NULL,
		reason TEXT,
		attachment_url TEXT,
		registered_by_user_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS productions (
		production_id TEXT PRIMARY KEY,
		occurred_at TEXT NOT NULL,
		batch_name TEXT NOT NULL,
		produced_by_user_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS production_outputs (
		output_id TEXT PRIMARY KEY,
		production_id TEXT NOT NULL REFERENCES productions(production_id),
		position INTEGER NOT NULL,
		ref TEXT NOT NULL,
		product TEXT NOT NULL,
		quantity REAL NOT NULL,
		unit TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS operations (
		operation_id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		record_ids TEXT NOT NULL,
		created_at TEXT NOT NULL,
		undone_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_receptions_occurred ON receptions(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_reception_items_reception ON reception_items(reception_id);
	CREATE INDEX IF NOT EXISTS idx_wastages_occurred ON wastages(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_productions_occurred ON productions(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_production_outputs_production ON production_outputs(production_id);
	CREATE INDEX IF NOT EXISTS idx_operations_chat ON operations(chat_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// UpsertUser inserts u or renames the existing user with the same Telegram ID.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, telegram_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET name = excluded.name
	`, u.ID, u.TelegramID, u.Name, formatTime(u.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	var out models.User
	var created string
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, telegram_id, name, created_at FROM users WHERE telegram_id = ?
	`, u.TelegramID).Scan(&out.ID, &out.TelegramID, &out.Name, &created)
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	out.CreatedAt, _ = parseTime(created)
	return &out, nil
}

// Users returns every user ordered by creation.
func (s *SQLiteStore) Users(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, telegram_id, name, created_at FROM users ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []models.User
	for rows.Next() {
		var u models.User
		var created string
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Name, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt, _ = parseTime(created)
		users = append(users, u)
	}
	return users, rows.Err()
}

// InsertReception stores a reception and its items in one transaction.
func (s *SQLiteStore) InsertReception(ctx context.Context, r *models.Reception) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receptions (reception_id, occurred_at, supplier, total, attachment_url, registered_by_user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, formatTime(r.OccurredAt), r.Supplier, r.Total, nullString(r.AttachmentURL), r.RegisteredByUserID, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert reception: %w", err)
	}

	for i, it := range r.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reception_items (item_id, reception_id, position, ref, product, quantity, unit)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, it.ID, r.ID, i, it.Ref, it.Product, it.Quantity, string(it.Unit))
		if err != nil {
			return fmt.Errorf("insert reception item: %w", err)
		}
	}

	return tx.Commit()
}

// InsertWastages stores a batch of wastages atomically.
func (s *SQLiteStore) InsertWastages(ctx context.Context, ws []models.Wastage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range ws {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wastages (wastage_id, occurred_at, ref, product, quantity, unit, reason, attachment_url, registered_by_user_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, w.ID, formatTime(w.OccurredAt), w.Ref, w.Product, w.Quantity, string(w.Unit),
			nullString(w.Reason), nullString(w.AttachmentURL), w.RegisteredByUserID, formatTime(w.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert wastage: %w", err)
		}
	}

	return tx.Commit()
}

// InsertProduction stores a production and its outputs in one transaction.
func (s *SQLiteStore) InsertProduction(ctx context.Context, p *models.Production) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO productions (production_id, occurred_at, batch_name, produced_by_user_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, formatTime(p.OccurredAt), p.BatchName, p.ProducedByUserID, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert production: %w", err)
	}

	for i, o := range p.Outputs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO production_outputs (output_id, production_id, position, ref, product, quantity, unit)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, o.ID, p.ID, i, o.Ref, o.Product, o.Quantity, string(o.Unit))
		if err != nil {
			return fmt.Errorf("insert production output: %w", err)
		}
	}

	return tx.Commit()
}

// ReceptionsBetween returns live receptions in [from, to) with their items.
func (s *SQLiteStore) ReceptionsBetween(ctx context.Context, from, to time.Time) ([]models.Reception, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reception_id, occurred_at, supplier, total, attachment_url, registered_by_user_id, created_at
		FROM receptions
		WHERE deleted_at IS NULL AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at, created_at
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query receptions: %w", err)
	}

	var out []models.Reception
	index := make(map[string]int)
	for rows.Next() {
		var r models.Reception
		var occurred, created string
		var total sql.NullFloat64
		var attachment sql.NullString
		if err := rows.Scan(&r.ID, &occurred, &r.Supplier, &total, &attachment, &r.RegisteredByUserID, &created); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan reception: %w", err)
		}
		r.OccurredAt, _ = parseTime(occurred)
		r.CreatedAt, _ = parseTime(created)
		if total.Valid {
			v := total.Float64
			r.Total = &v
		}
		r.AttachmentURL = attachment.String
		r.Items = []models.ReceptionItem{}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.db.QueryContext(ctx, `
		SELECT i.item_id, i.reception_id, i.ref, i.product, i.quantity, i.unit
		FROM reception_items i
		JOIN receptions r ON r.reception_id = i.reception_id
		WHERE r.deleted_at IS NULL AND r.occurred_at >= ? AND r.occurred_at < ?
		ORDER BY i.reception_id, i.position
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query reception items: %w", err)
	}
	defer func() { _ = items.Close() }()

	for items.Next() {
		var it models.ReceptionItem
		var unit string
		if err := items.Scan(&it.ID, &it.ReceptionID, &it.Ref, &it.Product, &it.Quantity, &unit); err != nil {
			return nil, fmt.Errorf("scan reception item: %w", err)
		}
		it.Unit = units.Unit(unit)
		if i, ok := index[it.ReceptionID]; ok {
			out[i].Items = append(out[i].Items, it)
		}
	}
	return out, items.Err()
}

// WastagesBetween returns live wastages in [from, to).
func (s *SQLiteStore) WastagesBetween(ctx context.Context, from, to time.Time) ([]models.Wastage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wastage_id, occurred_at, ref, product, quantity, unit, reason, attachment_url, registered_by_user_id, created_at
		FROM wastages
		WHERE deleted_at IS NULL AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at, created_at, wastage_id
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query wastages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Wastage
	for rows.Next() {
		var w models.Wastage
		var occurred, created, unit string
		var reason, attachment sql.NullString
		err := rows.Scan(&w.ID, &occurred, &w.Ref, &w.Product, &w.Quantity, &unit,
			&reason, &attachment, &w.RegisteredByUserID, &created)
		if err != nil {
			return nil, fmt.Errorf("scan wastage: %w", err)
		}
		w.OccurredAt, _ = parseTime(occurred)
		w.CreatedAt, _ = parseTime(created)
		w.Unit = units.Unit(unit)
		w.Reason = reason.String
		w.AttachmentURL = attachment.String
		out = append(out, w)
	}
	return out, rows.Err()
}

// ProductionsBetween returns live productions in [from, to) with outputs.
func (s *SQLiteStore) ProductionsBetween(ctx context.Context, from, to time.Time) ([]models.Production, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT production_id, occurred_at, batch_name, produced_by_user_id, created_at
		FROM productions
		WHERE deleted_at IS NULL AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at, created_at
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query productions: %w", err)
	}

	var out []models.Production
	index := make(map[string]int)
	for rows.Next() {
		var p models.Production
		var occurred, created string
		if err := rows.Scan(&p.ID, &occurred, &p.BatchName, &p.ProducedByUserID, &created); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan production: %w", err)
		}
		p.OccurredAt, _ = parseTime(occurred)
		p.CreatedAt, _ = parseTime(created)
		p.Outputs = []models.ProductionOutput{}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	outputs, err := s.db.QueryContext(ctx, `
		SELECT o.output_id, o.production_id, o.ref, o.product, o.quantity, o.unit
		FROM production_outputs o
		JOIN productions p ON p.production_id = o.production_id
		WHERE p.deleted_at IS NULL AND p.occurred_at >= ? AND p.occurred_at < ?
		ORDER BY o.production_id, o.position
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query production outputs: %w", err)
	}
	defer func() { _ = outputs.Close() }()

	for outputs.Next() {
		var o models.ProductionOutput
		var unit string
		if err := outputs.Scan(&o.ID, &o.ProductionID, &o.Ref, &o.Product, &o.Quantity, &unit); err != nil {
			return nil, fmt.Errorf("scan production output: %w", err)
		}
		o.Unit = units.Unit(unit)
		if i, ok := index[o.ProductionID]; ok {
			out[i].Outputs = append(out[i].Outputs, o)
		}
	}
	return out, outputs.Err()
}

// RecentSuppliers returns distinct suppliers of live receptions, newest first.
func (s *SQLiteStore) RecentSuppliers(ctx context.Context, limit int) ([]string, error) {
	return s.recentNames(ctx, `
		SELECT supplier FROM receptions
		WHERE deleted_at IS NULL
		GROUP BY supplier
		ORDER BY MAX(created_at) DESC
		LIMIT ?
	`, limit)
}

// RecentBatches returns distinct batch names of live productions, newest first.
func (s *SQLiteStore) RecentBatches(ctx context.Context, limit int) ([]string, error) {
	return s.recentNames(ctx, `
		SELECT batch_name FROM productions
		WHERE deleted_at IS NULL
		GROUP BY batch_name
		ORDER BY MAX(created_at) DESC
		LIMIT ?
	`, limit)
}

func (s *SQLiteStore) recentNames(ctx context.Context, query string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// RecordOperation logs the records a chat just created.
func (s *SQLiteStore) RecordOperation(ctx context.Context, op *models.Operation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (operation_id, chat_id, kind, record_ids, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, op.ID, op.ChatID, string(op.Kind), joinIDs(op.RecordIDs), formatTime(op.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// LastOperation returns the newest operation of chatID not yet undone.
func (s *SQLiteStore) LastOperation(ctx context.Context, chatID string) (*models.Operation, error) {
	var op models.Operation
	var kind, ids, created string
	err := s.db.QueryRowContext(ctx, `
		SELECT operation_id, chat_id, kind, record_ids, created_at
		FROM operations
		WHERE chat_id = ? AND undone_at IS NULL
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, chatID).Scan(&op.ID, &op.ChatID, &kind, &ids, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query operation: %w", err)
	}
	op.Kind = models.Kind(kind)
	op.RecordIDs = splitIDs(ids)
	op.CreatedAt, _ = parseTime(created)
	return &op, nil
}

// SoftDelete marks the records of op deleted and op undone.
func (s *SQLiteStore) SoftDelete(ctx context.Context, op *models.Operation) error {
	t, err := tableFor(op.Kind)
	if err != nil {
		return err
	}
	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`UPDATE %s SET deleted_at = ? WHERE %s = ? AND deleted_at IS NULL`, t.table, t.idColumn)
	for _, id := range op.RecordIDs {
		if _, err := tx.ExecContext(ctx, query, now, id); err != nil {
			return fmt.Errorf("soft delete %s: %w", t.table, err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE operations SET undone_at = ? WHERE operation_id = ? AND undone_at IS NULL`, now, op.ID)
	if err != nil {
		return fmt.Errorf("mark operation undone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
