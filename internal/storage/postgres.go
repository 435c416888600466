package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"koabot/internal/models"
	"koabot/internal/units"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresStore keeps operations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateSchema creates the PostgreSQL tables.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id         TEXT PRIMARY KEY,
		telegram_id     TEXT NOT NULL UNIQUE,
		name            TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS receptions (
		reception_id            TEXT PRIMARY KEY,
		occurred_at             TIMESTAMPTZ NOT NULL,
		supplier                TEXT NOT NULL,
		total                   DOUBLE PRECISION,
		attachment_url          TEXT,
		registered_by_user_id   TEXT NOT NULL,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at              TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_receptions_occurred ON receptions(occurred_at);

	CREATE TABLE IF NOT EXISTS reception_items (
		item_id         TEXT PRIMARY KEY,
		reception_id    TEXT NOT NULL REFERENCES receptions(reception_id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		ref             TEXT NOT NULL,
		product         TEXT NOT NULL,
		quantity        DOUBLE PRECISION NOT NULL,
		unit            TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reception_items_reception ON reception_items(reception_id);

	CREATE TABLE IF NOT EXISTS wastages (
		wastage_id              TEXT PRIMARY KEY,
		occurred_at             TIMESTAMPTZ NOT NULL,
		ref                     TEXT NOT NULL,
		product                 TEXT NOT NULL,
		quantity                DOUBLE PRECISION NOT NULL,
		unit                    TEXT NOT NULL,
		reason                  TEXT,
		attachment_url          TEXT,
		registered_by_user_id   TEXT NOT NULL,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at              TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_wastages_occurred ON wastages(occurred_at);

	CREATE TABLE IF NOT EXISTS productions (
		production_id           TEXT PRIMARY KEY,
		occurred_at             TIMESTAMPTZ NOT NULL,
		batch_name              TEXT NOT NULL,
		produced_by_user_id     TEXT NOT NULL,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at              TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_productions_occurred ON productions(occurred_at);

	CREATE TABLE IF NOT EXISTS production_outputs (
		output_id       TEXT PRIMARY KEY,
		production_id   TEXT NOT NULL REFERENCES productions(production_id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		ref             TEXT NOT NULL,
		product         TEXT NOT NULL,
		quantity        DOUBLE PRECISION NOT NULL,
		unit            TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_production_outputs_production ON production_outputs(production_id);

	CREATE TABLE IF NOT EXISTS operations (
		operation_id    TEXT PRIMARY KEY,
		seq             BIGSERIAL,
		chat_id         TEXT NOT NULL,
		kind            TEXT NOT NULL,
		record_ids      TEXT[] NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		undone_at       TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_operations_chat ON operations(chat_id, created_at DESC);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// UpsertUser inserts u or renames the existing user with the same Telegram ID.
func (s *PostgresStore) UpsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	var out models.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, telegram_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING user_id, telegram_id, name, created_at
	`, u.ID, u.TelegramID, u.Name, u.CreatedAt).Scan(&out.ID, &out.TelegramID, &out.Name, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &out, nil
}

// Users returns every user ordered by creation.
func (s *PostgresStore) Users(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id, telegram_id, name, created_at FROM users ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Name, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// InsertReception stores a reception and its items in one transaction.
func (s *PostgresStore) InsertReception(ctx context.Context, r *models.Reception) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO receptions (reception_id, occurred_at, supplier, total, attachment_url, registered_by_user_id, created_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		`, r.ID, r.OccurredAt, r.Supplier, r.Total, r.AttachmentURL, r.RegisteredByUserID, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert reception: %w", err)
		}

		batch := &pgx.Batch{}
		for i, it := range r.Items {
			batch.Queue(`
				INSERT INTO reception_items (item_id, reception_id, position, ref, product, quantity, unit)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, it.ID, r.ID, i, it.Ref, it.Product, it.Quantity, string(it.Unit))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert reception items: %w", err)
		}
		return nil
	})
}

// InsertWastages stores a batch of wastages atomically.
func (s *PostgresStore) InsertWastages(ctx context.Context, ws []models.Wastage) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, w := range ws {
			batch.Queue(`
				INSERT INTO wastages (wastage_id, occurred_at, ref, product, quantity, unit, reason, attachment_url, registered_by_user_id, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
			`, w.ID, w.OccurredAt, w.Ref, w.Product, w.Quantity, string(w.Unit),
				w.Reason, w.AttachmentURL, w.RegisteredByUserID, w.CreatedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert wastages: %w", err)
		}
		return nil
	})
}

// InsertProduction stores a production and its outputs in one transaction.
func (s *PostgresStore) InsertProduction(ctx context.Context, p *models.Production) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO productions (production_id, occurred_at, batch_name, produced_by_user_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, p.ID, p.OccurredAt, p.BatchName, p.ProducedByUserID, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert production: %w", err)
		}

		batch := &pgx.Batch{}
		for i, o := range p.Outputs {
			batch.Queue(`
				INSERT INTO production_outputs (output_id, production_id, position, ref, product, quantity, unit)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, o.ID, p.ID, i, o.Ref, o.Product, o.Quantity, string(o.Unit))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert production outputs: %w", err)
		}
		return nil
	})
}

// ReceptionsBetween returns live receptions in [from, to) with their items.
func (s *PostgresStore) ReceptionsBetween(ctx context.Context, from, to time.Time) ([]models.Reception, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reception_id, occurred_at, supplier, total, COALESCE(attachment_url, ''), registered_by_user_id, created_at
		FROM receptions
		WHERE deleted_at IS NULL AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at, created_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query receptions: %w", err)
	}

	var out []models.Reception
	index := make(map[string]int)
	for rows.Next() {
		var r models.Reception
		if err := rows.Scan(&r.ID, &r.OccurredAt, &r.Supplier, &r.Total, &r.AttachmentURL, &r.RegisteredByUserID, &r.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reception: %w", err)
		}
		r.Items = []models.ReceptionItem{}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.pool.Query(ctx, `
		SELECT i.item_id, i.reception_id, i.ref, i.product, i.quantity, i.unit
		FROM reception_items i
		JOIN receptions r ON r.reception_id = i.reception_id
		WHERE r.deleted_at IS NULL AND r.occurred_at >= $1 AND r.occurred_at < $2
		ORDER BY i.reception_id, i.position
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query reception items: %w", err)
	}
	defer items.Close()

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
func (s *PostgresStore) WastagesBetween(ctx context.Context, from, to time.Time) ([]models.Wastage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wastage_id, occurred_at, ref, product, quantity, unit,
		       COALESCE(reason, ''), COALESCE(attachment_url, ''), registered_by_user_id, created_at
		FROM wastages
		WHERE deleted_at IS NULL AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at, created_at, wastage_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query wastages: %w", err)
	}
	defer rows.Close()

	var out []models.Wastage
	for rows.Next() {
		var w models.Wastage
		var unit string
		err := rows.Scan(&w.ID, &w.OccurredAt, &w.Ref, &w.Product, &w.Quantity, &unit,
			&w.Reason, &w.AttachmentURL, &w.RegisteredByUserID, &w.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan wastage: %w", err)
		}
		w.Unit = units.Unit(unit)
		out = append(out, w)
	}
	return out, rows.Err()
}

// ProductionsBetween returns live productions in [from, to) with outputs.
func (s *PostgresStore) ProductionsBetween(ctx context.Context, from, to time.Time) ([]models.Production, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT production_id, occurred_at, batch_name, produced_by_user_id, created_at
		FROM productions
		WHERE deleted_at IS NULL AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at, created_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query productions: %w", err)
	}

	var out []models.Production
	index := make(map[string]int)
	for rows.Next() {
		var p models.Production
		if err := rows.Scan(&p.ID, &p.OccurredAt, &p.BatchName, &p.ProducedByUserID, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan production: %w", err)
		}
		p.Outputs = []models.ProductionOutput{}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	outputs, err := s.pool.Query(ctx, `
		SELECT o.output_id, o.production_id, o.ref, o.product, o.quantity, o.unit
		FROM production_outputs o
		JOIN productions p ON p.production_id = o.production_id
		WHERE p.deleted_at IS NULL AND p.occurred_at >= $1 AND p.occurred_at < $2
		ORDER BY o.production_id, o.position
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query production outputs: %w", err)
	}
	defer outputs.Close()

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
func (s *PostgresStore) RecentSuppliers(ctx context.Context, limit int) ([]string, error) {
	return s.recentNames(ctx, `
		SELECT supplier FROM receptions
		WHERE deleted_at IS NULL
		GROUP BY supplier
		ORDER BY MAX(created_at) DESC
		LIMIT $1
	`, limit)
}

// RecentBatches returns distinct batch names of live productions, newest first.
func (s *PostgresStore) RecentBatches(ctx context.Context, limit int) ([]string, error) {
	return s.recentNames(ctx, `
		SELECT batch_name FROM productions
		WHERE deleted_at IS NULL
		GROUP BY batch_name
		ORDER BY MAX(created_at) DESC
		LIMIT $1
	`, limit)
}

func (s *PostgresStore) recentNames(ctx context.Context, query string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect recent: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// RecordOperation logs the records a chat just created.
func (s *PostgresStore) RecordOperation(ctx context.Context, op *models.Operation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO operations (operation_id, chat_id, kind, record_ids, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, op.ID, op.ChatID, string(op.Kind), op.RecordIDs, op.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// LastOperation returns the newest operation of chatID not yet undone.
func (s *PostgresStore) LastOperation(ctx context.Context, chatID string) (*models.Operation, error) {
	var op models.Operation
	var kind string
	err := s.pool.QueryRow(ctx, `
		SELECT operation_id, chat_id, kind, record_ids, created_at
		FROM operations
		WHERE chat_id = $1 AND undone_at IS NULL
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, chatID).Scan(&op.ID, &op.ChatID, &kind, &op.RecordIDs, &op.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query operation: %w", err)
	}
	op.Kind = models.Kind(kind)
	return &op, nil
}

// SoftDelete marks the records of op deleted and op undone.
func (s *PostgresStore) SoftDelete(ctx context.Context, op *models.Operation) error {
	t, err := tableFor(op.Kind)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`UPDATE %s SET deleted_at = NOW() WHERE %s = ANY($1) AND deleted_at IS NULL`, t.table, t.idColumn)
		if _, err := tx.Exec(ctx, query, op.RecordIDs); err != nil {
			return fmt.Errorf("soft delete %s: %w", t.table, err)
		}

		tag, err := tx.Exec(ctx, `UPDATE operations SET undone_at = NOW() WHERE operation_id = $1 AND undone_at IS NULL`, op.ID)
		if err != nil {
			return fmt.Errorf("mark operation undone: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
