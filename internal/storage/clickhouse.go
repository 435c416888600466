package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// LineAudit is one parsed (or rejected) item line.
type LineAudit struct {
	Timestamp  time.Time
	Source     string // "api", "cli", or the operation kind.
	RawText    string
	Grammar    string // Empty when the line failed before a grammar matched.
	ParsedJSON string
	ErrorKind  string // item.KindName of the failure, empty on success.
}

// AuditSink records parsed lines for later analysis of how staff write.
type AuditSink interface {
	RecordLines(ctx context.Context, lines []LineAudit) error
}

// ClickHouseAudit stores line audits in ClickHouse.
type ClickHouseAudit struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseAudit, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseAudit{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (a *ClickHouseAudit) Close() error {
	return a.conn.Close()
}

// CreateSchema creates the audit table.
func (a *ClickHouseAudit) CreateSchema(ctx context.Context) error {
	err := a.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS item_lines (
			timestamp       DateTime64(3),
			source          LowCardinality(String),
			grammar         LowCardinality(String),
			error_kind      LowCardinality(String),
			raw_text        String,
			parsed_json     String
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (source, grammar, timestamp)
		SETTINGS index_granularity = 8192`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordLines stores line audits in one batch.
func (a *ClickHouseAudit) RecordLines(ctx context.Context, lines []LineAudit) error {
	if len(lines) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO item_lines (timestamp, source, grammar, error_kind, raw_text, parsed_json)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, l := range lines {
		if err := batch.Append(l.Timestamp, l.Source, l.Grammar, l.ErrorKind, l.RawText, l.ParsedJSON); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GrammarStat counts audited lines per grammar and error kind.
type GrammarStat struct {
	Grammar   string `json:"grammar"`
	ErrorKind string `json:"error_kind,omitempty"`
	Count     uint64 `json:"count"`
}

// GrammarStats summarises audited lines since the given time.
func (a *ClickHouseAudit) GrammarStats(ctx context.Context, since time.Time) ([]GrammarStat, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT grammar, error_kind, count()
		FROM item_lines
		WHERE timestamp >= ?
		GROUP BY grammar, error_kind
		ORDER BY count() DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats []GrammarStat
	for rows.Next() {
		var s GrammarStat
		if err := rows.Scan(&s.Grammar, &s.ErrorKind, &s.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
