package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"koabot/internal/config"
	"koabot/internal/events"
	"koabot/internal/ops"
	"koabot/internal/report"
	"koabot/internal/storage"
)

func storageConfig(c *config.Config) storage.Config {
	return storage.Config{
		Driver:     c.StoreDriver,
		SQLitePath: c.SQLitePath,
		Postgres: storage.PostgresConfig{
			Host:     c.PostgresHost,
			Port:     c.PostgresPort,
			Database: c.PostgresDatabase,
			User:     c.PostgresUser,
			Password: c.PostgresPassword,
		},
		ClickHouseEnabled: c.ClickHouseEnabled,
		ClickHouse: storage.ClickHouseConfig{
			Host:     c.ClickHouseHost,
			Port:     c.ClickHousePort,
			Database: c.ClickHouseDatabase,
			User:     c.ClickHouseUser,
			Password: c.ClickHousePassword,
		},
	}
}

func archiveConfig(c *config.Config) report.ArchiveConfig {
	return report.ArchiveConfig{
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		UseSSL:    c.S3UseSSL,
	}
}

// app holds the connections shared by the subcommands.
type app struct {
	db  *storage.DB
	pub events.Publisher
	svc *ops.Service
}

func openApp(ctx context.Context, c *config.Config) (*app, error) {
	db, err := storage.Open(ctx, storageConfig(c))
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"driver":     c.StoreDriver,
		"clickhouse": db.Audit != nil,
	}).Info("store opened")

	var pub events.Publisher = events.Nop{}
	if c.NATSURL != "" {
		np, err := events.Connect(c.NATSURL, c.NATSSubjectPrefix)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logrus.WithField("url", c.NATSURL).Info("publishing events to NATS")
		pub = np
	}

	// A nil *ClickHouseAudit must not become a non-nil AuditSink.
	var audit storage.AuditSink
	if db.Audit != nil {
		audit = db.Audit
	}

	return &app{
		db:  db,
		pub: pub,
		svc: ops.NewService(db.Store, pub, audit, logrus.StandardLogger()),
	}, nil
}

func (a *app) Close() {
	if err := a.pub.Close(); err != nil {
		logrus.WithError(err).Warn("close events")
	}
	if err := a.db.Close(); err != nil {
		logrus.WithError(err).Warn("close store")
	}
}
