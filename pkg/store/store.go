// Package store is the optional durable mirror of the bridge state. The
// in-memory core stays authoritative; the mirror copies accepted state into
// Postgres so indexers and dashboards can query transfers, committee, assets,
// and limits without touching the node.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/chainsafe/bridge-core/pkg/config"
)

// Connect creates a bun connection to the configured database
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*bun.DB, error) {
	// Build connector using functional options to properly escape special characters
	connector := pgdriver.NewConnector(
		pgdriver.WithNetwork("tcp"),
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.Database),
		pgdriver.WithInsecure(cfg.SSLMode == "disable"),
	)

	sqldb := sql.OpenDB(connector)
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Database, err)
	}
	return db, nil
}

// ConnectDSN creates a bun connection from a connection URL, used by tests
// and the migrate command.
func ConnectDSN(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// CreateSchema creates all mirror tables if they do not exist.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*CommitteeMemberRow)(nil),
		(*AssetRow)(nil),
		(*RouteLimitRow)(nil),
		(*TransferRow)(nil),
		(*SequenceRow)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}
	if _, err := db.NewCreateIndex().
		Model((*TransferRow)(nil)).
		Index("transfers_source_chain_seq_num_idx").
		Unique().
		Column("source_chain", "seq_num").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create transfer key index: %w", err)
	}
	return nil
}
