package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get Close and
// the catalog scanning helpers.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ExecInTx runs a single statement in its own transaction. The transaction
// is committed on success and rolled back otherwise; the statement's own
// error is returned unwrapped so callers can inspect it.
func (b *BaseSQLAdapter) ExecInTx(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlStr); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// QueryViews runs a query returning (schema, name) rows.
func (b *BaseSQLAdapter) QueryViews(ctx context.Context, query string) ([]core.ViewID, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var views []core.ViewID
	for rows.Next() {
		var v core.ViewID
		if err := rows.Scan(&v.Schema, &v.Name); err != nil {
			return nil, fmt.Errorf("failed to scan view: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating views: %w", err)
	}
	return views, nil
}

// QueryEdges runs a query returning
// (source_schema, source_name, dependent_schema, dependent_name) rows.
func (b *BaseSQLAdapter) QueryEdges(ctx context.Context, query string) ([]core.Edge, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []core.Edge
	for rows.Next() {
		var e core.Edge
		if err := rows.Scan(&e.Source.Schema, &e.Source.Name, &e.Dependent.Schema, &e.Dependent.Name); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return edges, nil
}
