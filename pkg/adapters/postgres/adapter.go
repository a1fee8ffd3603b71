// Package postgres provides a PostgreSQL adapter: it reads materialized views
// and their dependencies from the system catalog and refreshes them.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/mvrefresh/pkg/adapters/postgres"
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/mvrefresh/pkg/adapter"
	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// Adapter implements core.Adapter for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to PostgreSQL.
//
// cfg.DSN is used as-is when set. Otherwise a DSN is built from the
// individual fields; when those are empty too, libpq's PG* environment
// variables decide where to connect.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	connConfig, err := pgx.ParseConfig(connString(cfg))
	if err != nil {
		return fmt.Errorf("invalid postgres connection settings: %w", err)
	}
	for k, v := range params.RuntimeParams() {
		connConfig.RuntimeParams[k] = v
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", connConfig.Host),
		slog.String("database", connConfig.Database))

	db := stdlib.OpenDB(*connConfig)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

func connString(cfg adapter.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	if cfg.Host == "" && cfg.Port == 0 && cfg.Database == "" && cfg.Username == "" {
		return ""
	}
	return buildPostgresDSN(cfg)
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "prefer"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d sslmode=%s", host, port, sslmode)

	if cfg.Database != "" {
		dsn += " dbname=" + quoteDSNValue(cfg.Database)
	}
	if cfg.Username != "" {
		dsn += " user=" + quoteDSNValue(cfg.Username)
	}
	if cfg.Password != "" {
		dsn += " password=" + quoteDSNValue(cfg.Password)
	}

	return dsn
}

// quoteDSNValue quotes a keyword/value DSN value when it contains
// whitespace, quotes or backslashes.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Views implements core.Catalog.
func (a *Adapter) Views(ctx context.Context) ([]core.ViewID, error) {
	return a.QueryViews(ctx, viewsQuery)
}

// Dependencies implements core.Catalog.
func (a *Adapter) Dependencies(ctx context.Context) ([]core.Edge, error) {
	return a.QueryEdges(ctx, dependenciesQuery)
}

// Refresh implements core.Refresher. Each statement runs in its own
// transaction so a failure leaves the connection usable for the retry.
func (a *Adapter) Refresh(ctx context.Context, view core.ViewID, mode core.RefreshMode) error {
	sql := refreshSQL(view, mode)
	a.Logger.Debug("executing refresh", slog.String("sql", sql))

	err := a.ExecInTx(ctx, sql)
	if err == nil {
		return nil
	}
	if mode == core.RefreshConcurrently && isConcurrentUnsupported(err) {
		return fmt.Errorf("%w: %w", core.ErrConcurrentUnsupported, err)
	}
	return err
}

// refreshSQL renders the statement with quoted identifiers.
func refreshSQL(view core.ViewID, mode core.RefreshMode) string {
	ident := pgx.Identifier{view.Schema, view.Name}.Sanitize()
	if mode == core.RefreshConcurrently {
		return "REFRESH MATERIALIZED VIEW CONCURRENTLY " + ident
	}
	return "REFRESH MATERIALIZED VIEW " + ident
}

// isConcurrentUnsupported reports whether err is PostgreSQL refusing the
// CONCURRENTLY form, e.g. because the view has no unique index or has never
// been populated.
func isConcurrentUnsupported(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.FeatureNotSupported &&
		strings.Contains(strings.ToLower(pgErr.Message), "concurrently")
}

var _ core.Adapter = (*Adapter)(nil)
