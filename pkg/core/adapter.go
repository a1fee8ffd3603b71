package core

import "context"

// Catalog supplies the materialized views and the dependencies among them.
type Catalog interface {
	// Views returns every materialized view, in a stable order.
	Views(ctx context.Context) ([]ViewID, error)

	// Dependencies returns every view-to-view dependency edge.
	Dependencies(ctx context.Context) ([]Edge, error)
}

// Refresher refreshes one materialized view.
//
// A failure caused by the concurrent form being unavailable for the view
// must satisfy errors.Is(err, ErrConcurrentUnsupported). Each successful
// call is committed before it returns.
type Refresher interface {
	Refresh(ctx context.Context, view ViewID, mode RefreshMode) error
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	Catalog
	Refresher
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	DSN      string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
	Params   map[string]any
}
