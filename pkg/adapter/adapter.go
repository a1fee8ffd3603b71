// Package adapter holds the database adapter registry and shared
// database/sql plumbing for concrete adapters.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves from init().
package adapter

import "github.com/leapstack-labs/mvrefresh/pkg/core"

type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig
)
