// Package core defines the shared language of the mvrefresh system.
//
// This package contains:
//   - Domain entities (ViewID, Edge, Statement)
//   - Service interfaces (Catalog, Refresher, Adapter)
//   - Configuration types (AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
