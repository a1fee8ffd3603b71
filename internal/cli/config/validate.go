package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/mvrefresh/internal/cli/output"
	"github.com/leapstack-labs/mvrefresh/internal/filter"
	"github.com/leapstack-labs/mvrefresh/pkg/adapter"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := ValidateTarget(c.Target); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}

	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (expected text or json)", c.LogFormat)
	}

	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be positive, got %d", c.History.Limit)
	}

	// Compile patterns now so a typo fails before connecting.
	if _, err := filter.New(c.FilterOptions()); err != nil {
		return err
	}
	return nil
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	t.Type = strings.ToLower(t.Type)
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	return nil
}

// FilterOptions returns the refresh target selection.
func (c *Config) FilterOptions() filter.Options {
	return filter.Options{
		Schema:  c.Schema,
		Include: c.Include,
		Exclude: c.Exclude,
	}
}
