package postgres

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds PostgreSQL-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// ApplicationName shows up in pg_stat_activity (default "mvrefresh")
	ApplicationName string `mapstructure:"application_name"`

	// StatementTimeout bounds each REFRESH statement (e.g. "30m")
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`

	// LockTimeout bounds the wait for the view's lock (e.g. "10s")
	LockTimeout time.Duration `mapstructure:"lock_timeout"`

	// Settings are extra session parameters sent at connect time
	Settings map[string]string `mapstructure:"settings"`
}

const defaultApplicationName = "mvrefresh"

// ParseParams decodes the adapter's Params map. Unknown keys are rejected.
func ParseParams(raw map[string]any) (*Params, error) {
	params := &Params{}
	if len(raw) == 0 {
		return params, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid postgres params: %w", err)
	}
	return params, nil
}

// RuntimeParams returns the session parameters to send on connect.
func (p *Params) RuntimeParams() map[string]string {
	rp := make(map[string]string, len(p.Settings)+3)
	for k, v := range p.Settings {
		rp[k] = v
	}

	name := p.ApplicationName
	if name == "" {
		name = defaultApplicationName
	}
	rp["application_name"] = name

	if p.StatementTimeout > 0 {
		rp["statement_timeout"] = strconv.FormatInt(p.StatementTimeout.Milliseconds(), 10)
	}
	if p.LockTimeout > 0 {
		rp["lock_timeout"] = strconv.FormatInt(p.LockTimeout.Milliseconds(), 10)
	}
	return rp
}
