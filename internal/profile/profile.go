// Package profile holds the process configuration.
package profile

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address for the server.
	Addr string
	// Port is the binding port for the server.
	Port int
	// Data is the data directory (cache snapshots live here).
	Data string
	// Driver is the persistence driver ("postgres" or "memory").
	Driver string
	// DSN points to where sessions and appointments are stored.
	DSN string
	// Timezone is the clinic's IANA timezone name.
	Timezone string

	// Generator configuration (OpenAI-compatible upstream).
	GeneratorAPIKey  string
	GeneratorBaseURL string
	GeneratorModel   string

	// Cache tuning.
	CacheHotCapacity  int
	CacheWarmCapacity int
	CacheTTL          time.Duration

	// Version is the current server version.
	Version string
}

// IsDev returns true unless running in prod mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Load reads the profile from PAWDESK_* environment variables with defaults.
func Load(version string) (*Profile, error) {
	v := viper.New()
	v.SetEnvPrefix("pawdesk")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8080)
	v.SetDefault("data", "./data")
	v.SetDefault("driver", "memory")
	v.SetDefault("dsn", "")
	v.SetDefault("timezone", "America/New_York")
	v.SetDefault("generator_model", "gpt-4o-mini")
	v.SetDefault("cache_hot_capacity", 100)
	v.SetDefault("cache_warm_capacity", 500)
	v.SetDefault("cache_ttl", time.Hour)

	p := &Profile{
		Mode:              v.GetString("mode"),
		Addr:              v.GetString("addr"),
		Port:              v.GetInt("port"),
		Data:              v.GetString("data"),
		Driver:            v.GetString("driver"),
		DSN:               v.GetString("dsn"),
		Timezone:          v.GetString("timezone"),
		GeneratorAPIKey:   v.GetString("generator_api_key"),
		GeneratorBaseURL:  v.GetString("generator_base_url"),
		GeneratorModel:    v.GetString("generator_model"),
		CacheHotCapacity:  v.GetInt("cache_hot_capacity"),
		CacheWarmCapacity: v.GetInt("cache_warm_capacity"),
		CacheTTL:          v.GetDuration("cache_ttl"),
		Version:           version,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the profile for obvious misconfiguration.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		return errors.Errorf("invalid mode %q: must be 'prod' or 'dev'", p.Mode)
	}
	switch p.Driver {
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return errors.Errorf("unknown driver %q: only 'postgres' and 'memory' are supported", p.Driver)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.CacheHotCapacity <= 0 || p.CacheWarmCapacity <= 0 {
		return errors.New("cache capacities must be positive")
	}
	return nil
}
