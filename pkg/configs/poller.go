package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPollInterval      = 30 // seconds between poll cycles per endpoint
	DefaultProbeTimeout      = 3  // seconds for the /status liveness probe
	DefaultFetchTimeout      = 10 // seconds for list and metadata fetches
	DefaultRegistryFile      = "televisions.json"
	DefaultBreakerMaxFails   = 5  // consecutive failures before the breaker opens
	DefaultBreakerOpenWindow = 60 // seconds the breaker stays open
)

type (
	// PollerConfig holds the console sync poller settings.
	PollerConfig struct {
		IntervalSeconds     int    `mapstructure:"interval_seconds"      rule:"min=1"`
		ProbeTimeoutSeconds int    `mapstructure:"probe_timeout_seconds" rule:"min=1,max=60"`
		FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds" rule:"min=1,max=120"`
		RegistryFile        string `mapstructure:"registry_file"`
		BreakerMaxFails     uint32 `mapstructure:"breaker_max_fails"`
		BreakerOpenSeconds  int    `mapstructure:"breaker_open_seconds"`
	}
)

// Interval returns the poll cadence as a time.Duration.
func (p *PollerConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// ProbeTimeout returns the liveness probe timeout.
func (p *PollerConfig) ProbeTimeout() time.Duration {
	return time.Duration(p.ProbeTimeoutSeconds) * time.Second
}

// FetchTimeout returns the list/metadata fetch timeout.
func (p *PollerConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSeconds) * time.Second
}

// BreakerOpenWindow returns how long an opened breaker rejects calls.
func (p *PollerConfig) BreakerOpenWindow() time.Duration {
	return time.Duration(p.BreakerOpenSeconds) * time.Second
}

func (p *PollerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("poller.interval_seconds", DefaultPollInterval)
	v.SetDefault("poller.probe_timeout_seconds", DefaultProbeTimeout)
	v.SetDefault("poller.fetch_timeout_seconds", DefaultFetchTimeout)
	v.SetDefault("poller.registry_file", DefaultRegistryFile)
	v.SetDefault("poller.breaker_max_fails", DefaultBreakerMaxFails)
	v.SetDefault("poller.breaker_open_seconds", DefaultBreakerOpenWindow)
}
