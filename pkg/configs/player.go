package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPlayerRetryDelay     = 2    // seconds before retrying a lone failing clip
	DefaultPlayerResetCountdown = 10   // seconds before a full reset on empty list
	DefaultPlayerRefreshSeconds = 30   // seconds between list refreshes
	DefaultPlayerCommand        = "mpv"
)

type (
	// PlayerConfig holds the kiosk player settings.
	PlayerConfig struct {
		RetryDelaySeconds     int    `mapstructure:"retry_delay_seconds"     rule:"min=1"`
		ResetCountdownSeconds int    `mapstructure:"reset_countdown_seconds" rule:"min=1"`
		RefreshSeconds        int    `mapstructure:"refresh_seconds"         rule:"min=1"`
		Command               string `mapstructure:"command"`
	}
)

// RetryDelay returns the lone-clip retry delay.
func (p *PlayerConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySeconds) * time.Second
}

// ResetCountdown returns the empty-list recovery countdown.
func (p *PlayerConfig) ResetCountdown() time.Duration {
	return time.Duration(p.ResetCountdownSeconds) * time.Second
}

// RefreshInterval returns the list refresh cadence.
func (p *PlayerConfig) RefreshInterval() time.Duration {
	return time.Duration(p.RefreshSeconds) * time.Second
}

func (p *PlayerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("player.retry_delay_seconds", DefaultPlayerRetryDelay)
	v.SetDefault("player.reset_countdown_seconds", DefaultPlayerResetCountdown)
	v.SetDefault("player.refresh_seconds", DefaultPlayerRefreshSeconds)
	v.SetDefault("player.command", DefaultPlayerCommand)
}
