package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort         = 3000      // listen port
	DefaultHost         = "0.0.0.0" // listen address
	DefaultReloadConfig = true      // whether to hot-reload the config file
	DefaultDebug        = false     // whether to enable debug mode
	DefaultTimeout      = 30        // request timeout in seconds
)

type (
	// ServerConfig holds the HTTP listener settings of the asset store.
	ServerConfig struct {
		Port         int    `mapstructure:"port"          rule:"min=1,max=65535"`
		Host         string `mapstructure:"host"          rule:"ip"`
		ReloadConfig bool   `mapstructure:"reload_config"`
		Debug        bool   `mapstructure:"debug"`
		Timeout      int    `mapstructure:"timeout"       rule:"min=1,max=300"`
	}
)

// GetTimeoutDuration returns the request timeout as a time.Duration.
func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.timeout", DefaultTimeout)
}
