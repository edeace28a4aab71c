package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultLogEnableFile = false             // whether to log to a file
	DefaultLogFilePath   = "logs/tvloop.log" // log file path
	DefaultLogMaxSize    = 100               // max file size (MB)
	DefaultLogMaxBackups = 7                 // max rotated backups
	DefaultLogMaxAge     = 28                // max age in days
	DefaultLogCompress   = true              // compress rotated files
	DefaultLogLevel      = "info"            // log level
)

type (
	// LogConfig holds logging settings.
	LogConfig struct {
		EnableFile bool   `mapstructure:"enable_file"`
		FilePath   string `mapstructure:"file_path"`
		MaxSize    int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age_days"`
		Compress   bool   `mapstructure:"compress"`
		Level      string `mapstructure:"level"`
	}
)

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.enable_file", DefaultLogEnableFile)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAge)
	v.SetDefault("log.compress", DefaultLogCompress)
	v.SetDefault("log.level", DefaultLogLevel)
}
