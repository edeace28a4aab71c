package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultMetricsEnabled        = true
	DefaultMetricsRuntimeMetrics = true
	DefaultMetricsPath           = "/metrics"
)

type (
	// MetricsConfig holds prometheus settings.
	MetricsConfig struct {
		Enabled        bool   `mapstructure:"enabled"`
		RuntimeMetrics bool   `mapstructure:"runtime_metrics"`
		Path           string `mapstructure:"path"`
	}
)

func (m *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", DefaultMetricsEnabled)
	v.SetDefault("metrics.runtime_metrics", DefaultMetricsRuntimeMetrics)
	v.SetDefault("metrics.path", DefaultMetricsPath)
}
