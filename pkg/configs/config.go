// Package configs manages application configuration for the store server,
// the console poller and the kiosk player. Multiple formats are supported
// (YAML, JSON, TOML, dotenv) with optional hot reload.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type (
	// AppConfig is the global application configuration.
	AppConfig struct {
		Server  ServerConfig  `mapstructure:"server"`  // HTTP listener settings
		Store   StoreConfig   `mapstructure:"store"`   // asset store settings
		Poller  PollerConfig  `mapstructure:"poller"`  // console sync poller settings
		Player  PlayerConfig  `mapstructure:"player"`  // kiosk player settings
		Metrics MetricsConfig `mapstructure:"metrics"` // prometheus settings
		Log     LogConfig     `mapstructure:"log"`     // logging settings
	}
)

var (
	// globalConfig is the global configuration instance.
	globalConfig AppConfig
	// appViper is the global viper instance.
	appViper *viper.Viper
)

// InitConfig loads the application configuration. The path may be a concrete
// file or a directory searched for config.{yaml,yml,json,toml,env,dotenv}.
func InitConfig(path string) error {
	appViper = viper.New()
	setAllDefaults(appViper)

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// A concrete file: viper detects the type from the extension.
		appViper.SetConfigFile(path)
	} else {
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.AutomaticEnv()
	appViper.SetEnvPrefix("TVLOOP")

	if err := appViper.ReadInConfig(); err != nil {
		// Defaults plus env are enough when no config file exists.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults sets defaults for every sub-config.
func setAllDefaults(v *viper.Viper) {
	var serverConfig ServerConfig

	var storeConfig StoreConfig

	var pollerConfig PollerConfig

	var playerConfig PlayerConfig

	var metricsConfig MetricsConfig

	var logConfig LogConfig

	serverConfig.setDefaults(v)
	storeConfig.setDefaults(v)
	pollerConfig.setDefaults(v)
	playerConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	logConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig returns the global configuration instance.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
