package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	DefaultStoreVideosDir = "videos" // directory holding payloads and sidecars
	DefaultStoreMaxSlots  = 100      // highest probed video slot (video1..videoN)
	DefaultStoreMaxSizeMB = 100      // upload size ceiling (MiB)
	DefaultStoreBaseURL   = ""       // public base URL; empty derives from listener
	DefaultStoreExpiry    = 30       // default validity in days when none is supplied
)

type (
	// StoreConfig holds the asset store settings.
	StoreConfig struct {
		VideosDir         string `mapstructure:"videos_dir"`
		MaxSlots          int    `mapstructure:"max_slots"           rule:"min=1,max=10000"`
		MaxUploadSizeMB   int    `mapstructure:"max_upload_size_mb"  rule:"min=1"`
		BaseURL           string `mapstructure:"base_url"`
		DefaultExpiryDays int    `mapstructure:"default_expiry_days" rule:"min=0"`
	}
)

// MaxUploadBytes returns the upload ceiling in bytes.
func (s *StoreConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadSizeMB) * 1024 * 1024
}

// PublicBaseURL returns the base URL advertised in responses. When unset it
// falls back to the listener address.
func (s *StoreConfig) PublicBaseURL(server *ServerConfig) string {
	if s.BaseURL != "" {
		return s.BaseURL
	}

	host := server.Host
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}

	return fmt.Sprintf("http://%s:%d", host, server.Port)
}

func (s *StoreConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("store.videos_dir", DefaultStoreVideosDir)
	v.SetDefault("store.max_slots", DefaultStoreMaxSlots)
	v.SetDefault("store.max_upload_size_mb", DefaultStoreMaxSizeMB)
	v.SetDefault("store.base_url", DefaultStoreBaseURL)
	v.SetDefault("store.default_expiry_days", DefaultStoreExpiry)
}
