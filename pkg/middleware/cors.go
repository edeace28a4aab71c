package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tvloop/tvloop/pkg/configs"
)

// CORSMiddleware allows the management console, served from a different
// origin, to reach the store.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowFiles = true
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}

	if cfg.Debug {
		config.AllowAllOrigins = true
		config.AllowOrigins = nil
	}

	return cors.New(config)
}
