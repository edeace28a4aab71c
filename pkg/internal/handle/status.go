package handle

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/types"
)

// startedAt anchors the uptime reported by the liveness probe.
var startedAt = time.Now()

// Status handles the GET /status liveness probe.
func Status(c *gin.Context) {
	c.JSON(http.StatusOK, types.StatusResponse{
		Success:   true,
		Status:    "online",
		Server:    "tvloop video store",
		Uptime:    time.Since(startedAt).Seconds(),
		Timestamp: time.Now(),
	})
}

// Index handles GET / with a short endpoint directory.
func Index(c *gin.Context) {
	cfg := configs.GetConfig()

	c.JSON(http.StatusOK, types.IndexResponse{
		Message: "video store running",
		Endpoints: map[string]string{
			"upload":         "POST /upload (mp4 only)",
			"check":          "GET /check",
			"status":         "GET /status",
			"delete":         "DELETE /delete/:filename",
			"download":       "GET /download/:filename",
			"list":           "GET /list",
			"videos":         "GET /videos/:filename",
			"xml":            "GET /xml/:filename",
			"updateValidity": "POST /update-validity",
		},
		Port: cfg.Server.Port,
		Note: "videos are stored as video1.mp4, video2.mp4, ...",
	})
}
