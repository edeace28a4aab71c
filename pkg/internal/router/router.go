// Package router binds the asset store's HTTP surface to the gin engine.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/tvloop/tvloop/pkg/internal/handle"
)

// Register binds every store route. The paths are the legacy wire surface
// the displays already speak:
//
//	GET    /                    endpoint directory
//	GET    /status              liveness probe
//	POST   /upload              multipart upload
//	GET    /list                full listing with sidecar fields
//	GET    /check               existence probe
//	DELETE /delete/:filename    remove payload + sidecar
//	GET    /download/:filename  attachment stream
//	GET    /download/xml/:filename  sidecar attachment
//	GET    /videos/:filename    inline payload stream
//	GET    /xml/:filename       inline sidecar stream
//	POST   /update-validity     rewrite the expiration marker
func Register(e *gin.Engine) {
	e.GET("/", handle.Index)
	e.GET("/status", handle.Status)

	e.POST("/upload", handle.UploadVideo)
	e.GET("/list", handle.ListVideos)
	e.GET("/check", handle.CheckVideos)

	e.DELETE("/delete/:filename", handle.DeleteVideo)

	download := e.Group("/download")
	{
		download.GET("/xml/:filename", handle.DownloadMetadata)
		download.GET("/:filename", handle.DownloadVideo)
	}

	e.GET("/videos/:filename", handle.ServeVideo)
	e.GET("/xml/:filename", handle.ServeMetadata)

	e.POST("/update-validity", handle.UpdateValidity)
}
