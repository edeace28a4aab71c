package handle

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tvloop/tvloop/pkg/internal/service"
	"github.com/tvloop/tvloop/pkg/internal/types"
	"github.com/tvloop/tvloop/pkg/log"
	"github.com/tvloop/tvloop/pkg/rule"
)

// UploadVideo handles POST /upload: a multipart `video` file plus an
// optional `prazoValidade` policy (day count or absolute date).
func UploadVideo(c *gin.Context) {
	l := log.Logger()

	fileHeader, err := c.FormFile("video")
	if err != nil {
		l.Warn().Err(err).Msg("upload without file")
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "no file was sent"})

		return
	}

	rawPolicy := c.PostForm("prazoValidade")

	f, err := fileHeader.Open()
	if err != nil {
		l.Error().Err(err).Msg("open multipart file")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})

		return
	}
	defer f.Close()

	svc := service.NewVideoService(c.Request.Context())

	resp, err := svc.Upload(f, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), rawPolicy, fileHeader.Size)
	if err != nil {
		l.Warn().Err(err).Str("file", fileHeader.Filename).Msg("upload rejected")
		abortWithStoreError(c, err)

		return
	}

	l.Info().
		Str("video", resp.Filename).
		Str("xml", resp.XMLFile).
		Int64("size", resp.Size).
		Msg("video stored")

	c.JSON(http.StatusOK, resp)
}

// ListVideos handles GET /list: every asset with its sidecar fields.
func ListVideos(c *gin.Context) {
	svc := service.NewVideoService(c.Request.Context())

	resp, err := svc.List(true)
	if err != nil {
		log.Logger().Error().Err(err).Msg("list failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusOK, resp)
}

// CheckVideos handles GET /check: an existence probe without sidecar fields.
func CheckVideos(c *gin.Context) {
	svc := service.NewVideoService(c.Request.Context())

	resp, err := svc.List(false)
	if err != nil {
		log.Logger().Error().Err(err).Msg("check failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteVideo handles DELETE /delete/:filename.
func DeleteVideo(c *gin.Context) {
	l := log.Logger()
	name := c.Param("filename")

	svc := service.NewVideoService(c.Request.Context())

	resp, err := svc.Delete(name)
	if err != nil {
		l.Warn().Err(err).Str("video", name).Msg("delete rejected")
		abortWithStoreError(c, err)

		return
	}

	l.Info().Str("video", name).Msg("video deleted")
	c.JSON(http.StatusOK, resp)
}

// DownloadVideo handles GET /download/:filename as an attachment stream.
func DownloadVideo(c *gin.Context) {
	name := c.Param("filename")

	svc := service.NewVideoService(c.Request.Context())

	rc, size, err := svc.OpenPayload(name)
	if err != nil {
		abortWithStoreError(c, err)

		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.DataFromReader(http.StatusOK, size, "video/mp4", rc, nil)
}

// ServeVideo handles GET /videos/:filename, the inline stream the player
// consumes.
func ServeVideo(c *gin.Context) {
	name := c.Param("filename")

	svc := service.NewVideoService(c.Request.Context())

	rc, size, err := svc.OpenPayload(name)
	if err != nil {
		abortWithStoreError(c, err)

		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, size, "video/mp4", rc, nil)
}

// ServeMetadata handles GET /xml/:filename.
func ServeMetadata(c *gin.Context) {
	serveSidecar(c, false)
}

// DownloadMetadata handles GET /download/xml/:filename as an attachment.
func DownloadMetadata(c *gin.Context) {
	serveSidecar(c, true)
}

func serveSidecar(c *gin.Context, attachment bool) {
	name := c.Param("filename")

	svc := service.NewVideoService(c.Request.Context())

	rc, size, err := svc.OpenMetadata(name)
	if err != nil {
		abortWithStoreError(c, err)

		return
	}
	defer rc.Close()

	if attachment {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}

	c.DataFromReader(http.StatusOK, size, "application/xml", rc, nil)
}

// UpdateValidity handles POST /update-validity.
func UpdateValidity(c *gin.Context) {
	l := log.Logger()

	var req types.UpdateValidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update-validity body")
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})

		return
	}

	if err := rule.ValidateVar(req.Filename, "videofile"); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid filename, expected videoN.mp4"})

		return
	}

	svc := service.NewVideoService(c.Request.Context())

	resp, err := svc.UpdateValidity(&req)
	if err != nil {
		l.Warn().Err(err).Str("video", req.Filename).Msg("update validity rejected")
		abortWithStoreError(c, err)

		return
	}

	l.Info().
		Str("video", req.Filename).
		Str("expiration", resp.PrazoValidade).
		Msg("validity updated")

	c.JSON(http.StatusOK, resp)
}
