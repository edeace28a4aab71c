// Package service composes the asset store, the metadata codec and the
// expiration evaluator into the operations the HTTP handlers expose.
package service

import (
	"context"
	"fmt"
	"io"

	"github.com/tvloop/tvloop/pkg/configs"
	ctxPkg "github.com/tvloop/tvloop/pkg/context"
	"github.com/tvloop/tvloop/pkg/internal/store"
	"github.com/tvloop/tvloop/pkg/internal/types"
	"github.com/tvloop/tvloop/pkg/metrics"
)

// VideoService serves the asset operations of one store.
type VideoService struct {
	store   *store.Store
	baseURL string
}

// NewVideoService builds a service from the request context.
func NewVideoService(ctx context.Context) *VideoService {
	cfg := configs.GetConfig()

	return &VideoService{
		store:   ctxPkg.GetStore(ctx),
		baseURL: cfg.Store.PublicBaseURL(&cfg.Server),
	}
}

// Upload stores a payload and reports the claimed identity.
func (vs *VideoService) Upload(payload io.Reader, filenameHint, contentType, rawPolicy string, size int64) (*types.UploadResponse, error) {
	res, err := vs.store.Upload(payload, filenameHint, contentType, rawPolicy, size)
	if err != nil {
		return nil, err
	}

	metrics.UploadsTotal.Inc()

	return &types.UploadResponse{
		Success:       true,
		VideoURL:      vs.videoURL(res.Filename),
		Filename:      res.Filename,
		OriginalName:  filenameHint,
		Size:          res.Size,
		XMLFile:       res.XMLFile,
		PrazoValidade: res.Expiration,
	}, nil
}

// List reports every stored asset with its public URLs.
func (vs *VideoService) List(withSidecarFields bool) (*types.ListResponse, error) {
	assets, err := vs.store.List()
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	videos := make([]types.VideoInfo, 0, len(assets))

	for _, a := range assets {
		info := types.VideoInfo{
			Filename:    a.Filename,
			URL:         vs.videoURL(a.Filename),
			DownloadURL: vs.baseURL + "/download/" + a.Filename,
			Size:        a.Size,
			Created:     a.Created,
		}

		if withSidecarFields {
			info.XMLFile = store.SidecarName(a.Filename)
			if a.HasMetadata {
				info.XMLURL = vs.baseURL + "/xml/" + info.XMLFile
			}
		}

		videos = append(videos, info)
	}

	metrics.StoredAssets.Set(float64(len(videos)))

	return &types.ListResponse{
		Success: true,
		Exists:  len(videos) > 0,
		Videos:  videos,
		Count:   len(videos),
	}, nil
}

// Delete removes one asset and its sidecar.
func (vs *VideoService) Delete(name string) (*types.DeleteResponse, error) {
	if err := vs.store.Delete(name); err != nil {
		return nil, err
	}

	metrics.DeletesTotal.Inc()

	return &types.DeleteResponse{
		Success:  true,
		Message:  "video deleted",
		Filename: name,
	}, nil
}

// UpdateValidity rewrites one asset's expiration marker.
func (vs *VideoService) UpdateValidity(req *types.UpdateValidityRequest) (*types.UpdateValidityResponse, error) {
	marker, err := vs.store.UpdateValidity(req.Filename, req.ExpirationDays)
	if err != nil {
		return nil, err
	}

	xmlFile := store.SidecarName(req.Filename)

	return &types.UpdateValidityResponse{
		Success:       true,
		Filename:      req.Filename,
		XMLFile:       xmlFile,
		PrazoValidade: marker,
		XMLURL:        vs.baseURL + "/xml/" + xmlFile,
	}, nil
}

// OpenPayload streams an asset's bytes.
func (vs *VideoService) OpenPayload(name string) (io.ReadCloser, int64, error) {
	return vs.store.FetchPayload(name)
}

// OpenMetadata streams a sidecar's bytes.
func (vs *VideoService) OpenMetadata(name string) (io.ReadCloser, int64, error) {
	return vs.store.FetchMetadata(name)
}

func (vs *VideoService) videoURL(name string) string {
	return vs.baseURL + "/videos/" + name
}
