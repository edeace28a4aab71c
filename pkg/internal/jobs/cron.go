// Package jobs registers the store server's recurring housekeeping jobs.
package jobs

import (
	"context"
	"io"
	"time"

	"github.com/tvloop/tvloop/pkg/internal/expiry"
	"github.com/tvloop/tvloop/pkg/internal/metadata"
	"github.com/tvloop/tvloop/pkg/internal/store"
	"github.com/tvloop/tvloop/pkg/log"
	"github.com/tvloop/tvloop/pkg/metrics"
	"github.com/tvloop/tvloop/pkg/scheduler"
)

// RegisterStoreJobs wires the housekeeping jobs onto the scheduler.
func RegisterStoreJobs(sched *scheduler.Scheduler, st *store.Store) error {
	return sched.AddCron(JobExpiryReport, "0 * * * *", func(ctx context.Context) {
		reportExpiry(st)
	}, context.Background())
}

// reportExpiry walks the stored sidecars and updates the stored/expired
// gauges. Expired videos are reported, never deleted; removal stays a
// deliberate operator action.
func reportExpiry(st *store.Store) {
	logger := log.Logger().With().Str("job", JobExpiryReport).Logger()

	assets, err := st.List()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list assets")

		return
	}

	now := time.Now()
	expired := 0

	for _, asset := range assets {
		if !asset.HasMetadata {
			continue
		}

		doc, err := readSidecar(st, asset.Filename)
		if err != nil {
			logger.Warn().Err(err).Str("video", asset.Filename).Msg("Unreadable sidecar")

			continue
		}

		if !doc.HasExpiration() {
			continue
		}

		exp, err := expiry.ParseExpiration(doc.Expiration)
		if err != nil {
			// Free-form markers pass through uploads untouched, so a
			// non-date value here is expected and simply not countable.
			continue
		}

		remaining := expiry.RemainingDays(exp, now)
		if remaining < 0 {
			expired++

			logger.Info().
				Str("video", asset.Filename).
				Str("expiration", doc.Expiration).
				Int("days_overdue", -remaining).
				Msg("Video past expiration")
		}
	}

	metrics.StoredAssets.Set(float64(len(assets)))
	metrics.ExpiredAssets.Set(float64(expired))

	logger.Info().Int("stored", len(assets)).Int("expired", expired).Msg("Expiry report complete")
}

func readSidecar(st *store.Store, videoName string) (*metadata.Document, error) {
	rc, _, err := st.FetchMetadata(store.SidecarName(videoName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	return metadata.Decode(raw)
}
