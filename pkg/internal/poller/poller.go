// Package poller drives the console's periodic synchronization with every
// registered display endpoint. Each endpoint gets its own interval job; a
// cycle probes reachability first and only then refreshes the cached asset
// list, so an unreachable store keeps its last known assets on screen.
package poller

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/client"
	"github.com/tvloop/tvloop/pkg/internal/expiry"
	"github.com/tvloop/tvloop/pkg/internal/metadata"
	"github.com/tvloop/tvloop/pkg/internal/registry"
	"github.com/tvloop/tvloop/pkg/internal/types"
	"github.com/tvloop/tvloop/pkg/log"
	"github.com/tvloop/tvloop/pkg/metrics"
	"github.com/tvloop/tvloop/pkg/scheduler"
)

const jobPrefix = "poll:"

// metadataFetchers bounds concurrent sidecar downloads per cycle.
const metadataFetchers = 4

// EndpointClient is the slice of the store client the poller depends on.
type EndpointClient interface {
	Status(ctx context.Context) (*types.StatusResponse, error)
	Check(ctx context.Context) (*types.ListResponse, error)
	FetchMetadata(ctx context.Context, filename string) ([]byte, error)
}

// ClientFactory builds a client for one endpoint address.
type ClientFactory func(baseURL string) EndpointClient

// Poller schedules and runs sync cycles against registered endpoints.
type Poller struct {
	reg     *registry.Registry
	sched   *scheduler.Scheduler
	cfg     *configs.PollerConfig
	factory ClientFactory
	clock   clockwork.Clock
	logger  zerolog.Logger

	mu      sync.Mutex
	clients map[string]EndpointClient // keyed by endpoint ID
}

// New creates a Poller. A nil factory builds real HTTP clients; tests pass
// their own. A nil clock uses the wall clock.
func New(reg *registry.Registry, sched *scheduler.Scheduler, cfg *configs.PollerConfig, factory ClientFactory, clock clockwork.Clock) *Poller {
	if factory == nil {
		factory = func(baseURL string) EndpointClient {
			return client.New(baseURL, cfg)
		}
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Poller{
		reg:     reg,
		sched:   sched,
		cfg:     cfg,
		factory: factory,
		clock:   clock,
		logger:  log.Logger().With().Str("component", "poller").Logger(),
		clients: make(map[string]EndpointClient),
	}
}

// Start schedules a sync job for every endpoint already in the registry.
// The first run of each job fires immediately.
func (p *Poller) Start(ctx context.Context) error {
	for _, ep := range p.reg.List() {
		if err := p.addJob(ctx, ep.ID); err != nil {
			return err
		}
	}

	return nil
}

// Register adds an endpoint to the registry and schedules its sync job.
// Changing the endpoint set triggers an immediate off-schedule sync of every
// endpoint so the console view converges right away.
func (p *Poller) Register(ctx context.Context, ep registry.Endpoint) (*registry.Endpoint, error) {
	added, err := p.reg.Add(ep)
	if err != nil {
		return nil, err
	}

	if err := p.addJob(ctx, added.ID); err != nil {
		return nil, err
	}

	p.syncAllNow()

	return added, nil
}

// Unregister removes an endpoint and its sync job.
func (p *Poller) Unregister(id string) error {
	if err := p.reg.Remove(id); err != nil {
		return err
	}

	if err := p.sched.RemoveJobByName(jobPrefix + id); err != nil {
		p.logger.Warn().Err(err).Str("endpoint", id).Msg("Failed to remove sync job")
	}

	p.mu.Lock()
	delete(p.clients, id)
	p.mu.Unlock()

	p.syncAllNow()

	return nil
}

// Reconcile reloads the registry from disk and adjusts the scheduled sync
// jobs to match: jobs for vanished endpoints are removed, new endpoints get
// one. Any change triggers an immediate off-schedule sync of every endpoint.
// This is how a running console picks up `console add`/`console remove`
// executed in another process.
func (p *Poller) Reconcile(ctx context.Context) error {
	before := make(map[string]struct{})
	for _, ep := range p.reg.List() {
		before[ep.ID] = struct{}{}
	}

	if err := p.reg.Load(); err != nil {
		return err
	}

	after := make(map[string]struct{})
	for _, ep := range p.reg.List() {
		after[ep.ID] = struct{}{}
	}

	changed := false

	for id := range before {
		if _, ok := after[id]; ok {
			continue
		}

		changed = true

		if err := p.sched.RemoveJobByName(jobPrefix + id); err != nil {
			p.logger.Warn().Err(err).Str("endpoint", id).Msg("Failed to remove sync job")
		}

		p.mu.Lock()
		delete(p.clients, id)
		p.mu.Unlock()
	}

	for id := range after {
		if _, ok := before[id]; ok {
			continue
		}

		changed = true

		if err := p.addJob(ctx, id); err != nil {
			return err
		}
	}

	if changed {
		p.syncAllNow()
	}

	return nil
}

// PollEndpoint runs one full sync cycle for an endpoint: reachability probe
// first, asset refresh only when the probe succeeds.
func (p *Poller) PollEndpoint(ctx context.Context, id string) {
	ep, err := p.reg.Get(id)
	if err != nil {
		p.logger.Warn().Err(err).Str("endpoint", id).Msg("Poll for unknown endpoint")

		return
	}

	if err := p.reg.SetStatus(id, registry.StatusChecking); err != nil {
		return
	}

	cl := p.clientFor(ep)

	if _, err := cl.Status(ctx); err != nil {
		// Unreachable: flip to offline but leave the cached asset list
		// untouched so the console keeps showing the last known state.
		_ = p.reg.SetStatus(id, registry.StatusOffline)
		metrics.PollCycles.WithLabelValues(registry.StatusOffline).Inc()
		p.logger.Debug().Err(err).Str("endpoint", id).Str("store", ep.StoreAddress).Msg("Endpoint unreachable")

		return
	}

	if assets, err := p.fetchAssets(ctx, cl); err != nil {
		p.logger.Warn().Err(err).Str("endpoint", id).Msg("Asset refresh failed")
	} else if err := p.reg.ReplaceAssets(id, assets); err == nil {
		p.logger.Debug().Str("endpoint", id).Int("assets", len(assets)).Msg("Assets refreshed")
	}

	_ = p.reg.SetStatus(id, registry.StatusOnline)
	metrics.PollCycles.WithLabelValues(registry.StatusOnline).Inc()
}

// fetchAssets pulls the existence listing and enriches each entry with the
// remaining validity decoded from its sidecar. Sidecar failures degrade to
// an entry without expiration rather than failing the cycle.
func (p *Poller) fetchAssets(ctx context.Context, cl EndpointClient) ([]types.VideoInfo, error) {
	listing, err := cl.Check(ctx)
	if err != nil {
		return nil, err
	}

	assets := make([]types.VideoInfo, len(listing.Videos))
	copy(assets, listing.Videos)

	now := p.clock.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataFetchers)

	for i := range assets {
		i := i
		g.Go(func() error {
			if days, ok := p.remainingDays(ctx, cl, assets[i].Filename, now); ok {
				assets[i].ExpirationDays = &days
			}

			return nil
		})
	}

	_ = g.Wait()

	return assets, nil
}

func (p *Poller) remainingDays(ctx context.Context, cl EndpointClient, filename string, now time.Time) (int, bool) {
	raw, err := cl.FetchMetadata(ctx, filename)
	if err != nil {
		return 0, false
	}

	doc, err := metadata.Decode(raw)
	if err != nil || !doc.HasExpiration() {
		return 0, false
	}

	exp, err := expiry.ParseExpiration(doc.Expiration)
	if err != nil {
		return 0, false
	}

	return expiry.RemainingDays(exp, now), true
}

func (p *Poller) addJob(ctx context.Context, id string) error {
	return p.sched.AddInterval(jobPrefix+id, p.cfg.Interval(), func(ctx context.Context) {
		p.PollEndpoint(ctx, id)
	}, ctx, true)
}

// syncAllNow triggers an off-schedule run of every sync job. The regular
// cadence is unaffected.
func (p *Poller) syncAllNow() {
	for _, name := range p.sched.JobNames() {
		if !strings.HasPrefix(name, jobPrefix) {
			continue
		}

		if err := p.sched.RunJobNow(name); err != nil {
			p.logger.Warn().Err(err).Str("job", name).Msg("Failed to trigger sync")
		}
	}
}

func (p *Poller) clientFor(ep *registry.Endpoint) EndpointClient {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cl, ok := p.clients[ep.ID]; ok {
		return cl
	}

	cl := p.factory(ep.StoreAddress)
	p.clients[ep.ID] = cl

	return cl
}
