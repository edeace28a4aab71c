package poller_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/metadata"
	"github.com/tvloop/tvloop/pkg/internal/poller"
	"github.com/tvloop/tvloop/pkg/internal/registry"
	"github.com/tvloop/tvloop/pkg/internal/types"
	"github.com/tvloop/tvloop/pkg/scheduler"
)

type fakeClient struct {
	statusErr error
	checkErr  error
	listing   types.ListResponse
	sidecars  map[string][]byte
}

func (f *fakeClient) Status(ctx context.Context) (*types.StatusResponse, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}

	return &types.StatusResponse{Success: true, Status: "online"}, nil
}

func (f *fakeClient) Check(ctx context.Context) (*types.ListResponse, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}

	out := f.listing

	return &out, nil
}

func (f *fakeClient) FetchMetadata(ctx context.Context, filename string) ([]byte, error) {
	raw, ok := f.sidecars[filename]
	if !ok {
		return nil, errors.New("no sidecar")
	}

	return raw, nil
}

func testConfig() *configs.PollerConfig {
	return &configs.PollerConfig{
		IntervalSeconds:     30,
		ProbeTimeoutSeconds: 3,
		FetchTimeoutSeconds: 10,
		RegistryFile:        "televisions.json",
		BreakerMaxFails:     5,
		BreakerOpenSeconds:  60,
	}
}

func newTestPoller(t *testing.T, fake *fakeClient, now time.Time) (*poller.Poller, *registry.Registry, *scheduler.Scheduler) {
	t.Helper()

	reg := registry.New(afero.NewMemMapFs(), "televisions.json")

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	t.Cleanup(func() { _ = sched.Stop() })

	factory := func(baseURL string) poller.EndpointClient { return fake }
	clock := clockwork.NewFakeClockAt(now)

	return poller.New(reg, sched, testConfig(), factory, clock), reg, sched
}

func addEndpoint(t *testing.T, reg *registry.Registry) string {
	t.Helper()

	ep, err := reg.Add(registry.Endpoint{
		StoreAddress: "http://store-01.local:3000",
		Caption:      "Lobby display",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	return ep.ID
}

func TestPollEndpointOnlineRefreshesAssets(t *testing.T) {
	now := time.Date(2025, time.January, 10, 15, 30, 0, 0, time.UTC)

	fake := &fakeClient{
		listing: types.ListResponse{
			Success: true,
			Exists:  true,
			Videos:  []types.VideoInfo{{Filename: "video1.mp4"}, {Filename: "video2.mp4"}},
			Count:   2,
		},
		sidecars: map[string][]byte{
			"video1.mp4": metadata.Encode("video1.mp4", now, "2025-01-15"),
		},
	}

	p, reg, _ := newTestPoller(t, fake, now)
	id := addEndpoint(t, reg)

	p.PollEndpoint(context.Background(), id)

	ep, err := reg.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if ep.Status != registry.StatusOnline {
		t.Fatalf("Status = %q, want %q", ep.Status, registry.StatusOnline)
	}

	if len(ep.CachedAssets) != 2 {
		t.Fatalf("CachedAssets = %d entries, want 2", len(ep.CachedAssets))
	}

	if ep.CachedAssets[0].ExpirationDays == nil || *ep.CachedAssets[0].ExpirationDays != 5 {
		t.Errorf("video1 ExpirationDays = %v, want 5", ep.CachedAssets[0].ExpirationDays)
	}

	// video2 has no sidecar; its entry survives without expiration.
	if ep.CachedAssets[1].ExpirationDays != nil {
		t.Errorf("video2 ExpirationDays = %v, want nil", ep.CachedAssets[1].ExpirationDays)
	}
}

func TestPollEndpointUnreachableKeepsCache(t *testing.T) {
	now := time.Date(2025, time.January, 10, 15, 30, 0, 0, time.UTC)

	fake := &fakeClient{statusErr: errors.New("connection refused")}

	p, reg, _ := newTestPoller(t, fake, now)
	id := addEndpoint(t, reg)

	cached := []types.VideoInfo{{Filename: "video1.mp4"}}
	if err := reg.ReplaceAssets(id, cached); err != nil {
		t.Fatalf("ReplaceAssets: %v", err)
	}

	p.PollEndpoint(context.Background(), id)

	ep, err := reg.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if ep.Status != registry.StatusOffline {
		t.Fatalf("Status = %q, want %q", ep.Status, registry.StatusOffline)
	}

	if len(ep.CachedAssets) != 1 || ep.CachedAssets[0].Filename != "video1.mp4" {
		t.Errorf("CachedAssets = %+v, want the pre-outage snapshot", ep.CachedAssets)
	}
}

func TestPollEndpointListFailureKeepsCache(t *testing.T) {
	now := time.Date(2025, time.January, 10, 15, 30, 0, 0, time.UTC)

	// Probe succeeds but the listing fails; the endpoint still counts as
	// online and the cache stays put.
	fake := &fakeClient{checkErr: errors.New("timeout")}

	p, reg, _ := newTestPoller(t, fake, now)
	id := addEndpoint(t, reg)

	cached := []types.VideoInfo{{Filename: "video3.mp4"}}
	if err := reg.ReplaceAssets(id, cached); err != nil {
		t.Fatalf("ReplaceAssets: %v", err)
	}

	p.PollEndpoint(context.Background(), id)

	ep, err := reg.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if ep.Status != registry.StatusOnline {
		t.Fatalf("Status = %q, want %q", ep.Status, registry.StatusOnline)
	}

	if len(ep.CachedAssets) != 1 || ep.CachedAssets[0].Filename != "video3.mp4" {
		t.Errorf("CachedAssets = %+v, want the previous snapshot", ep.CachedAssets)
	}
}

func TestRegisterSchedulesJob(t *testing.T) {
	now := time.Date(2025, time.January, 10, 15, 30, 0, 0, time.UTC)

	fake := &fakeClient{listing: types.ListResponse{Success: true}}

	p, _, sched := newTestPoller(t, fake, now)

	ep, err := p.Register(context.Background(), registry.Endpoint{
		StoreAddress: "http://store-02.local:3000",
		Caption:      "Entrance display",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !sched.HasJob("poll:" + ep.ID) {
		t.Fatalf("sync job for %s not scheduled", ep.ID)
	}

	if err := p.Unregister(ep.ID); err != nil {
		t.Fatalf("Unregister: %v", err)
	}

	if sched.HasJob("poll:" + ep.ID) {
		t.Fatalf("sync job for %s still scheduled after unregister", ep.ID)
	}
}

func TestReconcileFollowsExternalRegistryEdits(t *testing.T) {
	now := time.Date(2025, time.January, 10, 15, 30, 0, 0, time.UTC)
	fake := &fakeClient{listing: types.ListResponse{Success: true}}

	// The running console and the editing process share the registry file.
	fs := afero.NewMemMapFs()
	reg := registry.New(fs, "televisions.json")

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	t.Cleanup(func() { _ = sched.Stop() })

	factory := func(baseURL string) poller.EndpointClient { return fake }
	p := poller.New(reg, sched, testConfig(), factory, clockwork.NewFakeClockAt(now))

	first, err := reg.Add(registry.Endpoint{
		StoreAddress: "http://store-01.local:3000",
		Caption:      "Lobby display",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := reg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Another process registers a second endpoint.
	editor := registry.New(fs, "televisions.json")
	if err := editor.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	second, err := editor.Add(registry.Endpoint{
		StoreAddress: "http://store-02.local:3000",
		Caption:      "Entrance display",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := editor.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := p.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if !sched.HasJob("poll:" + first.ID) {
		t.Error("sync job for the original endpoint vanished")
	}

	if !sched.HasJob("poll:" + second.ID) {
		t.Error("no sync job for the externally added endpoint")
	}

	// The other process removes the first endpoint.
	if err := editor.Remove(first.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if err := editor.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := p.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if sched.HasJob("poll:" + first.ID) {
		t.Error("sync job for the removed endpoint still scheduled")
	}

	if !sched.HasJob("poll:" + second.ID) {
		t.Error("sync job for the surviving endpoint vanished")
	}

	if reg.Len() != 1 {
		t.Errorf("registry Len = %d after reconcile, want 1", reg.Len())
	}
}

func TestRegisterRejectsBadAddress(t *testing.T) {
	now := time.Date(2025, time.January, 10, 15, 30, 0, 0, time.UTC)

	p, _, _ := newTestPoller(t, &fakeClient{}, now)

	_, err := p.Register(context.Background(), registry.Endpoint{
		StoreAddress: "not a url",
		Caption:      "Broken display",
	})
	if err == nil {
		t.Fatal("Register accepted an invalid store address")
	}
}
