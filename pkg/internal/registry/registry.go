// Package registry holds the console's set of display endpoints and their
// last known state. The set persists as a JSON file so a console restart
// picks up where it left off.
package registry

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tvloop/tvloop/pkg/internal/types"
	"github.com/tvloop/tvloop/pkg/rule"
)

// Endpoint status values. Every poll cycle moves an endpoint through
// checking before settling on online or offline.
const (
	StatusChecking = "checking"
	StatusOnline   = "online"
	StatusOffline  = "offline"
)

// ErrNotFound marks an endpoint ID absent from the registry.
var ErrNotFound = errors.New("endpoint not found")

// Coordinates pins an endpoint on a map.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Endpoint is one registered display and its cached poll state.
type Endpoint struct {
	ID            string            `json:"id"`
	DisplayNumber int               `json:"displayNumber"`
	StoreAddress  string            `json:"storeAddress"  rule:"required,url"`
	Caption       string            `json:"caption"       rule:"required"`
	City          string            `json:"city"`
	Region        string            `json:"region"`
	Coordinates   Coordinates       `json:"coordinates"`
	Status        string            `json:"status"`
	LastSeen      time.Time         `json:"lastSeen"`
	CachedAssets  []types.VideoInfo `json:"cachedAssets,omitempty"`
}

// Registry is the thread-safe endpoint set.
type Registry struct {
	mu        sync.RWMutex
	fs        afero.Fs
	file      string
	endpoints map[string]*Endpoint
	order     []string // insertion order, kept stable across saves
}

// New creates a Registry persisted at file on the given filesystem.
func New(fs afero.Fs, file string) *Registry {
	return &Registry{
		fs:        fs,
		file:      file,
		endpoints: make(map[string]*Endpoint),
	}
}

// Add validates and registers a new endpoint. A fresh ID is assigned and the
// endpoint starts in the checking state until its first poll completes.
func (r *Registry) Add(ep Endpoint) (*Endpoint, error) {
	if err := rule.ValidateStruct(&ep); err != nil {
		return nil, err
	}

	ep.ID = uuid.NewString()
	ep.Status = StatusChecking
	ep.CachedAssets = nil

	r.mu.Lock()
	defer r.mu.Unlock()

	if ep.DisplayNumber == 0 {
		ep.DisplayNumber = len(r.order) + 1
	}

	r.endpoints[ep.ID] = &ep
	r.order = append(r.order, ep.ID)

	return cloneEndpoint(&ep), nil
}

// Remove drops an endpoint by ID.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.endpoints[id]; !ok {
		return ErrNotFound
	}

	delete(r.endpoints, id)

	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	return nil
}

// Get returns a copy of one endpoint.
func (r *Registry) Get(id string) (*Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return nil, ErrNotFound
	}

	return cloneEndpoint(ep), nil
}

// List returns copies of all endpoints in registration order.
func (r *Registry) List() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *cloneEndpoint(r.endpoints[id]))
	}

	return out
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.endpoints)
}

// SetStatus updates an endpoint's reachability status. Reaching online also
// stamps LastSeen.
func (r *Registry) SetStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return ErrNotFound
	}

	ep.Status = status
	if status == StatusOnline {
		ep.LastSeen = time.Now()
	}

	return nil
}

// ReplaceAssets swaps an endpoint's cached asset list wholesale. Partial
// merges are never attempted; the poller hands over a complete snapshot or
// leaves the previous one standing.
func (r *Registry) ReplaceAssets(id string, assets []types.VideoInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return ErrNotFound
	}

	ep.CachedAssets = append([]types.VideoInfo(nil), assets...)

	return nil
}

// Load reads the persisted endpoint set. A missing file is not an error;
// the registry simply starts empty.
func (r *Registry) Load() error {
	raw, err := afero.ReadFile(r.fs, r.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	var endpoints []Endpoint
	if err := sonic.Unmarshal(raw, &endpoints); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.endpoints = make(map[string]*Endpoint, len(endpoints))
	r.order = r.order[:0]

	for i := range endpoints {
		ep := endpoints[i]
		// Status is transient; every load starts from checking.
		ep.Status = StatusChecking
		r.endpoints[ep.ID] = &ep
		r.order = append(r.order, ep.ID)
	}

	return nil
}

// Save writes the endpoint set to disk.
func (r *Registry) Save() error {
	r.mu.RLock()
	endpoints := make([]Endpoint, 0, len(r.order))

	for _, id := range r.order {
		endpoints = append(endpoints, *cloneEndpoint(r.endpoints[id]))
	}
	r.mu.RUnlock()

	raw, err := sonic.MarshalIndent(endpoints, "", "  ")
	if err != nil {
		return err
	}

	return afero.WriteFile(r.fs, r.file, raw, 0o644)
}

func cloneEndpoint(ep *Endpoint) *Endpoint {
	out := *ep
	out.CachedAssets = append([]types.VideoInfo(nil), ep.CachedAssets...)

	return &out
}
