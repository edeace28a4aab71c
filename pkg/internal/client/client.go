// Package client implements the HTTP client the console uses to talk to a
// remote asset store. Each client wraps one endpoint and guards it with a
// circuit breaker so a dead store stops consuming poll budget quickly.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/store"
	"github.com/tvloop/tvloop/pkg/internal/types"
)

// StoreClient talks to one asset store endpoint. The probe client carries a
// short timeout for the /status liveness check; everything else goes through
// the fetch client.
type StoreClient struct {
	baseURL string
	probe   *http.Client
	fetch   *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New creates a StoreClient for the given base URL.
func New(baseURL string, cfg *configs.PollerConfig) *StoreClient {
	settings := gobreaker.Settings{
		Name:    baseURL,
		Timeout: cfg.BreakerOpenWindow(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFails
		},
	}

	return &StoreClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		probe:   &http.Client{Timeout: cfg.ProbeTimeout()},
		fetch:   &http.Client{Timeout: cfg.FetchTimeout()},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// BaseURL returns the endpoint address this client targets.
func (c *StoreClient) BaseURL() string {
	return c.baseURL
}

// Status runs the liveness probe against GET /status.
func (c *StoreClient) Status(ctx context.Context) (*types.StatusResponse, error) {
	var out types.StatusResponse
	if err := c.getJSON(ctx, c.probe, "/status", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Check fetches the lightweight existence listing from GET /check.
func (c *StoreClient) Check(ctx context.Context) (*types.ListResponse, error) {
	var out types.ListResponse
	if err := c.getJSON(ctx, c.fetch, "/check", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// List fetches the full listing from GET /list.
func (c *StoreClient) List(ctx context.Context) (*types.ListResponse, error) {
	var out types.ListResponse
	if err := c.getJSON(ctx, c.fetch, "/list", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// FetchMetadata downloads the raw XML sidecar of one video. filename is the
// payload name (videoN.mp4); the request targets its sidecar.
func (c *StoreClient) FetchMetadata(ctx context.Context, filename string) ([]byte, error) {
	return c.getRaw(ctx, c.fetch, "/xml/"+url.PathEscape(store.SidecarName(filename)))
}

// Upload pushes a local payload to the endpoint. expirationDays <= 0 leaves
// the validity policy to the store default.
func (c *StoreClient) Upload(ctx context.Context, filename string, payload io.Reader, expirationDays int) (*types.UploadResponse, error) {
	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("video", filename)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(part, payload); err != nil {
		return nil, err
	}

	if expirationDays > 0 {
		if err := w.WriteField("prazoValidade", fmt.Sprintf("%d", expirationDays)); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", w.FormDataContentType())

	raw, err := c.do(c.fetch, req)
	if err != nil {
		return nil, err
	}

	var out types.UploadResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	return &out, nil
}

// Delete removes one video (and its sidecar) from the endpoint.
func (c *StoreClient) Delete(ctx context.Context, filename string) (*types.DeleteResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/delete/"+url.PathEscape(filename), nil)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(c.fetch, req)
	if err != nil {
		return nil, err
	}

	var out types.DeleteResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode delete response: %w", err)
	}

	return &out, nil
}

// UpdateValidity rewrites the expiration marker of one video on the endpoint.
func (c *StoreClient) UpdateValidity(ctx context.Context, filename string, days int) (*types.UpdateValidityResponse, error) {
	payload, err := sonic.Marshal(types.UpdateValidityRequest{Filename: filename, ExpirationDays: days})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/update-validity", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(c.fetch, req)
	if err != nil {
		return nil, err
	}

	var out types.UpdateValidityResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode update response: %w", err)
	}

	return &out, nil
}

func (c *StoreClient) getJSON(ctx context.Context, hc *http.Client, path string, out any) error {
	raw, err := c.getRaw(ctx, hc, path)
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

func (c *StoreClient) getRaw(ctx context.Context, hc *http.Client, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	return c.do(hc, req)
}

// do executes the request inside the breaker. Transport errors and non-2xx
// statuses both count as failures.
func (c *StoreClient) do(hc *http.Client, req *http.Request) ([]byte, error) {
	raw, err := c.breaker.Execute(func() (any, error) {
		resp, err := hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
		}

		return body, nil
	})
	if err != nil {
		return nil, err
	}

	return raw.([]byte), nil
}
