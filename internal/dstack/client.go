package dstack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"dstack-health-agent/internal/model"
)

const listGpusPath = "/prpc/ListGpus?json"

// Client issues inventory probes against the dstack backend. Implementations
// are safe for concurrent use and perform no retries; retry policy belongs to
// the caller.
type Client interface {
	ProbeInventory(ctx context.Context) (*model.InventoryResponse, error)
	Target() string
}

// NewClient builds the transport matching the endpoint kind. The returned
// client is constructed once and shared across all probes.
func NewClient(ep Endpoint, timeout time.Duration, logger *slog.Logger) Client {
	if ep.Kind == EndpointUnixSocket {
		return newSocketClient(ep.SocketPath, timeout, logger)
	}
	return &httpClient{
		baseURL: ep.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func (c *httpClient) Target() string { return c.baseURL }

func (c *httpClient) ProbeInventory(ctx context.Context) (*model.InventoryResponse, error) {
	url := c.baseURL + listGpusPath
	c.logger.Debug("probing dstack backend over http", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &RequestError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeInventory(resp)
}

func decodeInventory(resp *http.Response) (*model.InventoryResponse, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	var inv model.InventoryResponse
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &inv, nil
}
