package dstack

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"dstack-health-agent/internal/model"
)

// socketHost is the virtual host presented on requests issued over the
// socket; the backend ignores it but HTTP requires one.
const socketHost = "127.0.0.1"

type socketClient struct {
	path   string
	http   *http.Client
	logger *slog.Logger
}

func newSocketClient(path string, timeout time.Duration, logger *slog.Logger) *socketClient {
	unixDial := func(ctx context.Context, network string, addr string) (net.Conn, error) {
		raddr, err := net.ResolveUnixAddr("unix", path)
		if err != nil {
			return nil, err
		}

		var d net.Dialer
		return d.DialContext(ctx, "unix", raddr.String())
	}

	transport := &http.Transport{
		DialContext:       unixDial,
		DisableKeepAlives: true,
	}

	return &socketClient{
		path:   path,
		http:   &http.Client{Transport: transport, Timeout: timeout},
		logger: logger,
	}
}

func (c *socketClient) Target() string { return unixPrefix + c.path }

func (c *socketClient) ProbeInventory(ctx context.Context) (*model.InventoryResponse, error) {
	c.logger.Debug("probing dstack backend over unix socket", "socket", c.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+socketHost+listGpusPath, nil)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req.Host = socketHost

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeInventory(resp)
}
