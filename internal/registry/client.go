package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dstack-health-agent/internal/model"
)

const requestTimeout = 10 * time.Second

// Client talks to the fleet registry. Registration is idempotent: a node
// already holding AllowAll write permission is never re-registered.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// EnsureRegistered checks the registry for an existing registration and
// registers the worker when none can be positively confirmed. A failed check
// is fail-open: registration is still attempted. A failed registration is
// the caller's fatal condition.
func (c *Client) EnsureRegistered(ctx context.Context, reg model.WorkerRegistration) error {
	registered, err := c.CheckRegistered(ctx, reg.Pubkey)
	if err != nil {
		c.logger.Error("registration check failed, attempting registration anyway", "error", err)
	} else if registered {
		c.logger.Info("worker already registered, skipping registration", "pubkey", reg.Pubkey)
		return nil
	} else {
		c.logger.Info("worker not registered, proceeding with registration", "pubkey", reg.Pubkey)
	}

	return c.Register(ctx, reg)
}

// CheckRegistered reports whether the registry already grants the pubkey
// AllowAll write permission. A non-2xx response or an unparseable body means
// "not registered"; only a network-level failure is returned as an error.
func (c *Client) CheckRegistered(ctx context.Context, pubkey string) (bool, error) {
	url := c.baseURL + "/permissions/" + pubkey
	c.logger.Info("checking worker registration status", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build permission request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("permission request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Info("worker not registered", "status", resp.StatusCode)
		return false, nil
	}

	var perm model.PermissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&perm); err != nil {
		// Assume not registered rather than failing the workflow.
		c.logger.Error("permission response did not parse, assuming not registered", "error", err)
		return false, nil
	}

	registered := perm.Write.Mode == model.PermissionModeAllowAll
	c.logger.Info("worker registration status", "registered", registered, "mode", perm.Write.Mode)
	return registered, nil
}

// Register POSTs the worker record. Any non-2xx response is returned as an
// error carrying the registry's status and body verbatim.
func (c *Client) Register(ctx context.Context, reg model.WorkerRegistration) error {
	url := c.baseURL + "/workers"
	c.logger.Info("registering worker", "url", url, "pubkey", reg.Pubkey, "owner", reg.Owner, "node_type", reg.NodeType)

	body, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registration request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			errBody = []byte("Unknown error")
		}
		c.logger.Error("worker registration rejected", "status", resp.StatusCode, "body", string(errBody))
		return fmt.Errorf("registration failed: %d - %s", resp.StatusCode, string(errBody))
	}

	c.logger.Info("worker registered successfully", "pubkey", reg.Pubkey)
	return nil
}
