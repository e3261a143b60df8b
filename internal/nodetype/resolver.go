package nodetype

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dstack-health-agent/internal/dstack"
	"dstack-health-agent/internal/model"
)

const (
	// Unknown is the degraded capability used when the backend never
	// answered or reported an unrecognized accelerator.
	Unknown = "Unknown"
	// CPU is the capability of a node with no accelerators.
	CPU = "CPU"

	DefaultAttempts   = 5
	DefaultRetryDelay = 2 * time.Second
)

// knownModels is matched against the first GPU's description, first match wins.
var knownModels = []string{"H200", "H100", "B200"}

// Resolver derives the node capability descriptor at startup by polling the
// backend inventory. Resolution failure is non-fatal; callers proceed with
// Unknown.
type Resolver struct {
	client     dstack.Client
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration)
}

func NewResolver(client dstack.Client, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:     client,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Resolve probes the backend up to the attempt budget with a fixed interval
// between attempts, stopping on the first successful probe.
func (r *Resolver) Resolve(ctx context.Context) string {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		inv, err := r.client.ProbeInventory(ctx)
		if err == nil {
			nodeType := FromInventory(inv)
			r.logger.Info("resolved node type from inventory", "node_type", nodeType, "gpu_count", len(inv.Gpus), "attempt", attempt)
			return nodeType
		}

		r.logger.Warn("inventory probe failed during node type resolution", "attempt", attempt, "max_attempts", r.attempts, "error", err)
		if attempt < r.attempts {
			r.sleep(ctx, r.retryDelay)
		}
	}

	r.logger.Warn("node type resolution exhausted, continuing with degraded self-description", "node_type", Unknown)
	return Unknown
}

// FromInventory derives the capability descriptor from a successful probe.
// Only the first GPU's description is inspected; the count covers every
// reported GPU.
func FromInventory(inv *model.InventoryResponse) string {
	if len(inv.Gpus) == 0 {
		return CPU
	}

	desc := inv.Gpus[0].Description
	for _, m := range knownModels {
		if strings.Contains(desc, m) {
			return fmt.Sprintf("node-%sx%d", m, len(inv.Gpus))
		}
	}
	return Unknown
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
