package health

import (
	"context"
	"encoding/json"
	"log/slog"

	"dstack-health-agent/internal/dstack"
	"dstack-health-agent/internal/model"
)

// Reporter turns a single backend probe into a health report. Every call
// performs one fresh probe; nothing is cached between calls.
type Reporter struct {
	client    dstack.Client
	pubkey    string
	ipAddress string
	logger    *slog.Logger
}

func NewReporter(client dstack.Client, pubkey, ipAddress string, logger *slog.Logger) *Reporter {
	return &Reporter{
		client:    client,
		pubkey:    pubkey,
		ipAddress: ipAddress,
		logger:    logger,
	}
}

// Report probes the backend and packages the outcome. A transport failure
// degrades the status to unavailable with the failure message as metadata;
// it never propagates as an error.
func (r *Reporter) Report(ctx context.Context) model.HealthReport {
	inv, err := r.client.ProbeInventory(ctx)
	if err != nil {
		r.logger.Error("dstack backend unreachable", "target", r.client.Target(), "error", err)
		msg := err.Error()
		return r.envelope(model.StatusUnavailable, &msg)
	}

	r.logger.Info("dstack backend available", "gpu_count", len(inv.Gpus))

	meta, err := json.Marshal(model.InventoryMetadata{
		GpuCount:       len(inv.Gpus),
		Gpus:           inv.Gpus,
		AllowAttachAll: inv.AllowAttachAll,
	})
	if err != nil {
		// Inventory types always marshal; treat this like any other
		// backend failure rather than crashing the request.
		r.logger.Error("inventory metadata marshal failed", "error", err)
		msg := "Parse error: " + err.Error()
		return r.envelope(model.StatusUnavailable, &msg)
	}

	metaStr := string(meta)
	return r.envelope(model.StatusAvailable, &metaStr)
}

func (r *Reporter) envelope(status model.Status, metadata *string) model.HealthReport {
	var ip *string
	if r.ipAddress != "" {
		addr := r.ipAddress
		ip = &addr
	}

	return model.HealthReport{
		Version:   model.ReportVersion,
		Topic:     model.ReportTopic,
		Pubkeys:   []string{r.pubkey},
		Status:    status,
		Metadata:  metadata,
		IPAddress: ip,
	}
}
