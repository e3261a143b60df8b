package agent

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"dstack-health-agent/internal/model"
	"dstack-health-agent/internal/nodetype"
)

func (a *Agent) run(ctx context.Context) error {
	nodeType := a.cfg.NodeType
	if nodeType == "" {
		nodeType = nodetype.NewResolver(a.client, a.logger).Resolve(ctx)
	} else {
		a.logger.Info("using configured node type override", "node_type", nodeType)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	a.logger.Info("worker registration is required to communicate with the message network")
	reg := model.WorkerRegistration{
		Pubkey:   a.identity.PublicKey,
		Owner:    a.cfg.OwnerAddress,
		NodeType: nodeType,
	}
	if err := a.registry.EnsureRegistered(ctx, reg); err != nil {
		return fmt.Errorf("worker registration: %w", err)
	}
	a.logger.Info("worker registration completed, node is authorized")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runServer(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
