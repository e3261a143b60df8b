package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dstack-health-agent/internal/config"
	"dstack-health-agent/internal/dstack"
	"dstack-health-agent/internal/health"
	"dstack-health-agent/internal/identity"
	"dstack-health-agent/internal/registry"
	"dstack-health-agent/internal/system"
)

type Agent struct {
	cfg      config.Config
	logger   *slog.Logger
	identity identity.Identity
	client   dstack.Client
	registry *registry.Client
	reporter *health.Reporter
}

func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	id, err := identity.LoadOrCreate(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("node identity loaded", "pubkey", id.PublicKey)

	endpoint := dstack.ParseEndpoint(cfg.DStackURL)
	switch endpoint.Kind {
	case dstack.EndpointUnixSocket:
		logger.Info("using unix socket connection", "socket", endpoint.SocketPath)
	default:
		logger.Info("using http connection", "url", endpoint.BaseURL)
	}
	client := dstack.NewClient(endpoint, cfg.ProbeTimeout, logger)

	localIP, err := system.LocalIP()
	if err != nil {
		logger.Warn("local IP detection failed, reports will omit ip_address", "error", err)
		localIP = ""
	} else {
		logger.Info("detected local IP", "ip", localIP)
	}

	return &Agent{
		cfg:      cfg,
		logger:   logger,
		identity: id,
		client:   client,
		registry: registry.New(cfg.RegistryURL, logger),
		reporter: health.NewReporter(client, id.PublicKey, localIP, logger),
	}, nil
}

// Run drives the agent to a serving state and blocks until shutdown. A
// registration failure aborts the run; the caller must treat that error as
// fatal since the node is useless without registry authorization.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting dstack-health-agent", "listen_addr", a.cfg.ListenAddr, "dstack_target", a.client.Target(), "registry_url", a.cfg.RegistryURL)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Agent terminated by itself (startup error/runtime error/parent ctx canceled).
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
			// graceful stop completed in time
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("dstack-health-agent stopped")
	return nil
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}
