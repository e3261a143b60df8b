package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"dstack-health-agent/internal/model"
)

const serverShutdownGrace = 5 * time.Second

func (a *Agent) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", a.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	return handlers.CORS()(r)
}

func (a *Agent) handleRoot(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("DStack Backend Health Monitor"))
}

// handleHealth performs one fresh backend probe per request. Clients always
// get a well-formed report, the HTTP status just mirrors the probe outcome.
func (a *Agent) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := a.reporter.Report(r.Context())

	code := http.StatusOK
	if report.Status == model.StatusUnavailable {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		a.logger.Error("health response encode failed", "error", err)
	}
}

func (a *Agent) runServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.cfg.ListenAddr,
		Handler: a.routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("backend listening", "addr", a.cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
