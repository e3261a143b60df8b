package whitelist

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type LookupResponse struct {
	IsWhitelisted bool   `json:"is_whitelisted"`
	Pubkey        string `json:"pubkey"`
}

type ListResponse struct {
	Pubkeys []string `json:"pubkeys"`
}

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", h.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/whitelist", h.handleLookup).Methods(http.MethodGet)
	r.HandleFunc("/api/list", h.handleList).Methods(http.MethodGet)
	return handlers.CORS()(r)
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("Whitelist Service - Centralized Pubkey Verification"))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	pubkey := r.URL.Query().Get("pubkey")
	if pubkey == "" {
		http.Error(w, "missing pubkey parameter", http.StatusBadRequest)
		return
	}

	isWhitelisted := h.store.Contains(pubkey)
	if isWhitelisted {
		h.logger.Info("pubkey is whitelisted", "pubkey", pubkey)
	} else {
		h.logger.Info("pubkey is not whitelisted", "pubkey", pubkey)
	}

	writeJSON(w, h.logger, LookupResponse{IsWhitelisted: isWhitelisted, Pubkey: pubkey})
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, ListResponse{Pubkeys: h.store.Pubkeys()})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
