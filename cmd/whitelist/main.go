package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"dstack-health-agent/internal/whitelist"
)

func main() {
	listenAddr := env("LISTEN_ADDR", "0.0.0.0:8082")
	whitelistFile := env("WHITELIST_FILE", "./whitelist.json")

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("starting whitelist service", "listen_addr", listenAddr, "whitelist_file", whitelistFile)

	store, err := whitelist.Load(whitelistFile, logger)
	if err != nil {
		logger.Error("whitelist load failed", "error", err)
		os.Exit(1)
	}

	handler := whitelist.NewHandler(store, logger)
	logger.Info("whitelist service listening", "addr", listenAddr, "pubkeys", store.Len())
	if err := http.ListenAndServe(listenAddr, handler.Routes()); err != nil {
		log.Fatalf("whitelist service: %v", err)
	}
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
