package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	ListenAddr string
	DStackURL  string
	DataDir    string

	RegistryURL  string
	OwnerAddress string
	// NodeType, when set, skips inventory-based resolution at startup.
	NodeType string

	ProbeTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogJSON  bool
	LogLevel string
}

func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      env("LISTEN_ADDR", "0.0.0.0:8080"),
		DStackURL:       env("DSTACK_URL", env("DSTACK_BACKEND_DSTACK_URL", "http://localhost:19060")),
		DataDir:         env("DATA_DIR", "./data"),
		RegistryURL:     env("REGISTRY_URL", ""),
		OwnerAddress:    env("OWNER_ADDRESS", ""),
		NodeType:        env("NODE_TYPE", ""),
		ProbeTimeout:    envDuration("PROBE_TIMEOUT", 5*time.Second),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 20*time.Second),
		LogJSON:         envBool("LOG_JSON", false),
		LogLevel:        strings.ToLower(env("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	// Normalize to the EIP-55 checksummed form so the registry always sees
	// one canonical spelling of the owner.
	cfg.OwnerAddress = common.HexToAddress(cfg.OwnerAddress).Hex()

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if c.DStackURL == "" {
		return errors.New("DSTACK_URL is required")
	}
	if c.RegistryURL == "" {
		return errors.New("REGISTRY_URL is required for worker registration")
	}
	if c.OwnerAddress == "" {
		return errors.New("OWNER_ADDRESS is required for worker registration")
	}
	if !common.IsHexAddress(c.OwnerAddress) {
		return fmt.Errorf("OWNER_ADDRESS %q is not a valid Ethereum address", c.OwnerAddress)
	}
	if c.ProbeTimeout <= 0 {
		return errors.New("PROBE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	return nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if secs, convErr := strconv.Atoi(v); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}
