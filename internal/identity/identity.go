package identity

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/nbd-wtf/go-nostr"
)

const keyFileName = "key"

// Identity is the node's persistent keypair. PublicKey is the stable
// identifier carried in every health report and registration.
type Identity struct {
	PrivateKey string
	PublicKey  string
}

// LoadOrCreate reads the hex-encoded secret key from dataDir, generating and
// persisting a fresh one on first run. The key file survives restarts so the
// node keeps a stable public identifier.
func LoadOrCreate(dataDir string, logger *slog.Logger) (Identity, error) {
	keyFile := filepath.Join(dataDir, keyFileName)

	content, err := os.ReadFile(keyFile)
	if err == nil {
		logger.Info("loading existing keypair", "path", keyFile)
		return fromSecretKey(strings.TrimSpace(string(content)))
	}
	if !os.IsNotExist(err) {
		return Identity{}, fmt.Errorf("read key file %s: %w", keyFile, err)
	}

	logger.Info("generating new keypair", "path", keyFile)
	sk := nostr.GeneratePrivateKey()
	id, err := fromSecretKey(sk)
	if err != nil {
		return Identity{}, err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Identity{}, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	if err := renameio.WriteFile(keyFile, []byte(sk), 0o600); err != nil {
		return Identity{}, fmt.Errorf("write key file %s: %w", keyFile, err)
	}

	logger.Info("saved new keypair", "path", keyFile, "pubkey", id.PublicKey)
	return id, nil
}

func fromSecretKey(sk string) (Identity, error) {
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return Identity{}, fmt.Errorf("derive public key: %w", err)
	}
	return Identity{PrivateKey: sk, PublicKey: pk}, nil
}
