package whitelist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"
)

type fileFormat struct {
	Pubkeys []string `json:"pubkeys"`
}

// Store holds the authorized pubkey set. It is loaded once at startup and
// read-only afterwards.
type Store struct {
	pubkeys map[string]struct{}
}

// Load reads the whitelist file, creating an empty one when it does not
// exist yet so operators have a file to edit.
func Load(path string, logger *slog.Logger) (*Store, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("whitelist file not found, creating empty whitelist", "path", path)
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create whitelist dir %s: %w", dir, err)
			}
		}
		empty, _ := json.MarshalIndent(fileFormat{Pubkeys: []string{}}, "", "  ")
		if err := renameio.WriteFile(path, empty, 0o644); err != nil {
			return nil, fmt.Errorf("write empty whitelist %s: %w", path, err)
		}
		return &Store{pubkeys: map[string]struct{}{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read whitelist %s: %w", path, err)
	}

	var ff fileFormat
	if err := json.Unmarshal(content, &ff); err != nil {
		return nil, fmt.Errorf("parse whitelist %s: %w", path, err)
	}

	s := &Store{pubkeys: make(map[string]struct{}, len(ff.Pubkeys))}
	for _, pk := range ff.Pubkeys {
		s.pubkeys[pk] = struct{}{}
	}
	logger.Info("whitelist loaded", "path", path, "pubkeys", len(s.pubkeys))
	return s, nil
}

func (s *Store) Contains(pubkey string) bool {
	_, ok := s.pubkeys[pubkey]
	return ok
}

func (s *Store) Len() int {
	return len(s.pubkeys)
}

// Pubkeys returns the whitelisted keys in a stable order.
func (s *Store) Pubkeys() []string {
	out := make([]string, 0, len(s.pubkeys))
	for pk := range s.pubkeys {
		out = append(out, pk)
	}
	sort.Strings(out)
	return out
}
