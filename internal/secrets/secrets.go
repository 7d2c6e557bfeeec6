// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider credentials from a directory of plain-text
// files. The file name is the key name and the trimmed file contents are
// the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/snowball/pkg/types"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Recognized key files.
const (
	SemanticScholarKey = "semantic-scholar-api-key"
	OpenAlexEmail      = "openalex-email"
	OpenAlexKey        = "openalex-api-key"
)

// Load reads all files in dir and returns a map of file name to trimmed
// contents. A missing directory yields an empty map. Unreadable files are
// logged and skipped.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply fills the credentials of cfg that configuration left empty.
func Apply(cfg *types.GraphConfig, secrets map[string]string) {
	key := SemanticScholarKey
	if cfg.Backend == types.BackendOpenAlex {
		key = OpenAlexKey
		if cfg.Email == "" {
			cfg.Email = secrets[OpenAlexEmail]
		}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = secrets[key]
	}
}
