// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/snowball/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, SemanticScholarKey, "  sk_xyz789  \n")
				writeFile(t, dir, OpenAlexEmail, "user@example.com\n")
				return dir
			},
			want: map[string]string{
				SemanticScholarKey: "sk_xyz789",
				OpenAlexEmail:      "user@example.com",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, SemanticScholarKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{SemanticScholarKey: "valid-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, OpenAlexKey, "oa_real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{OpenAlexKey: "oa_real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"good-key": "value123"}, got)
}

func TestApply(t *testing.T) {
	loaded := map[string]string{
		SemanticScholarKey: "s2",
		OpenAlexEmail:      "me@example.com",
		OpenAlexKey:        "oa",
	}
	tests := []struct {
		name string
		cfg  types.GraphConfig
		want types.GraphConfig
	}{
		{
			name: "semantic scholar key",
			cfg:  types.GraphConfig{Backend: types.BackendSemanticScholar},
			want: types.GraphConfig{Backend: types.BackendSemanticScholar, APIKey: "s2"},
		},
		{
			name: "configured key wins",
			cfg:  types.GraphConfig{APIKey: "from-config"},
			want: types.GraphConfig{APIKey: "from-config"},
		},
		{
			name: "openalex email and key",
			cfg:  types.GraphConfig{Backend: types.BackendOpenAlex},
			want: types.GraphConfig{Backend: types.BackendOpenAlex, APIKey: "oa", Email: "me@example.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			Apply(&cfg, loaded)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
