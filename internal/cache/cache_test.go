// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/snowball/internal/ident"
)

func TestGet_NoFile(t *testing.T) {
	c := New(t.TempDir(), 0)

	missing, related, err := c.Get(ident.NewSet("10.1/a", "10.1/b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1/A", "10.1/B"}, missing.Sorted())
	assert.Empty(t, related)
}

func TestAddThenGet(t *testing.T) {
	c := New(t.TempDir(), time.Hour)

	require.NoError(t, c.Add("10.1/a", []string{"10.1/b", "10.1/C"}))
	require.NoError(t, c.Add("10.1/x", []string{"10.1/y"}))

	missing, related, err := c.Get(ident.NewSet("10.1/A", "10.1/D"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1/D"}, missing.Sorted())
	assert.Equal(t, []string{"10.1/B", "10.1/C"}, related.Sorted())
}

func TestAdd_LineFormat(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, time.Hour)
	require.NoError(t, c.Add(" 10.1/a ", []string{"10.1/c", "10.1/b"}))
	require.NoError(t, c.Add("10.1/e", nil))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, "[\"10.1/A\",[\"10.1/B\",\"10.1/C\"]]\n[\"10.1/E\",[]]\n", string(data))
}

func TestGet_StaleFileDeleted(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, 24*time.Hour)
	require.NoError(t, c.Add("10.1/a", []string{"10.1/b"}))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(c.Path(), old, old))

	missing, related, err := c.Get(ident.NewSet("10.1/a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1/A"}, missing.Sorted())
	assert.Empty(t, related)

	_, err = os.Stat(c.Path())
	assert.True(t, os.IsNotExist(err), "stale cache file should be removed")
}

func TestGet_CorruptLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("not json\n"), 0o644))

	_, _, err := New(dir, time.Hour).Get(ident.NewSet("10.1/a"))
	assert.Error(t, err)
}
