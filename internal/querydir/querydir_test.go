// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package querydir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/pkg/types"
)

func TestIDsRoundTripIsCanonical(t *testing.T) {
	d := New(t.TempDir())

	require.NoError(t, os.WriteFile(d.File(Accepted), []byte("10.1/b\n 10.1/A \n\n10.1/a\n"), 0o644))

	first, err := d.ReadIDs(Accepted)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1/A", "10.1/B"}, first.Sorted())

	require.NoError(t, d.WriteIDs(Accepted, first))
	second, err := d.ReadIDs(Accepted)
	require.NoError(t, err)
	require.NoError(t, d.WriteIDs(Accepted, second))

	data, err := os.ReadFile(d.File(Accepted))
	require.NoError(t, err)
	assert.Equal(t, "10.1/A\n10.1/B\n", string(data))
}

func TestReadIDs_Missing(t *testing.T) {
	ids, err := New(t.TempDir()).ReadIDs(Rejected)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAppendIDs(t *testing.T) {
	d := New(t.TempDir())
	require.NoError(t, d.AppendIDs(Rejected, ident.NewSet("10.1/c")))
	require.NoError(t, d.AppendIDs(Rejected, ident.NewSet("10.1/d")))
	require.NoError(t, d.AppendIDs(Rejected, ident.Set{}))

	ids, err := d.ReadIDs(Rejected)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1/C", "10.1/D"}, ids.Sorted())
}

func TestPapersAndSettings(t *testing.T) {
	d := New(t.TempDir())

	papers, err := d.ReadPapers(Archived)
	require.NoError(t, err)
	assert.Nil(t, papers)

	in := []types.Paper{{ID: 0, PaperID: "10.1/B", Tag: types.TagAccepted, Details: types.PaperDetails{Title: "B"}}}
	require.NoError(t, d.WritePapers(Filtered, in))
	out, err := d.ReadPapers(Filtered)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, ok, err := d.ReadSettings()
	require.NoError(t, err)
	assert.False(t, ok)

	s := types.QuerySetting{Type: types.Snowballing, MandatoryKeyWords: []string{"alpha"}}
	require.NoError(t, d.WriteSettings(s))
	got, ok, err := d.ReadSettings()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, s.MandatoryKeyWords, got.MandatoryKeyWords)
	assert.Equal(t, types.Snowballing, got.Type)
}

func TestNoNewAcceptedTouchesAccepted(t *testing.T) {
	d := New(t.TempDir())
	require.NoError(t, d.WriteIDs(Accepted, ident.NewSet("10.1/a")))
	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(d.File(Accepted), old, old))

	assert.False(t, d.ReadNoNewAccepted())
	require.NoError(t, d.WriteNoNewAccepted(true))
	assert.True(t, d.ReadNoNewAccepted())
	assert.True(t, d.ModTime(Accepted).After(old.Add(time.Hour)))
}

func TestWriteFileLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	d := New(dir)
	require.NoError(t, d.WriteFile(Expanded, []byte("X\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Expanded, entries[0].Name())

	require.NoError(t, d.Delete(Expanded))
	require.NoError(t, d.Delete(Expanded))
	_, err = os.Stat(filepath.Join(dir, Expanded))
	assert.True(t, os.IsNotExist(err))
}
