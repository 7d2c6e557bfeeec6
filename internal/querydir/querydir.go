// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package querydir reads and writes the files of one query directory.
// Identifier files hold one upper-case identifier per line; paper files
// hold a JSON array of papers. Whole-file writes go through a temporary
// file and a rename so a failed write leaves the previous content intact.
package querydir

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/pkg/types"
)

// File names inside a query directory.
const (
	Accepted      = "accepted.txt"
	Rejected      = "rejected.txt"
	Expanded      = "expanded.txt"
	Filtered      = "filtered.txt"
	Archived      = "archived.txt"
	Settings      = "settings.json"
	NoNewAccepted = "no-new-accepted.txt"
	ExportRIS     = "exported.ris"
	ExportCSL     = "exported.yaml"
)

// Dir is one query directory.
type Dir struct {
	Path string
}

// New returns the directory at path.
func New(path string) Dir { return Dir{Path: path} }

// File returns the path of name inside the directory.
func (d Dir) File(name string) string {
	return filepath.Join(d.Path, name)
}

// Create makes the directory; it fails if it already exists.
func (d Dir) Create() error {
	if err := os.Mkdir(d.Path, 0o755); err != nil {
		return fmt.Errorf("creating query directory: %w", err)
	}
	return nil
}

// Exists reports whether name is present.
func (d Dir) Exists(name string) bool {
	_, err := os.Stat(d.File(name))
	return err == nil
}

// ModTime returns the modification time of name, or the zero time.
func (d Dir) ModTime(name string) time.Time {
	info, err := os.Stat(d.File(name))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Touch sets the modification time of name to now, creating it if needed.
func (d Dir) Touch(name string) error {
	now := time.Now()
	err := os.Chtimes(d.File(name), now, now)
	if errors.Is(err, fs.ErrNotExist) {
		return d.WriteFile(name, nil)
	}
	return err
}

// Delete removes name; a missing file is not an error.
func (d Dir) Delete(name string) error {
	if err := os.Remove(d.File(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// RemoveAll deletes the directory and everything in it.
func (d Dir) RemoveAll() error {
	return os.RemoveAll(d.Path)
}

// WriteFile atomically replaces name with data.
func (d Dir) WriteFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(d.Path, "."+name+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), d.File(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// ReadIDs reads an identifier file. A missing file yields an empty set.
func (d Dir) ReadIDs(name string) (ident.Set, error) {
	f, err := os.Open(d.File(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ident.Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	defer f.Close()

	set := ident.Set{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		set.Add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return set, nil
}

func formatIDs(ids ident.Set) []byte {
	var b bytes.Buffer
	for _, id := range ids.Sorted() {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// WriteIDs replaces an identifier file with ids, sorted.
func (d Dir) WriteIDs(name string, ids ident.Set) error {
	return d.WriteFile(name, formatIDs(ids))
}

// AppendIDs appends ids to an identifier file.
func (d Dir) AppendIDs(name string, ids ident.Set) error {
	if len(ids) == 0 {
		return nil
	}
	f, err := os.OpenFile(d.File(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", name, err)
	}
	if _, err := f.Write(formatIDs(ids)); err != nil {
		f.Close()
		return fmt.Errorf("appending to %s: %w", name, err)
	}
	return f.Close()
}

// ReadPapers reads a JSON paper file. A missing file yields nil.
func (d Dir) ReadPapers(name string) ([]types.Paper, error) {
	data, err := os.ReadFile(d.File(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var papers []types.Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return papers, nil
}

// WritePapers replaces a JSON paper file.
func (d Dir) WritePapers(name string, papers []types.Paper) error {
	if papers == nil {
		papers = []types.Paper{}
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return d.WriteFile(name, append(data, '\n'))
}

// ReadSettings reads settings.json. ok is false when the file is absent.
func (d Dir) ReadSettings() (setting types.QuerySetting, ok bool, err error) {
	data, err := os.ReadFile(d.File(Settings))
	if errors.Is(err, fs.ErrNotExist) {
		return setting, false, nil
	}
	if err != nil {
		return setting, false, fmt.Errorf("reading %s: %w", Settings, err)
	}
	if err := json.Unmarshal(data, &setting); err != nil {
		return setting, false, fmt.Errorf("parsing %s: %w", Settings, err)
	}
	return setting, true, nil
}

// WriteSettings replaces settings.json.
func (d Dir) WriteSettings(setting types.QuerySetting) error {
	data, err := json.MarshalIndent(setting, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", Settings, err)
	}
	return d.WriteFile(Settings, append(data, '\n'))
}

// ReadNoNewAccepted reads the no-new-accepted flag; absent means false.
func (d Dir) ReadNoNewAccepted() bool {
	data, err := os.ReadFile(d.File(NoNewAccepted))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "true"
}

// WriteNoNewAccepted stores the flag and marks accepted.txt as processed
// now by updating its modification time.
func (d Dir) WriteNoNewAccepted(v bool) error {
	if err := d.WriteFile(NoNewAccepted, []byte(fmt.Sprintf("%t", v))); err != nil {
		return err
	}
	return d.Touch(Accepted)
}
