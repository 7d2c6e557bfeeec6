// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists citation and reference lookups per query so that
// an expansion only asks the graph provider about identifiers it has not
// resolved recently.
//
// The cache file holds one JSON record per line, ["ID",["REL1","REL2"]],
// and is only ever appended to. Freshness is judged for the whole file by
// its modification time.
package cache

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/internal/metrics"
)

// FileName is the cache file inside a query directory.
const FileName = "expanded.cached.txt"

// DefaultMaxAge is used when no max age is configured.
const DefaultMaxAge = 31 * 24 * time.Hour

// Expansion is the cache of one query directory.
type Expansion struct {
	path   string
	maxAge time.Duration
	now    func() time.Time
}

// New returns the cache stored in dir.
func New(dir string, maxAge time.Duration) *Expansion {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Expansion{
		path:   filepath.Join(dir, FileName),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Path returns the cache file location.
func (c *Expansion) Path() string { return c.path }

// Get splits ids into those without a cached record (missing) and the
// union of related identifiers recorded for the others. A stale cache file
// is deleted first, which makes every id missing.
func (c *Expansion) Get(ids ident.Set) (missing, related ident.Set, err error) {
	missing = ids.Clone()
	related = ident.Set{}

	info, err := os.Stat(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		metrics.CacheLookups.WithLabelValues("miss").Add(float64(len(ids)))
		return missing, related, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("stat cache: %w", err)
	}

	if c.now().Sub(info.ModTime()) > c.maxAge {
		if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("removing stale cache: %w", err)
		}
		metrics.CacheLookups.WithLabelValues("stale").Add(float64(len(ids)))
		return missing, related, nil
	}

	records, err := c.read()
	if err != nil {
		return nil, nil, err
	}
	for id, rel := range records {
		if !ids.Has(id) {
			continue
		}
		missing.Remove(id)
		related.AddAll(rel)
	}

	metrics.CacheLookups.WithLabelValues("hit").Add(float64(len(ids) - len(missing)))
	metrics.CacheLookups.WithLabelValues("miss").Add(float64(len(missing)))
	return missing, related, nil
}

func (c *Expansion) read() (map[string]ident.Set, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	defer f.Close()

	records := make(map[string]ident.Set)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		id, rel, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("cache line %d: %w", line, err)
		}
		set, ok := records[id]
		if !ok {
			set = ident.Set{}
			records[id] = set
		}
		set.AddAll(ident.NewSet(rel...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	return records, nil
}

func decodeRecord(raw []byte) (string, []string, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return "", nil, err
	}
	if len(pair) != 2 {
		return "", nil, fmt.Errorf("expected 2 elements, got %d", len(pair))
	}
	var id string
	if err := json.Unmarshal(pair[0], &id); err != nil {
		return "", nil, err
	}
	var rel []string
	if err := json.Unmarshal(pair[1], &rel); err != nil {
		return "", nil, err
	}
	return ident.Canonical(id), rel, nil
}

// Add appends one record for id.
func (c *Expansion) Add(id string, related []string) error {
	rel := ident.NewSet(related...).Sorted()
	line, err := json.Marshal([]interface{}{ident.Canonical(id), rel})
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("appending to cache: %w", err)
	}
	return f.Close()
}
