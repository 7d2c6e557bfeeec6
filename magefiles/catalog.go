// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Catalog groups targets that drive the built CLI on the local queries.
type Catalog mg.Namespace

// Index rebuilds the full-text catalog over queries/.
func (Catalog) Index() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "--root", "queries", "catalog", "index")
}

// List prints the queries under queries/.
func (Catalog) List() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "--root", "queries", "query", "list")
}
