// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SectionHint is the locally persisted slice of a section: the fields the
// front end owns (ordering, collapse state) plus enough identity to match
// records against the backend on the next load.
type SectionHint struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Order     int    `json:"order"`
	Collapsed bool   `json:"collapsed,omitempty"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// SectionStore persists section hints to a JSON file.
type SectionStore struct {
	path string
}

// NewSectionStore creates a SectionStore backed by the given file path.
func NewSectionStore(path string) *SectionStore {
	return &SectionStore{path: path}
}

// Load reads the persisted hints. A missing file is not an error; it returns
// an empty list.
func (ss *SectionStore) Load() ([]SectionHint, error) {
	data, err := os.ReadFile(ss.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading section hints: %w", err)
	}

	var hints []SectionHint
	if err := json.Unmarshal(data, &hints); err != nil {
		return nil, fmt.Errorf("parsing section hints: %w", err)
	}
	return hints, nil
}

// Save writes the hints atomically: temp file in the same directory, then
// rename over the destination.
func (ss *SectionStore) Save(hints []SectionHint) error {
	data, err := json.MarshalIndent(hints, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling section hints: %w", err)
	}

	dir := filepath.Dir(ss.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sections-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing section hints: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, ss.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing section hints: %w", err)
	}
	return nil
}
