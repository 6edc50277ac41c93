// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// SectionClient provides access to section operations.
//
// Access this client through [Client.Sections]:
//
//	sections, err := client.Sections.List(ctx)
type SectionClient struct {
	c *Client
}

// Create creates a new section with the given name and working directory.
func (s *SectionClient) Create(ctx context.Context, name, path string) (*Section, error) {
	data, err := s.c.postJSON(ctx, "/api/v1/sections", map[string]string{
		"name": name,
		"path": path,
	})
	if err != nil {
		return nil, err
	}

	var sec Section
	if err := json.Unmarshal(data, &sec); err != nil {
		return nil, fmt.Errorf("failed to parse section: %w", err)
	}

	return &sec, nil
}

// List returns all sections known to the backend.
func (s *SectionClient) List(ctx context.Context) ([]Section, error) {
	data, err := s.c.get(ctx, "/api/v1/sections")
	if err != nil {
		return nil, err
	}

	var sections []Section
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse sections: %w", err)
	}

	return sections, nil
}

// Delete removes a section. The backend reassigns its sessions to the
// default section; deleting the default section is rejected.
func (s *SectionClient) Delete(ctx context.Context, id string) error {
	_, err := s.c.delete(ctx, "/api/v1/sections/"+id)
	return err
}

// Rename sets a section's name.
func (s *SectionClient) Rename(ctx context.Context, id, name string) error {
	_, err := s.c.postJSON(ctx, "/api/v1/sections/"+id+"/rename", map[string]string{"name": name})
	return err
}

// SetPath sets a section's working directory.
func (s *SectionClient) SetPath(ctx context.Context, id, path string) error {
	_, err := s.c.postJSON(ctx, "/api/v1/sections/"+id+"/path", map[string]string{"path": path})
	return err
}

// SetIcon sets a section's icon.
func (s *SectionClient) SetIcon(ctx context.Context, id string, icon IconRef) error {
	_, err := s.c.postJSON(ctx, "/api/v1/sections/"+id+"/icon", icon)
	return err
}
