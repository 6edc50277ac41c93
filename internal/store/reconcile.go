// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/mkrall/deckhand/pkg/client"
)

// localDefaultID is the id given to a default section the store has to
// invent when neither the hints file nor the backend provides one.
const localDefaultID = "default"

// Load performs the two-phase startup load: hydrate the locally persisted
// section list, then reconcile against the backend's authoritative session
// and section lists. Hint problems are logged and skipped; backend list
// failures abort the load.
func (s *Store) Load(ctx context.Context) error {
	var hints []SectionHint
	if s.persist != nil {
		var err error
		hints, err = s.persist.Load()
		if err != nil {
			log.Printf("Warning: loading section hints failed: %v", err)
			hints = nil
		}
	}

	secs, err := s.backend.ListSections(ctx)
	if err != nil {
		return fmt.Errorf("listing sections: %w", err)
	}
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	s.mu.Lock()
	s.reconcileSectionsLocked(hints, secs)
	s.reconcileSessionsLocked(sessions)
	s.saveHintsLocked()
	s.mu.Unlock()
	return nil
}

// reconcileSectionsLocked merges backend sections with local hints. The
// backend owns identity and names; hints contribute ordering, collapse
// state, and the default flag when the backend does not supply one. Records
// are de-duplicated by id, so a locally-invented default that the backend
// later reports merges rather than doubling up.
func (s *Store) reconcileSectionsLocked(hints []SectionHint, backendSecs []client.Section) {
	hintByID := make(map[string]SectionHint, len(hints))
	for _, h := range hints {
		hintByID[h.ID] = h
	}

	backendHasDefault := false
	for _, sec := range backendSecs {
		if sec.IsDefault {
			backendHasDefault = true
			break
		}
	}

	merged := make([]*client.Section, 0, len(backendSecs)+1)
	seen := make(map[string]bool, len(backendSecs))
	for i := range backendSecs {
		sec := backendSecs[i]
		if seen[sec.ID] {
			continue
		}
		seen[sec.ID] = true
		if h, ok := hintByID[sec.ID]; ok {
			sec.Order = h.Order
			sec.Collapsed = h.Collapsed
			// A hinted default only counts when the backend names none,
			// otherwise a stale hint would leave two defaults standing.
			if h.IsDefault && !backendHasDefault {
				sec.IsDefault = true
			}
		}
		merged = append(merged, &sec)
	}

	hasDefault := false
	for _, sec := range merged {
		if sec.IsDefault {
			if hasDefault {
				sec.IsDefault = false
				continue
			}
			hasDefault = true
		}
	}
	if !hasDefault {
		// Revive a hinted default the backend no longer lists, or invent
		// one. Either way every session has a home.
		for _, h := range hints {
			if h.IsDefault && !seen[h.ID] {
				merged = append(merged, &client.Section{
					ID:        h.ID,
					Name:      h.Name,
					Path:      h.Path,
					Order:     h.Order,
					Collapsed: false,
					IsDefault: true,
				})
				seen[h.ID] = true
				hasDefault = true
				break
			}
		}
	}
	if !hasDefault {
		if len(merged) > 0 {
			merged[0].IsDefault = true
		} else {
			merged = append(merged, &client.Section{
				ID:        localDefaultID,
				Name:      "Terminals",
				IsDefault: true,
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Order < merged[j].Order
	})
	s.sections = merged
	s.renumberSectionsLocked()

	s.order = make(map[string][]string, len(merged))
	for _, sec := range merged {
		s.order[sec.ID] = nil
	}
}

// reconcileSessionsLocked admits the backend's session list, routing
// orphans to the default section and rebuilding per-section order from
// TabOrder.
func (s *Store) reconcileSessionsLocked(list []client.Session) {
	def := s.defaultSectionLocked()
	s.sessions = make(map[string]*client.Session, len(list))

	for i := range list {
		sess := list[i]
		if _, dup := s.sessions[sess.ID]; dup {
			continue
		}
		if s.sectionByIDLocked(sess.SectionID) == nil {
			sess.SectionID = def.ID
		}
		s.sessions[sess.ID] = &sess
		s.order[sess.SectionID] = append(s.order[sess.SectionID], sess.ID)
	}

	for _, sec := range s.sections {
		ids := s.order[sec.ID]
		sort.SliceStable(ids, func(i, j int) bool {
			return s.sessions[ids[i]].TabOrder < s.sessions[ids[j]].TabOrder
		})
		s.order[sec.ID] = ids
		s.renumberLocked(sec.ID)
	}
}

// saveHintsLocked snapshots the section list to the hints file. Failures
// are logged; local persistence is best-effort.
func (s *Store) saveHintsLocked() {
	if s.persist == nil {
		return
	}
	hints := make([]SectionHint, 0, len(s.sections))
	for _, sec := range s.sections {
		hints = append(hints, SectionHint{
			ID:        sec.ID,
			Name:      sec.Name,
			Path:      sec.Path,
			Order:     sec.Order,
			Collapsed: sec.Collapsed,
			IsDefault: sec.IsDefault,
		})
	}
	if err := s.persist.Save(hints); err != nil {
		log.Printf("Warning: saving section hints failed: %v", err)
	}
}
