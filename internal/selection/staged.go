// Package selection implements the staged element selection: a working draft
// that mutation commands change, and a committed copy that only Commit changes.
package selection

import (
	"slices"

	"attrfilter/domain"
)

// Staged is an invertible multi-element selection with working and committed stages.
// It is not safe for concurrent use; the orchestrator owns it.
type Staged struct {
	state  State
	hidden map[string]struct{}
}

// NewStaged creates a staged selection seeded with initial on both stages.
// Keys listed in hidden are never part of the selection.
func NewStaged(initial domain.Selection, hidden []string) *Staged {
	s := &Staged{hidden: make(map[string]struct{}, len(hidden))}
	for _, h := range hidden {
		s.hidden[h] = struct{}{}
	}
	seed := s.sanitize(initial)
	s.state = State{Working: seed, Committed: seed.Clone()}
	return s
}

// Change replaces the working selection wholesale
func (s *Staged) Change(sel domain.Selection) domain.Selection {
	s.state.Working = s.sanitize(sel)
	return s.Working()
}

// Invert flips the polarity of the working selection; items stay untouched
func (s *Staged) Invert() domain.Selection {
	s.state.Working.IsInverted = !s.state.Working.IsInverted
	return s.Working()
}

// Clear empties the working items and keeps the polarity
func (s *Staged) Clear() domain.Selection {
	s.state.Working.Items = []string{}
	return s.Working()
}

// Commit copies working to committed
func (s *Staged) Commit() domain.Selection {
	s.state.Committed = s.state.Working.Clone()
	return s.Committed()
}

// Revert copies committed to working, discarding the draft
func (s *Staged) Revert() domain.Selection {
	s.state.Working = s.state.Committed.Clone()
	return s.Working()
}

// Working returns a copy of the working selection
func (s *Staged) Working() domain.Selection {
	return s.state.Working.Clone()
}

// Committed returns a copy of the committed selection
func (s *Staged) Committed() domain.Selection {
	return s.state.Committed.Clone()
}

// IsWorkingChanged reports whether working and committed differ as sets
func (s *Staged) IsWorkingChanged() bool {
	w, c := s.state.Working, s.state.Committed
	if w.IsInverted != c.IsInverted || len(w.Items) != len(c.Items) {
		return true
	}
	for _, item := range w.Items {
		if !slices.Contains(c.Items, item) {
			return true
		}
	}
	return false
}

// IsWorkingEmpty reports whether the working selection selects nothing
func (s *Staged) IsWorkingEmpty() bool {
	return !s.state.Working.IsInverted && len(s.state.Working.Items) == 0
}

// sanitize copies sel, drops hidden keys and duplicates, keeping first-seen order
func (s *Staged) sanitize(sel domain.Selection) domain.Selection {
	out := domain.Selection{Items: make([]string, 0, len(sel.Items)), IsInverted: sel.IsInverted}
	seen := make(map[string]struct{}, len(sel.Items))
	for _, item := range sel.Items {
		if _, hidden := s.hidden[item]; hidden {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out.Items = append(out.Items, item)
	}
	return out
}
