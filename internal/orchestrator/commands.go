package orchestrator

import (
	"slices"

	"attrfilter/domain"
	"attrfilter/internal/effect"
	"attrfilter/internal/selection"
	"attrfilter/internal/state"
)

// Settings

// SetSearch changes the search string of subsequent loads
func (o *Orchestrator) SetSearch(search string) error {
	return o.changeSettings(func(st *state.Settings) {
		st.Search = search
	})
}

// SetLimit changes the page size of subsequent loads
func (o *Orchestrator) SetLimit(limit int) error {
	if limit <= 0 {
		return domain.Invariant("limit must be positive, got %d", limit)
	}
	return o.changeSettings(func(st *state.Settings) {
		st.Limit = limit
	})
}

// SetOrder changes the title order of subsequent loads
func (o *Orchestrator) SetOrder(order domain.SortDirection) error {
	if !order.Valid() {
		return domain.Invariant("unknown sort direction %q", order)
	}
	return o.changeSettings(func(st *state.Settings) {
		st.Order = order
	})
}

func (o *Orchestrator) SetLimitingMeasures(measures []domain.Measure) error {
	return o.changeSettings(func(st *state.Settings) {
		st.Limiting.Measures = slices.Clone(measures)
	})
}

// SetLimitingAttributeFilters changes the limiting attribute filters of subsequent
// loads and resolves the attributes they filter on
func (o *Orchestrator) SetLimitingAttributeFilters(filters []domain.LimitingAttributeFilter) error {
	filters = slices.Clone(filters)
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()

	o.applySettings(func(st *state.Settings) {
		st.Limiting.AttributeFilters = filters
	})
	o.startLimitingAttributesLoad(filters)
	return nil
}

func (o *Orchestrator) SetLimitingDateFilters(filters []domain.RelativeDateFilter) error {
	return o.changeSettings(func(st *state.Settings) {
		st.Limiting.DateFilters = slices.Clone(filters)
	})
}

func (o *Orchestrator) changeSettings(fn func(*state.Settings)) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()
	o.applySettings(fn)
	return nil
}

// applySettings cancels page loads made obsolete by the change, then applies it.
// Cached elements stay; the current page set starts over. Must hold o.mu.
func (o *Orchestrator) applySettings(fn func(*state.Settings)) {
	o.cancel(effect.OfKind(kindInitialPage, kindNextPage))
	o.store.ChangeSettings(fn)
	o.bus.Publish(domain.UpdatedEvent{})
}

// Selection

// ChangeSelection replaces the working selection
func (o *Orchestrator) ChangeSelection(sel domain.Selection) error {
	return o.updateSelection(func(s *selection.Staged) domain.Selection {
		return s.Change(sel)
	})
}

// InvertSelection flips the polarity of the working selection
func (o *Orchestrator) InvertSelection() error {
	return o.updateSelection((*selection.Staged).Invert)
}

// ClearSelection empties the working selection
func (o *Orchestrator) ClearSelection() error {
	return o.updateSelection((*selection.Staged).Clear)
}

// RevertSelection drops uncommitted changes
func (o *Orchestrator) RevertSelection() error {
	return o.updateSelection((*selection.Staged).Revert)
}

// CommitSelection makes the working selection the committed one
func (o *Orchestrator) CommitSelection() error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()

	committed := o.store.UpdateSelection((*selection.Staged).Commit)
	o.emit(domain.SelectionCommittedEvent{Selection: committed})
	return nil
}

func (o *Orchestrator) updateSelection(fn func(*selection.Staged) domain.Selection) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()

	working := o.store.UpdateSelection(fn)
	o.emit(domain.SelectionChangedEvent{Selection: working})
	return nil
}
