package handler

import "attrfilter/domain"

// MultiSelect handles a filter selecting any number of elements, possibly inverted
type MultiSelect struct {
	loader
}

// NewMultiSelect creates a multi select handler
func NewMultiSelect(cfg Config) (*MultiSelect, error) {
	l, err := newLoader(cfg, cfg.Filter)
	if err != nil {
		return nil, err
	}
	return &MultiSelect{loader: l}, nil
}

// ChangeSelection replaces the working selection
func (h *MultiSelect) ChangeSelection(sel domain.Selection) error {
	return h.o.ChangeSelection(sel)
}

// InvertSelection flips the working selection between "only these" and "all but these"
func (h *MultiSelect) InvertSelection() error { return h.o.InvertSelection() }

// ClearSelection empties the working selection items, keeping its polarity
func (h *MultiSelect) ClearSelection() error { return h.o.ClearSelection() }

func (h *MultiSelect) GetWorkingSelection() domain.Selection {
	return h.o.Store().WorkingSelection()
}

func (h *MultiSelect) GetCommittedSelection() domain.Selection {
	return h.o.Store().CommittedSelection()
}

// GetSelectedItems resolves the working selection to loaded elements
func (h *MultiSelect) GetSelectedItems() domain.SelectedElements {
	return h.o.Store().SelectedItems()
}

func (h *MultiSelect) OnSelectionChanged(cb func(domain.Selection)) func() {
	return subscribe(h.o, domain.EventSelectionChanged, func(e domain.SelectionChangedEvent) {
		cb(e.Selection)
	})
}

func (h *MultiSelect) OnSelectionCommitted(cb func(domain.Selection)) func() {
	return subscribe(h.o, domain.EventSelectionCommitted, func(e domain.SelectionCommittedEvent) {
		cb(e.Selection)
	})
}
