package handler

import (
	"attrfilter/domain"
	"attrfilter/internal/selection"
)

// SingleSelect handles a filter selecting at most one element. "" stands for no selection.
type SingleSelect struct {
	loader
}

// NewSingleSelect creates a single select handler. A filter listing several
// elements is narrowed to its first one.
func NewSingleSelect(cfg Config) (*SingleSelect, error) {
	l, err := newLoader(cfg, selection.SanitizeSingle(cfg.Filter))
	if err != nil {
		return nil, err
	}
	return &SingleSelect{loader: l}, nil
}

// ChangeSelection selects key alone; "" clears the selection
func (h *SingleSelect) ChangeSelection(key string) error {
	return h.o.ChangeSelection(selection.SingleSelection(key))
}

// GetWorkingSelection fails with domain.ErrInvariantViolation if several elements are staged
func (h *SingleSelect) GetWorkingSelection() (string, error) {
	return selection.SingleKey(h.o.Store().WorkingSelection())
}

// GetCommittedSelection fails with domain.ErrInvariantViolation if several elements are committed
func (h *SingleSelect) GetCommittedSelection() (string, error) {
	return selection.SingleKey(h.o.Store().CommittedSelection())
}

// GetSelectedItem resolves the working selection; false when nothing is selected or loaded
func (h *SingleSelect) GetSelectedItem() (domain.AttributeElement, bool) {
	items := h.o.Store().SelectedItems().Elements
	if len(items) == 0 {
		return domain.AttributeElement{}, false
	}
	return items[0], true
}

func (h *SingleSelect) OnSelectionChanged(cb func(string)) func() {
	return subscribe(h.o, domain.EventSelectionChanged, func(e domain.SelectionChangedEvent) {
		key, _ := selection.SingleKey(e.Selection)
		cb(key)
	})
}

func (h *SingleSelect) OnSelectionCommitted(cb func(string)) func() {
	return subscribe(h.o, domain.EventSelectionCommitted, func(e domain.SelectionCommittedEvent) {
		key, _ := selection.SingleKey(e.Selection)
		cb(key)
	})
}
