package effect

import (
	"cmp"
	"context"
	"slices"

	"attrfilter/domain"
)

// Kind names a family of operations (attribute load, initial page, range load, ...)
type Kind string

// Op is one in-flight operation
type Op struct {
	ID          uint64
	Kind        Kind
	Correlation domain.Correlation

	cancel context.CancelFunc
}

// Tracker records in-flight operations.
// It is not safe for concurrent use; the owner serializes access.
type Tracker struct {
	nextID uint64
	ops    map[uint64]*Op
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{ops: make(map[uint64]*Op)}
}

// Start registers a new operation and returns the context it must run under
func (t *Tracker) Start(parent context.Context, kind Kind, correlation domain.Correlation) (context.Context, Op) {
	ctx, cancel := context.WithCancel(parent)
	t.nextID++
	op := &Op{ID: t.nextID, Kind: kind, Correlation: correlation, cancel: cancel}
	t.ops[op.ID] = op
	return ctx, *op
}

// Finish removes a completed operation. It returns false when the operation was
// already canceled, in which case its outcome must be discarded.
func (t *Tracker) Finish(id uint64) (Op, bool) {
	op, ok := t.ops[id]
	if !ok {
		return Op{}, false
	}
	delete(t.ops, id)
	op.cancel()
	return *op, true
}

// Cancel cancels and removes every operation matching the predicate.
// Canceled operations are returned in start order.
func (t *Tracker) Cancel(match func(Op) bool) []Op {
	var canceled []Op
	for id, op := range t.ops {
		if match(*op) {
			op.cancel()
			delete(t.ops, id)
			canceled = append(canceled, *op)
		}
	}
	slices.SortFunc(canceled, func(a, b Op) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return canceled
}

// CancelAll cancels every tracked operation
func (t *Tracker) CancelAll() []Op {
	return t.Cancel(func(Op) bool { return true })
}

// OfKind matches operations of the given kinds
func OfKind(kinds ...Kind) func(Op) bool {
	return func(op Op) bool {
		return slices.Contains(kinds, op.Kind)
	}
}

// WithCorrelation matches operations of the given kinds carrying correlation
func WithCorrelation(correlation domain.Correlation, kinds ...Kind) func(Op) bool {
	return func(op Op) bool {
		return op.Correlation == correlation && slices.Contains(kinds, op.Kind)
	}
}
