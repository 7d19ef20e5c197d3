package backend

import (
	"context"
	"slices"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"attrfilter/domain"
)

type memoryAttribute struct {
	meta     domain.AttributeMetadata
	elements []domain.AttributeElement
}

// Memory is an in-memory Backend holding attributes and their elements.
//
// Limiting attribute filters are honored when they target the queried
// attribute (through its ref or one of its display forms); filters on other
// attributes, measures and date filters are accepted and ignored.
type Memory struct {
	mu           sync.RWMutex
	byDisplayRef map[domain.ObjRef]*memoryAttribute
	queries      []ElementsQuery
	failures     map[domain.ObjRef]error
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{
		byDisplayRef: make(map[domain.ObjRef]*memoryAttribute),
		failures:     make(map[domain.ObjRef]error),
	}
}

// AddAttribute registers an attribute with its elements under every display form it lists
func (m *Memory) AddAttribute(meta domain.AttributeMetadata, elements []domain.AttributeElement) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attr := &memoryAttribute{meta: meta, elements: slices.Clone(elements)}
	for _, df := range meta.DisplayForms {
		m.byDisplayRef[df] = attr
	}
}

// FailWith makes every call for displayForm return err; nil clears it
func (m *Memory) FailWith(displayForm domain.ObjRef, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, displayForm)
		return
	}
	m.failures[displayForm] = err
}

// Queries returns a copy of every elements query received so far
func (m *Memory) Queries() []ElementsQuery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.queries)
}

// GetAttributeByDisplayForm returns the attribute owning displayForm
func (m *Memory) GetAttributeByDisplayForm(ctx context.Context, _ string, displayForm domain.ObjRef) (domain.AttributeMetadata, error) {
	if err := ctx.Err(); err != nil {
		return domain.AttributeMetadata{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures[displayForm]; err != nil {
		return domain.AttributeMetadata{}, err
	}
	attr, ok := m.byDisplayRef[displayForm]
	if !ok {
		return domain.AttributeMetadata{}, &domain.NotFoundError{Ref: displayForm}
	}
	meta := attr.meta
	meta.DisplayForms = slices.Clone(meta.DisplayForms)
	return meta, nil
}

// QueryElements returns one page of elements of the attribute owning query.DisplayForm
func (m *Memory) QueryElements(ctx context.Context, _ string, query ElementsQuery) (ElementsResult, error) {
	if err := ctx.Err(); err != nil {
		return ElementsResult{}, err
	}

	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures[query.DisplayForm]; err != nil {
		return ElementsResult{}, err
	}
	attr, ok := m.byDisplayRef[query.DisplayForm]
	if !ok {
		return ElementsResult{}, &domain.NotFoundError{Ref: query.DisplayForm}
	}

	items := attr.elements
	for _, lf := range query.Limiting.AttributeFilters {
		if !attr.targets(lf.Filter.DisplayForm) {
			slogcontext.FromCtx(ctx).Debug("memory backend ignores limiting filter on foreign attribute",
				"filter", lf.Filter.DisplayForm)
			continue
		}
		if lf.Filter.Negative {
			items = domain.ExcludeKeys(items, lf.Filter.Elements.Mode(), lf.Filter.Elements.Keys())
		} else {
			items = domain.KeepMatching(items, lf.Filter.Elements)
		}
	}
	if query.Elements != nil {
		items = domain.KeepMatching(items, *query.Elements)
	}
	items = domain.KeepSearched(items, query.Search)
	items = domain.SortByTitle(items, query.Order)

	return ElementsResult{
		Items:      domain.Slice(items, query.Offset, query.Limit),
		Offset:     query.Offset,
		Limit:      query.Limit,
		TotalCount: len(items),
	}, nil
}

func (a *memoryAttribute) targets(ref domain.ObjRef) bool {
	return ref == a.meta.Ref || slices.Contains(a.meta.DisplayForms, ref)
}
