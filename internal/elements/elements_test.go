package elements

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attrfilter/backend"
	"attrfilter/domain"
)

var fruits = []domain.AttributeElement{
	{URI: "A", Title: "Apple"},
	{URI: "B", Title: "Banana"},
	{URI: "C", Title: "Cherry"},
}

func TestStaticPipelineOrder(t *testing.T) {
	src := NewStaticSource(fruits)

	page, err := src.Load(context.Background(), Request{
		Offset:   0,
		Limit:    10,
		Hidden:   []string{"A"},
		Elements: &domain.Elements{Values: []string{"Apple", "Banana"}},
		Search:   "an",
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{{URI: "B", Title: "Banana"}}, page.Items)
	assert.Equal(t, 1, page.TotalCount)
}

func TestStaticHiddenRemovedBeforeSlicing(t *testing.T) {
	src := NewStaticSource(fruits)

	page, err := src.Load(context.Background(), Request{Offset: 0, Limit: 1, Hidden: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{fruits[1]}, page.Items)
	assert.Equal(t, 2, page.TotalCount)

	page, err = src.Load(context.Background(), Request{Offset: 1, Limit: 1, Hidden: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{fruits[2]}, page.Items)
}

func TestStaticHiddenByValueMode(t *testing.T) {
	src := NewStaticSource(fruits)

	page, err := src.Load(context.Background(), Request{Limit: 10, Hidden: []string{"Cherry"}, Mode: domain.ElementsByValue})
	require.NoError(t, err)
	assert.Equal(t, fruits[:2], page.Items)
}

func TestStaticSearchIsCaseInsensitive(t *testing.T) {
	src := NewStaticSource(fruits)

	page, err := src.Load(context.Background(), Request{Limit: 10, Search: "CHER"})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{fruits[2]}, page.Items)

	// same shape again is served from the memo and must be identical
	again, err := src.Load(context.Background(), Request{Limit: 10, Search: "cher"})
	require.NoError(t, err)
	assert.Equal(t, page, again)
}

func TestStaticOrderAppliesBeforeSlicing(t *testing.T) {
	src := NewStaticSource(fruits)

	page, err := src.Load(context.Background(), Request{Limit: 2, Order: domain.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{fruits[2], fruits[1]}, page.Items)
	assert.Equal(t, 3, page.TotalCount)

	page, err = src.Load(context.Background(), Request{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, fruits[:2], page.Items, "a different order is a different memo entry")
}

func TestStaticElementsByKey(t *testing.T) {
	src := NewStaticSource(fruits)

	page, err := src.Load(context.Background(), Request{Limit: 10, Elements: &domain.Elements{URIs: []string{"C", "A"}}})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{fruits[0], fruits[2]}, page.Items)
}

func TestStaticRejectsLimitingFilters(t *testing.T) {
	src := NewStaticSource(fruits)

	cases := map[string]domain.LimitingFilters{
		"measures":   {Measures: []domain.Measure{{LocalID: "m1", Ref: "metric.revenue"}}},
		"attributes": {AttributeFilters: []domain.LimitingAttributeFilter{{Filter: domain.NewPositiveFilter("label.x", domain.Elements{URIs: []string{"1"}})}}},
		"dates":      {DateFilters: []domain.RelativeDateFilter{{DataSet: "date", Granularity: "GDC.time.year", From: -1, To: 0}}},
	}
	for name, limiting := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := src.Load(context.Background(), Request{Limit: 10, Limiting: limiting})
			assert.ErrorIs(t, err, domain.ErrUnsupported)
		})
	}
}

func TestStaticCanceledContext(t *testing.T) {
	src := NewStaticSource(fruits)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Load(ctx, Request{Limit: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func newFruitBackend() *backend.Memory {
	m := backend.NewMemory()
	m.AddAttribute(domain.AttributeMetadata{
		ID: "fruit", Ref: "attr.fruit", DisplayForms: []domain.ObjRef{"label.fruit"},
	}, fruits)
	return m
}

func TestBackendSourcePrependsHiddenFilter(t *testing.T) {
	m := newFruitBackend()
	src := NewBackendSource(m, "ws")
	attr := &domain.AttributeMetadata{Ref: "attr.fruit"}
	caller := domain.LimitingAttributeFilter{
		Filter:        domain.NewPositiveFilter("label.color", domain.Elements{URIs: []string{"red"}}),
		OverAttribute: "attr.color",
	}

	page, err := src.Load(context.Background(), Request{
		DisplayForm: "label.fruit",
		Attribute:   attr,
		Limit:       10,
		Hidden:      []string{"A"},
		Limiting:    domain.LimitingFilters{AttributeFilters: []domain.LimitingAttributeFilter{caller}},
	})
	require.NoError(t, err)
	assert.Equal(t, fruits[1:], page.Items)

	queries := m.Queries()
	require.Len(t, queries, 1)
	filters := queries[0].Limiting.AttributeFilters
	require.Len(t, filters, 2)
	assert.Equal(t, domain.NewNegativeFilter("attr.fruit", domain.Elements{URIs: []string{"A"}}), filters[0].Filter)
	assert.Equal(t, caller, filters[1])
}

func TestBackendSourceHiddenNeedsAttribute(t *testing.T) {
	src := NewBackendSource(newFruitBackend(), "ws")

	_, err := src.Load(context.Background(), Request{DisplayForm: "label.fruit", Limit: 10, Hidden: []string{"A"}})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestBackendSourceNoHiddenPassesThrough(t *testing.T) {
	m := newFruitBackend()
	src := NewBackendSource(m, "ws")

	page, err := src.Load(context.Background(), Request{DisplayForm: "label.fruit", Offset: 1, Limit: 1, Search: "e"})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{fruits[2]}, page.Items)
	assert.Equal(t, 2, page.TotalCount)
	assert.Empty(t, m.Queries()[0].Limiting.AttributeFilters)
}
