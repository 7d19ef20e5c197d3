package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"attrfilter/domain"
)

var fruits = []domain.AttributeElement{
	{URI: "A", Title: "Apple"},
	{URI: "B", Title: "Banana"},
	{URI: "C", Title: "Cherry"},
	{URI: "D", Title: "Date"},
}

func newFruitBackend() *Memory {
	m := NewMemory()
	m.AddAttribute(domain.AttributeMetadata{
		ID:           "fruit",
		Title:        "Fruit",
		Ref:          "attr.fruit",
		DisplayForms: []domain.ObjRef{"label.fruit"},
	}, fruits)
	return m
}

func TestMemoryGetAttribute(t *testing.T) {
	m := newFruitBackend()

	attr, err := m.GetAttributeByDisplayForm(context.Background(), "ws", "label.fruit")
	require.NoError(t, err)
	assert.Equal(t, domain.ObjRef("attr.fruit"), attr.Ref)

	_, err = m.GetAttributeByDisplayForm(context.Background(), "ws", "label.missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryQueryPaging(t *testing.T) {
	m := newFruitBackend()

	res, err := m.QueryElements(context.Background(), "ws", ElementsQuery{DisplayForm: "label.fruit", Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, fruits[1:3], res.Items)
	assert.Equal(t, 4, res.TotalCount)

	res, err = m.QueryElements(context.Background(), "ws", ElementsQuery{DisplayForm: "label.fruit", Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestMemoryQueryNegativeLimitingFilterExcludesBeforePaging(t *testing.T) {
	m := newFruitBackend()

	res, err := m.QueryElements(context.Background(), "ws", ElementsQuery{
		DisplayForm: "label.fruit",
		Offset:      0,
		Limit:       2,
		Limiting: domain.LimitingFilters{AttributeFilters: []domain.LimitingAttributeFilter{{
			Filter: domain.NewNegativeFilter("attr.fruit", domain.Elements{URIs: []string{"A"}}),
		}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{fruits[1], fruits[2]}, res.Items)
	assert.Equal(t, 3, res.TotalCount)
}

func TestMemoryQuerySearchAndElements(t *testing.T) {
	m := newFruitBackend()

	res, err := m.QueryElements(context.Background(), "ws", ElementsQuery{
		DisplayForm: "label.fruit",
		Limit:       10,
		Search:      "A",
		Elements:    &domain.Elements{Values: []string{"Apple", "Banana", "Cherry"}},
	})
	require.NoError(t, err)
	assert.Equal(t, fruits[:2], res.Items)
	assert.Len(t, m.Queries(), 1)
}

func TestMemoryQueryOrder(t *testing.T) {
	m := newFruitBackend()

	res, err := m.QueryElements(context.Background(), "ws", ElementsQuery{
		DisplayForm: "label.fruit",
		Offset:      1,
		Limit:       2,
		Order:       domain.SortDesc,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeElement{fruits[2], fruits[1]}, res.Items)
}

func TestMemoryFailWith(t *testing.T) {
	m := newFruitBackend()
	m.FailWith("label.fruit", domain.NewTransportError("query", errors.New("down")))

	_, err := m.QueryElements(context.Background(), "ws", ElementsQuery{DisplayForm: "label.fruit", Limit: 1})
	assert.ErrorIs(t, err, domain.ErrTransport)

	m.FailWith("label.fruit", nil)
	_, err = m.QueryElements(context.Background(), "ws", ElementsQuery{DisplayForm: "label.fruit", Limit: 1})
	assert.NoError(t, err)
}

// countingBackend blocks attribute lookups until release is closed
type countingBackend struct {
	Backend
	calls   atomic.Int32
	release chan struct{}
}

func (c *countingBackend) GetAttributeByDisplayForm(ctx context.Context, ws string, ref domain.ObjRef) (domain.AttributeMetadata, error) {
	c.calls.Add(1)
	<-c.release
	return c.Backend.GetAttributeByDisplayForm(ctx, ws, ref)
}

func TestDedupSharesInFlightLookups(t *testing.T) {
	inner := &countingBackend{Backend: newFruitBackend(), release: make(chan struct{})}
	b := Dedup(inner)

	var wg sync.WaitGroup
	results := make([]domain.AttributeMetadata, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attr, err := b.GetAttributeByDisplayForm(context.Background(), "ws", "label.fruit")
			assert.NoError(t, err)
			results[i] = attr
		}(i)
	}

	require.Eventually(t, func() bool { return inner.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond) // let the other callers join the flight
	close(inner.release)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
	for _, r := range results {
		assert.Equal(t, "fruit", r.ID)
	}
}

func TestDedupCallerCancel(t *testing.T) {
	inner := &countingBackend{Backend: newFruitBackend(), release: make(chan struct{})}
	defer close(inner.release)
	b := Dedup(inner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.GetAttributeByDisplayForm(ctx, "ws", "label.fruit")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitedCancelWhileWaiting(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	b := RateLimited(newFruitBackend(), limiter)

	_, err := b.QueryElements(context.Background(), "ws", ElementsQuery{DisplayForm: "label.fruit", Limit: 1})
	require.NoError(t, err, "first call uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = b.QueryElements(ctx, "ws", ElementsQuery{DisplayForm: "label.fruit", Limit: 1})
	require.Error(t, err, "throttled call must fail instead of reaching the backend")
	assert.NotErrorIs(t, err, domain.ErrTransport)
}

func TestRateLimitedNilLimiter(t *testing.T) {
	m := newFruitBackend()
	assert.Same(t, Backend(m), RateLimited(m, nil))
}
