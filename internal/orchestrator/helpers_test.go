package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"attrfilter/backend"
	"attrfilter/domain"
	"attrfilter/internal/state"
)

const waitFor = 2 * time.Second

var fruits = []domain.AttributeElement{
	{URI: "A", Title: "Apple"},
	{URI: "B", Title: "Banana"},
	{URI: "C", Title: "Cherry"},
	{URI: "D", Title: "Date"},
	{URI: "E", Title: "Elderberry"},
}

var fruitAttribute = domain.AttributeMetadata{
	ID:           "fruit",
	Title:        "Fruit",
	Ref:          "attr.fruit",
	DisplayForms: []domain.ObjRef{"label.fruit"},
}

func newFruitBackend() *backend.Memory {
	m := backend.NewMemory()
	m.AddAttribute(fruitAttribute, fruits)
	return m
}

// call is one backend call held until the test releases it
type call struct {
	op      string
	query   backend.ElementsQuery
	release chan error
}

func (c *call) succeed() { c.release <- nil }
func (c *call) fail(err error) { c.release <- err }
func (c *call) isTotal() bool { return c.op == "query" && c.query.Limit == 1 && c.query.Elements == nil }
func (c *call) isElements() bool { return c.op == "query" && c.query.Elements != nil }

// gatedBackend serves the fruit dataset, but every call waits for the test to release it
type gatedBackend struct {
	mem   *backend.Memory
	calls chan *call
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{mem: newFruitBackend(), calls: make(chan *call, 64)}
}

func (g *gatedBackend) hold(ctx context.Context, c *call) error {
	g.calls <- c
	select {
	case err := <-c.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedBackend) GetAttributeByDisplayForm(ctx context.Context, ws string, df domain.ObjRef) (domain.AttributeMetadata, error) {
	if err := g.hold(ctx, &call{op: "attribute", release: make(chan error, 1)}); err != nil {
		return domain.AttributeMetadata{}, err
	}
	return g.mem.GetAttributeByDisplayForm(ctx, ws, df)
}

func (g *gatedBackend) QueryElements(ctx context.Context, ws string, q backend.ElementsQuery) (backend.ElementsResult, error) {
	if err := g.hold(ctx, &call{op: "query", query: q, release: make(chan error, 1)}); err != nil {
		return backend.ElementsResult{}, err
	}
	return g.mem.QueryElements(ctx, ws, q)
}

// next returns the next n backend calls
func (g *gatedBackend) next(t *testing.T, n int) []*call {
	t.Helper()
	calls := make([]*call, 0, n)
	for len(calls) < n {
		select {
		case c := <-g.calls:
			calls = append(calls, c)
		case <-time.After(waitFor):
			t.Fatalf("expected %d backend calls, got %d", n, len(calls))
		}
	}
	return calls
}

// quiet asserts that no backend call arrives for a short while
func (g *gatedBackend) quiet(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected backend call %q", c.op)
	case <-time.After(50 * time.Millisecond):
	}
}

// recorder collects every event an orchestrator emits
type recorder struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

var allEventTypes = []domain.EventType{
	domain.EventInitStarted, domain.EventInitSucceeded, domain.EventInitFailed, domain.EventInitCanceled,
	domain.EventAttributeLoadStarted, domain.EventAttributeLoadSucceeded, domain.EventAttributeLoadFailed, domain.EventAttributeLoadCanceled,
	domain.EventElementsLoadStarted, domain.EventElementsLoadSucceeded, domain.EventElementsLoadFailed, domain.EventElementsLoadCanceled,
	domain.EventSelectionChanged, domain.EventSelectionCommitted,
}

func record(o *Orchestrator) *recorder {
	r := &recorder{}
	for _, t := range allEventTypes {
		o.Subscribe(t, r.add)
	}
	return r
}

func (r *recorder) add(e domain.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []domain.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DomainEvent(nil), r.events...)
}

func (r *recorder) ofType(t domain.EventType) []domain.DomainEvent {
	var out []domain.DomainEvent
	for _, e := range r.all() {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) types() []domain.EventType {
	var out []domain.EventType
	for _, e := range r.all() {
		out = append(out, e.Type())
	}
	return out
}

// await blocks until at least n events of type t were recorded
func (r *recorder) await(t *testing.T, et domain.EventType, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.ofType(et)) >= n }, waitFor, time.Millisecond,
		"waiting for %d %s events", n, et)
}

// elementEvents returns the element load events carrying correlation
func (r *recorder) elementEvents(c domain.Correlation) []domain.EventType {
	var out []domain.EventType
	for _, e := range r.all() {
		switch ev := e.(type) {
		case domain.ElementsLoadStartedEvent:
			if ev.Correlation == c {
				out = append(out, e.Type())
			}
		case domain.ElementsLoadSucceededEvent:
			if ev.Correlation == c {
				out = append(out, e.Type())
			}
		case domain.ElementsLoadFailedEvent:
			if ev.Correlation == c {
				out = append(out, e.Type())
			}
		case domain.ElementsLoadCanceledEvent:
			if ev.Correlation == c {
				out = append(out, e.Type())
			}
		}
	}
	return out
}

// shutdown closes o and waits until every event was delivered
func shutdown(t *testing.T, o *Orchestrator) {
	t.Helper()
	o.Close()
	select {
	case <-o.Done():
	case <-time.After(waitFor):
		t.Fatal("event delivery did not finish")
	}
}

func newOrchestrator(t *testing.T, b backend.Backend, opts state.Options) *Orchestrator {
	t.Helper()
	if opts.Filter.DisplayForm == "" {
		opts.Filter = domain.NewNegativeFilter("label.fruit", domain.Elements{URIs: []string{}})
	}
	o, err := New(Config{Backend: b, Workspace: "ws", Options: opts})
	require.NoError(t, err)
	return o
}
