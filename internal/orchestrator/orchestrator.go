// Package orchestrator runs the attribute filter loader workflows.
//
// Every command and every effect completion is applied while holding one mutex,
// so state mutations and the events describing them happen in a single order.
// Events are delivered to subscribers by the event bus dispatcher, which lets
// handlers issue further commands.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	slogcontext "github.com/veqryn/slog-context"

	"attrfilter/backend"
	"attrfilter/domain"
	"attrfilter/internal/effect"
	"attrfilter/internal/elements"
	"attrfilter/internal/eventbus"
	"attrfilter/internal/state"
)

const (
	kindAttribute   effect.Kind = "attribute"
	kindInitialPage effect.Kind = "initial-page"
	kindNextPage    effect.Kind = "next-page"
	kindRange       effect.Kind = "range"
	kindCustom      effect.Kind = "custom"
	kindSelection   effect.Kind = "selection"

	kindLimitingAttributes effect.Kind = "limiting-attributes"
)

var loadKinds = map[effect.Kind]domain.LoadKind{
	kindInitialPage: domain.LoadInitialPage,
	kindNextPage:    domain.LoadNextPage,
	kindRange:       domain.LoadRange,
	kindCustom:      domain.LoadCustom,
	kindSelection:   domain.LoadSelection,
}

var elementKinds = []effect.Kind{kindInitialPage, kindNextPage, kindRange, kindCustom, kindSelection}

// Config configures an orchestrator
type Config struct {
	Backend   backend.Backend
	Workspace string
	// StaticElements switches element loading to the in-memory source when non-nil
	StaticElements []domain.AttributeElement
	Options        state.Options
	Logger         *slog.Logger
}

// Orchestrator owns the loader state and runs its workflows
type Orchestrator struct {
	mu      sync.Mutex
	closed  bool
	tracker *effect.Tracker
	init    *initRun

	store     *state.Store
	bus       eventbus.EventBus
	source    elements.Source
	backend   backend.Backend
	workspace string
	logger    *slog.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// New creates an orchestrator. The element source is fixed here for the
// lifetime of the orchestrator, resets included.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Backend == nil {
		return nil, domain.Invariant("a backend is required")
	}
	if cfg.Options.Filter.DisplayForm == "" {
		return nil, domain.Invariant("the filter has no display form")
	}
	if cfg.Options.Limit < 0 {
		return nil, domain.Invariant("limit must not be negative, got %d", cfg.Options.Limit)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var source elements.Source
	if cfg.StaticElements != nil {
		source = elements.NewStaticSource(cfg.StaticElements)
	} else {
		source = elements.NewBackendSource(cfg.Backend, cfg.Workspace)
	}

	ctx, stop := context.WithCancel(slogcontext.NewCtx(context.Background(), logger))
	return &Orchestrator{
		tracker:   effect.NewTracker(),
		store:     state.New(cfg.Options),
		bus:       eventbus.New(logger),
		source:    source,
		backend:   cfg.Backend,
		workspace: cfg.Workspace,
		logger:    logger,
		ctx:       ctx,
		stop:      stop,
	}, nil
}

// Store gives read access to the loader state
func (o *Orchestrator) Store() *state.Store {
	return o.store
}

// Subscribe registers handler for events of type t and returns its unsubscribe function
func (o *Orchestrator) Subscribe(t domain.EventType, handler func(domain.DomainEvent)) func() {
	return o.bus.Subscribe(t, handler)
}

// Reset cancels every running workflow, emitting their cancel events, and
// rebuilds the state from the original configuration. Subscriptions are kept.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return domain.ErrClosed
	}

	o.cancelAll()
	o.store.Reset()
	o.logger.Debug("loader reset")
	o.bus.Publish(domain.UpdatedEvent{})
	return nil
}

// Close cancels every running workflow and stops event delivery once the
// cancel events have been dispatched. Commands issued afterwards fail with domain.ErrClosed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.cancelAll()
	o.stop()
	o.mu.Unlock()

	o.wg.Wait()
	o.bus.Close()
}

// Done is closed once Close has delivered the last event
func (o *Orchestrator) Done() <-chan struct{} {
	return eventbus.Done(o.bus)
}

func (o *Orchestrator) lock() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return domain.ErrClosed
	}
	return nil
}

// emit publishes event followed by an update notification. Must hold o.mu.
func (o *Orchestrator) emit(event domain.DomainEvent) {
	o.bus.Publish(event)
	o.bus.Publish(domain.UpdatedEvent{})
}

// cancel cancels the matching operations and emits exactly one cancel event
// for each of them. Must hold o.mu.
func (o *Orchestrator) cancel(match func(effect.Op) bool) {
	for _, op := range o.tracker.Cancel(match) {
		o.canceled(op)
	}
}

func (o *Orchestrator) cancelAll() {
	o.abortInit(domain.StatusCanceled, nil)
	for _, op := range o.tracker.CancelAll() {
		o.canceled(op)
	}
}

// canceled records a canceled operation. An init step being canceled cancels the init.
func (o *Orchestrator) canceled(op effect.Op) {
	if op.Kind == kindLimitingAttributes {
		return
	}
	if op.Kind == kindAttribute {
		o.store.SetAttributeState(domain.StatusCanceled, nil)
		o.emit(domain.AttributeLoadCanceledEvent{Correlation: op.Correlation})
	} else {
		o.setPageState(op.Kind, domain.StatusCanceled, nil)
		o.emit(domain.ElementsLoadCanceledEvent{Kind: loadKinds[op.Kind], Correlation: op.Correlation})
	}

	if o.init != nil && o.init.owns(op) {
		o.abortInit(domain.StatusCanceled, nil)
	}
}

func (o *Orchestrator) setPageState(kind effect.Kind, status domain.Status, err error) {
	switch kind {
	case kindInitialPage:
		o.store.SetInitialPageState(status, err)
	case kindNextPage:
		o.store.SetNextPageState(status, err)
	}
}

// launch starts op as a tracked effect under parent. Must hold o.mu.
// complete runs under o.mu, and only when the operation was not canceled before it settled.
func launch[T any](
	o *Orchestrator,
	parent context.Context,
	kind effect.Kind,
	correlation domain.Correlation,
	op func(context.Context) (T, error),
	complete func(effect.Op, effect.Outcome[T]),
) effect.Op {
	ctx, tracked := o.tracker.Start(parent, kind, correlation)
	ctx = slogcontext.With(ctx, "kind", string(kind), "correlation", string(correlation))

	o.wg.Add(1)
	effect.Go(ctx, op, func(out effect.Outcome[T]) {
		defer o.wg.Done()
		o.mu.Lock()
		defer o.mu.Unlock()
		if _, live := o.tracker.Finish(tracked.ID); !live {
			slogcontext.FromCtx(ctx).Debug("discarding outcome of canceled operation", "status", out.Status.String())
			return
		}
		complete(tracked, out)
	})
	return tracked
}

func correlationOrNew(c domain.Correlation) domain.Correlation {
	if c == "" {
		return domain.Correlation(uuid.NewString())
	}
	return c
}
