// Package handler is the public entry point of the attribute filter loader.
//
// A handler loads the attribute behind a filter's display form, pages through
// its elements and keeps a staged selection that becomes the filter definition
// once committed. All loading is asynchronous; results arrive through the On*
// subscriptions and can be read back with the Get* queries at any time.
package handler

import (
	"log/slog"

	"attrfilter/backend"
	"attrfilter/domain"
	"attrfilter/internal/orchestrator"
	"attrfilter/internal/state"
)

// Config configures a handler
type Config struct {
	Backend   backend.Backend
	Workspace string
	// Filter is the initial filter; its element mode fixes how elements are keyed
	Filter domain.AttributeFilter
	// HiddenElements are never offered for selection nor counted
	HiddenElements []string
	// StaticElements, when non-nil, replaces backend paging with this fixed collection
	StaticElements []domain.AttributeElement
	// Limit is the page size; zero means the default of 500
	Limit  int
	Logger *slog.Logger
}

// loader holds what multi and single select handlers share
type loader struct {
	o *orchestrator.Orchestrator
}

func newLoader(cfg Config, filter domain.AttributeFilter) (loader, error) {
	o, err := orchestrator.New(orchestrator.Config{
		Backend:        cfg.Backend,
		Workspace:      cfg.Workspace,
		StaticElements: cfg.StaticElements,
		Options: state.Options{
			Filter:         filter,
			HiddenElements: cfg.HiddenElements,
			Limit:          cfg.Limit,
		},
		Logger: cfg.Logger,
	})
	if err != nil {
		return loader{}, err
	}
	return loader{o: o}, nil
}

// Commands

// Init loads the attribute, the elements of the initial selection and the first page
func (l loader) Init(correlation domain.Correlation) error { return l.o.Init(correlation) }

func (l loader) LoadAttribute(correlation domain.Correlation) error {
	return l.o.LoadAttribute(correlation)
}

func (l loader) CancelAttributeLoad() error { return l.o.CancelAttributeLoad() }

func (l loader) LoadInitialElementsPage(correlation domain.Correlation) error {
	return l.o.LoadInitialElementsPage(correlation)
}

func (l loader) CancelInitialElementsPageLoad() error { return l.o.CancelInitialElementsPageLoad() }

func (l loader) LoadNextElementsPage(correlation domain.Correlation) error {
	return l.o.LoadNextElementsPage(correlation)
}

func (l loader) CancelNextElementsPageLoad() error { return l.o.CancelNextElementsPageLoad() }

// LoadElementsRange loads an arbitrary window of elements with the current settings
func (l loader) LoadElementsRange(offset, limit int, correlation domain.Correlation) error {
	return l.o.LoadElementsRange(offset, limit, correlation)
}

// LoadCustomElements loads elements with explicit options; the result only feeds the cache
func (l loader) LoadCustomElements(opts domain.LoadOptions, correlation domain.Correlation) error {
	return l.o.LoadCustomElements(opts, correlation)
}

// CancelElementLoad cancels element loads by correlation; "" cancels all of them
func (l loader) CancelElementLoad(correlation domain.Correlation) error {
	return l.o.CancelElementLoad(correlation)
}

func (l loader) SetSearch(search string) error { return l.o.SetSearch(search) }

func (l loader) SetLimit(limit int) error { return l.o.SetLimit(limit) }

// SetOrder sets the title order of subsequent loads; domain.SortDefault keeps the backend order
func (l loader) SetOrder(order domain.SortDirection) error { return l.o.SetOrder(order) }

func (l loader) SetLimitingMeasures(measures []domain.Measure) error {
	return l.o.SetLimitingMeasures(measures)
}

func (l loader) SetLimitingAttributeFilters(filters []domain.LimitingAttributeFilter) error {
	return l.o.SetLimitingAttributeFilters(filters)
}

func (l loader) SetLimitingDateFilters(filters []domain.RelativeDateFilter) error {
	return l.o.SetLimitingDateFilters(filters)
}

func (l loader) CommitSelection() error { return l.o.CommitSelection() }

func (l loader) RevertSelection() error { return l.o.RevertSelection() }

// Reset cancels everything in flight and returns to the constructor configuration.
// Subscriptions stay registered.
func (l loader) Reset() error { return l.o.Reset() }

// Close cancels everything in flight and releases the handler
func (l loader) Close() { l.o.Close() }

// Queries

func (l loader) GetAttribute() *domain.AttributeMetadata { return l.o.Store().Attribute() }

func (l loader) GetAttributeStatus() domain.Status { return l.o.Store().AttributeState().Status }

func (l loader) GetAttributeError() error { return l.o.Store().AttributeState().Err }

func (l loader) GetInitStatus() domain.Status { return l.o.Store().InitState().Status }

func (l loader) GetInitError() error { return l.o.Store().InitState().Err }

func (l loader) GetInitialElementsPageStatus() domain.Status {
	return l.o.Store().InitialPageState().Status
}

func (l loader) GetInitialElementsPageError() error { return l.o.Store().InitialPageState().Err }

func (l loader) GetNextElementsPageStatus() domain.Status { return l.o.Store().NextPageState().Status }

func (l loader) GetNextElementsPageError() error { return l.o.Store().NextPageState().Err }

// GetAllItems returns the elements paged in with the current settings
func (l loader) GetAllItems() []domain.AttributeElement { return l.o.Store().AllItems() }

// GetItemsByKey resolves keys against every element loaded so far
func (l loader) GetItemsByKey(keys []string) []domain.AttributeElement {
	return l.o.Store().ItemsByKey(keys)
}

func (l loader) GetSearch() string { return l.o.Store().Search() }

func (l loader) GetLimit() int { return l.o.Store().Limit() }

func (l loader) GetOffset() int { return l.o.Store().Offset() }

func (l loader) GetOrder() domain.SortDirection { return l.o.Store().Order() }

func (l loader) GetLimitingMeasures() []domain.Measure { return l.o.Store().Limiting().Measures }

func (l loader) GetLimitingAttributeFilters() []domain.LimitingAttributeFilter {
	return l.o.Store().Limiting().AttributeFilters
}

func (l loader) GetLimitingDateFilters() []domain.RelativeDateFilter {
	return l.o.Store().Limiting().DateFilters
}

// GetLimitingAttributeFiltersAttributes returns the attributes the limiting attribute
// filters filter on, once resolved. It is empty while they load or if the lookup failed.
func (l loader) GetLimitingAttributeFiltersAttributes() []domain.AttributeMetadata {
	return l.o.Store().LimitingAttributes()
}

// GetTotalCount is the number of elements with hidden elements excluded, -1 until known
func (l loader) GetTotalCount() int { return l.o.Store().TotalCount() }

// GetCountWithCurrentSettings is the number of elements matching search and limiting filters, -1 until known
func (l loader) GetCountWithCurrentSettings() int { return l.o.Store().CountWithCurrentSettings() }

func (l loader) IsWorkingSelectionChanged() bool { return l.o.Store().IsWorkingSelectionChanged() }

func (l loader) IsWorkingSelectionEmpty() bool { return l.o.Store().IsWorkingSelectionEmpty() }

// IsLoadElementsOptionsChanged reports whether settings changed since the last initial page load
func (l loader) IsLoadElementsOptionsChanged() bool { return l.o.Store().IsLoadOptionsChanged() }

// GetFilter returns the filter definition of the committed selection
func (l loader) GetFilter() domain.AttributeFilter { return l.o.Store().Filter() }

// Subscriptions

func subscribe[E domain.DomainEvent](o *orchestrator.Orchestrator, t domain.EventType, cb func(E)) func() {
	return o.Subscribe(t, func(e domain.DomainEvent) {
		if ev, ok := e.(E); ok {
			cb(ev)
		}
	})
}

func (l loader) OnInitStart(cb func(domain.InitStartedEvent)) func() {
	return subscribe(l.o, domain.EventInitStarted, cb)
}

func (l loader) OnInitSuccess(cb func(domain.InitSucceededEvent)) func() {
	return subscribe(l.o, domain.EventInitSucceeded, cb)
}

func (l loader) OnInitError(cb func(domain.InitFailedEvent)) func() {
	return subscribe(l.o, domain.EventInitFailed, cb)
}

func (l loader) OnInitCancel(cb func(domain.InitCanceledEvent)) func() {
	return subscribe(l.o, domain.EventInitCanceled, cb)
}

func (l loader) OnLoadAttributeStart(cb func(domain.AttributeLoadStartedEvent)) func() {
	return subscribe(l.o, domain.EventAttributeLoadStarted, cb)
}

func (l loader) OnLoadAttributeSuccess(cb func(domain.AttributeLoadSucceededEvent)) func() {
	return subscribe(l.o, domain.EventAttributeLoadSucceeded, cb)
}

func (l loader) OnLoadAttributeError(cb func(domain.AttributeLoadFailedEvent)) func() {
	return subscribe(l.o, domain.EventAttributeLoadFailed, cb)
}

func (l loader) OnLoadAttributeCancel(cb func(domain.AttributeLoadCanceledEvent)) func() {
	return subscribe(l.o, domain.EventAttributeLoadCanceled, cb)
}

// OnLoadElementsStart fires for every elements load; the payload names the load kind
func (l loader) OnLoadElementsStart(cb func(domain.ElementsLoadStartedEvent)) func() {
	return subscribe(l.o, domain.EventElementsLoadStarted, cb)
}

func (l loader) OnLoadElementsSuccess(cb func(domain.ElementsLoadSucceededEvent)) func() {
	return subscribe(l.o, domain.EventElementsLoadSucceeded, cb)
}

func (l loader) OnLoadElementsError(cb func(domain.ElementsLoadFailedEvent)) func() {
	return subscribe(l.o, domain.EventElementsLoadFailed, cb)
}

func (l loader) OnLoadElementsCancel(cb func(domain.ElementsLoadCanceledEvent)) func() {
	return subscribe(l.o, domain.EventElementsLoadCanceled, cb)
}

// OnUpdate fires after every state change
func (l loader) OnUpdate(cb func()) func() {
	return l.o.Subscribe(domain.EventUpdated, func(domain.DomainEvent) { cb() })
}
