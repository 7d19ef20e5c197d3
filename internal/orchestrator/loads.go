package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"attrfilter/domain"
	"attrfilter/internal/effect"
	"attrfilter/internal/elements"
	"attrfilter/internal/state"
)

// LoadAttribute loads the attribute owning the display form, superseding a running attribute load
func (o *Orchestrator) LoadAttribute(correlation domain.Correlation) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()
	o.startAttributeLoad(correlationOrNew(correlation), nil)
	return nil
}

// CancelAttributeLoad cancels the running attribute load, if any
func (o *Orchestrator) CancelAttributeLoad() error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()
	o.cancel(effect.OfKind(kindAttribute))
	return nil
}

// LoadInitialElementsPage loads the first page with the current settings,
// superseding a running initial page load
func (o *Orchestrator) LoadInitialElementsPage(correlation domain.Correlation) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()
	o.startInitialPage(correlationOrNew(correlation), nil)
	return nil
}

// CancelInitialElementsPageLoad cancels the running initial page load, if any
func (o *Orchestrator) CancelInitialElementsPageLoad() error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()
	o.cancel(effect.OfKind(kindInitialPage))
	return nil
}

// LoadNextElementsPage loads the page following the last loaded one,
// superseding a running next page load
func (o *Orchestrator) LoadNextElementsPage(correlation domain.Correlation) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()

	correlation = correlationOrNew(correlation)
	o.cancel(effect.OfKind(kindNextPage))

	req := o.request(o.store.Offset()+o.store.Limit(), o.store.Limit())
	o.store.SetNextPageState(domain.StatusLoading, nil)
	o.loadElements(kindNextPage, correlation, nil, req, o.store.Generation(), false)
	return nil
}

// CancelNextElementsPageLoad cancels the running next page load, if any
func (o *Orchestrator) CancelNextElementsPageLoad() error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()
	o.cancel(effect.OfKind(kindNextPage))
	return nil
}

// LoadElementsRange loads an arbitrary window with the current settings.
// Range loads run independently of each other.
func (o *Orchestrator) LoadElementsRange(offset, limit int, correlation domain.Correlation) error {
	if offset < 0 || limit <= 0 {
		return domain.Invariant("invalid range: offset %d, limit %d", offset, limit)
	}
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()

	o.loadElements(kindRange, correlationOrNew(correlation), nil, o.request(offset, limit), o.store.Generation(), false)
	return nil
}

// LoadCustomElements loads elements with explicit options. Options left unset
// fall back to the current settings. Results only feed the elements cache.
func (o *Orchestrator) LoadCustomElements(opts domain.LoadOptions, correlation domain.Correlation) error {
	if opts.Offset < 0 || opts.Limit < 0 {
		return domain.Invariant("invalid custom load: offset %d, limit %d", opts.Offset, opts.Limit)
	}
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()

	limit := opts.Limit
	if limit == 0 {
		limit = o.store.Limit()
	}
	req := o.request(opts.Offset, limit)
	if opts.Search != nil {
		req.Search = *opts.Search
	}
	if opts.Order != nil {
		if !opts.Order.Valid() {
			return domain.Invariant("unknown sort direction %q", *opts.Order)
		}
		req.Order = *opts.Order
	}
	if opts.Limiting != nil {
		req.Limiting = opts.Limiting.Clone()
	}
	if opts.Elements != nil {
		els := domain.ElementsOf(opts.Elements.Mode(), opts.Elements.Keys())
		req.Elements = &els
	}

	o.loadElements(kindCustom, correlationOrNew(correlation), nil, req, o.store.Generation(), false)
	return nil
}

// CancelElementLoad cancels the element loads carrying correlation.
// An empty correlation cancels every element load.
func (o *Orchestrator) CancelElementLoad(correlation domain.Correlation) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()

	if correlation == "" {
		o.cancel(effect.OfKind(elementKinds...))
	} else {
		o.cancel(effect.WithCorrelation(correlation, elementKinds...))
	}
	return nil
}

func (o *Orchestrator) startAttributeLoad(correlation domain.Correlation, run *initRun) {
	o.cancel(effect.OfKind(kindAttribute))

	displayForm := o.store.Options().Filter.DisplayForm
	o.store.SetAttributeState(domain.StatusLoading, nil)
	o.emit(domain.AttributeLoadStartedEvent{Correlation: correlation})

	op := launch(o, o.parent(run), kindAttribute, correlation,
		func(ctx context.Context) (domain.AttributeMetadata, error) {
			return o.backend.GetAttributeByDisplayForm(ctx, o.workspace, displayForm)
		},
		func(op effect.Op, out effect.Outcome[domain.AttributeMetadata]) {
			switch out.Status {
			case effect.StatusSuccess:
				o.store.SetAttribute(out.Value)
				o.emit(domain.AttributeLoadSucceededEvent{Correlation: correlation, Attribute: out.Value})
				o.stepDone(op)
			case effect.StatusError:
				o.logger.Warn("attribute load failed", "correlation", correlation, "error", out.Err)
				o.store.SetAttributeState(domain.StatusError, out.Err)
				o.emit(domain.AttributeLoadFailedEvent{Correlation: correlation, Err: out.Err})
				o.stepFailed(op, out.Err)
			default:
				o.canceled(op)
			}
		},
	)
	run.own(op)
}

func (o *Orchestrator) startInitialPage(correlation domain.Correlation, run *initRun) {
	o.cancel(effect.OfKind(kindInitialPage))

	generation := o.store.Invalidate()
	o.store.SetInitialPageState(domain.StatusLoading, nil)
	o.loadElements(kindInitialPage, correlation, run, o.request(0, o.store.Limit()), generation, run != nil)
}

// startSelectionLoad loads the elements of the committed selection so they resolve by key
func (o *Orchestrator) startSelectionLoad(correlation domain.Correlation, run *initRun) {
	committed := o.store.CommittedSelection()
	keys := domain.ElementsOf(o.store.Mode(), committed.Items)
	req := elements.Request{
		DisplayForm: o.store.Options().Filter.DisplayForm,
		Attribute:   o.store.Attribute(),
		Limit:       len(committed.Items),
		Elements:    &keys,
		Mode:        o.store.Mode(),
	}
	o.loadElements(kindSelection, correlation, run, req, o.store.Generation(), false)
}

// request builds a load request for the window with the current settings
func (o *Orchestrator) request(offset, limit int) elements.Request {
	opts := o.store.Options()
	settings := o.store.Settings()
	return elements.Request{
		DisplayForm: opts.Filter.DisplayForm,
		Attribute:   o.store.Attribute(),
		Offset:      offset,
		Limit:       limit,
		Search:      settings.Search,
		Order:       settings.Order,
		Limiting:    settings.Limiting,
		Hidden:      opts.HiddenElements,
		Mode:        o.store.Mode(),
	}
}

// startLimitingAttributesLoad resolves the attribute each limiting attribute filter
// filters on, superseding a running resolution. Must hold o.mu.
func (o *Orchestrator) startLimitingAttributesLoad(filters []domain.LimitingAttributeFilter) {
	o.cancel(effect.OfKind(kindLimitingAttributes))
	o.store.SetLimitingAttributes(nil)
	if len(filters) == 0 {
		return
	}

	launch(o, o.ctx, kindLimitingAttributes, correlationOrNew(""),
		func(ctx context.Context) ([]domain.AttributeMetadata, error) {
			attrs := make([]domain.AttributeMetadata, len(filters))
			g, gctx := errgroup.WithContext(ctx)
			for i, f := range filters {
				g.Go(func() error {
					attr, err := o.backend.GetAttributeByDisplayForm(gctx, o.workspace, f.Filter.DisplayForm)
					attrs[i] = attr
					return err
				})
			}
			return attrs, g.Wait()
		},
		func(op effect.Op, out effect.Outcome[[]domain.AttributeMetadata]) {
			switch out.Status {
			case effect.StatusSuccess:
				o.store.SetLimitingAttributes(out.Value)
				o.bus.Publish(domain.UpdatedEvent{})
			case effect.StatusError:
				o.logger.Warn("limiting filter attributes load failed", "correlation", op.Correlation, "error", out.Err)
			}
		},
	)
}

type pageResult struct {
	page  domain.ElementsPage
	total int
}

// loadElements emits the start event and runs one elements load of kind.
// withTotal also fetches the total count, hidden elements excluded, alongside the page.
func (o *Orchestrator) loadElements(
	kind effect.Kind,
	correlation domain.Correlation,
	run *initRun,
	req elements.Request,
	generation uint64,
	withTotal bool,
) {
	loadKind := loadKinds[kind]
	o.emit(domain.ElementsLoadStartedEvent{Kind: loadKind, Correlation: correlation})

	op := launch(o, o.parent(run), kind, correlation,
		func(ctx context.Context) (pageResult, error) {
			return o.fetch(ctx, req, withTotal)
		},
		func(op effect.Op, out effect.Outcome[pageResult]) {
			switch out.Status {
			case effect.StatusSuccess:
				o.applyPage(kind, generation, out.Value)
				o.emit(domain.ElementsLoadSucceededEvent{
					Kind:        loadKind,
					Correlation: correlation,
					Page:        out.Value.page,
					Search:      req.Search,
				})
				o.stepDone(op)
			case effect.StatusError:
				o.logger.Warn("elements load failed", "kind", loadKind, "correlation", correlation, "error", out.Err)
				o.setPageState(kind, domain.StatusError, out.Err)
				o.emit(domain.ElementsLoadFailedEvent{Kind: loadKind, Correlation: correlation, Err: out.Err})
				o.stepFailed(op, out.Err)
			default:
				o.canceled(op)
			}
		},
	)
	run.own(op)
}

func (o *Orchestrator) fetch(ctx context.Context, req elements.Request, withTotal bool) (pageResult, error) {
	if req.Elements != nil && req.Elements.IsEmpty() {
		return pageResult{
			page:  domain.ElementsPage{Items: []domain.AttributeElement{}, Offset: req.Offset, Limit: req.Limit},
			total: state.UnknownCount,
		}, nil
	}

	if !withTotal {
		page, err := o.source.Load(ctx, req)
		page.Offset = req.Offset
		return pageResult{page: page, total: state.UnknownCount}, err
	}

	total := elements.Request{
		DisplayForm: req.DisplayForm,
		Attribute:   req.Attribute,
		Limit:       1,
		Hidden:      req.Hidden,
		Mode:        req.Mode,
	}

	var res pageResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := o.source.Load(gctx, req)
		page.Offset = req.Offset
		res.page = page
		return err
	})
	g.Go(func() error {
		page, err := o.source.Load(gctx, total)
		res.total = page.TotalCount
		return err
	})
	if err := g.Wait(); err != nil {
		return pageResult{}, err
	}
	return res, nil
}

// applyPage stores a loaded page. Only initial and next pages make up the
// current page set; other loads and pages loaded under outdated settings feed the cache.
func (o *Orchestrator) applyPage(kind effect.Kind, generation uint64, res pageResult) {
	switch kind {
	case kindCustom, kindSelection:
		o.store.CacheElements(res.page.Items)
		return
	case kindRange:
		o.store.CacheElements(res.page.Items)
		o.store.SetCountWithCurrentSettings(generation, res.page.TotalCount)
		return
	}

	if o.store.StorePage(generation, res.page) {
		o.store.SetCountWithCurrentSettings(generation, res.page.TotalCount)
		switch kind {
		case kindInitialPage:
			o.store.SetOffset(0)
			o.store.MarkSettingsLoaded()
		case kindNextPage:
			o.store.SetOffset(res.page.Offset)
		}
	}
	if res.total != state.UnknownCount {
		o.store.SetTotalCount(res.total)
	}
	o.setPageState(kind, domain.StatusSuccess, nil)
}
