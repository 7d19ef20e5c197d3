// Package state holds everything the attribute filter loader knows at a point in time.
package state

import (
	"slices"
	"sync"

	"attrfilter/domain"
	"attrfilter/internal/selection"
)

// DefaultLimit is the page size used when none is configured
const DefaultLimit = 500

// UnknownCount marks a count that has not been loaded for the current settings
const UnknownCount = -1

// Options is the constructor configuration of a loader, kept for reset
type Options struct {
	Filter         domain.AttributeFilter
	HiddenElements []string
	Limit          int
}

// OperationState is the status and last error of one asynchronous workflow
type OperationState struct {
	Status domain.Status
	Err    error
}

// Store is the single source of truth for loader state.
// The orchestrator is its only writer; queries read it concurrently.
type Store struct {
	mu sync.RWMutex

	options Options
	mode    domain.ElementsMode

	init        OperationState
	attribute   OperationState
	initialPage OperationState
	nextPage    OperationState
	attr        *domain.AttributeMetadata

	// cache grows monotonically; pages only holds the current settings' pages
	cache      map[string]domain.AttributeElement
	pages      map[int][]domain.AttributeElement
	generation uint64

	settings Settings
	offset   int
	loaded   *Settings

	// limitingAttributes are the attributes of the limiting attribute filters
	limitingAttributes []domain.AttributeMetadata

	totalCount               int
	countWithCurrentSettings int

	selection *selection.Staged
}

// Settings are the options every page load is made with
type Settings struct {
	Search   string
	Limit    int
	Order    domain.SortDirection
	Limiting domain.LimitingFilters
}

func (st Settings) clone() Settings {
	st.Limiting = st.Limiting.Clone()
	return st
}

func (st Settings) equal(other Settings) bool {
	return st.Search == other.Search &&
		st.Limit == other.Limit &&
		st.Order == other.Order &&
		limitingEqual(st.Limiting, other.Limiting)
}

// New creates a store seeded from opts
func New(opts Options) *Store {
	s := &Store{}
	s.reset(opts)
	return s
}

// Reset rebuilds the store from its original options
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(s.options)
}

func (s *Store) reset(opts Options) {
	opts.HiddenElements = slices.Clone(opts.HiddenElements)
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	s.options = opts
	s.mode = opts.Filter.Elements.Mode()

	s.init = OperationState{Status: domain.StatusPending}
	s.attribute = OperationState{Status: domain.StatusPending}
	s.initialPage = OperationState{Status: domain.StatusPending}
	s.nextPage = OperationState{Status: domain.StatusPending}
	s.attr = nil

	s.cache = make(map[string]domain.AttributeElement)
	s.pages = make(map[int][]domain.AttributeElement)
	s.generation++

	s.settings = Settings{Limit: opts.Limit}
	s.offset = 0
	s.loaded = nil
	s.limitingAttributes = nil

	s.totalCount = UnknownCount
	s.countWithCurrentSettings = UnknownCount

	s.selection = selection.NewStaged(domain.SelectionOf(opts.Filter), opts.HiddenElements)
}

// Options returns the constructor configuration
func (s *Store) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts := s.options
	opts.HiddenElements = slices.Clone(opts.HiddenElements)
	return opts
}

// Mode returns the element addressing mode fixed by the filter definition
func (s *Store) Mode() domain.ElementsMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Init status

func (s *Store) InitState() OperationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.init
}

func (s *Store) SetInitState(status domain.Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init = OperationState{Status: status, Err: err}
}

// Attribute

// Attribute returns the loaded attribute, nil until a load succeeded
func (s *Store) Attribute() *domain.AttributeMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.attr == nil {
		return nil
	}
	attr := *s.attr
	attr.DisplayForms = slices.Clone(attr.DisplayForms)
	return &attr
}

func (s *Store) AttributeState() OperationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attribute
}

func (s *Store) SetAttributeState(status domain.Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attribute = OperationState{Status: status, Err: err}
}

// SetAttribute stores a successfully loaded attribute
func (s *Store) SetAttribute(attr domain.AttributeMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attr.DisplayForms = slices.Clone(attr.DisplayForms)
	s.attr = &attr
	s.attribute = OperationState{Status: domain.StatusSuccess}
}

// Page loads

func (s *Store) InitialPageState() OperationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialPage
}

func (s *Store) SetInitialPageState(status domain.Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialPage = OperationState{Status: status, Err: err}
}

func (s *Store) NextPageState() OperationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextPage
}

func (s *Store) SetNextPageState(status domain.Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPage = OperationState{Status: status, Err: err}
}

// Elements

// Generation identifies the current load settings; it changes whenever they do
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// CacheElements adds items to the elements cache. Entries are never removed.
func (s *Store) CacheElements(items []domain.AttributeElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheElements(items)
}

func (s *Store) cacheElements(items []domain.AttributeElement) {
	for _, item := range items {
		s.cache[item.Key(s.mode)] = item
	}
}

// StorePage caches the page items and, when generation is still current,
// records them as the page at offset. It reports whether the page was recorded.
func (s *Store) StorePage(generation uint64, page domain.ElementsPage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheElements(page.Items)
	if generation != s.generation {
		return false
	}
	s.pages[page.Offset] = slices.Clone(page.Items)
	return true
}

// AllItems returns the pages loaded with the current settings, contiguous from offset 0
func (s *Store) AllItems() []domain.AttributeElement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := []domain.AttributeElement{}
	for offset := 0; ; {
		page, ok := s.pages[offset]
		if !ok || len(page) == 0 {
			return items
		}
		items = append(items, page...)
		offset += len(page)
	}
}

// ItemsByKey resolves keys against the cache; unknown keys are skipped
func (s *Store) ItemsByKey(keys []string) []domain.AttributeElement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemsByKey(keys)
}

func (s *Store) itemsByKey(keys []string) []domain.AttributeElement {
	items := make([]domain.AttributeElement, 0, len(keys))
	for _, key := range keys {
		if item, ok := s.cache[key]; ok {
			items = append(items, item)
		}
	}
	return items
}

// Settings

// ChangeSettings applies fn to the load settings, then invalidates the current pages
// and the count with current settings. The cache is kept. It returns the new generation.
func (s *Store) ChangeSettings(fn func(*Settings)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		fn(&s.settings)
	}
	s.generation++
	s.pages = make(map[int][]domain.AttributeElement)
	s.offset = 0
	s.countWithCurrentSettings = UnknownCount
	return s.generation
}

// Invalidate drops the current pages without changing the settings
func (s *Store) Invalidate() uint64 {
	return s.ChangeSettings(nil)
}

// MarkSettingsLoaded records the current settings as the ones the first page was loaded with
func (s *Store) MarkSettingsLoaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded := s.settings.clone()
	s.loaded = &loaded
}

// IsLoadOptionsChanged reports whether settings changed since the last initial page load
func (s *Store) IsLoadOptionsChanged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded == nil || !s.loaded.equal(s.settings)
}

func limitingEqual(a, b domain.LimitingFilters) bool {
	return slices.Equal(a.Measures, b.Measures) &&
		slices.Equal(a.DateFilters, b.DateFilters) &&
		slices.EqualFunc(a.AttributeFilters, b.AttributeFilters, func(x, y domain.LimitingAttributeFilter) bool {
			return x.OverAttribute == y.OverAttribute &&
				x.Filter.DisplayForm == y.Filter.DisplayForm &&
				x.Filter.Negative == y.Filter.Negative &&
				x.Filter.Elements.Mode() == y.Filter.Elements.Mode() &&
				slices.Equal(x.Filter.Elements.Keys(), y.Filter.Elements.Keys())
		})
}

// Settings returns a copy of the current load settings
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.clone()
}

func (s *Store) Search() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Search
}

func (s *Store) Limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Limit
}

func (s *Store) Order() domain.SortDirection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Order
}

func (s *Store) Limiting() domain.LimitingFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Limiting.Clone()
}

// LimitingAttributes returns the attributes resolved for the limiting attribute filters
func (s *Store) LimitingAttributes() []domain.AttributeMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttributeMetadata, 0, len(s.limitingAttributes))
	for _, attr := range s.limitingAttributes {
		attr.DisplayForms = slices.Clone(attr.DisplayForms)
		out = append(out, attr)
	}
	return out
}

func (s *Store) SetLimitingAttributes(attrs []domain.AttributeMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limitingAttributes = slices.Clone(attrs)
}

// Offset is the offset of the last page loaded with the current settings
func (s *Store) Offset() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

func (s *Store) SetOffset(offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
}

// Counts

func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalCount
}

func (s *Store) SetTotalCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCount = n
}

func (s *Store) CountWithCurrentSettings() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countWithCurrentSettings
}

// SetCountWithCurrentSettings records n when generation is still current
func (s *Store) SetCountWithCurrentSettings(generation uint64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation == s.generation {
		s.countWithCurrentSettings = n
	}
}

// Selection

// UpdateSelection runs fn against the staged selection under the write lock
func (s *Store) UpdateSelection(fn func(*selection.Staged) domain.Selection) domain.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.selection)
}

func (s *Store) WorkingSelection() domain.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Working()
}

func (s *Store) CommittedSelection() domain.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Committed()
}

func (s *Store) IsWorkingSelectionChanged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.IsWorkingChanged()
}

func (s *Store) IsWorkingSelectionEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.IsWorkingEmpty()
}

// SelectedItems resolves the working selection against the cache
func (s *Store) SelectedItems() domain.SelectedElements {
	s.mu.RLock()
	defer s.mu.RUnlock()
	working := s.selection.Working()
	return domain.SelectedElements{Elements: s.itemsByKey(working.Items), IsInverted: working.IsInverted}
}

// Filter builds the filter definition from the committed selection
func (s *Store) Filter() domain.AttributeFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	committed := s.selection.Committed()
	return domain.AttributeFilter{
		DisplayForm: s.options.Filter.DisplayForm,
		Elements:    domain.ElementsOf(s.mode, committed.Items),
		Negative:    committed.IsInverted,
	}
}
