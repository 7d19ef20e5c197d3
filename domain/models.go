package domain

import (
	"encoding/json"
	"slices"
)

// ObjRef is an opaque reference to a metadata object (attribute, display form, measure, data set)
type ObjRef string

// Correlation tags one logical request; every terminal event carries it back
type Correlation string

// ElementsMode decides how attribute elements are addressed
type ElementsMode int

const (
	// ElementsByURI addresses elements by their URI
	ElementsByURI ElementsMode = iota
	// ElementsByValue addresses elements by their title value
	ElementsByValue
)

// String returns the mode name
func (m ElementsMode) String() string {
	if m == ElementsByValue {
		return "value"
	}
	return "uri"
}

// AttributeMetadata describes the attribute owning the filtered display form
type AttributeMetadata struct {
	ID           string
	Title        string
	Ref          ObjRef   // owning attribute
	DisplayForms []ObjRef // display forms of the attribute
}

// AttributeElement is a single element of an attribute
type AttributeElement struct {
	URI   string `json:"uri" toml:"uri"`
	Title string `json:"title" toml:"title"`
}

// Key returns the element key for the given addressing mode
func (e AttributeElement) Key(mode ElementsMode) string {
	if mode == ElementsByValue {
		return e.Title
	}
	return e.URI
}

// Elements is a set of element keys, either by URI or by value.
// Exactly one of the two lists is meaningful; URIs wins when both are set.
type Elements struct {
	URIs   []string `json:"uris"`
	Values []string `json:"values"`
}

// MarshalJSON writes only the active list, even when empty, so the mode survives a round trip
func (e Elements) MarshalJSON() ([]byte, error) {
	keys := e.Keys()
	if keys == nil {
		keys = []string{}
	}
	if e.Mode() == ElementsByValue {
		return json.Marshal(struct {
			Values []string `json:"values"`
		}{keys})
	}
	return json.Marshal(struct {
		URIs []string `json:"uris"`
	}{keys})
}

// ElementsOf builds an Elements value holding keys in the given mode
func ElementsOf(mode ElementsMode, keys []string) Elements {
	keys = slices.Clone(keys)
	if keys == nil {
		keys = []string{}
	}
	if mode == ElementsByValue {
		return Elements{Values: keys}
	}
	return Elements{URIs: keys}
}

// Mode reports the addressing mode of the element set
func (e Elements) Mode() ElementsMode {
	if e.URIs == nil && e.Values != nil {
		return ElementsByValue
	}
	return ElementsByURI
}

// Keys returns the element keys of the set
func (e Elements) Keys() []string {
	if e.Mode() == ElementsByValue {
		return slices.Clone(e.Values)
	}
	return slices.Clone(e.URIs)
}

// IsEmpty reports whether the set holds no keys
func (e Elements) IsEmpty() bool {
	return len(e.URIs) == 0 && len(e.Values) == 0
}

// AttributeFilter is the serializable filter definition the host persists.
// A negative filter selects everything except Elements.
type AttributeFilter struct {
	DisplayForm ObjRef   `json:"displayForm"`
	Elements    Elements `json:"elements"`
	Negative    bool     `json:"negative"`
}

// NewPositiveFilter creates a filter selecting exactly the given elements
func NewPositiveFilter(displayForm ObjRef, elements Elements) AttributeFilter {
	return AttributeFilter{DisplayForm: displayForm, Elements: elements}
}

// NewNegativeFilter creates a filter selecting all but the given elements
func NewNegativeFilter(displayForm ObjRef, elements Elements) AttributeFilter {
	return AttributeFilter{DisplayForm: displayForm, Elements: elements, Negative: true}
}

// Selection is an invertible selection of element keys.
// IsInverted=false means exactly Items are selected; true means all but Items.
type Selection struct {
	Items      []string
	IsInverted bool
}

// Clone returns a deep copy of the selection
func (s Selection) Clone() Selection {
	items := slices.Clone(s.Items)
	if items == nil {
		items = []string{}
	}
	return Selection{Items: items, IsInverted: s.IsInverted}
}

// Equal reports whether two selections hold the same keys in the same order and polarity
func (s Selection) Equal(other Selection) bool {
	return s.IsInverted == other.IsInverted && slices.Equal(s.Items, other.Items)
}

// SelectionOf derives the selection encoded by a filter
func SelectionOf(filter AttributeFilter) Selection {
	return Selection{Items: filter.Elements.Keys(), IsInverted: filter.Negative}.Clone()
}

// SelectedElements resolves a selection against loaded elements
type SelectedElements struct {
	Elements   []AttributeElement
	IsInverted bool
}

// Measure is a measure narrowing the element universe to elements with data
type Measure struct {
	LocalID string `json:"localId" toml:"local_id"`
	Ref     ObjRef `json:"ref" toml:"ref"`
}

// RelativeDateFilter narrows elements to those with data in a relative date range
type RelativeDateFilter struct {
	DataSet     ObjRef `json:"dataSet" toml:"data_set"`
	Granularity string `json:"granularity" toml:"granularity"`
	From        int    `json:"from" toml:"from"`
	To          int    `json:"to" toml:"to"`
}

// LimitingAttributeFilter narrows elements by another (or the same) attribute's filter.
// OverAttribute names the attribute the filter relates through; empty means direct.
type LimitingAttributeFilter struct {
	Filter        AttributeFilter `json:"filter"`
	OverAttribute ObjRef          `json:"overAttribute,omitempty"`
}

// LimitingFilters groups everything that narrows the element universe of a load
type LimitingFilters struct {
	Measures         []Measure
	AttributeFilters []LimitingAttributeFilter
	DateFilters      []RelativeDateFilter
}

// IsEmpty reports whether no limiting filter is set
func (l LimitingFilters) IsEmpty() bool {
	return len(l.Measures) == 0 && len(l.AttributeFilters) == 0 && len(l.DateFilters) == 0
}

// Clone returns a copy with independent slices
func (l LimitingFilters) Clone() LimitingFilters {
	return LimitingFilters{
		Measures:         slices.Clone(l.Measures),
		AttributeFilters: slices.Clone(l.AttributeFilters),
		DateFilters:      slices.Clone(l.DateFilters),
	}
}

// LoadKind identifies which elements-load operation an event belongs to
type LoadKind string

const (
	LoadInitialPage LoadKind = "InitialPage"
	LoadNextPage    LoadKind = "NextPage"
	LoadRange       LoadKind = "Range"
	LoadCustom      LoadKind = "Custom"
	LoadSelection   LoadKind = "Selection"
)

// LoadOptions are the per-load parameters of a custom elements load.
// Zero-valued fields fall back to the loader's current settings.
type LoadOptions struct {
	Offset   int
	Limit    int
	Search   *string
	Order    *SortDirection
	Elements *Elements
	Limiting *LimitingFilters
}

// SortDirection orders loaded elements by title. The zero value keeps the source order.
type SortDirection string

const (
	SortDefault SortDirection = ""
	SortAsc     SortDirection = "asc"
	SortDesc    SortDirection = "desc"
)

// Valid reports whether d is one of the known directions
func (d SortDirection) Valid() bool {
	return d == SortDefault || d == SortAsc || d == SortDesc
}

// ElementsPage is one page of elements returned by a load
type ElementsPage struct {
	Items      []AttributeElement
	Offset     int
	Limit      int
	TotalCount int
}

// Status is the lifecycle status of an asynchronous operation
type Status string

const (
	StatusPending  Status = "pending"
	StatusLoading  Status = "loading"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
)
