package elements

import (
	"context"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	slogcontext "github.com/veqryn/slog-context"

	"attrfilter/domain"
)

const staticMemoSize = 32

// StaticSource serves pages from a fixed collection of elements.
//
// The filtering pipeline is: drop hidden elements, keep explicitly requested
// elements, keep elements whose title matches the search, then sort by title
// when an order is requested. Offset and limit are applied to the result, and
// the total count is its length.
type StaticSource struct {
	items []domain.AttributeElement
	memo  *lru.Cache[string, []domain.AttributeElement]
}

// NewStaticSource creates a source over a copy of items
func NewStaticSource(items []domain.AttributeElement) *StaticSource {
	memo, err := lru.New[string, []domain.AttributeElement](staticMemoSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &StaticSource{items: slices.Clone(items), memo: memo}
}

// Load filters and pages the collection. It fails with domain.ErrUnsupported
// when limiting filters are requested, as those need backend semantics.
func (s *StaticSource) Load(ctx context.Context, req Request) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if !req.Limiting.IsEmpty() {
		return Page{}, unsupportedLimiting(req.Limiting)
	}

	key := memoKey(req)
	filtered, ok := s.memo.Get(key)
	if !ok {
		filtered = s.filter(req)
		s.memo.Add(key, filtered)
	} else {
		slogcontext.FromCtx(ctx).Debug("static elements served from memo", "search", req.Search)
	}

	return Page{
		Items:      domain.Slice(filtered, req.Offset, req.Limit),
		Offset:     req.Offset,
		Limit:      req.Limit,
		TotalCount: len(filtered),
	}, nil
}

func (s *StaticSource) filter(req Request) []domain.AttributeElement {
	items := domain.ExcludeKeys(s.items, req.Mode, req.Hidden)
	if req.Elements != nil {
		items = domain.KeepMatching(items, *req.Elements)
	}
	return domain.SortByTitle(domain.KeepSearched(items, req.Search), req.Order)
}

func unsupportedLimiting(l domain.LimitingFilters) error {
	var kinds []string
	if len(l.AttributeFilters) > 0 {
		kinds = append(kinds, "attribute filters")
	}
	if len(l.Measures) > 0 {
		kinds = append(kinds, "measures")
	}
	if len(l.DateFilters) > 0 {
		kinds = append(kinds, "date filters")
	}
	return &UnsupportedError{What: "limiting " + strings.Join(kinds, ", ") + " with static elements"}
}

// UnsupportedError reports a request the active source cannot serve
type UnsupportedError struct {
	What string
}

func (e *UnsupportedError) Error() string {
	return domain.ErrUnsupported.Error() + ": " + e.What
}

func (e *UnsupportedError) Unwrap() error { return domain.ErrUnsupported }

func memoKey(req Request) string {
	var b strings.Builder
	b.WriteString(req.Mode.String())
	b.WriteByte(0)
	b.WriteString(strings.Join(req.Hidden, "\x01"))
	b.WriteByte(0)
	if req.Elements != nil {
		b.WriteString(req.Elements.Mode().String())
		b.WriteByte(':')
		b.WriteString(strings.Join(req.Elements.Keys(), "\x01"))
	}
	b.WriteByte(0)
	b.WriteString(strings.ToLower(req.Search))
	b.WriteByte(0)
	b.WriteString(string(req.Order))
	return b.String()
}
