package elements

import (
	"context"

	slogcontext "github.com/veqryn/slog-context"

	"attrfilter/backend"
	"attrfilter/domain"
)

// BackendSource pages elements through the backend's elements query
type BackendSource struct {
	backend   backend.Backend
	workspace string
}

// NewBackendSource creates a source querying b within workspace
func NewBackendSource(b backend.Backend, workspace string) *BackendSource {
	return &BackendSource{backend: b, workspace: workspace}
}

// Load queries one page. Hidden elements are excluded server-side through a
// negative filter over the attribute placed ahead of the caller's limiting
// attribute filters, so offsets stay correct across pages.
func (s *BackendSource) Load(ctx context.Context, req Request) (Page, error) {
	limiting := req.Limiting.Clone()
	if len(req.Hidden) > 0 {
		if req.Attribute == nil {
			return Page{}, domain.Invariant("hidden elements require the attribute to be loaded first")
		}
		hidden := domain.LimitingAttributeFilter{
			Filter: domain.NewNegativeFilter(req.Attribute.Ref, domain.ElementsOf(req.Mode, req.Hidden)),
		}
		limiting.AttributeFilters = append([]domain.LimitingAttributeFilter{hidden}, limiting.AttributeFilters...)
	}

	slogcontext.FromCtx(ctx).Debug("querying elements",
		"displayForm", req.DisplayForm,
		"offset", req.Offset,
		"limit", req.Limit,
		"search", req.Search,
		"attributeFilters", len(limiting.AttributeFilters),
	)

	res, err := s.backend.QueryElements(ctx, s.workspace, backend.ElementsQuery{
		DisplayForm: req.DisplayForm,
		Offset:      req.Offset,
		Limit:       req.Limit,
		Search:      req.Search,
		Order:       req.Order,
		Elements:    req.Elements,
		Limiting:    limiting,
	})
	if err != nil {
		return Page{}, err
	}

	return Page{
		Items:      res.Items,
		Offset:     res.Offset,
		Limit:      res.Limit,
		TotalCount: res.TotalCount,
	}, nil
}
