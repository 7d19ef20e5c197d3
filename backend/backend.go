// Package backend defines the narrow query interface the filter engine consumes
// from the analytical backend, plus an in-memory implementation and decorators.
package backend

import (
	"context"

	"attrfilter/domain"
)

// ElementsQuery describes one paged elements query
type ElementsQuery struct {
	DisplayForm domain.ObjRef
	Offset      int
	Limit       int
	Search      string
	Order       domain.SortDirection
	// Elements narrows the result to explicitly listed elements, when set
	Elements *domain.Elements
	Limiting domain.LimitingFilters
}

// ElementsResult is one page of elements with the total count of the whole result
type ElementsResult struct {
	Items      []domain.AttributeElement
	Offset     int
	Limit      int
	TotalCount int
}

// Backend is the remote analytical backend as seen by the filter engine.
//
// Implementations must honor ctx cancellation and should report failures as
// domain.NotFoundError or domain.TransportError.
type Backend interface {
	GetAttributeByDisplayForm(ctx context.Context, workspace string, displayForm domain.ObjRef) (domain.AttributeMetadata, error)
	QueryElements(ctx context.Context, workspace string, query ElementsQuery) (ElementsResult, error)
}
