// Package elements produces pages of attribute elements from one of two sources:
// the remote backend or a fixed in-memory collection.
package elements

import (
	"context"

	"attrfilter/domain"
)

// Request is everything a source needs to produce one page
type Request struct {
	DisplayForm domain.ObjRef
	// Attribute is the loaded attribute metadata; nil until the attribute load succeeded
	Attribute *domain.AttributeMetadata
	Offset    int
	Limit     int
	Search    string
	Order     domain.SortDirection
	Elements  *domain.Elements
	Limiting  domain.LimitingFilters
	Hidden    []string
	Mode      domain.ElementsMode
}

// Page is one page of elements
type Page = domain.ElementsPage

// Source produces one page of elements per request.
// There are exactly two implementations, chosen once per loader: BackendSource and StaticSource.
type Source interface {
	Load(ctx context.Context, req Request) (Page, error)
}
