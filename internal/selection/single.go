package selection

import "attrfilter/domain"

// SanitizeSingle narrows a filter to its first element. Filters listing more
// than one element are accepted silently; polarity is preserved.
func SanitizeSingle(filter domain.AttributeFilter) domain.AttributeFilter {
	keys := filter.Elements.Keys()
	if len(keys) > 1 {
		keys = keys[:1]
	}
	filter.Elements = domain.ElementsOf(filter.Elements.Mode(), keys)
	return filter
}

// SingleSelection builds the working selection for a single key; "" selects nothing
func SingleSelection(key string) domain.Selection {
	if key == "" {
		return domain.Selection{Items: []string{}}
	}
	return domain.Selection{Items: []string{key}}
}

// SingleKey returns the only selected key, "" when nothing is selected.
// A selection holding more than one key violates the single-select invariant.
func SingleKey(sel domain.Selection) (string, error) {
	switch len(sel.Items) {
	case 0:
		return "", nil
	case 1:
		return sel.Items[0], nil
	default:
		return "", domain.Invariant("single select queried but %d elements are selected", len(sel.Items))
	}
}
