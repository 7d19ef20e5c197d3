package domain

import (
	"cmp"
	"slices"
	"strings"
)

// Matches reports whether el is listed in the set.
// URI sets match on the element URI, value sets on its title.
func (e Elements) Matches(el AttributeElement) bool {
	if e.Mode() == ElementsByValue {
		return slices.Contains(e.Values, el.Title)
	}
	return slices.Contains(e.URIs, el.URI)
}

// MatchesSearch reports whether the element title contains search, ignoring case
func MatchesSearch(el AttributeElement, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(el.Title), strings.ToLower(search))
}

// ExcludeKeys returns the elements whose key (in mode) is not in keys
func ExcludeKeys(items []AttributeElement, mode ElementsMode, keys []string) []AttributeElement {
	if len(keys) == 0 {
		return items
	}
	hidden := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		hidden[k] = struct{}{}
	}
	out := make([]AttributeElement, 0, len(items))
	for _, el := range items {
		if _, ok := hidden[el.Key(mode)]; !ok {
			out = append(out, el)
		}
	}
	return out
}

// KeepMatching returns the elements listed in the set
func KeepMatching(items []AttributeElement, set Elements) []AttributeElement {
	out := make([]AttributeElement, 0, len(items))
	for _, el := range items {
		if set.Matches(el) {
			out = append(out, el)
		}
	}
	return out
}

// KeepSearched returns the elements whose title contains search, ignoring case
func KeepSearched(items []AttributeElement, search string) []AttributeElement {
	if search == "" {
		return items
	}
	out := make([]AttributeElement, 0, len(items))
	for _, el := range items {
		if MatchesSearch(el, search) {
			out = append(out, el)
		}
	}
	return out
}

// Slice returns the [offset, offset+limit) window of items, clamped to bounds
func Slice(items []AttributeElement, offset, limit int) []AttributeElement {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []AttributeElement{}
	}
	end := len(items)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return slices.Clone(items[offset:end])
}

// SortByTitle returns items ordered by title in direction d; SortDefault keeps the order
func SortByTitle(items []AttributeElement, d SortDirection) []AttributeElement {
	if d == SortDefault {
		return items
	}
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b AttributeElement) int {
		if d == SortDesc {
			return cmp.Compare(b.Title, a.Title)
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return out
}
