package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attrfilter/domain"
)

func sel(inverted bool, items ...string) domain.Selection {
	if items == nil {
		items = []string{}
	}
	return domain.Selection{Items: items, IsInverted: inverted}
}

func TestStagedSeedsBothStages(t *testing.T) {
	s := NewStaged(sel(true, "a", "b"), nil)
	assert.Equal(t, sel(true, "a", "b"), s.Working())
	assert.Equal(t, sel(true, "a", "b"), s.Committed())
	assert.False(t, s.IsWorkingChanged())
}

func TestStagedChangeOnlyTouchesWorking(t *testing.T) {
	s := NewStaged(sel(false, "a"), nil)
	s.Change(sel(false, "b", "c"))

	assert.Equal(t, sel(false, "b", "c"), s.Working())
	assert.Equal(t, sel(false, "a"), s.Committed())
	assert.True(t, s.IsWorkingChanged())
}

func TestCommitIsIdempotent(t *testing.T) {
	s := NewStaged(sel(false), nil)
	s.Change(sel(true, "x"))

	first := s.Commit()
	second := s.Commit()
	assert.Equal(t, first, second)
	assert.Equal(t, sel(true, "x"), s.Committed())
	assert.False(t, s.IsWorkingChanged())
}

func TestRevertAfterCommitIsNoop(t *testing.T) {
	s := NewStaged(sel(false), nil)
	s.Change(sel(false, "x", "y"))
	s.Commit()

	reverted := s.Revert()
	assert.Equal(t, sel(false, "x", "y"), reverted)
	assert.Equal(t, s.Committed(), s.Working())
}

func TestRevertDiscardsDraft(t *testing.T) {
	s := NewStaged(sel(false, "a"), nil)
	s.Change(sel(true, "z"))
	s.Revert()
	assert.Equal(t, sel(false, "a"), s.Working())
}

func TestInvertTwiceRestores(t *testing.T) {
	for _, start := range []domain.Selection{sel(false), sel(true), sel(false, "a", "b"), sel(true, "c")} {
		s := NewStaged(start, nil)
		s.Invert()
		assert.Equal(t, !start.IsInverted, s.Working().IsInverted)
		assert.Equal(t, start.Items, s.Working().Items)
		s.Invert()
		assert.Equal(t, start, s.Working())
	}
}

func TestClearKeepsPolarity(t *testing.T) {
	s := NewStaged(sel(true, "a", "b"), nil)
	s.Clear()
	assert.Equal(t, sel(true), s.Working())

	s = NewStaged(sel(false, "a"), nil)
	s.Clear()
	assert.Equal(t, sel(false), s.Working())
	assert.True(t, s.IsWorkingEmpty())
}

func TestHiddenKeysNeverSelected(t *testing.T) {
	s := NewStaged(sel(false, "a", "h"), []string{"h"})
	assert.Equal(t, sel(false, "a"), s.Working())

	s.Change(sel(true, "h", "b", "b"))
	assert.Equal(t, sel(true, "b"), s.Working())
}

func TestReturnedSelectionsDoNotAlias(t *testing.T) {
	s := NewStaged(sel(false, "a"), nil)
	w := s.Working()
	w.Items[0] = "mutated"
	assert.Equal(t, sel(false, "a"), s.Working())
}

func TestIsWorkingChangedIgnoresOrder(t *testing.T) {
	s := NewStaged(sel(false, "a", "b"), nil)
	s.Change(sel(false, "b", "a"))
	assert.False(t, s.IsWorkingChanged())
}

func TestIsWorkingEmpty(t *testing.T) {
	assert.True(t, NewStaged(sel(false), nil).IsWorkingEmpty())
	assert.False(t, NewStaged(sel(true), nil).IsWorkingEmpty(), "inverted empty selects everything")
	assert.False(t, NewStaged(sel(false, "a"), nil).IsWorkingEmpty())
}

func TestSanitizeSingleKeepsFirst(t *testing.T) {
	f := domain.NewPositiveFilter("label.x", domain.Elements{Values: []string{"x", "y", "z"}})
	got := SanitizeSingle(f)
	assert.Equal(t, []string{"x"}, got.Elements.Values)
	assert.Nil(t, got.Elements.URIs)
	assert.False(t, got.Negative)

	neg := domain.NewNegativeFilter("label.x", domain.Elements{URIs: []string{"u1", "u2"}})
	assert.Equal(t, domain.NewNegativeFilter("label.x", domain.Elements{URIs: []string{"u1"}}), SanitizeSingle(neg))

	empty := domain.NewPositiveFilter("label.x", domain.Elements{URIs: []string{}})
	assert.Empty(t, SanitizeSingle(empty).Elements.URIs)
}

func TestSingleKey(t *testing.T) {
	key, err := SingleKey(sel(false))
	require.NoError(t, err)
	assert.Empty(t, key)

	key, err = SingleKey(SingleSelection("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", key)

	_, err = SingleKey(sel(false, "x", "y"))
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}
