package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func unit(id string, base Unit, deps ...string) Unit {
	base.ID = id
	base.LocalID = id
	base.Dependencies = deps
	return base
}

var (
	uCritical = Unit{Kind: KindTask, Priority: critical}
	uHigh     = Unit{Kind: KindTask, Priority: high}
	uMedium   = Unit{Kind: KindTask, Priority: medium}
	uLow      = Unit{Kind: KindTask, Priority: low}
)

func TestCompare_PriorityFirst(t *testing.T) {
	assert.Negative(t, Compare(unit("9", uCritical), unit("1", uHigh)))
	assert.Negative(t, Compare(unit("9", uHigh), unit("1", uMedium)))
	assert.Negative(t, Compare(unit("9", uMedium), unit("1", uLow)))
	assert.Positive(t, Compare(unit("1", uLow), unit("9", uCritical)))
}

func TestCompare_DependencyCountSecond(t *testing.T) {
	fewer := unit("9", uHigh, "1")
	more := unit("1", uHigh, "2", "3")

	assert.Negative(t, Compare(fewer, more))
	assert.Positive(t, Compare(more, fewer))
	// Priority still outranks dependency count.
	assert.Negative(t, Compare(unit("5", uCritical, "1", "2", "3"), unit("4", uHigh)))
}

func TestCompare_IDLast(t *testing.T) {
	assert.Negative(t, Compare(unit("2", uMedium), unit("10", uMedium)))
	assert.Zero(t, Compare(unit("3", uMedium), unit("3", uMedium)))
}

func TestCompareIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "2", -1},
		{"2", "10", -1},
		{"10", "9", 1},
		{"7", "7", 0},
		{"3", "alpha", -1},
		{"alpha", "3", 1},
		{"alpha", "beta", -1},
		{"01", "1", -1},
		{"", "1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := CompareIDs(tt.a, tt.b)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
			case tt.want > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestSortUnits(t *testing.T) {
	units := []Unit{
		unit("4", uLow),
		unit("10", uHigh),
		unit("2", uHigh, "1"),
		unit("3", uCritical, "1", "2"),
		unit("1", uHigh, "9"),
		unit("5", uMedium),
	}

	sortUnits(units)

	got := make([]string, len(units))
	for i, u := range units {
		got[i] = u.ID
	}
	assert.Equal(t, []string{"3", "10", "1", "2", "5", "4"}, got)
}

func TestSortGroups_ParentsOrderedByOwnPriority(t *testing.T) {
	groups := []subtaskGroup{
		{
			parent:   unit("1", uLow),
			subtasks: []Unit{unit("2", uLow), unit("1", uCritical)},
		},
		{
			parent:   unit("2", uHigh),
			subtasks: []Unit{unit("1", uLow)},
		},
	}

	sortGroups(groups)

	assert.Equal(t, "2", groups[0].parent.ID)
	assert.Equal(t, "1", groups[1].parent.ID)
	assert.Equal(t, "1", groups[1].subtasks[0].LocalID)
	assert.Equal(t, "2", groups[1].subtasks[1].LocalID)
}
