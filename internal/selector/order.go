package selector

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fentz26/nextask/internal/models"
)

// Compare is the total order used for every candidate list. It returns a
// negative number when a sorts before b:
//
//  1. priority rank, most important first
//  2. dependency count, fewest first
//  3. local id, ascending (numerically when both ids are integers)
//
// Both units must carry a known priority; Plan validates this up front.
func Compare(a, b Unit) int {
	ra, _ := models.PriorityRank(a.Priority)
	rb, _ := models.PriorityRank(b.Priority)
	if ra != rb {
		if ra > rb {
			return -1
		}
		return 1
	}

	if da, db := len(a.Dependencies), len(b.Dependencies); da != db {
		if da < db {
			return -1
		}
		return 1
	}

	return CompareIDs(a.LocalID, b.LocalID)
}

// CompareIDs orders ids within one scope. Integer-valued ids compare
// numerically and sort before non-numeric ids; everything else compares as
// text. Ties between equal numbers ("01" and "1") fall back to text so the
// order stays total.
func CompareIDs(a, b string) int {
	na, aNum := numericID(a)
	nb, bNum := numericID(b)
	switch {
	case aNum && bNum:
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(a, b)
}

func numericID(id string) (uint64, bool) {
	if id == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// sortUnits orders units in place with Compare. The sort is stable.
func sortUnits(units []Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		return Compare(units[i], units[j]) < 0
	})
}

// sortGroups orders each group's subtasks and then the groups themselves by
// their parent's attributes.
func sortGroups(groups []subtaskGroup) {
	for i := range groups {
		sortUnits(groups[i].subtasks)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return Compare(groups[i].parent, groups[j].parent) < 0
	})
}
