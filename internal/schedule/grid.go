// Package schedule implements the grid transformations behind every room view:
// merging one participant's submission into the shared availability grid and
// projecting that grid for a single viewer.
//
// Everything in this package is pure. Callers load and persist grids; the
// functions here never perform I/O and never mutate their inputs.
package schedule

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when a submitted matrix does not have the
// dimensions of the grid it is merged into.
var ErrShapeMismatch = errors.New("schedule: submission does not match grid shape")

// Grid maps day × slot to the identifiers of participants available in that slot.
type Grid [][][]string

// NewGrid returns an empty grid with the given dimensions.
func NewGrid(days, slots int) Grid {
	if days < 0 {
		days = 0
	}
	if slots < 0 {
		slots = 0
	}
	grid := make(Grid, days)
	for d := range grid {
		grid[d] = make([][]string, slots)
		for s := range grid[d] {
			grid[d][s] = []string{}
		}
	}
	return grid
}

// Seed builds a grid of the matrix dimensions in which participant is marked
// exactly where marked is true. It is used when a room is created.
func Seed(participant string, marked [][]bool) Grid {
	grid := make(Grid, len(marked))
	for d, row := range marked {
		grid[d] = make([][]string, len(row))
		for s, available := range row {
			if available {
				grid[d][s] = []string{participant}
			} else {
				grid[d][s] = []string{}
			}
		}
	}
	return grid
}

// Days reports the number of days in the grid.
func (g Grid) Days() int {
	return len(g)
}

// Slots reports the number of slots per day, or 0 for an empty grid.
func (g Grid) Slots() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for d, row := range g {
		out[d] = make([][]string, len(row))
		for s, cell := range row {
			out[d][s] = append([]string{}, cell...)
		}
	}
	return out
}

// CheckShape verifies that submitted has exactly the dimensions of g.
func CheckShape(g Grid, submitted [][]bool) error {
	if len(submitted) != len(g) {
		return fmt.Errorf("%w: got %d days, want %d", ErrShapeMismatch, len(submitted), len(g))
	}
	for d, row := range g {
		if len(submitted[d]) != len(row) {
			return fmt.Errorf("%w: day %d has %d slots, want %d", ErrShapeMismatch, d, len(submitted[d]), len(row))
		}
	}
	return nil
}

// Split separates the viewer's own availability from everybody else's.
// own[d][s] is true iff viewer appears in g[d][s]; others is g with every
// occurrence of viewer removed.
func Split(g Grid, viewer string) (own [][]bool, others Grid) {
	own = make([][]bool, len(g))
	others = make(Grid, len(g))
	for d, row := range g {
		own[d] = make([]bool, len(row))
		others[d] = make([][]string, len(row))
		for s, cell := range row {
			rest := make([]string, 0, len(cell))
			for _, id := range cell {
				if id == viewer {
					own[d][s] = true
					continue
				}
				rest = append(rest, id)
			}
			others[d][s] = rest
		}
	}
	return own, others
}

// Merge replaces participant's availability in g with submitted. The
// participant is first removed from every cell and then added to exactly the
// cells marked true, so the result reflects only the latest submission.
// Other participants' entries are left untouched.
func Merge(g Grid, participant string, submitted [][]bool) (Grid, error) {
	if err := CheckShape(g, submitted); err != nil {
		return nil, err
	}

	_, merged := Split(g, participant)
	for d, row := range submitted {
		for s, available := range row {
			if available {
				merged[d][s] = append(merged[d][s], participant)
			}
		}
	}
	return merged, nil
}
