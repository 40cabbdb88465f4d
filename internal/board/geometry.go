package board

// Point is a terminal cell coordinate.
type Point struct {
	X int
	Y int
}

// Rect is a cell-aligned box. A zero-size rect contains nothing.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Contains reports whether the cell at x, y lies inside the rect.
func (r Rect) Contains(x, y int) bool {
	return r.W > 0 && r.H > 0 && x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// clampInt bounds v to the inclusive [lo, hi] range.
func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
