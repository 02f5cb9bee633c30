package coord

import (
	"math"
)

const (
	// Epsilon is the max error when checking containment.
	Epsilon   = 0.001
	epsilonSq = Epsilon * Epsilon
)

type Triangle struct{ A, B, C Point }

// ContainsXY returns true if the 2D projection of the triangle
// has the point x,y. Points within Epsilon of an edge count as inside.
func (t Triangle) ContainsXY(x, y float64) bool {
	minX := math.Min(t.A.X, math.Min(t.B.X, t.C.X)) - Epsilon
	maxX := math.Max(t.A.X, math.Max(t.B.X, t.C.X)) + Epsilon
	minY := math.Min(t.A.Y, math.Min(t.B.Y, t.C.Y)) - Epsilon
	maxY := math.Max(t.A.Y, math.Max(t.B.Y, t.C.Y)) + Epsilon
	if x < minX || maxX < x || y < minY || maxY < y {
		return false
	}

	d1 := edgeSide(t.A, t.B, x, y)
	d2 := edgeSide(t.B, t.C, x, y)
	d3 := edgeSide(t.C, t.A, x, y)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	if !(hasNeg && hasPos) {
		return true
	}

	// accept points sitting on an edge within tolerance
	return segmentDistSq(t.A, t.B, x, y) <= epsilonSq ||
		segmentDistSq(t.B, t.C, x, y) <= epsilonSq ||
		segmentDistSq(t.C, t.A, x, y) <= epsilonSq
}

// Z will give the Z-coordinate on the plane defined by the triangle
// where it intersects x,y.
func (t Triangle) Z(x, y float64) float64 {
	n := t.C.Sub(t.A).Cross(t.B.Sub(t.A))
	if n.Z == 0 {
		// degenerate (colinear in XY)
		return t.A.Z
	}
	d := n.Dot(t.C)
	return (d - n.X*x - n.Y*y) / n.Z
}

func edgeSide(a, b Point, x, y float64) float64 {
	return (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
}

// ClosestXY returns the point on the triangle's 2D projection nearest
// to x,y and the squared distance to it. Points inside return themselves.
func (t Triangle) ClosestXY(x, y float64) (px, py, distSq float64) {
	if t.ContainsXY(x, y) {
		return x, y, 0
	}
	distSq = math.Inf(1)
	for _, e := range [3][2]Point{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}} {
		ex, ey := closestOnSegment(e[0], e[1], x, y)
		d := (x-ex)*(x-ex) + (y-ey)*(y-ey)
		if d < distSq {
			px, py, distSq = ex, ey, d
		}
	}
	return px, py, distSq
}

func closestOnSegment(a, b Point, x, y float64) (float64, float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a.X, a.Y
	}
	t := ((x-a.X)*dx + (y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return a.X + t*dx, a.Y + t*dy
}

func segmentDistSq(a, b Point, x, y float64) float64 {
	px, py := closestOnSegment(a, b, x, y)
	return (x-px)*(x-px) + (y-py)*(y-py)
}
