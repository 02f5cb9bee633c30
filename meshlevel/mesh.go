package meshlevel

import (
	"errors"
	"math"
	"sort"

	"github.com/mastercactapus/alevel/coord"
)

// ErrInsufficientData is returned when a mesh is built from no points.
var ErrInsufficientData = errors.New("not enough probe points to build a mesh")

// rowEpsilon is how close two Y values must be to share a row.
const rowEpsilon = 0.001

const spanEpsilon = 1e-9

// Mesh is a height field built from probe points. Points are grouped into
// rows of ascending Y, each sorted by ascending X, so the probing order does
// not matter. Queries use bilinear interpolation and clamp to the grid edges.
type Mesh struct {
	rows [][]coord.Point
	tri  *triMesh
}

// NewMesh builds a mesh from points in any order.
//
// A single point or a single row gives a flat mesh at the first point's
// height. Rows that do not line up into a regular grid are triangulated
// instead.
func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) == 0 {
		return nil, ErrInsufficientData
	}

	sorted := make([]coord.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})

	m := &Mesh{}
	var row []coord.Point
	for _, p := range sorted {
		if len(row) > 0 && math.Abs(p.Y-row[0].Y) > rowEpsilon {
			m.rows = append(m.rows, row)
			row = nil
		}
		row = append(row, p)
	}
	m.rows = append(m.rows, row)
	for _, r := range m.rows {
		sort.SliceStable(r, func(i, j int) bool { return r[i].X < r[j].X })
	}

	if len(m.rows) > 1 && !m.regular() {
		tri, err := newTriMesh(sorted)
		if err == nil {
			m.tri = tri
		}
	}

	return m, nil
}

// regular reports whether every row has the same number of columns and
// each column stays within half a column spacing of the first row's.
// Small drift between rows still interpolates bilinearly.
func (m *Mesh) regular() bool {
	first := m.rows[0]
	if len(first) < 2 {
		return false
	}
	tol := math.Inf(1)
	for c := 1; c < len(first); c++ {
		tol = math.Min(tol, (first[c].X-first[c-1].X)/2)
	}
	for _, r := range m.rows[1:] {
		if len(r) != len(first) {
			return false
		}
		for c := range r {
			if d := math.Abs(r[c].X - first[c].X); d > rowEpsilon && d >= tol {
				return false
			}
		}
	}
	return true
}

// Rows returns the number of probed rows.
func (m *Mesh) Rows() int { return len(m.rows) }

// Points returns the probe points in row order.
func (m *Mesh) Points() []coord.Point {
	var res []coord.Point
	for _, r := range m.rows {
		res = append(res, r...)
	}
	return res
}

// OffsetZ implements ZOffsetter. A mesh always has an answer.
func (m *Mesh) OffsetZ(x, y float64) (bool, float64) {
	return true, m.HeightAt(x, y)
}

// HeightAt returns the interpolated height at x,y.
func (m *Mesh) HeightAt(x, y float64) float64 {
	switch len(m.rows) {
	case 0:
		return 0
	case 1:
		return m.rows[0][0].Z
	}
	if m.tri != nil {
		return m.tri.HeightAt(x, y)
	}

	r := bracket(len(m.rows), func(i int) float64 { return m.rows[i][0].Y }, y)
	lo, hi := m.rows[r], m.rows[r+1]

	if len(lo) < 2 {
		// single column; interpolate along Y only
		return lerpClamped(lo[0].Y, hi[0].Y, lo[0].Z, hi[0].Z, y)
	}
	c := bracket(len(lo), func(i int) float64 { return lo[i].X }, x)
	if c+1 >= len(hi) {
		return lerpClamped(lo[c].X, lo[c+1].X, lo[c].Z, lo[c+1].Z, x)
	}

	q11, q21 := lo[c], lo[c+1]
	q12, q22 := hi[c], hi[c+1]

	spanX := q21.X - q11.X
	spanY := q12.Y - q11.Y
	absX, absY := math.Abs(spanX) < spanEpsilon, math.Abs(spanY) < spanEpsilon
	switch {
	case absX && absY:
		return q11.Z
	case absX:
		return lerpClamped(q11.Y, q12.Y, q11.Z, q12.Z, y)
	case absY:
		return lerpClamped(q11.X, q21.X, q11.Z, q21.Z, x)
	}

	u := clamp01((x - q11.X) / spanX)
	v := clamp01((y - q11.Y) / spanY)

	bottom := q11.Z*(1-u) + q21.Z*u
	top := q12.Z*(1-u) + q22.Z*u
	return bottom*(1-v) + top*v
}

// bracket returns the index i of the interval [at(i), at(i+1)] holding v,
// clamped to the first and last interval.
func bracket(n int, at func(int) float64, v float64) int {
	if v <= at(0) {
		return 0
	}
	for i := 0; i < n-1; i++ {
		if v <= at(i+1) {
			return i
		}
	}
	return n - 2
}

func clamp01(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

func lerpClamped(a, b, za, zb, v float64) float64 {
	if math.Abs(b-a) < spanEpsilon {
		return za
	}
	t := clamp01((v - a) / (b - a))
	return za*(1-t) + zb*t
}
