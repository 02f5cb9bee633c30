package meshlevel

import (
	"errors"
	"math"

	"github.com/mastercactapus/alevel/coord"
)

// ArcSegmentLength is the default max length of one linearized arc
// segment, in mm.
const ArcSegmentLength = 0.5

// ErrArcGeometry is returned when a radius arc has no center, e.g. the
// chord is longer than the diameter.
var ErrArcGeometry = errors.New("arc radius cannot reach end point")

// Arc is a circular move in the XY plane. Z changes linearly from Start
// to End (a helix).
type Arc struct {
	Start, End coord.Point
	CX, CY     float64
	Clockwise  bool
}

// NewArcCenter makes an arc around an explicit center.
func NewArcCenter(start, end coord.Point, cx, cy float64, cw bool) Arc {
	return Arc{Start: start, End: end, CX: cx, CY: cy, Clockwise: cw}
}

// NewArcRadius solves the center of a radius-form arc. A positive radius
// takes the short way around (at most a half turn), a negative one the
// long way.
func NewArcRadius(start, end coord.Point, r float64, cw bool) (Arc, error) {
	dx, dy := end.X-start.X, end.Y-start.Y
	d := math.Hypot(dx, dy)
	if d < 1e-9 || math.Abs(r) < d/2-1e-6 {
		return Arc{}, ErrArcGeometry
	}

	h := math.Sqrt(math.Max(0, r*r-d*d/4))
	mx, my := start.X+dx/2, start.Y+dy/2

	// unit normal to the right of the chord
	nx, ny := dy/d, -dx/d
	if cw == (r < 0) {
		nx, ny = -nx, -ny
	}

	return Arc{
		Start:     start,
		End:       end,
		CX:        mx + nx*h,
		CY:        my + ny*h,
		Clockwise: cw,
	}, nil
}

// Radius is the distance from the center to the start point.
func (a Arc) Radius() float64 {
	return a.Start.DistanceXY(a.CX, a.CY)
}

// Sweep returns the signed angle traveled, negative for clockwise arcs.
// Coincident start and end points make a full circle.
func (a Arc) Sweep() float64 {
	start := math.Atan2(a.Start.Y-a.CY, a.Start.X-a.CX)
	end := math.Atan2(a.End.Y-a.CY, a.End.X-a.CX)
	sweep := end - start

	const eps = 1e-9
	if a.Clockwise {
		if sweep >= -eps {
			sweep -= 2 * math.Pi
		}
	} else if sweep <= eps {
		sweep += 2 * math.Pi
	}
	return sweep
}

// Length returns the XY path length of the arc.
func (a Arc) Length() float64 {
	return math.Abs(a.Sweep()) * a.Radius()
}

// Segments returns how many straight segments no longer than maxLen
// approximate the arc. It is at least 1.
func (a Arc) Segments(maxLen float64) int {
	if maxLen <= 0 {
		maxLen = ArcSegmentLength
	}
	n := int(math.Ceil(a.Length() / maxLen))
	if n < 1 {
		n = 1
	}
	return n
}

// Points linearizes the arc. The start point is not included and the last
// point is exactly End.
func (a Arc) Points(maxLen float64) []coord.Point {
	n := a.Segments(maxLen)
	r := a.Radius()
	start := math.Atan2(a.Start.Y-a.CY, a.Start.X-a.CX)
	step := a.Sweep() / float64(n)
	dz := (a.End.Z - a.Start.Z) / float64(n)

	res := make([]coord.Point, n)
	for i := 1; i < n; i++ {
		ang := start + step*float64(i)
		res[i-1] = coord.Point{
			X: a.CX + r*math.Cos(ang),
			Y: a.CY + r*math.Sin(ang),
			Z: a.Start.Z + dz*float64(i),
		}
	}
	res[n-1] = a.End
	return res
}
