package coord

import (
	"math"
)

// Point is a position in work space. The autoleveling code keeps
// points in millimeters.
type Point struct{ X, Y, Z float64 }

func (p Point) Cross(op Point) Point {
	return Point{
		p.Y*op.Z - p.Z*op.Y,
		p.Z*op.X - p.X*op.Z,
		p.X*op.Y - p.Y*op.X,
	}
}
func (p Point) Dot(op Point) float64 {
	return p.X*op.X + p.Y*op.Y + p.Z*op.Z
}

// Mul scales every axis by val.
func (p Point) Mul(val float64) Point {
	p.X *= val
	p.Y *= val
	p.Z *= val
	return p
}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	p.Z += target.Z
	return p
}

// Sub will subtract the target values from p.
func (p Point) Sub(target Point) Point {
	p.X -= target.X
	p.Y -= target.Y
	p.Z -= target.Z
	return p
}

// Lerp returns the point a fraction t of the way from p to target.
func (p Point) Lerp(target Point, t float64) Point {
	return p.Add(target.Sub(p).Mul(t))
}

// DistanceXY will return the 2D distance to p from (x,y).
func (p Point) DistanceXY(x, y float64) float64 {
	return math.Hypot(x-p.X, y-p.Y)
}

// Distance returns the 3D distance between p and target.
func (p Point) Distance(target Point) float64 {
	d := target.Sub(p)
	return math.Sqrt(d.Dot(d))
}

// SplitMax breaks the straight move from p to target into evenly spaced
// points no more than maxLen apart. The start point is not included, the
// target always is the last element.
//
// A move shorter than 1e-10 returns nil since there is nothing to split.
func (p Point) SplitMax(target Point, maxLen float64) []Point {
	dist := p.Distance(target)
	if dist < 1e-10 {
		return nil
	}
	if maxLen <= 0 || dist <= maxLen {
		return []Point{target}
	}

	n := int(math.Ceil(dist / maxLen))
	res := make([]Point, n)
	for i := 1; i < n; i++ {
		res[i-1] = p.Lerp(target, float64(i)/float64(n))
	}
	// exact endpoint, no accumulated error
	res[n-1] = target
	return res
}
