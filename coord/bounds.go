package coord

import "math"

// Bounds is an axis-aligned rectangle in the XY plane. Z is ignored.
type Bounds struct {
	Min, Max Point
}

// EmptyBounds returns bounds that contain nothing; extending them with
// any coordinate makes that axis valid.
func EmptyBounds() Bounds {
	return Bounds{
		Min: Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

func (b *Bounds) ExtendX(x float64) {
	b.Min.X = math.Min(b.Min.X, x)
	b.Max.X = math.Max(b.Max.X, x)
}
func (b *Bounds) ExtendY(y float64) {
	b.Min.Y = math.Min(b.Min.Y, y)
	b.Max.Y = math.Max(b.Max.Y, y)
}

// Valid reports whether both axes have been extended at least once.
func (b Bounds) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y
}

func (b Bounds) Width() float64  { return b.Max.X - b.Min.X }
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Inset shrinks the rectangle by margin on every edge.
func (b Bounds) Inset(margin float64) Bounds {
	b.Min.X += margin
	b.Min.Y += margin
	b.Max.X -= margin
	b.Max.Y -= margin
	return b
}
