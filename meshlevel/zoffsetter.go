package meshlevel

// ZOffsetter reports the surface height at a point. ok is false when the
// point has no known height.
type ZOffsetter interface {
	OffsetZ(x, y float64) (ok bool, dz float64)
}

// dummyOffsetter is a flat surface at zero.
type dummyOffsetter struct{}

func (dummyOffsetter) OffsetZ(x, y float64) (bool, float64) {
	return false, 0
}
