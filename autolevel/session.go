package autolevel

import (
	"math"

	"github.com/google/uuid"
	"github.com/mastercactapus/alevel/coord"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Session collects the points of one probing pass.
type Session struct {
	ID        uuid.UUID
	Planned   int
	ProbeOnly bool
	Step      float64

	Points []coord.Point

	minZ, maxZ, sumZ float64
}

func newSession(planned int, opts Options) *Session {
	return &Session{
		ID:        uuid.New(),
		Planned:   planned,
		ProbeOnly: opts.ProbeOnly,
		Step:      opts.Step,
		minZ:      math.Inf(1),
		maxZ:      math.Inf(-1),
	}
}

// Add records an accepted point.
func (s *Session) Add(p coord.Point) {
	s.Points = append(s.Points, p)
	s.minZ = math.Min(s.minZ, p.Z)
	s.maxZ = math.Max(s.maxZ, p.Z)
	s.sumZ += p.Z
}

// Done reports whether every planned point has been recorded.
func (s *Session) Done() bool { return len(s.Points) >= s.Planned }

// Summary returns the running min, max and average Z.
func (s *Session) Summary() (min, max, avg float64) {
	if len(s.Points) == 0 {
		return 0, 0, 0
	}
	return s.minZ, s.maxZ, s.sumZ / float64(len(s.Points))
}

// Stats describes the Z values of a set of probed points.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// ComputeStats summarizes the Z values of points.
func ComputeStats(points []coord.Point) Stats {
	if len(points) == 0 {
		return Stats{}
	}
	z := make([]float64, len(points))
	for i, p := range points {
		z[i] = p.Z
	}
	st := Stats{
		Count: len(z),
		Min:   floats.Min(z),
		Max:   floats.Max(z),
	}
	if len(z) < 2 {
		st.Mean = z[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(z, nil)
	return st
}
