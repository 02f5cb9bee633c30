package machine

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mastercactapus/alevel/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func area(w, h float64) coord.Bounds {
	return coord.Bounds{Max: coord.Point{X: w, Y: h}}
}

func TestGridOptions_Count(t *testing.T) {
	opt := GridOptions{
		ProbeOptions: ProbeOptions{TravelHeight: 2, FeedRate: 50},
		Area:         area(10, 10),
		Count:        3,
		Step:         2,
	}
	plan, err := opt.Plan()
	require.NoError(t, err)

	want := []coord.Point{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0},
		{X: 10, Y: 5}, {X: 5, Y: 5}, {X: 0, Y: 5},
		{X: 0, Y: 10}, {X: 5, Y: 10}, {X: 10, Y: 10},
	}
	if diff := cmp.Diff(want, plan.Targets); diff != "" {
		t.Errorf("targets (-want +got):\n%s", diff)
	}
	assert.Equal(t, 9, plan.Count())

	opt.Count = 2
	plan, err = opt.Plan()
	require.NoError(t, err)
	want = []coord.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	assert.Empty(t, cmp.Diff(want, plan.Targets))

	opt.Count = 1
	plan, err = opt.Plan()
	require.NoError(t, err)
	assert.Equal(t, 4, plan.Count(), "grid is at least 2x2")
}

func TestGridOptions_Program(t *testing.T) {
	opt := GridOptions{
		ProbeOptions: ProbeOptions{TravelHeight: 2, FeedRate: 50},
		Area:         area(10, 10),
		Count:        2,
	}
	plan, err := opt.Plan()
	require.NoError(t, err)

	lines := strings.Split(plan.Program.String(), "\n")
	assert.Equal(t, []string{
		"(AL: probing initial point)",
		"G21",
		"G90",
		"G0 Z2",
		"G0 X0 Y0 Z2",
		"G38.2 Z-3 F25",
		"G10 L20 P1 Z0",
		"G0 Z2",
		"(AL: probing point 2)",
		"G90 G0 X10 Y0 Z2",
		"G38.2 Z-3 F50",
		"G0 Z2",
	}, lines[:12])

	var probes int
	for _, l := range lines {
		if strings.HasPrefix(l, "G38.2") {
			probes++
		}
	}
	assert.Equal(t, plan.Count(), probes)
}

func TestGridOptions_Step(t *testing.T) {
	opt := GridOptions{
		ProbeOptions: ProbeOptions{TravelHeight: 2, FeedRate: 50},
		Area:         area(33, 17),
		Step:         10,
		Margin:       2.5,
	}
	plan, err := opt.Plan()
	require.NoError(t, err)

	xs := map[float64]bool{}
	ys := map[float64]bool{}
	for _, p := range plan.Targets {
		xs[p.X] = true
		ys[p.Y] = true
	}
	// 28mm span in 3 segments, 12mm span in 1
	assert.Len(t, xs, 4)
	assert.Len(t, ys, 2)
	assert.Equal(t, 8, plan.Count())
	assert.True(t, xs[2.5])
	assert.True(t, xs[30.5])
	assert.True(t, ys[14.5])

	for x := range xs {
		seg := (x - 2.5) / (28.0 / 3)
		assert.InDelta(t, math.Round(seg), seg, 1e-9, "x=%g is on the grid", x)
	}
}

func TestGridOptions_Errors(t *testing.T) {
	_, err := GridOptions{Area: area(10, 10), Margin: 6, Step: 1}.Plan()
	assert.ErrorIs(t, err, ErrGridArea)

	_, err = GridOptions{Area: area(10, 10)}.Plan()
	assert.ErrorIs(t, err, ErrGridArea)

	plan, err := GridOptions{Area: area(0, 0), Step: 5}.Plan()
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Count(), "a point area is probed once")
}
