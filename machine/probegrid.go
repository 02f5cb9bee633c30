package machine

import (
	"errors"
	"fmt"
	"math"

	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/gcode"
)

// ErrGridArea is returned when the area left after the margin is empty
// or the spacing cannot be computed.
var ErrGridArea = errors.New("invalid probing area")

// GridOptions configure a grid-pattern z-probe operation.
type GridOptions struct {
	ProbeOptions

	// Area is the rectangle to probe, before the margin is applied.
	Area coord.Bounds

	// Margin is kept clear on every edge of Area.
	Margin float64

	// Step is the target distance between probe points.
	Step float64

	// Count is the number of points per axis. When set it takes priority
	// over Step; values below 2 are raised to 2.
	Count int
}

// GridPlan is a probing program and the points it will probe, in the order
// the probes run.
type GridPlan struct {
	Program gcode.Program
	Targets []coord.Point
}

// Count returns the number of probe commands in the program.
func (p GridPlan) Count() int { return len(p.Targets) }

// axisPoints divides [min, max] into evenly spaced positions. The last
// position is exactly max.
func (opt GridOptions) axisPoints(min, max float64) ([]float64, error) {
	span := max - min
	if span < 1e-9 {
		return []float64{min}, nil
	}

	var n int
	switch {
	case opt.Count > 0:
		n = opt.Count - 1
		if n < 1 {
			n = 1
		}
	case opt.Step > 0:
		n = int(math.Round(span / opt.Step))
		if n < 1 {
			n = 1
		}
	default:
		return nil, fmt.Errorf("%w: step must be positive", ErrGridArea)
	}

	res := make([]float64, n+1)
	d := span / float64(n)
	for i := range res {
		res[i] = min + d*float64(i)
	}
	res[n] = max
	return res, nil
}

// Plan generates the probing program. The first corner is probed at half
// speed and becomes work Z zero; the rest of the grid is swept row by row
// in alternating X direction.
func (opt GridOptions) Plan() (*GridPlan, error) {
	area := opt.Area.Inset(opt.Margin)
	if !area.Valid() {
		return nil, fmt.Errorf("%w: %gx%g with margin %g", ErrGridArea, opt.Area.Width(), opt.Area.Height(), opt.Margin)
	}
	xs, err := opt.axisPoints(area.Min.X, area.Max.X)
	if err != nil {
		return nil, err
	}
	ys, err := opt.axisPoints(area.Min.Y, area.Max.Y)
	if err != nil {
		return nil, err
	}

	plan := &GridPlan{}
	p := &plan.Program
	p.Comment("AL: probing initial point")
	p.Add(gcode.Word{W: 'G', Arg: 21})
	p.Add(gcode.Word{W: 'G', Arg: 90})
	opt.zeroAt(p, xs[0], ys[0])
	plan.Targets = append(plan.Targets, coord.Point{X: xs[0], Y: ys[0]})

	row := make([]float64, len(xs))
	for r, y := range ys {
		copy(row, xs)
		if r%2 == 1 {
			for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
				row[i], row[j] = row[j], row[i]
			}
		}
		for c, x := range row {
			if r == 0 && c == 0 {
				// already probed as the initial point
				continue
			}
			p.Comment(fmt.Sprintf("AL: probing point %d", len(plan.Targets)+1))
			opt.probeAt(p, x, y)
			plan.Targets = append(plan.Targets, coord.Point{X: x, Y: y})
		}
	}

	return plan, nil
}
