package machine

import (
	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/gcode"
)

// ProbeResult is one probe contact reported by the controller, in machine
// coordinates.
type ProbeResult struct {
	coord.Point

	// Valid is false when the probe finished its travel without contact.
	Valid bool
}

// ProbeOptions configure a straight z-probe operation.
type ProbeOptions struct {
	// TravelHeight is the work Z used for moves between probes.
	TravelHeight float64

	FeedRate float64
}

// probeDepth is how far below work zero a probe may travel.
func (opt ProbeOptions) probeDepth() float64 {
	return -(opt.TravelHeight + 1)
}

// zeroAt probes x,y at half speed and makes the contact point work Z zero.
func (opt ProbeOptions) zeroAt(p *gcode.Program, x, y float64) {
	p.Add(gcode.Word{W: 'G', Arg: 0}, gcode.Word{W: 'Z', Arg: opt.TravelHeight})
	p.Add(
		gcode.Word{W: 'G', Arg: 0},
		gcode.Word{W: 'X', Arg: x},
		gcode.Word{W: 'Y', Arg: y},
		gcode.Word{W: 'Z', Arg: opt.TravelHeight},
	)
	p.Add(
		gcode.Word{W: 'G', Arg: 38.2},
		gcode.Word{W: 'Z', Arg: opt.probeDepth()},
		gcode.Word{W: 'F', Arg: opt.FeedRate / 2},
	)
	p.Add(
		gcode.Word{W: 'G', Arg: 10},
		gcode.Word{W: 'L', Arg: 20},
		gcode.Word{W: 'P', Arg: 1},
		gcode.Word{W: 'Z', Arg: 0},
	)
	p.Add(gcode.Word{W: 'G', Arg: 0}, gcode.Word{W: 'Z', Arg: opt.TravelHeight})
}

// probeAt travels to x,y at the safe height, probes down and retracts.
func (opt ProbeOptions) probeAt(p *gcode.Program, x, y float64) {
	p.Add(
		gcode.Word{W: 'G', Arg: 90},
		gcode.Word{W: 'G', Arg: 0},
		gcode.Word{W: 'X', Arg: x},
		gcode.Word{W: 'Y', Arg: y},
		gcode.Word{W: 'Z', Arg: opt.TravelHeight},
	)
	p.Add(
		gcode.Word{W: 'G', Arg: 38.2},
		gcode.Word{W: 'Z', Arg: opt.probeDepth()},
		gcode.Word{W: 'F', Arg: opt.FeedRate},
	)
	p.Add(gcode.Word{W: 'G', Arg: 0}, gcode.Word{W: 'Z', Arg: opt.TravelHeight})
}
