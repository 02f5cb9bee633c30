package gcode

const mmPerInch = 25.4

// Units is the active length unit of a program (G20/G21).
type Units int

const (
	Millimeters Units = iota
	Inches
)

func (u Units) String() string {
	if u == Inches {
		return "in"
	}
	return "mm"
}

// ToMM converts v from u into millimeters.
func (u Units) ToMM(v float64) float64 {
	if u == Inches {
		return v * mmPerInch
	}
	return v
}

// FromMM converts v from millimeters into u.
func (u Units) FromMM(v float64) float64 {
	if u == Inches {
		return v / mmPerInch
	}
	return v
}
