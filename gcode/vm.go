package gcode

import (
	"github.com/mastercactapus/alevel/coord"
)

// Motion is the interpretation of the active motion group (group 1).
type Motion int

const (
	MotionRapid Motion = iota
	MotionLinear
	MotionArcCW
	MotionArcCCW
	MotionProbe
	MotionCancel
	MotionOther
)

func (m Motion) String() string {
	switch m {
	case MotionRapid:
		return "G0"
	case MotionLinear:
		return "G1"
	case MotionArcCW:
		return "G2"
	case MotionArcCCW:
		return "G3"
	case MotionProbe:
		return "G38"
	case MotionCancel:
		return "G80"
	}
	return "other"
}

// Target is where a block moves the tool, in millimeters.
type Target struct {
	coord.Point

	// Known reports, per axis, whether the position is known.
	Known [3]bool

	// Named reports, per axis, whether the block specified it.
	Named [3]bool
}

// Moves reports whether the block named any axis.
func (t Target) Moves() bool { return t.Named[0] || t.Named[1] || t.Named[2] }

// FullyKnown reports whether every axis of the target is known.
func (t Target) FullyKnown() bool { return t.Known[0] && t.Known[1] && t.Known[2] }

// VM will track modal state and the tool position while reading a program.
//
// Positions are tracked in millimeters regardless of the program's units,
// and in work coordinates.
type VM struct {
	pos   coord.Point
	known [3]bool

	modal [256]float64
}

// NewVM constructs a new VM with default state.
func NewVM() *VM {
	vm := &VM{}

	// using grbl defaults
	vm.modal[ModalGroupMotion] = 0
	vm.modal[ModalGroupCoordinateSystem] = 54
	vm.modal[ModalGroupPlaneSelection] = 17
	vm.modal[ModalGroupDistanceMode] = 90
	vm.modal[ModalGroupArcDistanceMode] = 91.1
	vm.modal[ModalGroupFeedRateMode] = 94
	vm.modal[ModalGroupUnits] = 21
	vm.modal[ModalGroupCutterCompensationMode] = 40
	vm.modal[ModalGroupToolLength] = 49
	vm.modal[ModalGroupStopping] = 0
	vm.modal[ModalGroupSpindle] = 5
	vm.modal[ModalGroupCoolant] = 9

	return vm
}

func (vm *VM) Inches() bool         { return vm.modal[ModalGroupUnits] == 20 }
func (vm *VM) RelativeMotion() bool { return vm.modal[ModalGroupDistanceMode] == 91 }

// AbsoluteArcs reports whether I/J/K are absolute (G90.1) rather than
// relative to the arc start.
func (vm *VM) AbsoluteArcs() bool { return vm.modal[ModalGroupArcDistanceMode] == 90.1 }

func (vm *VM) Units() Units {
	if vm.Inches() {
		return Inches
	}
	return Millimeters
}

// CoordinateSystem returns the active work coordinate system, e.g. 54.
func (vm *VM) CoordinateSystem() float64 { return vm.modal[ModalGroupCoordinateSystem] }

// Plane returns the active plane selection, e.g. 17 for XY.
func (vm *VM) Plane() float64 { return vm.modal[ModalGroupPlaneSelection] }

func (vm *VM) Motion() Motion {
	switch g := vm.modal[ModalGroupMotion]; g {
	case 0:
		return MotionRapid
	case 1:
		return MotionLinear
	case 2:
		return MotionArcCW
	case 3:
		return MotionArcCCW
	case 38.2, 38.3, 38.4, 38.5:
		return MotionProbe
	case 80:
		return MotionCancel
	}
	return MotionOther
}

// Pos returns the current position in millimeters.
func (vm *VM) Pos() Target {
	return Target{Point: vm.pos, Known: vm.known}
}

// Initialized reports whether all three axes have a known position.
func (vm *VM) Initialized() bool {
	return vm.known[0] && vm.known[1] && vm.known[2]
}

// Commit makes t the current position.
func (vm *VM) Commit(t Target) {
	vm.pos = t.Point
	vm.known = t.Known
}

// Forget marks the named axes of t as unknown.
func (vm *VM) Forget(named [3]bool) {
	for i, n := range named {
		if n {
			vm.known[i] = false
		}
	}
}

// Sync sets the axes named in b to their values, ignoring the distance
// mode. It is used for words that declare the current position, such as
// G92 and G10 L20.
func (vm *VM) Sync(b Block) {
	u := vm.Units()
	for _, w := range b {
		axis := axisIndex(w.W)
		if axis < 0 {
			continue
		}
		t := Target{Point: vm.pos}
		t.set(axis, u.ToMM(w.Arg))
		vm.pos = t.Point
		vm.known[axis] = true
	}
}

// ForgetAll marks every axis as unknown.
func (vm *VM) ForgetAll() {
	vm.known = [3]bool{}
}

func axisIndex(w byte) int {
	switch w {
	case 'X':
		return 0
	case 'Y':
		return 1
	case 'Z':
		return 2
	}
	return -1
}

func (t *Target) set(axis int, v float64) {
	switch axis {
	case 0:
		t.X = v
	case 1:
		t.Y = v
	case 2:
		t.Z = v
	}
}
func (t Target) get(axis int) float64 {
	switch axis {
	case 0:
		return t.X
	case 1:
		return t.Y
	}
	return t.Z
}

// Run applies the modal words of b and returns the position the block
// targets. The current position is not changed; call Commit for that.
func (vm *VM) Run(b Block) (Target, error) {
	err := b.Validate()
	if err != nil {
		return vm.Pos(), err
	}
	for _, g := range b {
		mg := g.ModalGroup()
		if mg.Modal() {
			vm.modal[mg] = g.Arg
		}
	}

	u := vm.Units()
	t := vm.Pos()
	for _, g := range b {
		axis := axisIndex(g.W)
		if axis < 0 {
			continue
		}
		v := u.ToMM(g.Arg)
		t.Named[axis] = true
		if vm.RelativeMotion() {
			// relative to an unknown position stays unknown
			t.set(axis, t.get(axis)+v)
			continue
		}
		t.set(axis, v)
		t.Known[axis] = true
	}

	return t, nil
}
