package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLine(t *testing.T, vm *VM, s string) Target {
	t.Helper()
	l, err := ParseLine(s)
	require.NoError(t, err)
	tgt, err := vm.Run(l.Block)
	require.NoError(t, err)
	return tgt
}

func TestVM_Defaults(t *testing.T) {
	vm := NewVM()
	assert.Equal(t, MotionRapid, vm.Motion())
	assert.Equal(t, Millimeters, vm.Units())
	assert.False(t, vm.RelativeMotion())
	assert.False(t, vm.AbsoluteArcs())
	assert.False(t, vm.Initialized())
}

func TestVM_Modal(t *testing.T) {
	vm := NewVM()
	runLine(t, vm, "G20 G91 G2")
	assert.True(t, vm.Inches())
	assert.True(t, vm.RelativeMotion())
	assert.Equal(t, MotionArcCW, vm.Motion())

	runLine(t, vm, "X1")
	assert.Equal(t, MotionArcCW, vm.Motion(), "motion is modal")

	runLine(t, vm, "G38.2 Z-5")
	assert.Equal(t, MotionProbe, vm.Motion())

	runLine(t, vm, "G90.1 G80")
	assert.True(t, vm.AbsoluteArcs())
	assert.Equal(t, MotionCancel, vm.Motion())

	runLine(t, vm, "G33")
	assert.Equal(t, MotionOther, vm.Motion())
}

func TestVM_Target(t *testing.T) {
	vm := NewVM()

	tgt := runLine(t, vm, "G1 X10 Y5")
	assert.Equal(t, [3]bool{true, true, false}, tgt.Known)
	assert.Equal(t, [3]bool{true, true, false}, tgt.Named)
	assert.False(t, tgt.FullyKnown())
	assert.False(t, vm.Initialized(), "run does not commit")

	vm.Commit(tgt)
	tgt = runLine(t, vm, "Z2")
	assert.True(t, tgt.FullyKnown())
	assert.Equal(t, 10.0, tgt.X)
	assert.Equal(t, 2.0, tgt.Z)
	vm.Commit(tgt)
	assert.True(t, vm.Initialized())

	tgt = runLine(t, vm, "G91 X1 Z-1")
	assert.InDelta(t, 11.0, tgt.X, 1e-9)
	assert.InDelta(t, 1.0, tgt.Z, 1e-9)
	assert.True(t, tgt.FullyKnown())
	assert.False(t, tgt.Named[1])
}

func TestVM_Inches(t *testing.T) {
	vm := NewVM()
	tgt := runLine(t, vm, "G20 G0 X1 Y2 Z0.5")
	assert.InDelta(t, 25.4, tgt.X, 1e-9)
	assert.InDelta(t, 50.8, tgt.Y, 1e-9)
	assert.InDelta(t, 12.7, tgt.Z, 1e-9)
}

func TestVM_Forget(t *testing.T) {
	vm := NewVM()
	vm.Commit(runLine(t, vm, "X1 Y1 Z1"))
	require.True(t, vm.Initialized())

	vm.Forget([3]bool{false, false, true})
	assert.False(t, vm.Initialized())
	assert.Equal(t, [3]bool{true, true, false}, vm.Pos().Known)

	// relative moves on an unknown axis keep it unknown
	tgt := runLine(t, vm, "G91 Z1")
	assert.False(t, tgt.Known[2])

	vm.ForgetAll()
	assert.Equal(t, [3]bool{}, vm.Pos().Known)
}

func TestVM_Invalid(t *testing.T) {
	vm := NewVM()
	_, err := vm.Run(Block{{'X', 1}, {'X', 2}})
	assert.Error(t, err)
	_, err = vm.Run(Block{{'G', 0}, {'G', 1}})
	assert.Error(t, err)
}

func TestVM_Sync(t *testing.T) {
	vm := NewVM()
	runLine(t, vm, "G20 G91")
	l, err := ParseLine("G92 X1 Z0")
	require.NoError(t, err)
	vm.Sync(l.Block)

	p := vm.Pos()
	assert.InDelta(t, 25.4, p.X, 1e-9)
	assert.Equal(t, 0.0, p.Z)
	assert.Equal(t, [3]bool{true, false, true}, p.Known)
	assert.Equal(t, 54.0, vm.CoordinateSystem())
	assert.Equal(t, 17.0, vm.Plane())
}
