package gcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramBounds(t *testing.T) {
	prog := `
(header)
G21 G90
G53 G0 Z-1 X-500
G0 X5 Y2
G1 X20 Y-3 F100
G92 X1000 Y1000
G91 G1 X50
G90 G1 Y12
G28 X0 Y0
`
	b, err := ProgramBounds(strings.NewReader(prog))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 5.0, b.Min.X)
	assert.Equal(t, 20.0, b.Max.X)
	assert.Equal(t, -3.0, b.Min.Y)
	assert.Equal(t, 12.0, b.Max.Y)
}

func TestProgramBounds_Inches(t *testing.T) {
	b, err := ProgramBounds(strings.NewReader("G20\nG0 X1 Y1\nX2 Y-1\n"))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.InDelta(t, 25.4, b.Min.X, 1e-9)
	assert.InDelta(t, 50.8, b.Max.X, 1e-9)
	assert.InDelta(t, -25.4, b.Min.Y, 1e-9)
}

func TestProgramBounds_Incomplete(t *testing.T) {
	b, err := ProgramBounds(strings.NewReader("G0 X1\nG1 X4 Z1\nthis is junk\n"))
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestProgramBounds_SkipsProbing(t *testing.T) {
	prog := "G90\nG0 X0 Y0\nG38.2 X-40 Y-40 Z-5 F50\nG38.3 X90 Z-5\nG92.2 X500\nG92.3 Y500\nG1 X10 Y10\n"
	b, err := ProgramBounds(strings.NewReader(prog))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 0.0, b.Min.X)
	assert.Equal(t, 10.0, b.Max.X)
	assert.Equal(t, 0.0, b.Min.Y)
	assert.Equal(t, 10.0, b.Max.Y)
}
