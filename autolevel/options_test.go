package autolevel

import (
	"testing"

	"github.com/mastercactapus/alevel/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	opts, err := ParseCommand("#autolevel GRID3 d5 h3 F40 M1 X20 Y30 P1", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Options{
		Step:         5,
		Grid:         3,
		TravelHeight: 3,
		Feed:         40,
		Margin:       1,
		HasMargin:    true,
		SizeX:        20,
		SizeY:        30,
		ProbeOnly:    true,
	}, opts)

	opts, err = ParseCommand("  #autolevel\tD5 H3 GRID3 P1", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 5.0, opts.Step)
	assert.Equal(t, 3.0, opts.TravelHeight)
	assert.Equal(t, 3, opts.Grid)
	assert.True(t, opts.ProbeOnly)

	opts, err = ParseCommand("#autolevel", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
	assert.Equal(t, 2.5, opts.EffectiveMargin())
}

func TestParseCommand_Invalid(t *testing.T) {
	opts, err := ParseCommand("D0 Hx F20 Q5 D", DefaultOptions())
	assert.Error(t, err)
	assert.Equal(t, 10.0, opts.Step)
	assert.Equal(t, 2.0, opts.TravelHeight)
	assert.Equal(t, 20.0, opts.Feed, "valid tokens still apply")

	_, err = ParseCommand(`D5 "unterminated`, DefaultOptions())
	assert.Error(t, err)
}

func TestResolveArea(t *testing.T) {
	prog := &coord.Bounds{Min: coord.Point{X: 1, Y: 2}, Max: coord.Point{X: 3, Y: 4}}
	ctx := &coord.Bounds{Min: coord.Point{X: -1, Y: -2}, Max: coord.Point{X: 5, Y: 6}}

	a, err := ResolveArea(Options{SizeX: 10}, prog, ctx)
	require.NoError(t, err)
	assert.Equal(t, coord.Bounds{Min: coord.Point{Y: 2}, Max: coord.Point{X: 10, Y: 4}}, a)

	a, err = ResolveArea(Options{SizeY: 7}, nil, ctx)
	require.NoError(t, err)
	assert.Equal(t, coord.Bounds{Min: coord.Point{X: -1}, Max: coord.Point{X: 5, Y: 7}}, a)

	_, err = ResolveArea(Options{SizeX: 10}, nil, nil)
	assert.ErrorIs(t, err, ErrNoArea)
}
