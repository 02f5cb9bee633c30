package grbl

import (
	"strings"
	"testing"

	"github.com/mastercactapus/alevel/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeStream_Chunks(t *testing.T) {
	var s ProbeStream
	_, err := s.Next()
	assert.ErrorIs(t, err, ErrNoRecord)

	s.Write([]byte("ok\r\n[PR"))
	_, err = s.Next()
	assert.ErrorIs(t, err, ErrNoRecord)

	s.Write([]byte("B:10.000,20.0"))
	_, err = s.Next()
	assert.ErrorIs(t, err, ErrNoRecord)

	s.Write([]byte("00,-1.500:1]\nok\n[PRB:1,1,1:1][PRB:2,2,2:0]"))
	res, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 10, Y: 20, Z: -1.5}, res.Point)
	assert.True(t, res.Valid)

	res, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 1, Y: 1, Z: 1}, res.Point)

	res, err = s.Next()
	require.NoError(t, err)
	assert.False(t, res.Valid)

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestProbeStream_Malformed(t *testing.T) {
	var s ProbeStream
	s.Write([]byte("[PRB:a,b,c:1]\n[PRB:1,2,3:1]\n"))

	_, err := s.Next()
	assert.ErrorIs(t, err, ErrMalformedProbe)

	res, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 1, Y: 2, Z: 3}, res.Point)
}

func TestProbeStream_Unterminated(t *testing.T) {
	var s ProbeStream
	s.Write([]byte("[PRB:1,2,[PRB:4,5,6:1]"))
	res, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 4, Y: 5, Z: 6}, res.Point)
}

func TestProbeStream_Bounded(t *testing.T) {
	var s ProbeStream
	s.Write([]byte("[PRB:"))
	s.Write([]byte(strings.Repeat("x", 6000)))
	assert.Equal(t, keepBuffered, s.Buffered())

	_, err := s.Next()
	assert.ErrorIs(t, err, ErrNoRecord)
	assert.Equal(t, len(probeOpen)-1, s.Buffered())

	s.Write([]byte("PRB:7,8,9:1]"))
	_, err = s.Next()
	assert.ErrorIs(t, err, ErrNoRecord, "opener was dropped with the old data")

	s.Write([]byte("[PRB:7,8,9:1]"))
	res, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 7, Y: 8, Z: 9}, res.Point)
}
