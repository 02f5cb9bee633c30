package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriangle_Z(t *testing.T) {
	tri := Triangle{
		A: Point{0, 0, 0},
		B: Point{10, 0, 0},
		C: Point{5, 5, 5},
	}

	assert.Equal(t, 0.0, tri.Z(0, 0))
	assert.Equal(t, 0.0, tri.Z(5, 0))
	assert.Equal(t, 5.0, tri.Z(5, 5))
	assert.Equal(t, 2.5, tri.Z(2.5, 2.5))
}

func TestTriangle_ContainsXY(t *testing.T) {
	tri := Triangle{
		A: Point{0, 0, 0},
		B: Point{10, 0, 0},
		C: Point{0, 10, 0},
	}

	assert.True(t, tri.ContainsXY(1, 1))
	assert.True(t, tri.ContainsXY(5, 5), "on hypotenuse")
	assert.True(t, tri.ContainsXY(5, 5.0005), "within epsilon of edge")
	assert.False(t, tri.ContainsXY(6, 6))
	assert.False(t, tri.ContainsXY(-1, 2))
}

func TestTriangle_ClosestXY(t *testing.T) {
	tri := Triangle{
		A: Point{0, 0, 0},
		B: Point{10, 0, 0},
		C: Point{0, 10, 0},
	}

	x, y, d := tri.ClosestXY(2, 2)
	assert.Equal(t, [3]float64{2, 2, 0}, [3]float64{x, y, d})

	x, y, d = tri.ClosestXY(5, -3)
	assert.InDelta(t, 5, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
	assert.InDelta(t, 9, d, 1e-9)

	x, y, _ = tri.ClosestXY(-2, -2)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
}
