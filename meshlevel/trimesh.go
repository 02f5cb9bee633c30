package meshlevel

import (
	"math"

	"github.com/fogleman/delaunay"
	"github.com/mastercactapus/alevel/coord"
)

// triMesh interpolates heights over a Delaunay triangulation of the probe
// points. It backs Mesh when the probed rows do not line up into a grid.
type triMesh struct {
	minX, minY, maxX, maxY float64
	triangles              []coord.Triangle
}

func newTriMesh(points []coord.Point) (*triMesh, error) {
	points2d := make([]delaunay.Point, len(points))
	m := make(map[delaunay.Point]coord.Point, len(points))

	mesh := &triMesh{
		minX: points[0].X,
		minY: points[0].Y,
		maxX: points[0].X,
		maxY: points[0].Y,
	}
	var d delaunay.Point
	for i, p := range points {
		mesh.minX = math.Min(mesh.minX, p.X)
		mesh.minY = math.Min(mesh.minY, p.Y)
		mesh.maxX = math.Max(mesh.maxX, p.X)
		mesh.maxY = math.Max(mesh.maxY, p.Y)

		d.X = p.X
		d.Y = p.Y
		m[d] = p
		points2d[i] = d
	}

	tri, err := delaunay.Triangulate(points2d)
	if err != nil {
		return nil, err
	}
	if len(tri.Triangles) == 0 {
		return nil, ErrInsufficientData
	}

	mesh.triangles = make([]coord.Triangle, 0, len(tri.Triangles)/3)
	for i := 0; i < len(tri.Triangles); i += 3 {
		mesh.triangles = append(mesh.triangles, coord.Triangle{
			A: m[tri.Points[tri.Triangles[i]]],
			B: m[tri.Points[tri.Triangles[i+1]]],
			C: m[tri.Points[tri.Triangles[i+2]]],
		})
	}

	return mesh, nil
}

// HeightAt returns the plane height of the triangle under x,y. Outside the
// hull the nearest point on the hull is used.
func (m *triMesh) HeightAt(x, y float64) float64 {
	inBox := x >= m.minX-coord.Epsilon && x <= m.maxX+coord.Epsilon &&
		y >= m.minY-coord.Epsilon && y <= m.maxY+coord.Epsilon
	if inBox {
		for _, t := range m.triangles {
			if t.ContainsXY(x, y) {
				return t.Z(x, y)
			}
		}
	}

	var (
		best   coord.Triangle
		bx, by float64
		bestD  = math.Inf(1)
	)
	for _, t := range m.triangles {
		px, py, d := t.ClosestXY(x, y)
		if d < bestD {
			best, bx, by, bestD = t, px, py, d
		}
	}
	return best.Z(bx, by)
}
