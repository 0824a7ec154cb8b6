package mesh

import (
	"errors"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
)

var ErrTriangulation = errors.New("ring cannot be triangulated")

// Triangulate splits a simple counter-clockwise ring into triangles by ear
// clipping. Each triangle is three indices into ring, counter-clockwise.
func Triangulate(ring []models.Point) ([][3]int, error) {
	n := len(ring)
	if n < 3 {
		return nil, ErrTriangulation
	}

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}
	if geom.SignedArea(ring) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			remaining[i], remaining[j] = remaining[j], remaining[i]
		}
	}

	tris := make([][3]int, 0, n-2)
	for guard := 0; len(remaining) > 3; guard++ {
		if guard > n*n {
			return nil, ErrTriangulation
		}

		clipped := false
		m := len(remaining)
		for i := 0; i < m; i++ {
			prev, cur, next := remaining[(i+m-1)%m], remaining[i], remaining[(i+1)%m]
			if !isEar(ring, remaining, prev, cur, next) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			remaining = append(remaining[:i], remaining[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// collinear leftovers: drop the flattest vertex
			if !dropCollinear(ring, &remaining) {
				return nil, ErrTriangulation
			}
		}
	}

	if cross(ring[remaining[0]], ring[remaining[1]], ring[remaining[2]]) > 0 {
		tris = append(tris, [3]int{remaining[0], remaining[1], remaining[2]})
	}
	if len(tris) == 0 {
		return nil, ErrTriangulation
	}
	return tris, nil
}

func isEar(ring []models.Point, remaining []int, prev, cur, next int) bool {
	a, b, c := ring[prev], ring[cur], ring[next]
	if cross(a, b, c) <= 0 {
		return false
	}
	for _, idx := range remaining {
		if idx == prev || idx == cur || idx == next {
			continue
		}
		if inTriangle(ring[idx], a, b, c) {
			return false
		}
	}
	return true
}

func dropCollinear(ring []models.Point, remaining *[]int) bool {
	r := *remaining
	m := len(r)
	for i := 0; i < m; i++ {
		a, b, c := ring[r[(i+m-1)%m]], ring[r[i]], ring[r[(i+1)%m]]
		if cross(a, b, c) == 0 {
			*remaining = append(r[:i], r[i+1:]...)
			return true
		}
	}
	return false
}

// cross is twice the signed area of triangle abc.
func cross(a, b, c models.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func inTriangle(p, a, b, c models.Point) bool {
	return cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0
}
