package geom

import (
	"errors"
	"fmt"
	"math"

	"plan-modeler/internal/modeler/models"
)

var (
	ErrOffsetCollapsed = errors.New("polygon collapses under inward offset")
	ErrNegativeOffset  = errors.New("offset distance must not be negative")
)

// OffsetInward shrinks a ring by distance using mitred joins. The input may
// have either winding; the result is counter-clockwise. It fails when any
// edge reverses direction or the remaining area vanishes, which is what
// happens when the wall thickness exceeds the room's half-width.
func OffsetInward(points []models.Point, distance float64) ([]models.Point, error) {
	if distance < 0 {
		return nil, ErrNegativeOffset
	}
	if IsDegenerate(points) {
		return nil, fmt.Errorf("%w: degenerate input", ErrOffsetCollapsed)
	}

	ring := NormalizeWinding(TrimClosingPoint(points))
	ring = dropRepeatedVertices(ring)
	n := len(ring)
	if n < 3 {
		return nil, fmt.Errorf("%w: fewer than 3 distinct vertices", ErrOffsetCollapsed)
	}
	if distance == 0 {
		return ring, nil
	}

	out := make([]models.Point, n)
	for i := 0; i < n; i++ {
		prev := ring[(i-1+n)%n]
		cur := ring[i]
		next := ring[(i+1)%n]

		d0, _ := Direction(prev, cur)
		d1, _ := Direction(cur, next)

		// left normals point inward on a counter-clockwise ring
		n0 := models.Point{X: -d0.Y, Y: d0.X}
		n1 := models.Point{X: -d1.Y, Y: d1.X}

		a := models.Point{X: prev.X + n0.X*distance, Y: prev.Y + n0.Y*distance}
		b := models.Point{X: cur.X + n1.X*distance, Y: cur.Y + n1.Y*distance}

		p, ok := lineIntersection(a, d0, b, d1)
		if !ok {
			p = models.Point{X: cur.X + n1.X*distance, Y: cur.Y + n1.Y*distance}
		}
		out[i] = p
	}

	for i := 0; i < n; i++ {
		origDir, _ := Direction(ring[i], ring[(i+1)%n])
		newDir, length := Direction(out[i], out[(i+1)%n])
		if length <= 1e-9 || origDir.X*newDir.X+origDir.Y*newDir.Y <= 0 {
			return nil, fmt.Errorf("%w: edge %d reversed at distance %g", ErrOffsetCollapsed, i, distance)
		}
	}

	area := SignedArea(out)
	if area <= AreaEpsilon || area >= SignedArea(ring) {
		return nil, fmt.Errorf("%w: area %g at distance %g", ErrOffsetCollapsed, area, distance)
	}
	return out, nil
}

// lineIntersection intersects the lines p+s*r and q+u*s2.
func lineIntersection(p, r, q, s models.Point) (models.Point, bool) {
	denom := r.X*s.Y - r.Y*s.X
	if math.Abs(denom) < 1e-12 {
		return models.Point{}, false
	}
	t := ((q.X-p.X)*s.Y - (q.Y-p.Y)*s.X) / denom
	return models.Point{X: p.X + t*r.X, Y: p.Y + t*r.Y}, true
}

func dropRepeatedVertices(points []models.Point) []models.Point {
	out := make([]models.Point, 0, len(points))
	for _, p := range points {
		if len(out) > 0 && almostSamePoint(out[len(out)-1], p) {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && almostSamePoint(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}
