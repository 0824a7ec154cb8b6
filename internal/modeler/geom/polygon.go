package geom

import (
	"math"

	"plan-modeler/internal/modeler/models"
)

// AreaEpsilon is the smallest |area| (drawing units squared) a polygon may have.
const AreaEpsilon = 1e-6

// ============================================================
// Area & winding
// ============================================================

// SignedArea returns the shoelace area; positive for counter-clockwise rings.
func SignedArea(points []models.Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		a := points[i]
		b := points[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// IsDegenerate reports whether points cannot form a valid polygon.
func IsDegenerate(points []models.Point) bool {
	return len(points) < 3 || math.Abs(SignedArea(points)) <= AreaEpsilon
}

// NormalizeWinding returns points in counter-clockwise order. A ring that is
// already counter-clockwise is returned as an identical copy.
func NormalizeWinding(points []models.Point) []models.Point {
	out := make([]models.Point, len(points))
	copy(out, points)
	if SignedArea(out) < 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// TrimClosingPoint drops a trailing vertex that repeats the first one.
func TrimClosingPoint(points []models.Point) []models.Point {
	if len(points) > 1 && almostSamePoint(points[0], points[len(points)-1]) {
		return points[:len(points)-1]
	}
	return points
}

// Centroid is the arithmetic mean of the vertices.
func Centroid(points []models.Point) models.Point {
	if len(points) == 0 {
		return models.Point{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return models.Point{X: sumX / n, Y: sumY / n}
}

// Bounds returns the axis-aligned bounding box of points.
func Bounds(points []models.Point) (min, max models.Point) {
	if len(points) == 0 {
		return models.Point{}, models.Point{}
	}
	min, max = points[0], points[0]
	for _, p := range points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// ============================================================
// Segment helpers
// ============================================================

func Distance(a, b models.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Direction returns the unit vector from a to b and the segment length.
// A zero-length segment yields the zero vector.
func Direction(a, b models.Point) (models.Point, float64) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return models.Point{}, 0
	}
	return models.Point{X: dx / length, Y: dy / length}, length
}

// ProjectOnSegment clamps the scalar projection of p onto segment a-b.
// It returns t in [0, 1] and the closest point a + t*(b-a).
func ProjectOnSegment(p, a, b models.Point) (float64, models.Point) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0, a
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = clamp(t, 0, 1)

	return t, models.Point{X: a.X + t*dx, Y: a.Y + t*dy}
}

// PointSegmentDistance is the distance from p to the closest point of segment a-b.
func PointSegmentDistance(p, a, b models.Point) float64 {
	_, closest := ProjectOnSegment(p, a, b)
	return Distance(p, closest)
}

// ============================================================
// Helpers
// ============================================================

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func almostSamePoint(a, b models.Point) bool {
	return almostEqual(a.X, b.X) && almostEqual(a.Y, b.Y)
}
