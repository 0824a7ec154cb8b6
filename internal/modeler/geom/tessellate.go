package geom

import (
	"math"

	"plan-modeler/internal/modeler/models"
)

const (
	DefaultCircleSegments = 36
	DefaultSplineSamples  = 40
	minArcPoints          = 8
)

// ArcMode selects how an arc is closed into a polygon.
type ArcMode string

const (
	// ArcPie closes the arc back through its center.
	ArcPie ArcMode = "pie"
	// ArcChord closes the arc along the chord between its end points.
	ArcChord ArcMode = "chord"
)

// Circle returns a regular polygon inscribed in the circle.
func Circle(center models.Point, radius float64, segments int) []models.Point {
	if segments < 3 {
		segments = DefaultCircleSegments
	}

	points := make([]models.Point, 0, segments)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		points = append(points, models.Point{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		})
	}
	return points
}

// ArcSpan returns the counter-clockwise sweep from start to end in radians,
// in (0, 2π]. Angles are in degrees.
func ArcSpan(startDeg, endDeg float64) float64 {
	span := math.Mod(endDeg-startDeg, 360)
	if span <= 0 {
		span += 360
	}
	return span * math.Pi / 180
}

// ArcPointCount is max(8, 36 * span / 2π), truncated.
func ArcPointCount(span float64) int {
	n := int(36*span/(2*math.Pi) + 1e-9)
	if n < minArcPoints {
		n = minArcPoints
	}
	return n
}

// Arc samples an arc counter-clockwise from startDeg to endDeg. In ArcPie
// mode the center is appended so the ring closes through it. An arc whose
// end meets its start is a full turn: its last sample would repeat the
// first, so the ring stops one step short and never visits the center.
func Arc(center models.Point, radius, startDeg, endDeg float64, mode ArcMode) []models.Point {
	span := ArcSpan(startDeg, endDeg)
	n := ArcPointCount(span)
	start := startDeg * math.Pi / 180

	full := span >= 2*math.Pi
	steps := float64(n - 1)
	if full {
		steps = float64(n)
	}

	points := make([]models.Point, 0, n+1)
	for i := 0; i < n; i++ {
		a := start + span*float64(i)/steps
		points = append(points, models.Point{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		})
	}

	if mode != ArcChord && !full {
		points = append(points, center)
	}
	return points
}

// Spline evaluates a clamped uniform B-spline (degree up to 3) over its
// control points at the given number of samples. The ring is closed by the
// caller; a last sample equal to the first is dropped.
func Spline(control []models.Point, samples int) []models.Point {
	if len(control) < 2 {
		return append([]models.Point(nil), control...)
	}
	if samples < 2 {
		samples = DefaultSplineSamples
	}

	degree := 3
	if len(control)-1 < degree {
		degree = len(control) - 1
	}
	knots := clampedKnots(len(control), degree)

	points := make([]models.Point, 0, samples)
	for i := 0; i < samples; i++ {
		u := float64(i) / float64(samples-1)
		points = append(points, deBoor(control, knots, degree, u))
	}
	return TrimClosingPoint(points)
}

// clampedKnots builds an open uniform knot vector on [0, 1].
func clampedKnots(n, degree int) []float64 {
	m := n + degree + 1
	knots := make([]float64, m)
	inner := n - degree
	for i := 0; i < m; i++ {
		switch {
		case i <= degree:
			knots[i] = 0
		case i >= n:
			knots[i] = 1
		default:
			knots[i] = float64(i-degree) / float64(inner)
		}
	}
	return knots
}

func deBoor(control []models.Point, knots []float64, degree int, u float64) models.Point {
	n := len(control)

	// knot span k with knots[k] <= u < knots[k+1]; u == 1 uses the last span
	k := degree
	for k < n-1 && u >= knots[k+1] {
		k++
	}

	d := make([]models.Point, degree+1)
	for j := 0; j <= degree; j++ {
		d[j] = control[j+k-degree]
	}

	for r := 1; r <= degree; r++ {
		for j := degree; j >= r; j-- {
			i := j + k - degree
			denom := knots[i+degree-r+1] - knots[i]
			alpha := 0.0
			if denom != 0 {
				alpha = (u - knots[i]) / denom
			}
			d[j] = models.Point{
				X: (1-alpha)*d[j-1].X + alpha*d[j].X,
				Y: (1-alpha)*d[j-1].Y + alpha*d[j].Y,
			}
		}
	}
	return d[degree]
}
