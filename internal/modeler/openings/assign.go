package openings

import (
	"fmt"
	"math"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/parser"
)

// ============================================================
// Wall lookup
// ============================================================

// WallHit identifies one edge of one polygon. Segment i runs from
// Points[i] to Points[(i+1)%n].
type WallHit struct {
	Polygon  int
	Segment  int
	Distance float64
	// Offset is the clamped projection parameter along the segment, in [0, 1].
	Offset float64
}

// NearestWall scans every edge of every polygon and returns the globally
// closest one. Ties keep the first edge found. ok is false when polygons
// hold no edges.
func NearestWall(p models.Point, polygons []models.Polygon) (WallHit, bool) {
	best := WallHit{Polygon: -1, Segment: -1, Distance: math.MaxFloat64}

	for pi, polygon := range polygons {
		n := len(polygon.Points)
		if n < 2 {
			continue
		}
		for si := 0; si < n; si++ {
			a := polygon.Points[si]
			b := polygon.Points[(si+1)%n]
			t, closest := geom.ProjectOnSegment(p, a, b)
			dist := geom.Distance(p, closest)
			if dist < best.Distance {
				best = WallHit{Polygon: pi, Segment: si, Distance: dist, Offset: t}
			}
		}
	}

	if best.Polygon < 0 {
		return best, false
	}
	return best, true
}

// Segment returns the end points of a wall segment.
func Segment(polygon models.Polygon, segment int) (models.Point, models.Point) {
	n := len(polygon.Points)
	return polygon.Points[segment%n], polygon.Points[(segment+1)%n]
}

// ============================================================
// Assignment
// ============================================================

// Assign binds each candidate to its nearest wall. A candidate whose layer
// names an existing floor only looks at that floor; otherwise all floors
// are searched. Candidates farther than the tolerance from every wall are
// dropped and reported as unassigned.
func (d *Detector) Assign(candidates []Candidate, floors []models.Floor) ([]models.Opening, []*models.ElementError) {
	var (
		openings   []models.Opening
		unassigned []*models.ElementError
	)

	for _, c := range candidates {
		level, hit, ok := d.locate(c, floors)
		if !ok {
			unassigned = append(unassigned, &models.ElementError{
				Kind:  models.KindOpeningUnassigned,
				Index: c.Entity,
				Layer: c.Layer,
				Err:   fmt.Errorf("%s at (%g, %g): no wall within %g", c.Kind, c.Position.X, c.Position.Y, d.opts.Tolerance),
			})
			continue
		}

		openings = append(openings, models.Opening{
			Kind:         c.Kind,
			Position:     c.Position,
			Width:        c.Width,
			Height:       c.Height,
			Rotation:     c.Rotation,
			ZOffset:      c.ZOffset,
			PolygonIndex: hit.Polygon,
			WallSegment:  hit.Segment,
			FloorLevel:   level,
			Source:       c.Source,
			Layer:        c.Layer,
			Name:         c.Name,
		})
	}

	if len(unassigned) > 0 {
		d.opts.Logger.Info("openings without a wall dropped",
			"dropped", len(unassigned),
			"tolerance", d.opts.Tolerance)
	}
	return openings, unassigned
}

func (d *Detector) locate(c Candidate, floors []models.Floor) (int, WallHit, bool) {
	level, hasLevel := parser.FloorLevel(c.Layer)

	best := WallHit{Distance: math.MaxFloat64}
	bestLevel := 0
	found := false
	for _, floor := range floors {
		if hasLevel && hasFloor(floors, level) && floor.Level != level {
			continue
		}
		hit, ok := NearestWall(c.Position, floor.Polygons)
		if ok && hit.Distance < best.Distance {
			best, bestLevel, found = hit, floor.Level, true
		}
	}

	if !found || best.Distance > d.opts.Tolerance {
		return 0, WallHit{}, false
	}
	return bestLevel, best, true
}

func hasFloor(floors []models.Floor, level int) bool {
	for _, f := range floors {
		if f.Level == level {
			return true
		}
	}
	return false
}
