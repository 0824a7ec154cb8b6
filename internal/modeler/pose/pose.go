// Package pose places the cutting box of an opening on its wall segment.
package pose

import (
	"fmt"
	"math"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
)

// PenetrationDepth is the cut box depth across the wall. It exceeds any
// realistic wall thickness.
const PenetrationDepth = 1000.0

// Solve places the cut box for an opening bound to the wall segment p1-p2
// of a floor at height floorZ. The opening position is projected onto the
// segment; the box is centred on that point, lifted to the middle of the
// opening, and turned to follow the wall.
func Solve(opening models.Opening, p1, p2 models.Point, floorZ float64) (models.OpeningCutPose, error) {
	dir, length := geom.Direction(p1, p2)
	if length == 0 {
		return models.OpeningCutPose{}, fmt.Errorf("wall segment %d has zero length", opening.WallSegment)
	}

	t, _ := geom.ProjectOnSegment(opening.Position, p1, p2)
	along := t * length

	return models.OpeningCutPose{
		Center: models.Point3{
			X: p1.X + along*dir.X,
			Y: p1.Y + along*dir.Y,
			Z: floorZ + opening.ZOffset + opening.Height/2,
		},
		RotationDeg: math.Atan2(dir.Y, dir.X) * 180 / math.Pi,
		Extent: models.BoxExtent{
			Width:  opening.Width,
			Depth:  PenetrationDepth,
			Height: opening.Height,
		},
	}, nil
}

// SolveAll resolves the pose of every opening against the floors it was
// bound to. Openings whose floor, polygon or segment no longer exist are
// returned as cut failures.
func SolveAll(openings []models.Opening, floors []models.Floor) (map[PolygonKey][]models.OpeningCutPose, []*models.ElementError) {
	poses := make(map[PolygonKey][]models.OpeningCutPose)
	var failed []*models.ElementError

	for i, o := range openings {
		p, err := solveOne(o, floors)
		if err != nil {
			failed = append(failed, &models.ElementError{
				Kind: models.KindOpeningCutFailed, Index: i, Layer: o.Layer, Err: err,
			})
			continue
		}
		key := PolygonKey{Level: o.FloorLevel, Polygon: o.PolygonIndex}
		poses[key] = append(poses[key], p)
	}
	return poses, failed
}

// PolygonKey addresses a polygon within a floor.
type PolygonKey struct {
	Level   int
	Polygon int
}

func solveOne(o models.Opening, floors []models.Floor) (models.OpeningCutPose, error) {
	for _, f := range floors {
		if f.Level != o.FloorLevel {
			continue
		}
		if o.PolygonIndex < 0 || o.PolygonIndex >= len(f.Polygons) {
			return models.OpeningCutPose{}, fmt.Errorf("floor %d has no polygon %d", f.Level, o.PolygonIndex)
		}
		pts := f.Polygons[o.PolygonIndex].Points
		if o.WallSegment < 0 || o.WallSegment >= len(pts) {
			return models.OpeningCutPose{}, fmt.Errorf("polygon %d has no segment %d", o.PolygonIndex, o.WallSegment)
		}
		p1 := pts[o.WallSegment]
		p2 := pts[(o.WallSegment+1)%len(pts)]
		return Solve(o, p1, p2, f.ZOffset)
	}
	return models.OpeningCutPose{}, fmt.Errorf("no floor %d", o.FloorLevel)
}
