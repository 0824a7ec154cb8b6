// Package labels attaches text entities to the room polygon they name.
package labels

import (
	"math"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/parser"
)

// Nearest returns the index of the polygon whose centroid is closest to
// pos, and that distance. Ties go to the lower index. ok is false when
// there are no polygons.
func Nearest(pos models.Point, polygons []models.Polygon) (index int, distance float64, ok bool) {
	index = -1
	distance = math.MaxFloat64
	for i, p := range polygons {
		if len(p.Points) == 0 {
			continue
		}
		d := geom.Distance(pos, geom.Centroid(p.Points))
		if d < distance {
			index, distance = i, d
		}
	}
	if index < 0 {
		return -1, 0, false
	}
	return index, distance, true
}

// Associate builds a TextLabel for every text entity. A label whose layer
// names an existing floor is matched against that floor only; otherwise
// every floor is searched and the label takes the floor of its match.
// Labels with no candidate polygon keep a nil PolygonIndex.
func Associate(entities []models.Entity, floors []models.Floor) []models.TextLabel {
	var labels []models.TextLabel
	for _, entity := range entities {
		if entity.Type != models.EntityText {
			continue
		}
		text, ok := entity.Geometry.(models.TextGeometry)
		if !ok {
			continue
		}

		label := models.TextLabel{Text: text.Text, Position: text.Position}
		level, hasLevel := parser.FloorLevel(entity.Layer)
		label.FloorLevel = level

		best := math.MaxFloat64
		for _, floor := range candidates(floors, level, hasLevel) {
			idx, d, found := Nearest(text.Position, floor.Polygons)
			if found && d < best {
				best = d
				i := idx
				label.PolygonIndex = &i
				label.FloorLevel = floor.Level
			}
		}
		labels = append(labels, label)
	}
	return labels
}

func candidates(floors []models.Floor, level int, hasLevel bool) []models.Floor {
	if hasLevel {
		for _, f := range floors {
			if f.Level == level {
				return []models.Floor{f}
			}
		}
	}
	return floors
}
