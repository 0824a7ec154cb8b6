// Package floors buckets polygons into stories and stacks them vertically.
package floors

import (
	"sort"

	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/parser"
)

// DefaultHeight is the story height used when none is configured.
const DefaultHeight = 3000.0

// Heights resolves the height of each floor level.
type Heights struct {
	Default  float64
	PerLevel map[int]float64
}

func (h Heights) For(level int) float64 {
	if v, ok := h.PerLevel[level]; ok && v > 0 {
		return v
	}
	if h.Default > 0 {
		return h.Default
	}
	return DefaultHeight
}

// Group buckets polygons by the floor level found in their layer name.
// Polygons on unrecognised layers land on floor 0. Order within a bucket
// follows the input order.
func Group(polygons []models.Polygon) map[int][]models.Polygon {
	groups := make(map[int][]models.Polygon)
	for _, p := range polygons {
		level := parser.LevelOrDefault(p.Layer)
		groups[level] = append(groups[level], p)
	}
	return groups
}

// Build groups polygons into floors sorted by level with stacked z offsets.
func Build(polygons []models.Polygon, heights Heights) []models.Floor {
	groups := Group(polygons)

	levels := make([]int, 0, len(groups))
	for level := range groups {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	floors := make([]models.Floor, 0, len(levels))
	for _, level := range levels {
		floors = append(floors, models.Floor{
			Level:    level,
			Height:   heights.For(level),
			Polygons: groups[level],
		})
	}
	return Stack(floors)
}

// Stack sorts floors by level and sets each z offset to the running sum of
// the heights below it. The input slice is not modified.
func Stack(floors []models.Floor) []models.Floor {
	out := make([]models.Floor, len(floors))
	copy(out, floors)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })

	z := 0.0
	for i := range out {
		out[i].ZOffset = z
		z += out[i].Height
	}
	return out
}

// IndexByLevel maps floor level to its position in floors.
func IndexByLevel(floors []models.Floor) map[int]int {
	idx := make(map[int]int, len(floors))
	for i, f := range floors {
		idx[f.Level] = i
	}
	return idx
}
