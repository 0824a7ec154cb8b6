package floors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-modeler/internal/modeler/models"
)

func square(layer string) models.Polygon {
	return models.Polygon{
		Layer:  layer,
		Points: []models.Point{{X: 0, Y: 0}, {X: 5000, Y: 0}, {X: 5000, Y: 4000}, {X: 0, Y: 4000}},
	}
}

func TestGroup(t *testing.T) {
	groups := Group([]models.Polygon{square("FLOOR-1"), square("WALLS"), square("level_1"), square("2_FLOOR")})

	assert.Len(t, groups, 3)
	assert.Len(t, groups[0], 1)
	assert.Len(t, groups[1], 2)
	assert.Equal(t, "FLOOR-1", groups[1][0].Layer)
	assert.Equal(t, "level_1", groups[1][1].Layer)
	assert.Len(t, groups[2], 1)
}

func TestBuild_TwoStories(t *testing.T) {
	floors := Build([]models.Polygon{square("FLOOR-1"), square("FLOOR-0")}, Heights{})

	require.Len(t, floors, 2)
	assert.Equal(t, 0, floors[0].Level)
	assert.Equal(t, 1, floors[1].Level)
	assert.Equal(t, 0.0, floors[0].ZOffset)
	assert.Equal(t, floors[0].Height, floors[1].ZOffset)
	assert.Equal(t, DefaultHeight, floors[0].Height)
}

func TestBuild_PerLevelHeights(t *testing.T) {
	floors := Build(
		[]models.Polygon{square("FLOOR-0"), square("FLOOR-1"), square("FLOOR-2")},
		Heights{Default: 3000, PerLevel: map[int]float64{2: 3500}},
	)

	require.Len(t, floors, 3)
	assert.Equal(t, []float64{3000, 3000, 3500}, []float64{floors[0].Height, floors[1].Height, floors[2].Height})
	assert.Equal(t, []float64{0, 3000, 6000}, []float64{floors[0].ZOffset, floors[1].ZOffset, floors[2].ZOffset})
}

func TestStack(t *testing.T) {
	in := []models.Floor{
		{Level: 2, Height: 3500},
		{Level: 0, Height: 3000},
		{Level: 1, Height: 3000},
	}

	out := Stack(in)
	require.Len(t, out, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{out[0].Level, out[1].Level, out[2].Level})
	assert.Equal(t, []float64{0, 3000, 6000}, []float64{out[0].ZOffset, out[1].ZOffset, out[2].ZOffset})
	assert.Equal(t, 2, in[0].Level, "input must not be reordered")

	assert.Empty(t, Stack(nil))
}

func TestIndexByLevel(t *testing.T) {
	idx := IndexByLevel([]models.Floor{{Level: -1}, {Level: 0}, {Level: 3}})
	assert.Equal(t, map[int]int{-1: 0, 0: 1, 3: 2}, idx)
}

func TestHeights_For(t *testing.T) {
	h := Heights{Default: 2800, PerLevel: map[int]float64{1: 0, 2: 4000}}
	assert.Equal(t, 2800.0, h.For(0))
	assert.Equal(t, 2800.0, h.For(1))
	assert.Equal(t, 4000.0, h.For(2))
	assert.Equal(t, DefaultHeight, Heights{}.For(0))
}
