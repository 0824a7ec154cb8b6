package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-modeler/internal/modeler/models"
)

func pt(x, y float64) models.Point { return models.Point{X: x, Y: y} }

func TestSolve_DoorOnHorizontalWall(t *testing.T) {
	door := models.Opening{Kind: models.OpeningDoor, Position: pt(2500, 0), Width: 900, Height: 2100}

	p, err := Solve(door, pt(0, 0), pt(5000, 0), 0)
	require.NoError(t, err)

	assert.InDelta(t, 2500, p.Center.X, 1e-9)
	assert.InDelta(t, 0, p.Center.Y, 1e-9)
	assert.InDelta(t, 1050, p.Center.Z, 1e-9)
	assert.InDelta(t, 0, p.RotationDeg, 1e-9)
	assert.Equal(t, models.BoxExtent{Width: 900, Depth: PenetrationDepth, Height: 2100}, p.Extent)
}

func TestSolve_Orientation(t *testing.T) {
	window := models.Opening{Kind: models.OpeningWindow, Position: pt(5100, 2000), Width: 1200, Height: 1200, ZOffset: 1000}

	tests := []struct {
		name     string
		p1, p2   models.Point
		center   models.Point
		rotation float64
	}{
		{"up", pt(5000, 0), pt(5000, 4000), pt(5000, 2000), 90},
		{"down", pt(5000, 4000), pt(5000, 0), pt(5000, 2000), -90},
		{"left", pt(6000, 2000), pt(0, 2000), pt(5100, 2000), 180},
		{"diagonal", pt(0, 0), pt(10000, 10000), pt(3550, 3550), 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Solve(window, tt.p1, tt.p2, 3000)
			require.NoError(t, err)
			assert.InDelta(t, tt.center.X, p.Center.X, 1e-6)
			assert.InDelta(t, tt.center.Y, p.Center.Y, 1e-6)
			assert.InDelta(t, 4600, p.Center.Z, 1e-9)
			assert.InDelta(t, tt.rotation, p.RotationDeg, 1e-9)
		})
	}
}

func TestSolve_ClampsToSegment(t *testing.T) {
	door := models.Opening{Position: pt(6000, 300), Height: 2000}

	p, err := Solve(door, pt(0, 0), pt(5000, 0), 0)
	require.NoError(t, err)
	assert.InDelta(t, 5000, p.Center.X, 1e-9)
	assert.InDelta(t, 0, p.Center.Y, 1e-9)

	_, err = Solve(door, pt(1, 1), pt(1, 1), 0)
	assert.Error(t, err)
}

func TestSolveAll(t *testing.T) {
	square := []models.Point{pt(0, 0), pt(5000, 0), pt(5000, 4000), pt(0, 4000)}
	floors := []models.Floor{
		{Level: 0, ZOffset: 0, Height: 3000, Polygons: []models.Polygon{{Points: square}}},
		{Level: 1, ZOffset: 3000, Height: 3000, Polygons: []models.Polygon{{Points: square}}},
	}
	openings := []models.Opening{
		{Position: pt(2500, 0), Height: 2100, FloorLevel: 0, PolygonIndex: 0, WallSegment: 0},
		{Position: pt(2500, 4000), Height: 2100, FloorLevel: 1, PolygonIndex: 0, WallSegment: 2},
		{Position: pt(0, 2000), Height: 2100, FloorLevel: 1, PolygonIndex: 0, WallSegment: 3},
		{Position: pt(0, 0), FloorLevel: 1, PolygonIndex: 4},
		{Position: pt(0, 0), FloorLevel: 0, PolygonIndex: 0, WallSegment: 9},
		{Position: pt(0, 0), FloorLevel: 5},
	}

	poses, failed := SolveAll(openings, floors)

	require.Len(t, poses[PolygonKey{Level: 0, Polygon: 0}], 1)
	upper := poses[PolygonKey{Level: 1, Polygon: 0}]
	require.Len(t, upper, 2)
	assert.InDelta(t, 3000+1050, upper[0].Center.Z, 1e-9)
	assert.InDelta(t, 180, upper[0].RotationDeg, 1e-9)
	assert.InDelta(t, -90, upper[1].RotationDeg, 1e-9)

	require.Len(t, failed, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{failed[0].Index, failed[1].Index, failed[2].Index})
	for _, f := range failed {
		assert.Equal(t, models.KindOpeningCutFailed, f.Kind)
	}
}
