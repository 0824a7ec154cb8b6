package mesh

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/solid"
)

func square(x, y, size float64) []models.Point {
	return []models.Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

func triangleArea(ring []models.Point, t [3]int) float64 {
	return cross(ring[t[0]], ring[t[1]], ring[t[2]]) / 2
}

func volume(m *Mesh) float64 {
	var v float64
	for _, t := range m.Triangles {
		a, b, c := t[0], t[1], t[2]
		v += a.X*(b.Y*c.Z-b.Z*c.Y) - a.Y*(b.X*c.Z-b.Z*c.X) + a.Z*(b.X*c.Y-b.Y*c.X)
	}
	return v / 6
}

func bounds(m *Mesh) (min, max models.Point3) {
	min = models.Point3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = models.Point3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, t := range m.Triangles {
		for _, v := range t {
			min.X, min.Y, min.Z = math.Min(min.X, v.X), math.Min(min.Y, v.Y), math.Min(min.Z, v.Z)
			max.X, max.Y, max.Z = math.Max(max.X, v.X), math.Max(max.Y, v.Y), math.Max(max.Z, v.Z)
		}
	}
	return min, max
}

// ============================================================
// Triangulation
// ============================================================

func TestTriangulate(t *testing.T) {
	tests := []struct {
		name string
		ring []models.Point
		tris int
		area float64
	}{
		{"square", square(0, 0, 10), 2, 100},
		{"l-shape", []models.Point{{X: 0, Y: 0}, {X: 2000, Y: 0}, {X: 2000, Y: 1000}, {X: 1000, Y: 1000}, {X: 1000, Y: 2000}, {X: 0, Y: 2000}}, 4, 3e6},
		{"collinear vertex", []models.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}, 3, 100},
		{"clockwise", []models.Point{{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}, 2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tris, err := Triangulate(tt.ring)
			require.NoError(t, err)
			assert.Len(t, tris, tt.tris)

			var total float64
			for _, tri := range tris {
				a := triangleArea(tt.ring, tri)
				assert.Greater(t, a, 0.0)
				total += a
			}
			assert.InDelta(t, tt.area, total, 1e-6)
		})
	}

	_, err := Triangulate(square(0, 0, 1)[:2])
	assert.ErrorIs(t, err, ErrTriangulation)
}

// ============================================================
// Kernel
// ============================================================

func TestExtrude_ClosedVolume(t *testing.T) {
	s, err := NewKernel().Extrude(square(0, 0, 10), 5)
	require.NoError(t, err)

	m := s.(*Mesh)
	assert.Len(t, m.Triangles, 12)
	assert.InDelta(t, 500, volume(m), 1e-9)

	_, err = NewKernel().Extrude(square(0, 0, 10), -1)
	assert.Error(t, err)
}

func TestExtrude_ClockwiseInput(t *testing.T) {
	cw := []models.Point{{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	s, err := NewKernel().Extrude(cw, 5)
	require.NoError(t, err)
	assert.InDelta(t, 500, volume(s.(*Mesh)), 1e-9, "outward-facing triangles")
}

func TestUnionAndTranslate(t *testing.T) {
	k := NewKernel()
	a, _ := k.Extrude(square(0, 0, 10), 5)
	b, _ := k.Extrude(square(20, 0, 10), 5)

	ab, err := k.Union(a, b)
	require.NoError(t, err)
	assert.Len(t, ab.(*Mesh).Triangles, 24)
	assert.Len(t, a.(*Mesh).Triangles, 12, "inputs unchanged")

	up, err := k.Translate(ab, models.Point3{X: 1, Z: 3000})
	require.NoError(t, err)
	min, max := bounds(up.(*Mesh))
	assert.Equal(t, models.Point3{X: 1, Y: 0, Z: 3000}, min)
	assert.Equal(t, models.Point3{X: 31, Y: 10, Z: 3005}, max)

	_, err = k.Union(a, "scad node")
	assert.Error(t, err)
}

func TestSubtractUnsupported(t *testing.T) {
	k := NewKernel()
	a, _ := k.Extrude(square(0, 0, 10), 5)
	_, err := k.Subtract(a, a)
	assert.ErrorIs(t, err, solid.ErrBooleanUnsupported)
}

func TestBox(t *testing.T) {
	s, err := NewKernel().Box(models.OpeningCutPose{
		Center:      models.Point3{X: 2500, Y: 0, Z: 1050},
		RotationDeg: 90,
		Extent:      models.BoxExtent{Width: 900, Depth: 1000, Height: 2100},
	})
	require.NoError(t, err)

	m := s.(*Mesh)
	min, max := bounds(m)
	assert.InDelta(t, 2000, min.X, 1e-9)
	assert.InDelta(t, 3000, max.X, 1e-9)
	assert.InDelta(t, -450, min.Y, 1e-9)
	assert.InDelta(t, 450, max.Y, 1e-9)
	assert.InDelta(t, 0, min.Z, 1e-9)
	assert.InDelta(t, 2100, max.Z, 1e-9)
	assert.InDelta(t, 900*1000*2100, volume(m), 1e-3)
}

func TestWriteSTL(t *testing.T) {
	s, _ := NewKernel().Extrude(square(0, 0, 10), 5)

	var buf bytes.Buffer
	require.NoError(t, WriteSTL(&buf, "walls", s))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "solid walls\n"))
	assert.True(t, strings.HasSuffix(out, "endsolid walls\n"))
	assert.Equal(t, 12, strings.Count(out, "facet normal"))
	assert.Equal(t, 36, strings.Count(out, "vertex "))
	assert.Contains(t, out, "facet normal 0 0 1\n")

	assert.Error(t, WriteSTL(&buf, "x", nil))
}

func TestWithWallBuilder_DegradesGracefully(t *testing.T) {
	b := solid.NewWallBuilder(NewKernel(), solid.Options{
		WallThickness: 200,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	model := &models.Model{
		Floors: []models.Floor{{Level: 0, Height: 3000, Polygons: []models.Polygon{{Points: square(0, 0, 5000)}}}},
		Openings: []models.Opening{{
			Kind: models.OpeningDoor, Position: models.Point{X: 2500}, Width: 900, Height: 2100,
		}},
	}

	s, problems, err := b.Build(model)
	require.NoError(t, err)
	assert.InDelta(t, 5000*5000*3000, volume(s.(*Mesh)), 1)

	require.Len(t, problems, 2)
	assert.Equal(t, models.KindWallOffsetFailed, problems[0].Kind)
	assert.Equal(t, models.KindOpeningCutFailed, problems[1].Kind)
}
