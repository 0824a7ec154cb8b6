package mapper

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/pose"
)

const (
	renderMargin     = 500.0
	minOpeningStroke = 100.0
)

// ============================================================
// Renderer
// ============================================================

// Renderer draws a top view of one floor of a Model as SVG.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render builds the SVG for the floor with the given level.
func (r *Renderer) Render(model *models.Model, level int) (string, error) {
	floor, err := pickFloor(model, level)
	if err != nil {
		return "", err
	}

	v := newViewport(floor.Polygons)

	var elements []string
	elements = append(elements, r.renderRooms(floor, v)...)
	elements = append(elements, r.renderOpenings(model, floor, v)...)
	elements = append(elements, r.renderLabels(model, floor, v)...)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" data-level="%d">`,
		formatFloat(v.width), formatFloat(v.height), formatFloat(v.width), formatFloat(v.height), floor.Level))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Floor selection & sizing
// ============================================================

func pickFloor(model *models.Model, level int) (*models.Floor, error) {
	if model == nil {
		return nil, fmt.Errorf("model is nil")
	}
	if len(model.Floors) == 0 {
		return nil, fmt.Errorf("model has no floors")
	}
	floor, ok := model.FloorByLevel(level)
	if !ok {
		return nil, fmt.Errorf("model has no floor %d", level)
	}
	return floor, nil
}

// viewport maps drawing coordinates (y up) to image coordinates (y down).
type viewport struct {
	minX, maxY    float64
	width, height float64
	scale         float64
}

func newViewport(polygons []models.Polygon) viewport {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64

	for _, p := range polygons {
		if len(p.Points) == 0 {
			continue
		}
		lo, hi := geom.Bounds(p.Points)
		minX, minY = math.Min(minX, lo.X), math.Min(minY, lo.Y)
		maxX, maxY = math.Max(maxX, hi.X), math.Max(maxY, hi.Y)
	}

	if minX == math.MaxFloat64 {
		return viewport{maxY: 1000, width: 1000, height: 1000, scale: 1}
	}

	minX -= renderMargin
	maxY += renderMargin
	return viewport{
		minX:   minX,
		maxY:   maxY,
		width:  maxX + renderMargin - minX,
		height: maxY - (minY - renderMargin),
		scale:  1,
	}
}

// fit scales the viewport so its width is px image units.
func (v viewport) fit(px int) viewport {
	if v.width > 0 && px > 0 {
		v.scale = float64(px) / v.width
	}
	return v
}

func (v viewport) project(p models.Point) models.Point {
	return models.Point{X: (p.X - v.minX) * v.scale, Y: (v.maxY - p.Y) * v.scale}
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) renderRooms(floor *models.Floor, v viewport) []string {
	var out []string

	for i, polygon := range floor.Polygons {
		if len(polygon.Points) < 3 {
			continue
		}

		var path strings.Builder
		path.WriteString(`<path id="room-`)
		path.WriteString(strconv.Itoa(i))
		path.WriteString(`" d="M `)
		path.WriteString(formatPoint(v.project(polygon.Points[0])))
		for _, p := range polygon.Points[1:] {
			path.WriteString(" L ")
			path.WriteString(formatPoint(v.project(p)))
		}
		path.WriteString(` Z" fill="#F5F5F5" stroke="#000" />`)

		out = append(out, path.String())
	}

	return out
}

func (r *Renderer) renderOpenings(model *models.Model, floor *models.Floor, v viewport) []string {
	var out []string

	for i, o := range model.Openings {
		points, ok := openingOutline(model, floor, o)
		if !ok {
			continue
		}

		stroke := "#1f77b4"
		if o.Kind == models.OpeningDoor {
			stroke = "#d62728"
		}

		var path strings.Builder
		path.WriteString(fmt.Sprintf(`<path id="opening-%d" class="%s" d="M `, i, o.Kind))
		path.WriteString(formatPoint(v.project(points[0])))
		for _, p := range points[1:] {
			path.WriteString(" L ")
			path.WriteString(formatPoint(v.project(p)))
		}
		path.WriteString(fmt.Sprintf(` Z" fill="none" stroke="%s" />`, stroke))

		out = append(out, path.String())
	}

	return out
}

func (r *Renderer) renderLabels(model *models.Model, floor *models.Floor, v viewport) []string {
	var out []string

	for _, label := range model.Labels {
		if label.FloorLevel != floor.Level {
			continue
		}
		p := v.project(label.Position)
		out = append(out, fmt.Sprintf(`<text x="%s" y="%s" font-size="%s" text-anchor="middle">%s</text>`,
			formatFloat(p.X), formatFloat(p.Y), formatFloat(250*v.scale), html.EscapeString(label.Text)))
	}

	return out
}

// ============================================================
// Geometry helpers
// ============================================================

// openingOutline is the footprint of an opening on its wall: width along
// the wall, wall thickness across it.
func openingOutline(model *models.Model, floor *models.Floor, o models.Opening) ([]models.Point, bool) {
	if o.FloorLevel != floor.Level || o.PolygonIndex < 0 || o.PolygonIndex >= len(floor.Polygons) {
		return nil, false
	}
	pts := floor.Polygons[o.PolygonIndex].Points
	if o.WallSegment < 0 || o.WallSegment >= len(pts) {
		return nil, false
	}

	p, err := pose.Solve(o, pts[o.WallSegment], pts[(o.WallSegment+1)%len(pts)], 0)
	if err != nil {
		return nil, false
	}

	depth := math.Max(model.WallThickness, minOpeningStroke)
	return rectanglePoints(p.Center.X, p.Center.Y, o.Width, depth, p.RotationDeg), true
}

func rectanglePoints(cx, cy, width, height, rotationDeg float64) []models.Point {
	halfW := width / 2
	halfH := height / 2

	points := []models.Point{
		{X: cx - halfW, Y: cy - halfH},
		{X: cx + halfW, Y: cy - halfH},
		{X: cx + halfW, Y: cy + halfH},
		{X: cx - halfW, Y: cy + halfH},
	}

	if rotationDeg == 0 {
		return points
	}

	rad := rotationDeg * math.Pi / 180
	sin := math.Sin(rad)
	cos := math.Cos(rad)

	for i, p := range points {
		dx := p.X - cx
		dy := p.Y - cy
		points[i] = models.Point{
			X: cx + dx*cos - dy*sin,
			Y: cy + dx*sin + dy*cos,
		}
	}

	return points
}

// ============================================================
// Formatting helpers
// ============================================================

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p models.Point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
